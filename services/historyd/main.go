package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"yieldvault/observability/logging"
	telemetry "yieldvault/observability/otel"
	"yieldvault/services/historyd/config"
	"yieldvault/services/historyd/recorder"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "services/historyd/config.yaml", "path to historyd config")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("VAULT_ENV"))
	logger := logging.Setup("historyd", env, logging.ParseLevel(os.Getenv("VAULT_LOG_LEVEL")))

	otlpEndpoint := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	insecure := true
	if value := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE")); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			insecure = parsed
		}
	}
	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName: "historyd",
		Environment: env,
		Endpoint:    otlpEndpoint,
		Insecure:    insecure,
		Headers:     telemetry.ParseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")),
		Metrics:     true,
		Traces:      true,
	})
	if err != nil {
		logger.Error("init telemetry", "error", err)
		os.Exit(1)
	}
	defer func() {
		if shutdownTelemetry != nil {
			_ = shutdownTelemetry(context.Background())
		}
	}()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	rec, err := recorder.Open(cfg.DatabasePath)
	if err != nil {
		logger.Error("open recorder", "error", err)
		os.Exit(1)
	}
	client := newNodeClient(cfg.NodeURL, cfg.RequestLimit)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("historyd started", "node", cfg.NodeURL, "interval", cfg.PollInterval.String())
	runPoller(ctx, logger, client, rec, cfg.PollInterval)
	logger.Info("historyd stopped")
}

// runPoller samples the node on every tick until the context is cancelled.
// Transient node failures are logged and retried on the next tick.
func runPoller(ctx context.Context, logger *slog.Logger, client *nodeClient, rec *recorder.Recorder, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := sampleOnce(ctx, client, rec); err != nil && ctx.Err() == nil {
			logger.Warn("sample failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func sampleOnce(ctx context.Context, client *nodeClient, rec *recorder.Recorder) error {
	state, err := client.vaultState(ctx)
	if err != nil {
		return err
	}
	index, err := client.vaultIndex(ctx)
	if err != nil {
		return err
	}
	return rec.Record(recorder.IndexSample{
		Timestamp:   index.Timestamp,
		Index:       index.Index,
		RateBps:     state.RateBps,
		TotalShares: state.TotalShares,
		Capacity:    state.Capacity,
	})
}
