package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"yieldvault/config"
	"yieldvault/core/events"
	"yieldvault/crypto"
	vault "yieldvault/native/vault"
	"yieldvault/observability"
	"yieldvault/observability/logging"
	telemetry "yieldvault/observability/otel"
	"yieldvault/rpc"
	vaultstore "yieldvault/state/vault"
	"yieldvault/storage"
)

const nodePassEnv = "VAULTD_KEYSTORE_PASS"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger := logging.Setup("vaultd", cfg.Environment, logging.ParseLevel(cfg.LogLevel))

	if cfg.Telemetry.Enabled() {
		shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
			ServiceName: "vaultd",
			Environment: cfg.Environment,
			Endpoint:    cfg.Telemetry.Endpoint,
			Insecure:    cfg.Telemetry.Insecure,
			Headers:     telemetry.ParseHeaders(cfg.Telemetry.Headers),
			Metrics:     cfg.Telemetry.Metrics,
			Traces:      cfg.Telemetry.Traces,
		})
		if err != nil {
			logger.Error("Failed to init telemetry", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() { _ = shutdownTelemetry(context.Background()) }()
	}

	// Freshly generated node keystores are written with an empty
	// passphrase, so an unset environment variable is fine here.
	nodeKey, err := crypto.LoadFromKeystore(cfg.NodeKeystorePath, os.Getenv(nodePassEnv))
	if err != nil {
		logger.Error("Failed to load node keystore", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Node identity loaded", "address", nodeKey.PubKey().Address().String())

	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "state"))
	if err != nil {
		logger.Error("Failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	store := vaultstore.NewStore(db)
	ring := events.NewRing(1024)
	engine := vault.NewEngine(vault.ModuleTreasuryAddress(), cfg.Vault.AssetSymbol, cfg.Vault.ShareSymbol)
	engine.SetState(store)
	engine.SetPauses(store)
	engine.SetEmitter(observability.NewEventRecorder(ring))

	if err := seedState(cfg, store, engine); err != nil {
		logger.Error("Failed to seed vault state", slog.Any("error", err))
		os.Exit(1)
	}

	secret, err := cfg.JWTSecret()
	if err != nil {
		logger.Error("Failed to resolve JWT secret", slog.Any("error", err))
		os.Exit(1)
	}
	server, err := rpc.NewServer(rpc.ServerConfig{
		Engine:             engine,
		Store:              store,
		Events:             ring,
		JWTSecret:          secret,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		AuditLogPath:       cfg.AuditLogPath,
	})
	if err != nil {
		logger.Error("Failed to build RPC server", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("vaultd started",
		"listen", cfg.ListenAddress,
		"asset", cfg.Vault.AssetSymbol,
		"share", cfg.Vault.ShareSymbol,
	)
	if err := server.Start(ctx, cfg.ListenAddress); err != nil {
		logger.Error("RPC server failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("vaultd stopped")
}

// seedState initializes the vault on first boot: state at unit index, the
// configured rate and capacity, and role grants for the configured admins.
// A vault that is already initialized is left untouched.
func seedState(cfg *config.Config, store *vaultstore.Store, engine *vault.Engine) error {
	existing, err := store.VaultState()
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	now := uint64(time.Now().Unix())
	capacity, err := cfg.InitialCapacity()
	if err != nil {
		return err
	}
	if err := store.PutVaultState(vault.NewVaultState(now, capacity)); err != nil {
		return err
	}
	if cfg.Vault.InitialRateBps > 0 {
		if err := engine.SetRate(cfg.Vault.InitialRateBps, now); err != nil {
			return err
		}
	}

	admins, err := cfg.AdminAddressBytes()
	if err != nil {
		return err
	}
	for _, addr := range admins {
		for _, role := range []string{vault.RoleVaultAdmin, vault.RolePauser, vault.RoleRescuer} {
			if err := store.GrantRole(role, addr); err != nil {
				return err
			}
		}
	}
	return nil
}
