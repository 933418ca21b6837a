package rpc

import (
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"

	"yieldvault/observability/logging"
)

// auditLog records every admin method invocation to a rotated file so a rate
// or capacity change can always be traced back to a caller.
type auditLog struct {
	logger *slog.Logger
}

func newAuditLog(path string) *auditLog {
	sink := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    50, // megabytes
		MaxBackups: 10,
		MaxAge:     90, // days
		Compress:   true,
	}
	handler := slog.NewJSONHandler(sink, &slog.HandlerOptions{Level: slog.LevelInfo})
	return &auditLog{logger: slog.New(handler)}
}

// record writes one audit line. Values for non-allowlisted keys are masked so
// bearer tokens can never leak into the audit trail.
func (a *auditLog) record(method, caller, outcome string, fields ...slog.Attr) {
	if a == nil || a.logger == nil {
		return
	}
	attrs := make([]any, 0, len(fields)+3)
	attrs = append(attrs,
		slog.String("method", method),
		slog.String("caller", caller),
		slog.String("outcome", outcome),
	)
	for _, f := range fields {
		attrs = append(attrs, logging.MaskField(f.Key, f.Value.String()))
	}
	a.logger.Info("admin call", attrs...)
}
