package observability

import (
	"log/slog"

	"yieldvault/core/events"
)

// EventRecorder is an events.Emitter that mirrors vault events into the
// Prometheus registry and structured logs before forwarding them to the
// wrapped emitter.
type EventRecorder struct {
	next    events.Emitter
	metrics *vaultMetrics
	logger  *slog.Logger
}

// NewEventRecorder wraps next with metrics and log recording. A nil next is
// treated as a terminal sink.
func NewEventRecorder(next events.Emitter) *EventRecorder {
	if next == nil {
		next = events.NoopEmitter{}
	}
	return &EventRecorder{
		next:    next,
		metrics: Vault(),
		logger:  slog.Default().With("component", "vault-events"),
	}
}

// Emit implements events.Emitter.
func (r *EventRecorder) Emit(evt events.Event) {
	if r == nil || evt == nil {
		return
	}
	switch e := evt.(type) {
	case *events.VaultIndexUpdated:
		r.metrics.SetIndex(e.Index)
		r.logger.Debug("index updated", "timestamp", e.Timestamp, "index", e.Index)
	case *events.VaultDeposited:
		r.logger.Info("deposit settled", "assets", e.Assets, "shares", e.Shares)
	case *events.VaultWithdrawn:
		r.logger.Info("withdrawal settled", "assets", e.Assets, "shares", e.Shares)
	case *events.VaultSharesTransferred:
		r.logger.Info("shares transferred", "shares", e.Shares)
	case *events.VaultRateUpdated:
		r.metrics.SetRateBps(e.NewRateBps)
		r.logger.Info("rate updated", "oldRateBps", e.OldRateBps, "newRateBps", e.NewRateBps)
	case *events.VaultCapacityUpdated:
		r.metrics.SetCapacity(e.Capacity)
		r.logger.Info("capacity updated", "capacity", e.Capacity)
	case *events.VaultShortfall:
		r.metrics.RecordShortfall()
		r.logger.Warn("payout clamped to treasury balance", "theoretical", e.Theoretical, "onHand", e.OnHand)
	case *events.VaultTokensRescued:
		r.logger.Info("tokens rescued", "token", e.Token, "amount", e.Amount)
	default:
		r.logger.Debug("event emitted", "type", evt.EventType())
	}
	r.next.Emit(evt)
}
