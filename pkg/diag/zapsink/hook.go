package zapsink

import (
	"context"

	"github.com/goliatone/go-navstack/pkg/diag"
	"go.uber.org/zap"
)

// Hook writes diagnostic events to a zap logger as warnings. Diagnostics in
// this system report recoverable desynchronization, so warn level fits every
// event.
type Hook struct {
	Logger *zap.Logger
}

// Notify logs the event with structured fields.
func (h Hook) Notify(_ context.Context, event diag.Event) error {
	if h.Logger == nil {
		return nil
	}

	fields := []zap.Field{
		zap.String("op", event.Op),
		zap.String("component", event.Component),
		zap.Time("occurred_at", event.OccurredAt),
	}
	if event.Scope != "" {
		fields = append(fields, zap.String("scope", event.Scope))
	}
	if event.ElementID != "" {
		fields = append(fields, zap.String("element_id", event.ElementID))
	}
	if len(event.Metadata) > 0 {
		fields = append(fields, zap.Any("metadata", event.Metadata))
	}

	h.Logger.Warn(event.Message, fields...)
	return nil
}
