package usersink

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-navstack/pkg/diag"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Hook adapts diagnostic events to a go-users ActivitySink, so navigation
// inconsistencies show up in the same audit feed as the rest of an
// application's activity.
type Hook struct {
	Sink usertypes.ActivitySink
}

// Notify maps the event into an ActivityRecord and forwards it to the sink.
func (h Hook) Notify(ctx context.Context, event diag.Event) error {
	if h.Sink == nil {
		return nil
	}

	normalized := diag.NormalizeEvent(event)
	if normalized.Op == "" || normalized.Message == "" {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	record := usertypes.ActivityRecord{
		ActorID:    metadataUUID(normalized.Metadata, "actor_id"),
		UserID:     metadataUUID(normalized.Metadata, "user_id"),
		TenantID:   metadataUUID(normalized.Metadata, "tenant_id"),
		Verb:       "navstack." + normalized.Op,
		ObjectType: "navstack.element",
		ObjectID:   normalized.ElementID,
		Channel:    normalized.Component,
		Data:       cloneMap(normalized.Metadata),
		OccurredAt: normalized.OccurredAt,
	}
	if record.OccurredAt.IsZero() {
		record.OccurredAt = time.Now()
	}
	if normalized.Scope != "" {
		if record.Data == nil {
			record.Data = map[string]any{}
		}
		record.Data["scope"] = normalized.Scope
	}
	if normalized.Message != "" {
		if record.Data == nil {
			record.Data = map[string]any{}
		}
		record.Data["message"] = normalized.Message
	}

	return h.Sink.Log(ctx, record)
}

func metadataUUID(metadata map[string]any, key string) uuid.UUID {
	raw, ok := metadata[key].(string)
	if !ok {
		return uuid.Nil
	}
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil
	}
	return id
}

func cloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
