package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Action names a lifecycle transition.
type Action string

const (
	Created Action = "created"
	Updated Action = "updated"
	Deleted Action = "deleted"
)

// Event is the message body of a record lifecycle event.
type Event struct {
	EventID    uuid.UUID      `json:"eventId"`
	RoutingKey string         `json:"routingKey"`
	Collection string         `json:"collection"`
	RecordID   string         `json:"recordId"`
	OccurredAt time.Time      `json:"occurredAt"`
	Data       map[string]any `json:"data,omitempty"`
}

// RoutingKey builds keys such as "user.created" from a record noun and action.
func RoutingKey(noun string, action Action) string {
	return noun + "." + string(action)
}

// Recorder turns record changes into events. Publishing is best-effort:
// failures are logged and never returned.
type Recorder struct {
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewRecorder creates a recorder. A nil publisher records nothing.
func NewRecorder(publisher Publisher, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Record publishes one event for a record of the given collection and noun
// ("users", "user"). data is the record state after the change; nil for
// deletions.
func (r *Recorder) Record(ctx context.Context, collection, noun string, action Action, id string, data map[string]any) {
	if r == nil || r.publisher == nil {
		return
	}

	ev := Event{
		EventID:    uuid.New(),
		RoutingKey: RoutingKey(noun, action),
		Collection: collection,
		RecordID:   id,
		OccurredAt: r.now().UTC(),
		Data:       data,
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to encode event",
			"routing_key", ev.RoutingKey,
			"record_id", id,
			"error", err,
		)
		return
	}

	// The request may finish before the broker acknowledges.
	if err := r.publisher.Publish(context.WithoutCancel(ctx), ev.RoutingKey, payload); err != nil {
		r.logger.WarnContext(ctx, "failed to publish event",
			"routing_key", ev.RoutingKey,
			"record_id", id,
			"error", err,
		)
	}
}
