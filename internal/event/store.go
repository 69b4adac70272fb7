package event

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// StoredEvent is the persisted projection of an envelope plus its processing
// state. The payload and metadata columns hold the serialized forms produced
// by the codec.
type StoredEvent struct {
	ID                 int64           `json:"id"`
	EventID            uuid.UUID       `json:"event_id"`
	EventType          string          `json:"event_type"`
	Timestamp          time.Time       `json:"timestamp"`
	Payload            json.RawMessage `json:"payload"`
	Metadata           json.RawMessage `json:"metadata"`
	Processed          bool            `json:"processed"`
	ProcessingAttempts int             `json:"processing_attempts"`
	Error              *string         `json:"error"`
}

// SearchFilter selects stored events for operational inspection. Results are
// returned newest first.
type SearchFilter struct {
	EventType string
	StartTime *time.Time
	EndTime   *time.Time
	Processed *bool
	Limit     int
	Offset    int
}

// Stats aggregates stored-event counts for a time window.
type Stats struct {
	TotalEvents       int64            `json:"total_events"`
	ProcessedEvents   int64            `json:"processed_events"`
	UnprocessedEvents int64            `json:"unprocessed_events"`
	ErrorEvents       int64            `json:"error_events"`
	ProcessingRate    float64          `json:"processing_rate"`
	ErrorRate         float64          `json:"error_rate"`
	EventsByType      map[string]int64 `json:"events_by_type"`
}

// Store is the durable append-only event log. Only the dispatcher writes to
// it; the monitoring surface reads it.
type Store interface {
	// StoreEvent serializes and inserts a new unprocessed record. It fails
	// with a *SerializationError if the envelope cannot be serialized, since
	// an unpersistable event cannot be recovered later.
	StoreEvent(ctx context.Context, env Envelope) (uuid.UUID, error)

	// MarkEventProcessed records a handler-invocation outcome: processed is
	// set to true when errMsg is nil, the attempt counter is incremented and
	// the error column updated. An unknown event id is a logged no-op.
	MarkEventProcessed(ctx context.Context, eventID uuid.UUID, errMsg *string) error

	// GetUnprocessedEvents returns records with processed=false and fewer
	// than maxRetries processing attempts, oldest first, capped at limit.
	GetUnprocessedEvents(ctx context.Context, limit, maxRetries int) ([]StoredEvent, error)

	// GetEventByID returns the record for the given event id, or nil.
	GetEventByID(ctx context.Context, eventID uuid.UUID) (*StoredEvent, error)

	// SearchEvents returns matching records newest first plus the total
	// match count before pagination.
	SearchEvents(ctx context.Context, filter SearchFilter) ([]StoredEvent, int64, error)

	// Stats aggregates counts over the [start, end] window.
	Stats(ctx context.Context, start, end time.Time) (Stats, error)
}
