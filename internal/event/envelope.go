package event

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SourceSystem is the metadata source recorded for events that are not
// attributable to a specific caller.
const SourceSystem = "system"

// Metadata carries tracing and attribution fields shared by all events.
// It is populated at construction time and never mutated afterwards.
type Metadata struct {
	EventID       uuid.UUID `json:"event_id"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	UserID        int64     `json:"user_id,omitempty"`
	Source        string    `json:"source"`
}

// Envelope is an immutable event: a dot-namespaced type tag, metadata and a
// typed payload. The type tag always matches the payload's kind.
type Envelope struct {
	Type     string
	Metadata Metadata
	Payload  Payload
}

// MetadataOption customizes envelope metadata at construction time.
type MetadataOption func(*Metadata)

// WithCorrelationID links the event to a causal chain.
func WithCorrelationID(id string) MetadataOption {
	return func(m *Metadata) { m.CorrelationID = id }
}

// WithUserID records the acting user.
func WithUserID(id int64) MetadataOption {
	return func(m *Metadata) { m.UserID = id }
}

// WithSource overrides the default "system" source.
func WithSource(source string) MetadataOption {
	return func(m *Metadata) { m.Source = source }
}

// NewEnvelope builds an envelope around the given payload. The event id and
// UTC timestamp are generated here; the type tag is taken from the payload.
func NewEnvelope(payload Payload, opts ...MetadataOption) Envelope {
	md := Metadata{
		EventID:   uuid.New(),
		Timestamp: time.Now().UTC(),
		Source:    SourceSystem,
	}
	for _, opt := range opts {
		opt(&md)
	}
	return Envelope{
		Type:     payload.Kind(),
		Metadata: md,
		Payload:  payload,
	}
}

func (e Envelope) String() string {
	return fmt.Sprintf("Event(%s, id=%s, user=%d)", e.Type, e.Metadata.EventID, e.Metadata.UserID)
}
