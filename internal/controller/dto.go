package controller

import (
	"encoding/json"
	"time"

	"github.com/cassiomorais/reminders/internal/event"
)

// --- Request DTOs ---
// DTOs handle HTTP/JSON concerns (string timestamps, validation tags).
// Controllers convert these to event package types before querying.

// RecoverRequest bounds one on-demand recovery pass. A zero limit uses the
// configured batch size.
type RecoverRequest struct {
	Limit int `json:"limit" validate:"gte=0,lte=1000"`
}

// --- Response DTOs ---

// StoredEventResponse represents one event log record in API responses.
type StoredEventResponse struct {
	ID                 int64           `json:"id"`
	EventID            string          `json:"event_id"`
	EventType          string          `json:"event_type"`
	Timestamp          time.Time       `json:"timestamp"`
	Payload            json.RawMessage `json:"payload"`
	Metadata           json.RawMessage `json:"metadata"`
	Processed          bool            `json:"processed"`
	ProcessingAttempts int             `json:"processing_attempts"`
	Error              *string         `json:"error,omitempty"`
}

// StoredEventsResponse is a paginated event log page.
type StoredEventsResponse struct {
	Events []StoredEventResponse `json:"events"`
	Total  int64                 `json:"total"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
}

// EventTypesResponse lists the event types with active subscribers.
type EventTypesResponse struct {
	EventTypes []string `json:"event_types"`
	Count      int      `json:"count"`
}

// RecoverResponse reports a recovery pass outcome.
type RecoverResponse struct {
	Recovered int `json:"recovered"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// --- Conversion helpers ---

// FromStoredEvent converts an event log record to API response.
func FromStoredEvent(rec event.StoredEvent) StoredEventResponse {
	return StoredEventResponse{
		ID:                 rec.ID,
		EventID:            rec.EventID.String(),
		EventType:          rec.EventType,
		Timestamp:          rec.Timestamp,
		Payload:            rec.Payload,
		Metadata:           rec.Metadata,
		Processed:          rec.Processed,
		ProcessingAttempts: rec.ProcessingAttempts,
		Error:              rec.Error,
	}
}

// FromStoredEvents converts a page of event log records.
func FromStoredEvents(recs []event.StoredEvent) []StoredEventResponse {
	out := make([]StoredEventResponse, len(recs))
	for i, rec := range recs {
		out[i] = FromStoredEvent(rec)
	}
	return out
}
