package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cassiomorais/reminders/internal/event"
)

// --- Event Store Mock ---

// MockEventStore is an in-memory implementation of event.Store. Each method
// can be overridden per test via the corresponding Func field.
type MockEventStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*event.StoredEvent
	order   []uuid.UUID
	nextID  int64

	StoreEventFunc           func(ctx context.Context, env event.Envelope) (uuid.UUID, error)
	MarkEventProcessedFunc   func(ctx context.Context, eventID uuid.UUID, errMsg *string) error
	GetUnprocessedEventsFunc func(ctx context.Context, limit, maxRetries int) ([]event.StoredEvent, error)
}

func NewMockEventStore() *MockEventStore {
	return &MockEventStore{
		records: make(map[uuid.UUID]*event.StoredEvent),
	}
}

func (m *MockEventStore) StoreEvent(ctx context.Context, env event.Envelope) (uuid.UUID, error) {
	if m.StoreEventFunc != nil {
		return m.StoreEventFunc(ctx, env)
	}
	payload, err := event.EncodePayload(env.Payload)
	if err != nil {
		return uuid.Nil, err
	}
	metadata, err := event.EncodeMetadata(env.Type, env.Metadata)
	if err != nil {
		return uuid.Nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	rec := &event.StoredEvent{
		ID:        m.nextID,
		EventID:   env.Metadata.EventID,
		EventType: env.Type,
		Timestamp: env.Metadata.Timestamp,
		Payload:   payload,
		Metadata:  metadata,
	}
	m.records[rec.EventID] = rec
	m.order = append(m.order, rec.EventID)
	return rec.EventID, nil
}

func (m *MockEventStore) MarkEventProcessed(ctx context.Context, eventID uuid.UUID, errMsg *string) error {
	if m.MarkEventProcessedFunc != nil {
		return m.MarkEventProcessedFunc(ctx, eventID, errMsg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[eventID]
	if !ok {
		return nil
	}
	rec.Processed = errMsg == nil
	rec.ProcessingAttempts++
	rec.Error = errMsg
	return nil
}

func (m *MockEventStore) GetUnprocessedEvents(ctx context.Context, limit, maxRetries int) ([]event.StoredEvent, error) {
	if m.GetUnprocessedEventsFunc != nil {
		return m.GetUnprocessedEventsFunc(ctx, limit, maxRetries)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []event.StoredEvent
	for _, id := range m.order {
		rec := m.records[id]
		if rec.Processed || rec.ProcessingAttempts >= maxRetries {
			continue
		}
		out = append(out, *rec)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *MockEventStore) GetEventByID(ctx context.Context, eventID uuid.UUID) (*event.StoredEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[eventID]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (m *MockEventStore) SearchEvents(ctx context.Context, filter event.SearchFilter) ([]event.StoredEvent, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matches []event.StoredEvent
	// Newest first
	for i := len(m.order) - 1; i >= 0; i-- {
		rec := m.records[m.order[i]]
		if filter.EventType != "" && rec.EventType != filter.EventType {
			continue
		}
		if filter.StartTime != nil && rec.Timestamp.Before(*filter.StartTime) {
			continue
		}
		if filter.EndTime != nil && rec.Timestamp.After(*filter.EndTime) {
			continue
		}
		if filter.Processed != nil && rec.Processed != *filter.Processed {
			continue
		}
		matches = append(matches, *rec)
	}

	total := int64(len(matches))
	if filter.Offset > 0 {
		if filter.Offset >= len(matches) {
			matches = nil
		} else {
			matches = matches[filter.Offset:]
		}
	}
	if filter.Limit > 0 && len(matches) > filter.Limit {
		matches = matches[:filter.Limit]
	}
	return matches, total, nil
}

func (m *MockEventStore) Stats(ctx context.Context, start, end time.Time) (event.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := event.Stats{EventsByType: make(map[string]int64)}
	for _, rec := range m.records {
		if rec.Timestamp.Before(start) || rec.Timestamp.After(end) {
			continue
		}
		stats.TotalEvents++
		if rec.Processed {
			stats.ProcessedEvents++
		} else {
			stats.UnprocessedEvents++
		}
		if rec.Error != nil {
			stats.ErrorEvents++
		}
		stats.EventsByType[rec.EventType]++
	}
	if stats.TotalEvents > 0 {
		stats.ProcessingRate = float64(stats.ProcessedEvents) / float64(stats.TotalEvents)
		stats.ErrorRate = float64(stats.ErrorEvents) / float64(stats.TotalEvents)
	}
	return stats, nil
}

// Record returns a copy of the stored record for an event id, or nil.
func (m *MockEventStore) Record(eventID uuid.UUID) *event.StoredEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[eventID]
	if !ok {
		return nil
	}
	cp := *rec
	return &cp
}

// Len returns the number of stored records.
func (m *MockEventStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// --- Handler capture ---

// CaptureHandler records every envelope it receives and returns the
// configured error sequence, one per call, then nil.
type CaptureHandler struct {
	mu     sync.Mutex
	seen   []event.Envelope
	errSeq []error
	calls  int
}

func NewCaptureHandler(errSeq ...error) *CaptureHandler {
	return &CaptureHandler{errSeq: errSeq}
}

func (c *CaptureHandler) Handle(env event.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = append(c.seen, env)
	c.calls++
	if len(c.errSeq) > 0 {
		err := c.errSeq[0]
		c.errSeq = c.errSeq[1:]
		return err
	}
	return nil
}

func (c *CaptureHandler) HandleAsync(ctx context.Context, env event.Envelope) error {
	return c.Handle(env)
}

func (c *CaptureHandler) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *CaptureHandler) Seen() []event.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]event.Envelope, len(c.seen))
	copy(out, c.seen)
	return out
}
