package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is a minimal in-memory Store for dispatcher tests.
type memStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*StoredEvent
	order   []uuid.UUID
}

func newMemStore() *memStore {
	return &memStore{records: make(map[uuid.UUID]*StoredEvent)}
}

func (s *memStore) StoreEvent(_ context.Context, env Envelope) (uuid.UUID, error) {
	payload, err := EncodePayload(env.Payload)
	if err != nil {
		return uuid.Nil, err
	}
	metadata, err := EncodeMetadata(env.Type, env.Metadata)
	if err != nil {
		return uuid.Nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := &StoredEvent{
		ID:        int64(len(s.order) + 1),
		EventID:   env.Metadata.EventID,
		EventType: env.Type,
		Timestamp: env.Metadata.Timestamp,
		Payload:   payload,
		Metadata:  metadata,
	}
	s.records[rec.EventID] = rec
	s.order = append(s.order, rec.EventID)
	return rec.EventID, nil
}

func (s *memStore) MarkEventProcessed(_ context.Context, eventID uuid.UUID, errMsg *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[eventID]
	if !ok {
		return nil
	}
	rec.Processed = errMsg == nil
	rec.ProcessingAttempts++
	rec.Error = errMsg
	return nil
}

func (s *memStore) GetUnprocessedEvents(_ context.Context, limit, maxRetries int) ([]StoredEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []StoredEvent
	for _, id := range s.order {
		rec := s.records[id]
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

func (s *memStore) GetEventByID(_ context.Context, eventID uuid.UUID) (*StoredEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[eventID]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (s *memStore) SearchEvents(context.Context, SearchFilter) ([]StoredEvent, int64, error) {
	return nil, 0, nil
}

func (s *memStore) Stats(context.Context, time.Time, time.Time) (Stats, error) {
	return Stats{}, nil
}

func (s *memStore) record(eventID uuid.UUID) *StoredEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[eventID]
	if !ok {
		return nil
	}
	cp := *rec
	return &cp
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

func newTestDispatcher(store Store) *Dispatcher {
	return NewDispatcher(DispatcherConfig{
		Store:      store,
		Logger:     zerolog.Nop(),
		MaxRetries: 3,
	})
}

func quickRetry(maxRetries int) *RetryPolicy {
	return &RetryPolicy{MaxRetries: maxRetries, BaseDelay: time.Millisecond, BackoffMultiplier: 2.0}
}

func TestDispatcher_EmitDeliversToSubscribersInOrder(t *testing.T) {
	d := newTestDispatcher(nil)

	var order []string
	d.Subscribe(KindUserCreated, "first", func(Envelope) error {
		order = append(order, "first")
		return nil
	}, nil)
	d.Subscribe(KindUserCreated, "second", func(Envelope) error {
		order = append(order, "second")
		return nil
	}, nil)

	err := d.Emit(NewEnvelope(UserCreated(UserData{UserID: 1})))

	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestDispatcher_EmitWithoutSubscribers(t *testing.T) {
	store := newMemStore()
	d := newTestDispatcher(store)

	env := NewEnvelope(UserCreated(UserData{UserID: 1}))
	err := d.Emit(env)

	require.NoError(t, err)
	// Persisted even though nothing consumed it.
	assert.Equal(t, 1, store.count())
	assert.False(t, store.record(env.Metadata.EventID).Processed)
}

func TestDispatcher_HandlerFailureIsContained(t *testing.T) {
	store := newMemStore()
	d := newTestDispatcher(store)

	secondCalled := false
	d.Subscribe(KindUserCreated, "failing", func(Envelope) error {
		return errors.New("boom")
	}, nil)
	d.Subscribe(KindUserCreated, "healthy", func(Envelope) error {
		secondCalled = true
		return nil
	}, nil)

	env := NewEnvelope(UserCreated(UserData{UserID: 1}))
	err := d.Emit(env)

	require.NoError(t, err)
	assert.True(t, secondCalled)

	snap := d.Metrics()
	assert.Equal(t, int64(1), snap.ProcessedEvents[KindUserCreated])
	assert.Equal(t, int64(1), snap.HandlerErrors[KindUserCreated]["failing"])
}

func TestDispatcher_HandlerPanicIsContained(t *testing.T) {
	d := newTestDispatcher(nil)

	afterCalled := false
	d.Subscribe(KindReminderDue, "panicking", func(Envelope) error {
		panic("handler bug")
	}, nil)
	d.Subscribe(KindReminderDue, "after", func(Envelope) error {
		afterCalled = true
		return nil
	}, nil)

	err := d.Emit(NewEnvelope(ReminderDue(ReminderData{ReminderID: 1})))

	require.NoError(t, err)
	assert.True(t, afterCalled)
	assert.Equal(t, int64(1), d.Metrics().HandlerErrors[KindReminderDue]["panicking"])
}

func TestDispatcher_RetrySucceedsAfterTransientFailure(t *testing.T) {
	store := newMemStore()
	d := newTestDispatcher(store)

	calls := 0
	d.Subscribe(KindNotificationScheduled, "flaky", func(Envelope) error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	}, quickRetry(2))

	env := NewEnvelope(NotificationScheduled(NotificationData{NotificationID: 1}))
	require.NoError(t, d.Emit(env))

	assert.Equal(t, 2, calls)
	snap := d.Metrics()
	assert.Equal(t, int64(1), snap.RetryStats[KindNotificationScheduled].Attempts)
	assert.Equal(t, int64(1), snap.RetryStats[KindNotificationScheduled].Successes)
	assert.True(t, store.record(env.Metadata.EventID).Processed)
}

func TestDispatcher_RetryExhaustion(t *testing.T) {
	store := newMemStore()
	d := newTestDispatcher(store)

	calls := 0
	d.Subscribe(KindNotificationScheduled, "doomed", func(Envelope) error {
		calls++
		return errors.New("permanent")
	}, quickRetry(2))

	env := NewEnvelope(NotificationScheduled(NotificationData{NotificationID: 1}))
	require.NoError(t, d.Emit(env))

	// Initial attempt plus two retries.
	assert.Equal(t, 3, calls)
	snap := d.Metrics()
	assert.Equal(t, int64(2), snap.RetryStats[KindNotificationScheduled].Attempts)
	assert.Equal(t, int64(1), snap.RetryStats[KindNotificationScheduled].Failures)

	rec := store.record(env.Metadata.EventID)
	assert.False(t, rec.Processed)
	require.NotNil(t, rec.Error)
	assert.Contains(t, *rec.Error, "permanent")
}

func TestDispatcher_NoRetryWithoutPolicy(t *testing.T) {
	d := newTestDispatcher(nil)

	calls := 0
	d.Subscribe(KindUserCreated, "once", func(Envelope) error {
		calls++
		return errors.New("nope")
	}, nil)

	require.NoError(t, d.Emit(NewEnvelope(UserCreated(UserData{UserID: 1}))))
	assert.Equal(t, 1, calls)
}

func TestDispatcher_ReentrantEmitIsQueued(t *testing.T) {
	d := newTestDispatcher(nil)

	var order []string
	d.Subscribe(KindReminderDue, "scheduler", func(Envelope) error {
		order = append(order, "due:scheduler")
		// Emitting from inside a handler must not recurse.
		return d.Emit(NewEnvelope(NotificationScheduled(NotificationData{NotificationID: 1})))
	}, nil)
	d.Subscribe(KindReminderDue, "audit", func(Envelope) error {
		order = append(order, "due:audit")
		return nil
	}, nil)
	d.Subscribe(KindNotificationScheduled, "publisher", func(Envelope) error {
		order = append(order, "scheduled:publisher")
		return nil
	}, nil)

	require.NoError(t, d.Emit(NewEnvelope(ReminderDue(ReminderData{ReminderID: 1}))))

	// The queued event runs after the current fan-out completes.
	assert.Equal(t, []string{"due:scheduler", "due:audit", "scheduled:publisher"}, order)
}

func TestDispatcher_EmitAsyncRunsSyncThenAsync(t *testing.T) {
	d := newTestDispatcher(nil)

	var order []string
	d.Subscribe(KindNotificationScheduled, "sync", func(Envelope) error {
		order = append(order, "sync")
		return nil
	}, nil)
	d.SubscribeAsync(KindNotificationScheduled, "async", func(context.Context, Envelope) error {
		order = append(order, "async")
		return nil
	}, nil)

	err := d.EmitAsync(context.Background(), NewEnvelope(NotificationScheduled(NotificationData{NotificationID: 1})))

	require.NoError(t, err)
	assert.Equal(t, []string{"sync", "async"}, order)
}

func TestDispatcher_EmitSkipsAsyncSubscribers(t *testing.T) {
	d := newTestDispatcher(nil)

	asyncCalled := false
	d.SubscribeAsync(KindUserCreated, "async", func(context.Context, Envelope) error {
		asyncCalled = true
		return nil
	}, nil)

	require.NoError(t, d.Emit(NewEnvelope(UserCreated(UserData{UserID: 1}))))
	assert.False(t, asyncCalled)
}

func TestDispatcher_UnsubscribeRemovesExactRegistration(t *testing.T) {
	d := newTestDispatcher(nil)

	var calls []string
	handler := func(name string) Handler {
		return func(Envelope) error {
			calls = append(calls, name)
			return nil
		}
	}
	// Same handler name registered twice; only the held handle is removed.
	subA := d.Subscribe(KindUserCreated, "logger", handler("a"), nil)
	d.Subscribe(KindUserCreated, "logger", handler("b"), nil)

	assert.True(t, subA.Unsubscribe())
	assert.False(t, subA.Unsubscribe(), "second unsubscribe is a no-op")

	require.NoError(t, d.Emit(NewEnvelope(UserCreated(UserData{UserID: 1}))))
	assert.Equal(t, []string{"b"}, calls)
}

func TestDispatcher_UnsubscribeCleansEmptyEventType(t *testing.T) {
	d := newTestDispatcher(nil)

	sub := d.Subscribe(KindUserDeleted, "only", func(Envelope) error { return nil }, nil)
	assert.True(t, d.HasSubscribers(KindUserDeleted))

	sub.Unsubscribe()
	assert.False(t, d.HasSubscribers(KindUserDeleted))
	assert.NotContains(t, d.SubscribedEventTypes(), KindUserDeleted)
}

func TestDispatcher_SubscribedEventTypesSorted(t *testing.T) {
	d := newTestDispatcher(nil)

	noop := func(Envelope) error { return nil }
	d.Subscribe(KindUserCreated, "h", noop, nil)
	d.Subscribe(KindClientCreated, "h", noop, nil)
	d.SubscribeAsync(KindReminderDue, "h", func(context.Context, Envelope) error { return nil }, nil)

	types := d.SubscribedEventTypes()
	assert.Equal(t, []string{KindClientCreated, KindReminderDue, KindUserCreated}, types)
}

func TestDispatcher_SubscriptionInfo(t *testing.T) {
	d := newTestDispatcher(nil)

	noop := func(Envelope) error { return nil }
	d.Subscribe(KindUserCreated, "a", noop, nil)
	d.Subscribe(KindUserCreated, "b", noop, nil)
	d.SubscribeAsync(KindUserCreated, "c", func(context.Context, Envelope) error { return nil }, nil)

	info := d.SubscriptionInfo()
	assert.Equal(t, 2, info.Sync[KindUserCreated])
	assert.Equal(t, 1, info.Async[KindUserCreated])
}

func TestDispatcher_PersistFailureDoesNotBlockDispatch(t *testing.T) {
	store := newMemStore()
	d := newTestDispatcher(&failingStore{memStore: store})

	called := false
	d.Subscribe(KindUserCreated, "h", func(Envelope) error {
		called = true
		return nil
	}, nil)

	err := d.Emit(NewEnvelope(UserCreated(UserData{UserID: 1})))

	require.NoError(t, err)
	assert.True(t, called)
}

type failingStore struct {
	*memStore
}

func (s *failingStore) StoreEvent(context.Context, Envelope) (uuid.UUID, error) {
	return uuid.Nil, errors.New("database down")
}

func TestDispatcher_ProcessUnprocessedEvents(t *testing.T) {
	store := newMemStore()
	d := newTestDispatcher(store)

	// Persisted with no subscribers: stays unprocessed.
	env := NewEnvelope(NotificationScheduled(NotificationData{NotificationID: 5}))
	require.NoError(t, d.Emit(env))
	require.False(t, store.record(env.Metadata.EventID).Processed)

	handled := 0
	d.Subscribe(KindNotificationScheduled, "late_subscriber", func(Envelope) error {
		handled++
		return nil
	}, nil)

	count, err := d.ProcessUnprocessedEvents(context.Background(), 10)

	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, handled)
	assert.True(t, store.record(env.Metadata.EventID).Processed)
	// Redelivery never inserts a second row.
	assert.Equal(t, 1, store.count())
}

func TestDispatcher_ProcessUnprocessedEvents_SkipsUndecodable(t *testing.T) {
	store := newMemStore()
	d := newTestDispatcher(store)

	// A valid unprocessed record plus one with an unknown event type.
	env := NewEnvelope(UserCreated(UserData{UserID: 1}))
	require.NoError(t, d.Emit(env))

	badID := uuid.New()
	store.mu.Lock()
	store.records[badID] = &StoredEvent{
		ID:        99,
		EventID:   badID,
		EventType: "invoice.created",
		Payload:   []byte(`{}`),
		Metadata:  []byte(`{}`),
	}
	store.order = append(store.order, badID)
	store.mu.Unlock()

	handled := 0
	d.Subscribe(KindUserCreated, "h", func(Envelope) error {
		handled++
		return nil
	}, nil)

	count, err := d.ProcessUnprocessedEvents(context.Background(), 10)

	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, handled)

	bad := store.record(badID)
	require.NotNil(t, bad.Error)
	assert.Contains(t, *bad.Error, "invoice.created")
	assert.False(t, bad.Processed)
}

func TestDispatcher_ProcessUnprocessedEvents_RespectsAttemptCap(t *testing.T) {
	store := newMemStore()
	d := newTestDispatcher(store) // MaxRetries: 3

	env := NewEnvelope(UserCreated(UserData{UserID: 1}))
	require.NoError(t, d.Emit(env))

	store.mu.Lock()
	store.records[env.Metadata.EventID].ProcessingAttempts = 3
	store.mu.Unlock()

	handled := 0
	d.Subscribe(KindUserCreated, "h", func(Envelope) error {
		handled++
		return nil
	}, nil)

	count, err := d.ProcessUnprocessedEvents(context.Background(), 10)

	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Equal(t, 0, handled)
}

func TestDispatcher_EmitSafelySwallowsErrors(t *testing.T) {
	d := newTestDispatcher(nil)

	assert.NotPanics(t, func() {
		d.EmitSafely(NewEnvelope(UserCreated(UserData{UserID: 1})))
		d.EmitAsyncSafely(context.Background(), NewEnvelope(UserCreated(UserData{UserID: 2})))
	})
}

func TestDispatcher_ResetMetrics(t *testing.T) {
	d := newTestDispatcher(nil)
	d.Subscribe(KindUserCreated, "h", func(Envelope) error { return nil }, nil)
	require.NoError(t, d.Emit(NewEnvelope(UserCreated(UserData{UserID: 1}))))
	require.Equal(t, int64(1), d.Metrics().ProcessedEvents[KindUserCreated])

	d.ResetMetrics()

	assert.Empty(t, d.Metrics().ProcessedEvents)
}
