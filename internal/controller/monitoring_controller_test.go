package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cassiomorais/reminders/internal/event"
	"github.com/cassiomorais/reminders/internal/service"
	"github.com/cassiomorais/reminders/internal/testutil"
)

type stubLock struct {
	acquired bool
}

func (l *stubLock) Acquire(ctx context.Context) (bool, error) { return l.acquired, nil }
func (l *stubLock) Release(ctx context.Context) error         { return nil }

type monitoringFixture struct {
	store      *testutil.MockEventStore
	dispatcher *event.Dispatcher
	captured   *testutil.CaptureHandler
	lock       *stubLock
	router     *chi.Mux
}

func newMonitoringFixture(t *testing.T) *monitoringFixture {
	t.Helper()

	store := testutil.NewMockEventStore()
	dispatcher := event.NewDispatcher(event.DispatcherConfig{
		Store:      store,
		Logger:     zerolog.Nop(),
		MaxRetries: 3,
	})
	captured := testutil.NewCaptureHandler()
	dispatcher.Subscribe(event.KindReminderDue, "capture", captured.Handle, nil)

	lock := &stubLock{acquired: true}
	recovery := service.NewRecoveryService(dispatcher, func() service.Lock { return lock }, nil, zerolog.Nop(), 100)
	ctrl := NewMonitoringController(dispatcher, store, recovery)

	r := chi.NewRouter()
	r.Route("/monitoring/events", func(r chi.Router) {
		r.Get("/metrics", ctrl.Metrics)
		r.Get("/types", ctrl.EventTypes)
		r.Get("/subscriptions", ctrl.Subscriptions)
		r.Get("/stored", ctrl.StoredEvents)
		r.Get("/stored/{eventID}", ctrl.StoredEvent)
		r.Get("/stats", ctrl.Stats)
		r.Post("/recover", ctrl.Recover)
		r.Post("/reset-metrics", ctrl.ResetMetrics)
	})

	return &monitoringFixture{
		store:      store,
		dispatcher: dispatcher,
		captured:   captured,
		lock:       lock,
		router:     r,
	}
}

func (f *monitoringFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestMonitoring_Metrics(t *testing.T) {
	f := newMonitoringFixture(t)
	require.NoError(t, f.dispatcher.Emit(testutil.NewReminderDueEnvelope(42, 7)))

	w := f.do(t, "GET", "/monitoring/events/metrics", "")

	require.Equal(t, http.StatusOK, w.Code)
	var snap event.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, int64(1), snap.ProcessedEvents[event.KindReminderDue])
}

func TestMonitoring_EventTypes(t *testing.T) {
	f := newMonitoringFixture(t)

	w := f.do(t, "GET", "/monitoring/events/types", "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp EventTypesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Contains(t, resp.EventTypes, event.KindReminderDue)
}

func TestMonitoring_Subscriptions(t *testing.T) {
	f := newMonitoringFixture(t)

	w := f.do(t, "GET", "/monitoring/events/subscriptions", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), event.KindReminderDue)
}

func TestMonitoring_StoredEvents(t *testing.T) {
	f := newMonitoringFixture(t)
	require.NoError(t, f.dispatcher.Emit(testutil.NewReminderDueEnvelope(1, 7)))
	require.NoError(t, f.dispatcher.Emit(testutil.NewUserCreatedEnvelope(7, "alice")))

	w := f.do(t, "GET", "/monitoring/events/stored?event_type="+event.KindReminderDue, "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp StoredEventsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.Total)
	require.Len(t, resp.Events, 1)
	assert.Equal(t, event.KindReminderDue, resp.Events[0].EventType)
	assert.Equal(t, 100, resp.Limit)
}

func TestMonitoring_StoredEvents_InvalidLimit(t *testing.T) {
	f := newMonitoringFixture(t)

	for _, limit := range []string{"0", "-5", "1001", "abc"} {
		w := f.do(t, "GET", "/monitoring/events/stored?limit="+limit, "")

		assert.Equal(t, http.StatusBadRequest, w.Code, "limit=%s", limit)
		assert.Contains(t, w.Body.String(), "validation_error")
	}
}

func TestMonitoring_StoredEvents_InvalidTimeWindow(t *testing.T) {
	f := newMonitoringFixture(t)

	start := time.Now().UTC().Format(time.RFC3339)
	end := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	w := f.do(t, "GET", "/monitoring/events/stored?start_time="+start+"&end_time="+end, "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_time_window")
}

func TestMonitoring_StoredEvents_ProcessedFilter(t *testing.T) {
	f := newMonitoringFixture(t)
	// reminder.due has a subscriber, so it ends up processed; user.created has
	// none and stays unprocessed.
	require.NoError(t, f.dispatcher.Emit(testutil.NewReminderDueEnvelope(1, 7)))
	require.NoError(t, f.dispatcher.Emit(testutil.NewUserCreatedEnvelope(7, "alice")))

	w := f.do(t, "GET", "/monitoring/events/stored?processed=false", "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp StoredEventsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Events, 1)
	assert.Equal(t, event.KindUserCreated, resp.Events[0].EventType)
}

func TestMonitoring_StoredEvent(t *testing.T) {
	f := newMonitoringFixture(t)
	env := testutil.NewReminderDueEnvelope(42, 7)
	require.NoError(t, f.dispatcher.Emit(env))

	w := f.do(t, "GET", "/monitoring/events/stored/"+env.Metadata.EventID.String(), "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp StoredEventResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, env.Metadata.EventID.String(), resp.EventID)
	assert.True(t, resp.Processed)
}

func TestMonitoring_StoredEvent_NotFound(t *testing.T) {
	f := newMonitoringFixture(t)

	w := f.do(t, "GET", "/monitoring/events/stored/"+uuid.New().String(), "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not_found")
}

func TestMonitoring_StoredEvent_InvalidID(t *testing.T) {
	f := newMonitoringFixture(t)

	w := f.do(t, "GET", "/monitoring/events/stored/not-a-uuid", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation_error")
}

func TestMonitoring_Stats(t *testing.T) {
	f := newMonitoringFixture(t)
	require.NoError(t, f.dispatcher.Emit(testutil.NewReminderDueEnvelope(1, 7)))
	require.NoError(t, f.dispatcher.Emit(testutil.NewUserCreatedEnvelope(7, "alice")))

	w := f.do(t, "GET", "/monitoring/events/stats", "")

	require.Equal(t, http.StatusOK, w.Code)
	var stats event.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(2), stats.TotalEvents)
	assert.Equal(t, int64(1), stats.ProcessedEvents)
	assert.Equal(t, int64(1), stats.UnprocessedEvents)
}

func TestMonitoring_Stats_InvalidTime(t *testing.T) {
	f := newMonitoringFixture(t)

	w := f.do(t, "GET", "/monitoring/events/stats?start_time=yesterday", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation_error")
}

func TestMonitoring_Stats_EndBeforeStart(t *testing.T) {
	f := newMonitoringFixture(t)

	start := time.Now().UTC().Format(time.RFC3339)
	end := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	w := f.do(t, "GET", "/monitoring/events/stats?start_time="+start+"&end_time="+end, "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_time_window")
}

func TestMonitoring_Recover(t *testing.T) {
	f := newMonitoringFixture(t)
	// Persist an event without dispatching it, as if the process died mid-dispatch.
	_, err := f.store.StoreEvent(context.Background(), testutil.NewReminderDueEnvelope(42, 7))
	require.NoError(t, err)

	w := f.do(t, "POST", "/monitoring/events/recover", "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp RecoverResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Recovered)
	assert.Equal(t, 1, f.captured.Calls())
}

func TestMonitoring_Recover_WithLimit(t *testing.T) {
	f := newMonitoringFixture(t)
	for i := int64(0); i < 3; i++ {
		_, err := f.store.StoreEvent(context.Background(), testutil.NewReminderDueEnvelope(i, 7))
		require.NoError(t, err)
	}

	w := f.do(t, "POST", "/monitoring/events/recover", `{"limit": 2}`)

	require.Equal(t, http.StatusOK, w.Code)
	var resp RecoverResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Recovered)
}

func TestMonitoring_Recover_InvalidLimit(t *testing.T) {
	f := newMonitoringFixture(t)

	w := f.do(t, "POST", "/monitoring/events/recover", `{"limit": 5000}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation_error")
}

func TestMonitoring_Recover_LockContended(t *testing.T) {
	f := newMonitoringFixture(t)
	f.lock.acquired = false

	w := f.do(t, "POST", "/monitoring/events/recover", "")

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "recovery_in_progress")
}

func TestMonitoring_ResetMetrics(t *testing.T) {
	f := newMonitoringFixture(t)
	require.NoError(t, f.dispatcher.Emit(testutil.NewReminderDueEnvelope(42, 7)))

	w := f.do(t, "POST", "/monitoring/events/reset-metrics", "")
	require.Equal(t, http.StatusOK, w.Code)

	snap := f.dispatcher.Metrics()
	assert.Empty(t, snap.ProcessedEvents)
}
