package controller

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	domainErrors "github.com/cassiomorais/reminders/internal/domain/errors"
	"github.com/cassiomorais/reminders/internal/event"
	"github.com/cassiomorais/reminders/internal/service"
)

// MonitoringController exposes the event system's operational surface:
// in-process dispatch metrics, subscription registries, the durable event
// log and the recovery trigger.
type MonitoringController struct {
	dispatcher *event.Dispatcher
	store      event.Store
	recovery   *service.RecoveryService
}

func NewMonitoringController(dispatcher *event.Dispatcher, store event.Store, recovery *service.RecoveryService) *MonitoringController {
	return &MonitoringController{
		dispatcher: dispatcher,
		store:      store,
		recovery:   recovery,
	}
}

// Metrics returns the in-process collector snapshot.
func (c *MonitoringController) Metrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, c.dispatcher.Metrics())
}

// EventTypes returns the event types with at least one subscriber.
func (c *MonitoringController) EventTypes(w http.ResponseWriter, r *http.Request) {
	types := c.dispatcher.SubscribedEventTypes()
	writeJSON(w, http.StatusOK, EventTypesResponse{EventTypes: types, Count: len(types)})
}

// Subscriptions returns subscriber counts per event type.
func (c *MonitoringController) Subscriptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, c.dispatcher.SubscriptionInfo())
}

// StoredEvents returns a filtered, paginated page of the event log, newest
// first.
func (c *MonitoringController) StoredEvents(w http.ResponseWriter, r *http.Request) {
	filter, err := parseSearchFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}

	records, total, err := c.store.SearchEvents(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, StoredEventsResponse{
		Events: FromStoredEvents(records),
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// StoredEvent returns one event log record by event id.
func (c *MonitoringController) StoredEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := uuid.Parse(chi.URLParam(r, "eventID"))
	if err != nil {
		writeError(w, domainErrors.NewValidationError("eventID", "must be a valid UUID"))
		return
	}

	rec, err := c.store.GetEventByID(r.Context(), eventID)
	if err != nil {
		writeError(w, err)
		return
	}
	if rec == nil {
		writeError(w, domainErrors.ErrEventNotFound)
		return
	}
	writeJSON(w, http.StatusOK, FromStoredEvent(*rec))
}

// Stats aggregates event log counts over a time window, defaulting to the
// last 24 hours.
func (c *MonitoringController) Stats(w http.ResponseWriter, r *http.Request) {
	end := time.Now()
	start := end.Add(-24 * time.Hour)

	var err error
	if v := r.URL.Query().Get("start_time"); v != "" {
		if start, err = time.Parse(time.RFC3339, v); err != nil {
			writeError(w, domainErrors.NewValidationError("start_time", "must be RFC3339"))
			return
		}
	}
	if v := r.URL.Query().Get("end_time"); v != "" {
		if end, err = time.Parse(time.RFC3339, v); err != nil {
			writeError(w, domainErrors.NewValidationError("end_time", "must be RFC3339"))
			return
		}
	}
	if end.Before(start) {
		writeError(w, domainErrors.ErrInvalidTimeWindow)
		return
	}

	stats, err := c.store.Stats(r.Context(), start, end)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Recover triggers one recovery pass over unprocessed stored events.
func (c *MonitoringController) Recover(w http.ResponseWriter, r *http.Request) {
	var req RecoverRequest
	if r.ContentLength != 0 {
		if err := decodeAndValidate(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}

	count, err := c.recovery.Recover(r.Context(), req.Limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RecoverResponse{Recovered: count})
}

// ResetMetrics zeroes the in-process collector. Prometheus counters are
// unaffected.
func (c *MonitoringController) ResetMetrics(w http.ResponseWriter, r *http.Request) {
	c.dispatcher.ResetMetrics()
	writeJSON(w, http.StatusOK, map[string]string{"status": "metrics reset"})
}

func parseSearchFilter(r *http.Request) (event.SearchFilter, error) {
	q := r.URL.Query()
	filter := event.SearchFilter{
		EventType: q.Get("event_type"),
		Limit:     100,
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 1000 {
			return filter, domainErrors.NewValidationError("limit", "must be between 1 and 1000")
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, domainErrors.NewValidationError("offset", "must be non-negative")
		}
		filter.Offset = n
	}
	if v := q.Get("start_time"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, domainErrors.NewValidationError("start_time", "must be RFC3339")
		}
		filter.StartTime = &t
	}
	if v := q.Get("end_time"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, domainErrors.NewValidationError("end_time", "must be RFC3339")
		}
		filter.EndTime = &t
	}
	if v := q.Get("processed"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return filter, domainErrors.NewValidationError("processed", "must be true or false")
		}
		filter.Processed = &b
	}
	if filter.StartTime != nil && filter.EndTime != nil && filter.EndTime.Before(*filter.StartTime) {
		return filter, domainErrors.ErrInvalidTimeWindow
	}
	return filter, nil
}
