package handlers

import (
	"github.com/rs/zerolog"

	"github.com/cassiomorais/reminders/internal/event"
)

// ReminderHandlers audits reminder lifecycle events.
type ReminderHandlers struct {
	logger zerolog.Logger
}

func NewReminderHandlers(logger zerolog.Logger) *ReminderHandlers {
	return &ReminderHandlers{logger: logger.With().Str("handler_set", "reminder").Logger()}
}

func (h *ReminderHandlers) Register(d *event.Dispatcher) []*event.Subscription {
	return []*event.Subscription{
		d.Subscribe(event.KindReminderCreated, "reminder_created_logger", h.logLifecycle, nil),
		d.Subscribe(event.KindReminderUpdated, "reminder_updated_logger", h.logLifecycle, nil),
		d.Subscribe(event.KindReminderDeleted, "reminder_deleted_logger", h.logLifecycle, nil),
		d.Subscribe(event.KindReminderDue, "reminder_due_logger", h.logDue, nil),
	}
}

func (h *ReminderHandlers) logLifecycle(env event.Envelope) error {
	p, ok := env.Payload.(event.ReminderPayload)
	if !ok {
		return event.ErrUnexpectedPayload
	}
	h.logger.Info().
		Str("event_type", env.Type).
		Int64("reminder_id", p.ReminderID).
		Int64("user_id", p.UserID).
		Str("title", p.Title).
		Msg("reminder lifecycle event")
	return nil
}

func (h *ReminderHandlers) logDue(env event.Envelope) error {
	p, ok := env.Payload.(event.ReminderPayload)
	if !ok {
		return event.ErrUnexpectedPayload
	}
	evt := h.logger.Info().
		Str("event_type", env.Type).
		Int64("reminder_id", p.ReminderID).
		Int64("user_id", p.UserID).
		Str("notification_type", p.NotificationType)
	if p.ReminderDate != nil {
		evt = evt.Time("reminder_date", *p.ReminderDate)
	}
	evt.Msg("reminder due")
	return nil
}
