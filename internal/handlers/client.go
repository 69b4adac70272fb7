package handlers

import (
	"github.com/rs/zerolog"

	"github.com/cassiomorais/reminders/internal/event"
)

// ClientHandlers audits client lifecycle and reminder association events.
type ClientHandlers struct {
	logger zerolog.Logger
}

func NewClientHandlers(logger zerolog.Logger) *ClientHandlers {
	return &ClientHandlers{logger: logger.With().Str("handler_set", "client").Logger()}
}

func (h *ClientHandlers) Register(d *event.Dispatcher) []*event.Subscription {
	return []*event.Subscription{
		d.Subscribe(event.KindClientCreated, "client_created_logger", h.logLifecycle, nil),
		d.Subscribe(event.KindClientUpdated, "client_updated_logger", h.logLifecycle, nil),
		d.Subscribe(event.KindClientDeleted, "client_deleted_logger", h.logLifecycle, nil),
		d.Subscribe(event.KindClientAddedToReminder, "client_association_logger", h.logAssociation, nil),
		d.Subscribe(event.KindClientRemovedFromReminder, "client_association_logger", h.logAssociation, nil),
	}
}

func (h *ClientHandlers) logLifecycle(env event.Envelope) error {
	p, ok := env.Payload.(event.ClientPayload)
	if !ok {
		return event.ErrUnexpectedPayload
	}
	h.logger.Info().
		Str("event_type", env.Type).
		Int64("client_id", p.ClientID).
		Int64("user_id", p.UserID).
		Str("name", p.Name).
		Msg("client lifecycle event")
	return nil
}

func (h *ClientHandlers) logAssociation(env event.Envelope) error {
	p, ok := env.Payload.(event.ClientReminderPayload)
	if !ok {
		return event.ErrUnexpectedPayload
	}
	h.logger.Info().
		Str("event_type", env.Type).
		Int64("client_id", p.ClientID).
		Int64("reminder_id", p.ReminderID).
		Int64("user_id", p.UserID).
		Msg("client reminder association changed")
	return nil
}
