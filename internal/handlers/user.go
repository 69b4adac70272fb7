package handlers

import (
	"github.com/rs/zerolog"

	"github.com/cassiomorais/reminders/internal/event"
)

// UserHandlers audits user lifecycle and authentication events. Failed logins
// are logged at warn level so they stand out in the security trail.
type UserHandlers struct {
	logger zerolog.Logger
}

func NewUserHandlers(logger zerolog.Logger) *UserHandlers {
	return &UserHandlers{logger: logger.With().Str("handler_set", "user").Logger()}
}

func (h *UserHandlers) Register(d *event.Dispatcher) []*event.Subscription {
	return []*event.Subscription{
		d.Subscribe(event.KindUserCreated, "user_created_logger", h.logLifecycle, nil),
		d.Subscribe(event.KindUserUpdated, "user_updated_logger", h.logLifecycle, nil),
		d.Subscribe(event.KindUserDeleted, "user_deleted_logger", h.logLifecycle, nil),
		d.Subscribe(event.KindUserLoggedIn, "auth_logger", h.logAuth, nil),
		d.Subscribe(event.KindUserLoggedOut, "auth_logger", h.logAuth, nil),
		d.Subscribe(event.KindUserPasswordReset, "auth_logger", h.logAuth, nil),
	}
}

func (h *UserHandlers) logLifecycle(env event.Envelope) error {
	p, ok := env.Payload.(event.UserPayload)
	if !ok {
		return event.ErrUnexpectedPayload
	}
	h.logger.Info().
		Str("event_type", env.Type).
		Int64("user_id", p.UserID).
		Str("username", p.Username).
		Msg("user lifecycle event")
	return nil
}

func (h *UserHandlers) logAuth(env event.Envelope) error {
	p, ok := env.Payload.(event.AuthPayload)
	if !ok {
		return event.ErrUnexpectedPayload
	}
	evt := h.logger.Info()
	if !p.Success {
		evt = h.logger.Warn()
	}
	evt.
		Str("event_type", env.Type).
		Int64("user_id", p.UserID).
		Str("username", p.Username).
		Str("ip_address", p.IPAddress).
		Bool("success", p.Success).
		Msg("authentication event")
	return nil
}
