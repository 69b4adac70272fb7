package handlers

import (
	"github.com/rs/zerolog"

	"github.com/cassiomorais/reminders/internal/event"
)

// SenderIdentityHandlers audits sender identity and email configuration
// events.
type SenderIdentityHandlers struct {
	logger zerolog.Logger
}

func NewSenderIdentityHandlers(logger zerolog.Logger) *SenderIdentityHandlers {
	return &SenderIdentityHandlers{logger: logger.With().Str("handler_set", "sender_identity").Logger()}
}

func (h *SenderIdentityHandlers) Register(d *event.Dispatcher) []*event.Subscription {
	return []*event.Subscription{
		d.Subscribe(event.KindSenderIdentityCreated, "sender_identity_logger", h.logIdentity, nil),
		d.Subscribe(event.KindSenderIdentityUpdated, "sender_identity_logger", h.logIdentity, nil),
		d.Subscribe(event.KindSenderIdentityDeleted, "sender_identity_logger", h.logIdentity, nil),
		d.Subscribe(event.KindSenderIdentityVerified, "sender_identity_logger", h.logIdentity, nil),
		d.Subscribe(event.KindSenderIdentityDefaultSet, "sender_identity_logger", h.logIdentity, nil),
		d.Subscribe(event.KindEmailConfigurationCreated, "email_configuration_logger", h.logConfiguration, nil),
		d.Subscribe(event.KindEmailConfigurationUpdated, "email_configuration_logger", h.logConfiguration, nil),
		d.Subscribe(event.KindEmailConfigurationDeleted, "email_configuration_logger", h.logConfiguration, nil),
		d.Subscribe(event.KindEmailConfigurationSetDefault, "email_configuration_logger", h.logConfiguration, nil),
	}
}

func (h *SenderIdentityHandlers) logIdentity(env event.Envelope) error {
	p, ok := env.Payload.(event.SenderIdentityPayload)
	if !ok {
		return event.ErrUnexpectedPayload
	}
	h.logger.Info().
		Str("event_type", env.Type).
		Int64("identity_id", p.IdentityID).
		Int64("user_id", p.UserID).
		Str("identity_type", p.IdentityType).
		Bool("is_verified", p.IsVerified).
		Msg("sender identity event")
	return nil
}

func (h *SenderIdentityHandlers) logConfiguration(env event.Envelope) error {
	p, ok := env.Payload.(event.EmailConfigurationPayload)
	if !ok {
		return event.ErrUnexpectedPayload
	}
	h.logger.Info().
		Str("event_type", env.Type).
		Int64("configuration_id", p.ConfigurationID).
		Int64("user_id", p.UserID).
		Str("from_email", p.FromEmail).
		Msg("email configuration event")
	return nil
}
