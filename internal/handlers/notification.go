package handlers

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/cassiomorais/reminders/internal/event"
	"github.com/cassiomorais/reminders/internal/infrastructure/redis"
)

// NotificationHandlers audits notification lifecycle events and feeds the
// outbound delivery stream. The delivery publisher is the one handler in the
// system with an external side effect on the hot path, so it runs async with
// retry.
type NotificationHandlers struct {
	logger   zerolog.Logger
	producer *redis.StreamProducer
	policy   *event.RetryPolicy
}

func NewNotificationHandlers(logger zerolog.Logger, producer *redis.StreamProducer, policy *event.RetryPolicy) *NotificationHandlers {
	return &NotificationHandlers{
		logger:   logger.With().Str("handler_set", "notification").Logger(),
		producer: producer,
		policy:   policy,
	}
}

func (h *NotificationHandlers) Register(d *event.Dispatcher) []*event.Subscription {
	subs := []*event.Subscription{
		d.Subscribe(event.KindNotificationSent, "notification_sent_logger", h.logOutcome, nil),
		d.Subscribe(event.KindNotificationFailed, "notification_failed_logger", h.logOutcome, nil),
		d.Subscribe(event.KindNotificationCancelled, "notification_cancelled_logger", h.logOutcome, nil),
	}
	if h.producer != nil {
		subs = append(subs,
			d.SubscribeAsync(event.KindNotificationScheduled, "delivery_publisher", h.publishDelivery, h.policy),
		)
	}
	return subs
}

// publishDelivery enqueues one delivery job per scheduled notification.
func (h *NotificationHandlers) publishDelivery(ctx context.Context, env event.Envelope) error {
	p, ok := env.Payload.(event.NotificationPayload)
	if !ok {
		return event.ErrUnexpectedPayload
	}

	delivery := redis.Delivery{
		NotificationID: p.NotificationID,
		ReminderID:     p.ReminderID,
		UserID:         p.UserID,
		ClientID:       p.ClientID,
		Channel:        p.NotificationType,
		Message:        p.Message,
		CorrelationID:  env.Metadata.CorrelationID,
	}
	if err := h.producer.PublishDelivery(ctx, delivery); err != nil {
		return err
	}

	h.logger.Info().
		Int64("notification_id", p.NotificationID).
		Str("channel", p.NotificationType).
		Msg("delivery job published")
	return nil
}

func (h *NotificationHandlers) logOutcome(env event.Envelope) error {
	p, ok := env.Payload.(event.NotificationPayload)
	if !ok {
		return event.ErrUnexpectedPayload
	}
	evt := h.logger.Info()
	if env.Type == event.KindNotificationFailed {
		evt = h.logger.Warn().Str("error_message", p.ErrorMessage)
	}
	evt.
		Str("event_type", env.Type).
		Int64("notification_id", p.NotificationID).
		Int64("reminder_id", p.ReminderID).
		Str("status", p.Status).
		Msg("notification outcome")
	return nil
}
