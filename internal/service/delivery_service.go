package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	domainErrors "github.com/cassiomorais/reminders/internal/domain/errors"
	"github.com/cassiomorais/reminders/internal/event"
	"github.com/cassiomorais/reminders/internal/infrastructure/observability"
	"github.com/cassiomorais/reminders/internal/infrastructure/redis"
	"github.com/cassiomorais/reminders/internal/notifier"
)

// DeliveryService consumes delivery jobs from the notification stream and
// sends them through the channel senders. Every delivery outcome is emitted
// back through the dispatcher as a notification.sent or notification.failed
// event, so the audit trail and event log cover the full lifecycle.
type DeliveryService struct {
	consumer   *redis.StreamConsumer
	producer   *redis.StreamProducer
	senders    *notifier.Factory
	dispatcher *event.Dispatcher
	metrics    *observability.Metrics
	logger     zerolog.Logger
}

func NewDeliveryService(
	consumer *redis.StreamConsumer,
	producer *redis.StreamProducer,
	senders *notifier.Factory,
	dispatcher *event.Dispatcher,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *DeliveryService {
	return &DeliveryService{
		consumer:   consumer,
		producer:   producer,
		senders:    senders,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger.With().Str("component", "delivery_service").Logger(),
	}
}

// Run consumes the delivery stream until the context is cancelled.
func (s *DeliveryService) Run(ctx context.Context) error {
	if err := s.consumer.CreateGroup(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		streams, err := s.consumer.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Error().Err(err).Msg("failed to read delivery stream")
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				s.process(ctx, msg.Values, msg.ID)
				if err := s.consumer.Ack(ctx, msg.ID); err != nil {
					s.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("failed to ack delivery")
				}
			}
		}
	}
}

func (s *DeliveryService) process(ctx context.Context, values map[string]any, msgID string) {
	raw, _ := values["payload"].(string)
	d, err := redis.ParseDeliveryPayload(raw)
	if err != nil {
		s.logger.Error().Err(err).Str("message_id", msgID).Msg("skipping malformed delivery")
		return
	}

	sender, breaker, err := s.senders.Get(notifier.Channel(d.Channel))
	if err != nil {
		s.deadLetter(ctx, d, err.Error())
		return
	}

	start := time.Now()
	result, err := breaker.Execute(func() (*notifier.SendResult, error) {
		return sender.Send(ctx, notifier.SendRequest{
			NotificationID: d.NotificationID,
			Message:        d.Message,
		})
	})
	elapsed := time.Since(start).Seconds()
	if s.metrics != nil {
		s.metrics.DeliveryDuration.WithLabelValues(d.Channel).Observe(elapsed)
	}

	if err != nil {
		if s.metrics != nil {
			s.metrics.DeliveriesTotal.WithLabelValues(d.Channel, "failed").Inc()
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = fmt.Errorf("%w: circuit breaker open for channel %s", domainErrors.ErrChannelUnavailable, d.Channel)
		}
		s.deadLetter(ctx, d, err.Error())
		s.emitOutcome(ctx, d, "FAILED", err.Error(), nil)
		return
	}

	if s.metrics != nil {
		s.metrics.DeliveriesTotal.WithLabelValues(d.Channel, "sent").Inc()
	}
	s.logger.Info().
		Int64("notification_id", d.NotificationID).
		Str("channel", d.Channel).
		Str("message_id", result.MessageID).
		Msg("notification delivered")

	now := time.Now()
	s.emitOutcome(ctx, d, "SENT", "", &now)
}

func (s *DeliveryService) deadLetter(ctx context.Context, d redis.Delivery, reason string) {
	s.logger.Warn().
		Int64("notification_id", d.NotificationID).
		Str("channel", d.Channel).
		Str("reason", reason).
		Msg("delivery dead-lettered")
	if err := s.producer.PublishToDLQ(ctx, d, reason); err != nil {
		s.logger.Error().Err(err).Int64("notification_id", d.NotificationID).Msg("failed to dead-letter delivery")
	}
}

func (s *DeliveryService) emitOutcome(ctx context.Context, d redis.Delivery, status, errMsg string, sentAt *time.Time) {
	data := event.NotificationData{
		NotificationID:   d.NotificationID,
		UserID:           d.UserID,
		ReminderID:       d.ReminderID,
		ClientID:         d.ClientID,
		NotificationType: d.Channel,
		Status:           status,
		SentAt:           sentAt,
		ErrorMessage:     errMsg,
	}
	var payload event.Payload
	if status == "SENT" {
		payload = event.NotificationSent(data)
	} else {
		payload = event.NotificationFailed(data)
	}
	env := event.NewEnvelope(payload,
		event.WithUserID(d.UserID),
		event.WithCorrelationID(d.CorrelationID),
		event.WithSource(event.SourceSystem),
	)
	s.dispatcher.EmitAsyncSafely(ctx, env)
}
