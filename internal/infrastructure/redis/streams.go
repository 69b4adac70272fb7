package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DeliveryStream carries notification delivery jobs from event handlers
	// to the delivery worker.
	DeliveryStream = "notifications:delivery"

	// DLQStream receives deliveries that exhausted their attempts.
	DLQStream = "notifications:dlq"
)

// Delivery is one outbound notification to be sent over a channel.
type Delivery struct {
	NotificationID int64  `json:"notification_id"`
	ReminderID     int64  `json:"reminder_id"`
	UserID         int64  `json:"user_id"`
	ClientID       int64  `json:"client_id,omitempty"`
	Channel        string `json:"channel"` // EMAIL, SMS, WHATSAPP
	Message        string `json:"message,omitempty"`
	CorrelationID  string `json:"correlation_id,omitempty"`
}

type StreamProducer struct {
	client *redis.Client
}

func NewStreamProducer(client *redis.Client) *StreamProducer {
	return &StreamProducer{client: client}
}

// PublishDelivery enqueues a notification delivery job.
func (p *StreamProducer) PublishDelivery(ctx context.Context, d Delivery) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal delivery: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: DeliveryStream,
		Values: map[string]any{
			"notification_id": d.NotificationID,
			"channel":         d.Channel,
			"payload":         string(payload),
			"timestamp":       time.Now().Unix(),
		},
	}

	if _, err := p.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to publish delivery: %w", err)
	}
	return nil
}

// PublishToDLQ parks a delivery that could not be completed.
func (p *StreamProducer) PublishToDLQ(ctx context.Context, d Delivery, reason string) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal DLQ delivery: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: DLQStream,
		Values: map[string]any{
			"notification_id": d.NotificationID,
			"reason":          reason,
			"payload":         string(payload),
			"timestamp":       time.Now().Unix(),
		},
	}

	if _, err := p.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to publish to DLQ: %w", err)
	}
	return nil
}

// ParseDeliveryPayload decodes the payload field of a consumed stream message.
func ParseDeliveryPayload(raw string) (Delivery, error) {
	var d Delivery
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return Delivery{}, fmt.Errorf("failed to unmarshal delivery: %w", err)
	}
	return d, nil
}

type StreamConsumer struct {
	client        *redis.Client
	stream        string
	group         string
	consumer      string
	batchSize     int64
	blockDuration time.Duration
}

func NewStreamConsumer(
	client *redis.Client,
	stream string,
	group string,
	consumer string,
	batchSize int64,
	blockDuration time.Duration,
) *StreamConsumer {
	return &StreamConsumer{
		client:        client,
		stream:        stream,
		group:         group,
		consumer:      consumer,
		batchSize:     batchSize,
		blockDuration: blockDuration,
	}
}

// CreateGroup creates the consumer group, starting from new messages.
func (c *StreamConsumer) CreateGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.stream, c.group, "$").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	return nil
}

// Read blocks for up to the configured duration and returns pending messages.
func (c *StreamConsumer) Read(ctx context.Context) ([]redis.XStream, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.consumer,
		Streams:  []string{c.stream, ">"},
		Count:    c.batchSize,
		Block:    c.blockDuration,
	}).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read from stream: %w", err)
	}
	return streams, nil
}

// Ack acknowledges a processed message.
func (c *StreamConsumer) Ack(ctx context.Context, msgID string) error {
	if err := c.client.XAck(ctx, c.stream, c.group, msgID).Err(); err != nil {
		return fmt.Errorf("failed to ack message: %w", err)
	}
	return nil
}
