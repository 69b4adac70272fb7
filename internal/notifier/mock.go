package notifier

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// MockSender simulates a delivery provider with configurable latency and
// failure behavior. Used in development and tests.
type MockSender struct {
	channel     Channel
	failureRate float64 // 0.0 to 1.0
	latency     time.Duration
	timeoutRate float64 // 0.0 to 1.0
}

type MockSenderOption func(*MockSender)

func WithFailureRate(rate float64) MockSenderOption {
	return func(s *MockSender) { s.failureRate = rate }
}

func WithLatency(d time.Duration) MockSenderOption {
	return func(s *MockSender) { s.latency = d }
}

func WithTimeoutRate(rate float64) MockSenderOption {
	return func(s *MockSender) { s.timeoutRate = rate }
}

func NewMockSender(channel Channel, opts ...MockSenderOption) *MockSender {
	s := &MockSender{
		channel:     channel,
		failureRate: 0.0,
		latency:     100 * time.Millisecond,
		timeoutRate: 0.0,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *MockSender) Channel() Channel { return s.channel }

func (s *MockSender) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	// Simulate latency
	select {
	case <-time.After(s.latency):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if rand.Float64() < s.timeoutRate {
		return nil, ErrSendTimeout
	}

	if rand.Float64() < s.failureRate {
		return &SendResult{
			Status:       "failed",
			ErrorMessage: fmt.Sprintf("%s: simulated delivery failure for notification %d", s.channel, req.NotificationID),
		}, ErrSendRejected
	}

	return &SendResult{
		MessageID: fmt.Sprintf("%s_msg_%s", s.channel, uuid.New().String()[:8]),
		Status:    "sent",
	}, nil
}
