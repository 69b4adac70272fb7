package notifier

import (
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/cassiomorais/reminders/internal/infrastructure/observability"
)

// Factory holds the registered senders and a circuit breaker per channel.
// A tripped breaker short-circuits sends to a failing provider; deliveries
// rejected by an open breaker are routed to the dead-letter stream by the
// worker instead of burning retry attempts.
type Factory struct {
	senders  map[Channel]Sender
	breakers map[Channel]*gobreaker.CircuitBreaker[*SendResult]
	metrics  *observability.Metrics
}

func NewFactory(metrics *observability.Metrics, senders ...Sender) *Factory {
	f := &Factory{
		senders:  make(map[Channel]Sender),
		breakers: make(map[Channel]*gobreaker.CircuitBreaker[*SendResult]),
		metrics:  metrics,
	}

	if len(senders) == 0 {
		f.Register(NewMockSender(ChannelEmail,
			WithLatency(200*time.Millisecond),
			WithFailureRate(0.02),
		))
		f.Register(NewMockSender(ChannelSMS,
			WithLatency(300*time.Millisecond),
			WithFailureRate(0.05),
		))
		f.Register(NewMockSender(ChannelWhatsApp,
			WithLatency(400*time.Millisecond),
			WithFailureRate(0.05),
		))
	} else {
		for _, s := range senders {
			f.Register(s)
		}
	}

	return f
}

func (f *Factory) Register(s Sender) {
	name := string(s.Channel())
	f.senders[s.Channel()] = s
	f.breakers[s.Channel()] = gobreaker.NewCircuitBreaker[*SendResult](gobreaker.Settings{
		Name:        name,
		MaxRequests: 10,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, _, to gobreaker.State) {
			if f.metrics != nil {
				f.metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
			}
		},
	})
}

func (f *Factory) Get(channel Channel) (Sender, *gobreaker.CircuitBreaker[*SendResult], error) {
	s, ok := f.senders[channel]
	if !ok {
		return nil, nil, fmt.Errorf("unknown channel %q: %w", channel, ErrChannelNotFound)
	}
	return s, f.breakers[channel], nil
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}
