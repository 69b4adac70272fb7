// Package handlers wires the domain event subscribers onto the dispatcher.
// Each handler set covers one aggregate's lifecycle events; side effects are
// structured audit logging, except the notification set which also feeds the
// outbound delivery stream.
package handlers

import (
	"github.com/rs/zerolog"

	"github.com/cassiomorais/reminders/internal/event"
	"github.com/cassiomorais/reminders/internal/infrastructure/redis"
)

// Deps carries the dependencies handler sets need.
type Deps struct {
	Logger   zerolog.Logger
	Producer *redis.StreamProducer

	// Policy applies to handlers with external side effects; nil disables
	// retry for them.
	Policy *event.RetryPolicy
}

// RegisterAll subscribes every handler set and returns the handles in
// registration order.
func RegisterAll(d *event.Dispatcher, deps Deps) []*event.Subscription {
	var subs []*event.Subscription
	subs = append(subs, NewReminderHandlers(deps.Logger).Register(d)...)
	subs = append(subs, NewNotificationHandlers(deps.Logger, deps.Producer, deps.Policy).Register(d)...)
	subs = append(subs, NewClientHandlers(deps.Logger).Register(d)...)
	subs = append(subs, NewUserHandlers(deps.Logger).Register(d)...)
	subs = append(subs, NewSenderIdentityHandlers(deps.Logger).Register(d)...)
	return subs
}
