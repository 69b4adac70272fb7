package event

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"
)

// Handler processes an event on the synchronous fan-out path. It must not
// block on I/O for long; a hung handler stalls the whole dispatch (no
// per-handler timeout exists).
type Handler func(env Envelope) error

// AsyncHandler processes an event on the asynchronous path and may perform
// context-aware I/O.
type AsyncHandler func(ctx context.Context, env Envelope) error

// MetricsHook mirrors dispatch outcomes into an external metrics backend.
// The in-process Collector remains the source of truth for the monitoring
// snapshot; the hook is append-only and unaffected by resets.
type MetricsHook interface {
	EventProcessed(eventType string, seconds float64)
	EventFailed(eventType string)
	HandlerError(eventType, handler string)
	RetryAttempt(eventType string)
}

// Subscription is an opaque registration handle. Unsubscribing through the
// handle removes exactly this registration, regardless of handler identity.
type Subscription struct {
	d         *Dispatcher
	eventType string
	id        uint64
	async     bool
}

// Name returns the handler name the subscription was registered under.
func (s *Subscription) Name() string {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, reg := range s.d.registry(s.async)[s.eventType] {
		if reg.id == s.id {
			return reg.name
		}
	}
	return ""
}

// Unsubscribe removes the registration and reports whether a removal
// occurred. The event-type entry is cleaned up once no sync or async
// handlers remain.
func (s *Subscription) Unsubscribe() bool {
	return s.d.unsubscribe(s)
}

type registration struct {
	id      uint64
	name    string
	policy  *RetryPolicy
	handler Handler
	async   AsyncHandler
}

type queuedEvent struct {
	ctx   context.Context
	env   Envelope
	async bool
}

// DispatcherConfig configures a Dispatcher. Store and Hook are optional.
type DispatcherConfig struct {
	Store  Store
	Logger zerolog.Logger
	Hook   MetricsHook

	// MaxRetries bounds recovery: stored events that have accumulated this
	// many processing attempts are no longer eligible for redelivery.
	MaxRetries int
}

// Dispatcher is the single point of event fan-out. It owns the subscriber
// registries, persists envelopes before dispatch, wraps every handler call
// with retry and metrics, and drives recovery of unprocessed stored events.
//
// One misbehaving handler never prevents other handlers or other events from
// being processed; only infrastructure failures surface to the emitter.
type Dispatcher struct {
	store      Store
	logger     zerolog.Logger
	collector  *Collector
	hook       MetricsHook
	maxRetries int

	mu          sync.Mutex
	subs        map[string][]*registration
	asyncSubs   map[string][]*registration
	dispatching bool
	queue       []queuedEvent
	nextID      uint64
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultRetryPolicy().MaxRetries
	}
	return &Dispatcher{
		store:      cfg.Store,
		logger:     cfg.Logger.With().Str("component", "event_dispatcher").Logger(),
		collector:  NewCollector(),
		hook:       cfg.Hook,
		maxRetries: maxRetries,
		subs:       make(map[string][]*registration),
		asyncSubs:  make(map[string][]*registration),
	}
}

// Subscribe registers a synchronous handler for an event type. Handlers run
// in registration order. A non-nil policy enables per-handler retry with
// exponential backoff.
func (d *Dispatcher) Subscribe(eventType, name string, h Handler, policy *RetryPolicy) *Subscription {
	return d.register(eventType, &registration{name: name, handler: h, policy: policy}, false)
}

// SubscribeAsync registers an asynchronous handler, invoked only on the
// EmitAsync path after all synchronous handlers have run.
func (d *Dispatcher) SubscribeAsync(eventType, name string, h AsyncHandler, policy *RetryPolicy) *Subscription {
	return d.register(eventType, &registration{name: name, async: h, policy: policy}, true)
}

func (d *Dispatcher) register(eventType string, reg *registration, async bool) *Subscription {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	reg.id = d.nextID
	registry := d.registry(async)
	registry[eventType] = append(registry[eventType], reg)
	d.logger.Debug().
		Str("event_type", eventType).
		Str("handler", reg.name).
		Bool("async", async).
		Msg("subscribed")
	return &Subscription{d: d, eventType: eventType, id: reg.id, async: async}
}

func (d *Dispatcher) registry(async bool) map[string][]*registration {
	if async {
		return d.asyncSubs
	}
	return d.subs
}

func (d *Dispatcher) unsubscribe(s *Subscription) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	registry := d.registry(s.async)
	regs := registry[s.eventType]
	for i, reg := range regs {
		if reg.id != s.id {
			continue
		}
		registry[s.eventType] = append(regs[:i:i], regs[i+1:]...)
		if len(registry[s.eventType]) == 0 {
			delete(registry, s.eventType)
		}
		return true
	}
	return false
}

// Emit persists the envelope and fans it out to all synchronous subscribers
// in registration order. Re-entrant emits from within a handler are queued
// and drained FIFO after the current fan-out completes, each driving its own
// complete fan-out. Handler failures are contained; only infrastructure
// failures return a *DispatchError.
func (d *Dispatcher) Emit(env Envelope) error {
	return d.emit(context.Background(), env, false, true)
}

// EmitAsync persists the envelope, runs synchronous handlers in order, then
// awaits asynchronous handlers sequentially to preserve observable ordering.
func (d *Dispatcher) EmitAsync(ctx context.Context, env Envelope) error {
	return d.emit(ctx, env, true, true)
}

// EmitSafely emits and swallows any dispatch error, for call sites that must
// not fail on event-system trouble.
func (d *Dispatcher) EmitSafely(env Envelope) {
	if err := d.Emit(env); err != nil {
		d.logger.Error().Err(err).Str("event_type", env.Type).Msg("failed to emit event")
	}
}

// EmitAsyncSafely is EmitAsync with dispatch errors swallowed.
func (d *Dispatcher) EmitAsyncSafely(ctx context.Context, env Envelope) {
	if err := d.EmitAsync(ctx, env); err != nil {
		d.logger.Error().Err(err).Str("event_type", env.Type).Msg("failed to emit async event")
	}
}

func (d *Dispatcher) emit(ctx context.Context, env Envelope, async, persist bool) error {
	if persist {
		d.persist(ctx, env)
	}

	d.mu.Lock()
	if d.dispatching {
		d.queue = append(d.queue, queuedEvent{ctx: ctx, env: env, async: async})
		d.mu.Unlock()
		d.logger.Debug().Str("event_type", env.Type).Msg("dispatch in progress, event queued")
		return nil
	}
	d.dispatching = true
	d.mu.Unlock()

	err := d.dispatchOne(ctx, env, async)

	// Drain events queued by handlers during the fan-out. Their dispatch
	// errors are logged, not propagated, so one bad queued event cannot
	// abort the rest of the drain.
	for {
		d.mu.Lock()
		if len(d.queue) == 0 {
			d.dispatching = false
			d.mu.Unlock()
			break
		}
		next := d.queue[0]
		d.queue = d.queue[1:]
		d.mu.Unlock()

		if qErr := d.dispatchOne(next.ctx, next.env, next.async); qErr != nil {
			d.logger.Error().Err(qErr).
				Str("event_type", next.env.Type).
				Msg("error processing queued event")
		}
	}
	return err
}

// dispatchOne runs a single complete fan-out with timing and outcome metrics.
// A panic in the dispatch machinery itself (not in a handler; those are
// recovered per-handler) is an infrastructure failure.
func (d *Dispatcher) dispatchOne(ctx context.Context, env Envelope, async bool) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = &DispatchError{EventType: env.Type, Err: fmt.Errorf("panic: %v", r)}
		}
		if err != nil {
			d.collector.RecordFailed(env.Type)
			if d.hook != nil {
				d.hook.EventFailed(env.Type)
			}
			return
		}
		seconds := time.Since(start).Seconds()
		d.collector.RecordProcessed(env.Type)
		d.collector.RecordDuration(env.Type, seconds)
		if d.hook != nil {
			d.hook.EventProcessed(env.Type, seconds)
		}
	}()

	for _, reg := range d.subscribersFor(env.Type, false) {
		d.invoke(ctx, reg, env)
	}
	if async {
		for _, reg := range d.subscribersFor(env.Type, true) {
			d.invoke(ctx, reg, env)
		}
	}
	return nil
}

func (d *Dispatcher) subscribersFor(eventType string, async bool) []*registration {
	d.mu.Lock()
	defer d.mu.Unlock()
	regs := d.registry(async)[eventType]
	out := make([]*registration, len(regs))
	copy(out, regs)
	return out
}

// invoke calls one handler with retry, persistence marking and metrics. The
// handler's final failure is swallowed so that dispatch continues with the
// next handler.
func (d *Dispatcher) invoke(ctx context.Context, reg *registration, env Envelope) {
	call := func() error { return d.safeCall(ctx, reg, env) }

	attempts := uint(1)
	if reg.policy != nil && reg.policy.MaxRetries > 0 {
		attempts = uint(reg.policy.MaxRetries) + 1
	}

	retried := false
	err := retry.Do(call,
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, _ error, _ *retry.Config) time.Duration {
			if reg.policy == nil {
				return 0
			}
			return reg.policy.Delay(int(n) + 1)
		}),
		retry.OnRetry(func(n uint, attemptErr error) {
			retried = true
			d.recordFailure(ctx, reg, env, attemptErr)
			d.collector.RecordRetryAttempt(env.Type)
			if d.hook != nil {
				d.hook.RetryAttempt(env.Type)
			}
			d.logger.Warn().Err(attemptErr).
				Str("event_type", env.Type).
				Str("handler", reg.name).
				Uint("attempt", n+1).
				Msg("retrying event handler")
		}),
	)
	if err == nil {
		if retried {
			d.collector.RecordRetrySuccess(env.Type)
		}
		d.markProcessed(ctx, env, nil)
		return
	}

	d.recordFailure(ctx, reg, env, err)
	if retried {
		d.collector.RecordRetryFailure(env.Type)
	}
	d.logger.Error().Err(err).
		Str("event_type", env.Type).
		Str("handler", reg.name).
		Str("event_id", env.Metadata.EventID.String()).
		Msg("event handler failed")
}

// safeCall converts a handler panic into a handler error so a crashing
// subscriber is contained like any other failure.
func (d *Dispatcher) safeCall(ctx context.Context, reg *registration, env Envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	if reg.handler != nil {
		return reg.handler(env)
	}
	return reg.async(ctx, env)
}

func (d *Dispatcher) recordFailure(ctx context.Context, reg *registration, env Envelope, err error) {
	d.collector.RecordHandlerError(env.Type, reg.name)
	if d.hook != nil {
		d.hook.HandlerError(env.Type, reg.name)
	}
	msg := (&HandlerError{EventType: env.Type, Handler: reg.name, Err: err}).Error()
	d.markProcessed(ctx, env, &msg)
}

// persist appends the envelope to the event store. Persistence failure is
// logged but never fatal to dispatch.
func (d *Dispatcher) persist(ctx context.Context, env Envelope) {
	if d.store == nil {
		return
	}
	if _, err := d.store.StoreEvent(ctx, env); err != nil {
		d.logger.Error().Err(err).
			Str("event_type", env.Type).
			Str("event_id", env.Metadata.EventID.String()).
			Msg("failed to persist event")
	}
}

// markProcessed updates the stored record for a handler outcome, best effort.
func (d *Dispatcher) markProcessed(ctx context.Context, env Envelope, errMsg *string) {
	if d.store == nil {
		return
	}
	if err := d.store.MarkEventProcessed(ctx, env.Metadata.EventID, errMsg); err != nil {
		d.logger.Warn().Err(err).
			Str("event_id", env.Metadata.EventID.String()).
			Msg("failed to update stored event")
	}
}

// ProcessUnprocessedEvents re-dispatches stored events that never completed,
// oldest first, up to limit. Records that cannot be decoded are marked with
// the decode error and skipped; the rest of the batch proceeds. Returns the
// number of events successfully re-dispatched.
func (d *Dispatcher) ProcessUnprocessedEvents(ctx context.Context, limit int) (int, error) {
	if d.store == nil {
		return 0, nil
	}
	records, err := d.store.GetUnprocessedEvents(ctx, limit, d.maxRetries)
	if err != nil {
		return 0, fmt.Errorf("get unprocessed events: %w", err)
	}

	count := 0
	for _, rec := range records {
		env, decErr := DecodeEnvelope(rec)
		if decErr != nil {
			d.logger.Error().Err(decErr).
				Str("event_id", rec.EventID.String()).
				Str("event_type", rec.EventType).
				Msg("skipping undecodable stored event")
			msg := decErr.Error()
			if markErr := d.store.MarkEventProcessed(ctx, rec.EventID, &msg); markErr != nil {
				d.logger.Warn().Err(markErr).Str("event_id", rec.EventID.String()).Msg("failed to record decode error")
			}
			continue
		}
		// Redelivery must not insert a second event_log row for the same
		// event id, so the recovery path skips persistence.
		if dispErr := d.emit(ctx, env, true, false); dispErr != nil {
			d.logger.Error().Err(dispErr).
				Str("event_id", rec.EventID.String()).
				Msg("failed to re-dispatch stored event")
			continue
		}
		count++
	}
	if count > 0 {
		d.logger.Info().Int("count", count).Msg("recovered unprocessed events")
	}
	return count, nil
}

// Metrics returns a snapshot of the in-process collector.
func (d *Dispatcher) Metrics() Snapshot { return d.collector.Snapshot() }

// ResetMetrics zeroes the in-process collector.
func (d *Dispatcher) ResetMetrics() { d.collector.Reset() }

// HasSubscribers reports whether any handler, sync or async, is registered
// for the event type.
func (d *Dispatcher) HasSubscribers(eventType string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.subs[eventType]) > 0 || len(d.asyncSubs[eventType]) > 0
}

// SubscribedEventTypes returns the sorted set of event types with at least
// one subscriber.
func (d *Dispatcher) SubscribedEventTypes() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	seen := make(map[string]struct{}, len(d.subs)+len(d.asyncSubs))
	for t := range d.subs {
		seen[t] = struct{}{}
	}
	for t := range d.asyncSubs {
		seen[t] = struct{}{}
	}
	types := make([]string, 0, len(seen))
	for t := range seen {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// SubscriptionInfo summarizes subscriber counts per event type.
type SubscriptionInfo struct {
	Sync  map[string]int `json:"sync"`
	Async map[string]int `json:"async"`
}

func (d *Dispatcher) SubscriptionInfo() SubscriptionInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	info := SubscriptionInfo{
		Sync:  make(map[string]int, len(d.subs)),
		Async: make(map[string]int, len(d.asyncSubs)),
	}
	for t, regs := range d.subs {
		info.Sync[t] = len(regs)
	}
	for t, regs := range d.asyncSubs {
		info.Async[t] = len(regs)
	}
	return info
}
