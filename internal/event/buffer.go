package event

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Emitter is the subset of the dispatcher the transaction buffer needs.
type Emitter interface {
	Emit(env Envelope) error
}

// TransactionBuffer defers event emission until a unit of work's outcome is
// known, so a rolled-back database write never produces a committed event.
// A transaction id's queue exists only between the first QueueEvent and the
// terminal EmitEvents/DiscardEvents call; ids are never reused.
type TransactionBuffer struct {
	emitter Emitter
	logger  zerolog.Logger

	mu      sync.Mutex
	pending map[uuid.UUID][]Envelope
}

func NewTransactionBuffer(emitter Emitter, logger zerolog.Logger) *TransactionBuffer {
	return &TransactionBuffer{
		emitter: emitter,
		logger:  logger.With().Str("component", "transaction_buffer").Logger(),
		pending: make(map[uuid.UUID][]Envelope),
	}
}

// QueueEvent appends an envelope to the transaction's queue, creating the
// queue on first use.
func (b *TransactionBuffer) QueueEvent(txID uuid.UUID, env Envelope) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending[txID] = append(b.pending[txID], env)
	b.logger.Debug().
		Str("transaction_id", txID.String()).
		Str("event_type", env.Type).
		Msg("event queued")
}

// EmitEvents pops the transaction's queue and emits each envelope in the
// order it was queued. Per-envelope emission failures are logged and do not
// stop the remaining envelopes.
func (b *TransactionBuffer) EmitEvents(txID uuid.UUID) {
	for _, env := range b.take(txID) {
		if err := b.emitter.Emit(env); err != nil {
			b.logger.Error().Err(err).
				Str("transaction_id", txID.String()).
				Str("event_type", env.Type).
				Msg("failed to emit buffered event")
		}
	}
}

// DiscardEvents pops and drops the transaction's queue.
func (b *TransactionBuffer) DiscardEvents(txID uuid.UUID) {
	dropped := b.take(txID)
	if len(dropped) > 0 {
		b.logger.Info().
			Str("transaction_id", txID.String()).
			Int("count", len(dropped)).
			Msg("discarded buffered events")
	}
}

// Transactional runs fn and flushes the queued events only if fn succeeds.
// On failure the queue is discarded and fn's error returned unchanged; a
// panicking fn also has its queue discarded before the panic propagates. The
// queue is cleaned up on every exit path, exactly once.
func (b *TransactionBuffer) Transactional(txID uuid.UUID, fn func() error) error {
	committed := false
	defer func() {
		if !committed {
			b.DiscardEvents(txID)
		}
	}()
	if err := fn(); err != nil {
		return err
	}
	committed = true
	b.EmitEvents(txID)
	return nil
}

// Pending reports how many events are queued for the transaction.
func (b *TransactionBuffer) Pending(txID uuid.UUID) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending[txID])
}

func (b *TransactionBuffer) take(txID uuid.UUID) []Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	envs := b.pending[txID]
	delete(b.pending, txID)
	return envs
}
