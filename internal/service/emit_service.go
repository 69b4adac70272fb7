package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/cassiomorais/reminders/internal/event"
)

// EventQueue is the surface a unit of work uses to stage events.
type EventQueue interface {
	QueueEvent(txID uuid.UUID, env event.Envelope)
}

// EmitService ties event emission to database transactions: events staged
// during a unit of work reach the dispatcher only if the transaction commits.
// A rollback discards them, so the event log never records a side effect the
// database rejected.
type EmitService struct {
	tx     TransactionManager
	buffer *event.TransactionBuffer
}

func NewEmitService(tx TransactionManager, buffer *event.TransactionBuffer) *EmitService {
	return &EmitService{tx: tx, buffer: buffer}
}

// WithEvents runs fn inside a database transaction with a fresh staging
// queue. The queue is flushed to the dispatcher after commit and discarded
// after rollback.
func (s *EmitService) WithEvents(ctx context.Context, fn func(ctx context.Context, txID uuid.UUID, queue EventQueue) error) error {
	txID := uuid.New()
	return s.buffer.Transactional(txID, func() error {
		return s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
			return fn(txCtx, txID, s.buffer)
		})
	})
}
