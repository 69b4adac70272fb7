package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/cassiomorais/reminders/internal/event"
)

// EventRepository persists dispatched events in the event_log table. It is
// the durable backing of the dispatcher: every emitted event is inserted
// before fan-out, and every handler outcome updates the processing state.
type EventRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

func NewEventRepository(pool *pgxpool.Pool, logger zerolog.Logger) *EventRepository {
	return &EventRepository{
		pool:   pool,
		logger: logger.With().Str("component", "event_repository").Logger(),
	}
}

func (r *EventRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

func (r *EventRepository) StoreEvent(ctx context.Context, env event.Envelope) (uuid.UUID, error) {
	payload, err := event.EncodePayload(env.Payload)
	if err != nil {
		return uuid.Nil, err
	}
	metadata, err := event.EncodeMetadata(env.Type, env.Metadata)
	if err != nil {
		return uuid.Nil, err
	}

	_, err = r.db(ctx).Exec(ctx,
		`INSERT INTO event_log (event_id, event_type, timestamp, payload, metadata, processed, processing_attempts)
		 VALUES ($1, $2, $3, $4, $5, false, 0)`,
		env.Metadata.EventID, env.Type, env.Metadata.Timestamp, payload, metadata,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert event: %w", err)
	}
	return env.Metadata.EventID, nil
}

func (r *EventRepository) MarkEventProcessed(ctx context.Context, eventID uuid.UUID, errMsg *string) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE event_log
		 SET processed = $2,
		     processing_attempts = processing_attempts + 1,
		     error = $3
		 WHERE event_id = $1`,
		eventID, errMsg == nil, errMsg,
	)
	if err != nil {
		return fmt.Errorf("mark event processed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		r.logger.Warn().Str("event_id", eventID.String()).Msg("mark processed for unknown event id")
	}
	return nil
}

func (r *EventRepository) GetUnprocessedEvents(ctx context.Context, limit, maxRetries int) ([]event.StoredEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db(ctx).Query(ctx,
		`SELECT id, event_id, event_type, timestamp, payload, metadata, processed, processing_attempts, error
		 FROM event_log
		 WHERE processed = false AND processing_attempts < $1
		 ORDER BY timestamp ASC
		 LIMIT $2`,
		maxRetries, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("get unprocessed events: %w", err)
	}
	defer rows.Close()

	return scanStoredEvents(rows)
}

func (r *EventRepository) GetEventByID(ctx context.Context, eventID uuid.UUID) (*event.StoredEvent, error) {
	row := r.db(ctx).QueryRow(ctx,
		`SELECT id, event_id, event_type, timestamp, payload, metadata, processed, processing_attempts, error
		 FROM event_log WHERE event_id = $1`,
		eventID,
	)

	var rec event.StoredEvent
	err := row.Scan(&rec.ID, &rec.EventID, &rec.EventType, &rec.Timestamp,
		&rec.Payload, &rec.Metadata, &rec.Processed, &rec.ProcessingAttempts, &rec.Error)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event by id: %w", err)
	}
	return &rec, nil
}

func (r *EventRepository) SearchEvents(ctx context.Context, filter event.SearchFilter) ([]event.StoredEvent, int64, error) {
	where, args := buildEventFilter(filter)

	var total int64
	if err := r.db(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM event_log`+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit, filter.Offset)
	query := fmt.Sprintf(
		`SELECT id, event_id, event_type, timestamp, payload, metadata, processed, processing_attempts, error
		 FROM event_log%s
		 ORDER BY timestamp DESC
		 LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args),
	)

	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search events: %w", err)
	}
	defer rows.Close()

	records, err := scanStoredEvents(rows)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func (r *EventRepository) Stats(ctx context.Context, start, end time.Time) (event.Stats, error) {
	stats := event.Stats{EventsByType: make(map[string]int64)}

	err := r.db(ctx).QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE processed),
		        COUNT(*) FILTER (WHERE NOT processed),
		        COUNT(*) FILTER (WHERE error IS NOT NULL)
		 FROM event_log
		 WHERE timestamp BETWEEN $1 AND $2`,
		start, end,
	).Scan(&stats.TotalEvents, &stats.ProcessedEvents, &stats.UnprocessedEvents, &stats.ErrorEvents)
	if err != nil {
		return event.Stats{}, fmt.Errorf("aggregate event stats: %w", err)
	}

	rows, err := r.db(ctx).Query(ctx,
		`SELECT event_type, COUNT(*)
		 FROM event_log
		 WHERE timestamp BETWEEN $1 AND $2
		 GROUP BY event_type`,
		start, end,
	)
	if err != nil {
		return event.Stats{}, fmt.Errorf("aggregate events by type: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var eventType string
		var count int64
		if err := rows.Scan(&eventType, &count); err != nil {
			return event.Stats{}, fmt.Errorf("scan event type count: %w", err)
		}
		stats.EventsByType[eventType] = count
	}
	if err := rows.Err(); err != nil {
		return event.Stats{}, err
	}

	if stats.TotalEvents > 0 {
		stats.ProcessingRate = float64(stats.ProcessedEvents) / float64(stats.TotalEvents)
		stats.ErrorRate = float64(stats.ErrorEvents) / float64(stats.TotalEvents)
	}
	return stats, nil
}

func buildEventFilter(filter event.SearchFilter) (string, []any) {
	var clauses []string
	var args []any

	if filter.EventType != "" {
		args = append(args, filter.EventType)
		clauses = append(clauses, fmt.Sprintf("event_type = $%d", len(args)))
	}
	if filter.StartTime != nil {
		args = append(args, *filter.StartTime)
		clauses = append(clauses, fmt.Sprintf("timestamp >= $%d", len(args)))
	}
	if filter.EndTime != nil {
		args = append(args, *filter.EndTime)
		clauses = append(clauses, fmt.Sprintf("timestamp <= $%d", len(args)))
	}
	if filter.Processed != nil {
		args = append(args, *filter.Processed)
		clauses = append(clauses, fmt.Sprintf("processed = $%d", len(args)))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	where := " WHERE " + clauses[0]
	for _, c := range clauses[1:] {
		where += " AND " + c
	}
	return where, args
}

func scanStoredEvents(rows pgx.Rows) ([]event.StoredEvent, error) {
	var records []event.StoredEvent
	for rows.Next() {
		var rec event.StoredEvent
		if err := rows.Scan(&rec.ID, &rec.EventID, &rec.EventType, &rec.Timestamp,
			&rec.Payload, &rec.Metadata, &rec.Processed, &rec.ProcessingAttempts, &rec.Error); err != nil {
			return nil, fmt.Errorf("scan event record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
