package postgres

import (
	"context"
	"fmt"
	"time"

	"consenthub/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// OutboxRepo implements ports.OutboxRepository.
type OutboxRepo struct {
	pool Pool
}

// NewOutboxRepo creates a new OutboxRepo.
func NewOutboxRepo(pool Pool) *OutboxRepo {
	return &OutboxRepo{pool: pool}
}

// Insert records an outbox entry inside the caller's write transaction, so
// the event either commits with the domain change or not at all.
func (r *OutboxRepo) Insert(ctx context.Context, tx pgx.Tx, e *domain.OutboxEntry) error {
	query := `INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := tx.Exec(ctx, query,
		e.ID, e.AggregateType, e.AggregateID, e.EventType, e.Payload, e.Status, e.Attempts, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// ListPending returns pending entries oldest first, preserving publish order.
func (r *OutboxRepo) ListPending(ctx context.Context, limit int) ([]domain.OutboxEntry, error) {
	query := `SELECT id, aggregate_type, aggregate_id, event_type, payload, status, attempts,
			COALESCE(last_error, ''), created_at, published_at
		FROM outbox WHERE status = $1 ORDER BY created_at ASC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, domain.OutboxPending, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending outbox entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.OutboxEntry
	for rows.Next() {
		e := domain.OutboxEntry{}
		err := rows.Scan(
			&e.ID, &e.AggregateType, &e.AggregateID, &e.EventType, &e.Payload, &e.Status,
			&e.Attempts, &e.LastError, &e.CreatedAt, &e.PublishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox rows: %w", err)
	}
	return entries, nil
}

// MarkPublished flips an entry to published once the bus has acknowledged it.
func (r *OutboxRepo) MarkPublished(ctx context.Context, id uuid.UUID, publishedAt time.Time) error {
	query := `UPDATE outbox SET status = $1, published_at = $2 WHERE id = $3`

	_, err := r.pool.Exec(ctx, query, domain.OutboxPublished, publishedAt, id)
	if err != nil {
		return fmt.Errorf("mark outbox entry published: %w", err)
	}
	return nil
}

// RecordFailure bumps the attempt counter and stores the publish error.
// With park set the entry moves to failed and is no longer retried.
func (r *OutboxRepo) RecordFailure(ctx context.Context, id uuid.UUID, lastError string, park bool) error {
	status := domain.OutboxPending
	if park {
		status = domain.OutboxFailed
	}
	query := `UPDATE outbox SET attempts = attempts + 1, last_error = $1, status = $2 WHERE id = $3`

	_, err := r.pool.Exec(ctx, query, lastError, status, id)
	if err != nil {
		return fmt.Errorf("record outbox failure: %w", err)
	}
	return nil
}

// CountPending reports the dispatch backlog size, exposed as a gauge.
func (r *OutboxRepo) CountPending(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE status = $1`, domain.OutboxPending).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count pending outbox entries: %w", err)
	}
	return count, nil
}
