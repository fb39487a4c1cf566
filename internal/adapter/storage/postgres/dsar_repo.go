package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"consenthub/internal/core/domain"
	"consenthub/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DSARRepo implements ports.DSARRepository.
type DSARRepo struct {
	pool Pool
}

// NewDSARRepo creates a new DSARRepo.
func NewDSARRepo(pool Pool) *DSARRepo {
	return &DSARRepo{pool: pool}
}

const dsarColumns = `id, party_id, request_type, status, description, submitted_at, due_date,
		completed_at, verification_status, processing_notes, created_at, updated_at`

// Create inserts a new request within the write transaction.
func (r *DSARRepo) Create(ctx context.Context, tx pgx.Tx, req *domain.DSARRequest) error {
	query := `INSERT INTO dsar_requests (id, party_id, request_type, status, description, submitted_at,
		due_date, completed_at, verification_status, processing_notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := tx.Exec(ctx, query,
		req.ID, req.PartyID, req.RequestType, req.Status, req.Description, req.SubmittedAt,
		req.DueDate, req.CompletedAt, req.VerificationStatus, req.ProcessingNotes, req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert dsar request: %w", err)
	}
	return nil
}

// GetByID fetches a request by UUID. Returns nil when not found.
func (r *DSARRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.DSARRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM dsar_requests WHERE id = $1`, dsarColumns)

	req := &domain.DSARRequest{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&req.ID, &req.PartyID, &req.RequestType, &req.Status, &req.Description, &req.SubmittedAt,
		&req.DueDate, &req.CompletedAt, &req.VerificationStatus, &req.ProcessingNotes, &req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get dsar request by id: %w", err)
	}
	return req, nil
}

// Update rewrites the request's mutable fields within the write transaction.
// DueDate is deliberately not part of the update set: it is fixed at
// creation and never recalculated.
func (r *DSARRepo) Update(ctx context.Context, tx pgx.Tx, req *domain.DSARRequest) error {
	query := `UPDATE dsar_requests SET status = $1, completed_at = $2, verification_status = $3,
		processing_notes = $4, updated_at = $5 WHERE id = $6`

	tag, err := tx.Exec(ctx, query,
		req.Status, req.CompletedAt, req.VerificationStatus, req.ProcessingNotes, req.UpdatedAt, req.ID,
	)
	if err != nil {
		return fmt.Errorf("update dsar request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("dsar request not found: %s", req.ID)
	}
	return nil
}

// ListByParty fetches all requests for one party, newest first.
func (r *DSARRepo) ListByParty(ctx context.Context, partyID uuid.UUID) ([]domain.DSARRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM dsar_requests WHERE party_id = $1 ORDER BY submitted_at DESC`, dsarColumns)

	rows, err := r.pool.Query(ctx, query, partyID)
	if err != nil {
		return nil, fmt.Errorf("list dsar requests by party: %w", err)
	}
	defer rows.Close()

	return collectDSARs(rows)
}

// List fetches requests with filtering and pagination.
func (r *DSARRepo) List(ctx context.Context, params ports.DSARListParams) ([]domain.DSARRequest, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	if params.PartyID != nil {
		conditions = append(conditions, fmt.Sprintf("party_id = $%d", argIdx))
		args = append(args, *params.PartyID)
		argIdx++
	}
	if params.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *params.Status)
		argIdx++
	}
	if params.RequestType != nil {
		conditions = append(conditions, fmt.Sprintf("request_type = $%d", argIdx))
		args = append(args, *params.RequestType)
		argIdx++
	}
	if params.From != nil {
		conditions = append(conditions, fmt.Sprintf("submitted_at >= $%d", argIdx))
		args = append(args, *params.From)
		argIdx++
	}
	if params.To != nil {
		conditions = append(conditions, fmt.Sprintf("submitted_at <= $%d", argIdx))
		args = append(args, *params.To)
		argIdx++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM dsar_requests %s", where)
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count dsar requests: %w", err)
	}

	dataQuery := fmt.Sprintf(`SELECT %s FROM dsar_requests %s ORDER BY submitted_at DESC LIMIT $%d OFFSET $%d`,
		dsarColumns, where, argIdx, argIdx+1)
	args = append(args, params.Limit, params.Offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list dsar requests: %w", err)
	}
	defer rows.Close()

	reqs, err := collectDSARs(rows)
	if err != nil {
		return nil, 0, err
	}
	return reqs, total, nil
}

// ListOverdue fetches requests past their due date and not completed,
// most overdue first.
func (r *DSARRepo) ListOverdue(ctx context.Context, now time.Time, limit int) ([]domain.DSARRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM dsar_requests
		WHERE due_date < $1 AND status NOT IN ('completed', 'rejected', 'cancelled')
		ORDER BY due_date ASC LIMIT $2`, dsarColumns)

	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list overdue dsar requests: %w", err)
	}
	defer rows.Close()

	return collectDSARs(rows)
}

// AggregateStats computes request throughput for a reporting window.
func (r *DSARRepo) AggregateStats(ctx context.Context, from, to time.Time) (*ports.DSARAggregates, error) {
	query := `SELECT
		COUNT(*) AS total,
		COUNT(*) FILTER (WHERE status = 'completed') AS completed,
		COUNT(*) FILTER (WHERE status = 'rejected') AS rejected,
		COUNT(*) FILTER (WHERE status = 'cancelled') AS cancelled,
		COUNT(*) FILTER (WHERE due_date < $2 AND status NOT IN ('completed', 'rejected', 'cancelled')) AS overdue,
		COALESCE(AVG(EXTRACT(EPOCH FROM (completed_at - submitted_at)) / 86400.0)
			FILTER (WHERE status = 'completed' AND completed_at IS NOT NULL), 0) AS avg_completion_days,
		COUNT(*) FILTER (WHERE status = 'completed' AND completed_at IS NOT NULL AND completed_at <= due_date) AS completed_on_time
		FROM dsar_requests WHERE submitted_at >= $1 AND submitted_at < $2`

	agg := &ports.DSARAggregates{}
	err := r.pool.QueryRow(ctx, query, from, to).Scan(
		&agg.Total, &agg.Completed, &agg.Rejected, &agg.Cancelled,
		&agg.Overdue, &agg.AvgCompletionDays, &agg.CompletedOnTime,
	)
	if err != nil {
		return nil, fmt.Errorf("aggregate dsar requests: %w", err)
	}
	return agg, nil
}

func collectDSARs(rows pgx.Rows) ([]domain.DSARRequest, error) {
	var reqs []domain.DSARRequest
	for rows.Next() {
		req := domain.DSARRequest{}
		err := rows.Scan(
			&req.ID, &req.PartyID, &req.RequestType, &req.Status, &req.Description, &req.SubmittedAt,
			&req.DueDate, &req.CompletedAt, &req.VerificationStatus, &req.ProcessingNotes, &req.CreatedAt, &req.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan dsar row: %w", err)
		}
		reqs = append(reqs, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dsar rows: %w", err)
	}
	return reqs, nil
}
