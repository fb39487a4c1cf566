package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"consenthub/internal/core/domain"
	"consenthub/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PartyRepo implements ports.PartyRepository.
type PartyRepo struct {
	pool Pool
}

// NewPartyRepo creates a new PartyRepo.
func NewPartyRepo(pool Pool) *PartyRepo {
	return &PartyRepo{pool: pool}
}

const partyColumns = `id, name, email, phone, type, status, created_at, updated_at`

// Create inserts a new party within the write transaction.
func (r *PartyRepo) Create(ctx context.Context, tx pgx.Tx, p *domain.Party) error {
	query := `INSERT INTO parties (id, name, email, phone, type, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := tx.Exec(ctx, query,
		p.ID, p.Name, p.Email, p.Phone, p.Type, p.Status, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert party: %w", err)
	}
	return nil
}

// GetByID fetches a party by UUID. Returns nil when not found.
func (r *PartyRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Party, error) {
	query := fmt.Sprintf(`SELECT %s FROM parties WHERE id = $1`, partyColumns)

	p := &domain.Party{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Email, &p.Phone, &p.Type, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get party by id: %w", err)
	}
	return p, nil
}

// Exists checks whether an active or inactive party row exists.
func (r *PartyRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM parties WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check party exists: %w", err)
	}
	return exists, nil
}

// Update rewrites the mutable party fields within the write transaction.
func (r *PartyRepo) Update(ctx context.Context, tx pgx.Tx, p *domain.Party) error {
	query := `UPDATE parties SET name = $1, phone = $2, status = $3, updated_at = $4 WHERE id = $5`

	tag, err := tx.Exec(ctx, query, p.Name, p.Phone, p.Status, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("update party: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("party not found: %s", p.ID)
	}
	return nil
}

// List fetches parties with filtering and pagination.
func (r *PartyRepo) List(ctx context.Context, params ports.PartyListParams) ([]domain.Party, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	if params.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *params.Status)
		argIdx++
	}
	if params.Type != nil {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argIdx))
		args = append(args, *params.Type)
		argIdx++
	}
	if params.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+params.Search+"%")
		argIdx++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM parties %s", where)
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count parties: %w", err)
	}

	dataQuery := fmt.Sprintf(`SELECT %s FROM parties %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		partyColumns, where, argIdx, argIdx+1)
	args = append(args, params.Limit, params.Offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list parties: %w", err)
	}
	defer rows.Close()

	var parties []domain.Party
	for rows.Next() {
		p := domain.Party{}
		if err := rows.Scan(&p.ID, &p.Name, &p.Email, &p.Phone, &p.Type, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan party row: %w", err)
		}
		parties = append(parties, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate party rows: %w", err)
	}
	return parties, total, nil
}
