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

// PreferenceRepo implements ports.PreferenceRepository.
type PreferenceRepo struct {
	pool Pool
}

// NewPreferenceRepo creates a new PreferenceRepo.
func NewPreferenceRepo(pool Pool) *PreferenceRepo {
	return &PreferenceRepo{pool: pool}
}

const preferenceColumns = `id, party_id, preference_type, channel, enabled, frequency, created_at, updated_at`

// Create inserts a preference within the write transaction. The
// (party_id, preference_type, channel) unique index rejects duplicates.
func (r *PreferenceRepo) Create(ctx context.Context, tx pgx.Tx, p *domain.PreferenceRecord) error {
	query := `INSERT INTO preferences (id, party_id, preference_type, channel, enabled, frequency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := tx.Exec(ctx, query,
		p.ID, p.PartyID, p.PreferenceType, p.Channel, p.Enabled, p.Frequency, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert preference: %w", err)
	}
	return nil
}

// GetByID fetches a preference by UUID. Returns nil when not found.
func (r *PreferenceRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PreferenceRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM preferences WHERE id = $1`, preferenceColumns)

	p := &domain.PreferenceRecord{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.PartyID, &p.PreferenceType, &p.Channel, &p.Enabled, &p.Frequency, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get preference by id: %w", err)
	}
	return p, nil
}

// Update rewrites the mutable preference fields within the write transaction.
func (r *PreferenceRepo) Update(ctx context.Context, tx pgx.Tx, p *domain.PreferenceRecord) error {
	query := `UPDATE preferences SET enabled = $1, frequency = $2, updated_at = $3 WHERE id = $4`

	tag, err := tx.Exec(ctx, query, p.Enabled, p.Frequency, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("update preference: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("preference not found: %s", p.ID)
	}
	return nil
}

// Delete removes a preference within the write transaction.
func (r *PreferenceRepo) Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	tag, err := tx.Exec(ctx, `DELETE FROM preferences WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete preference: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("preference not found: %s", id)
	}
	return nil
}

// ListByParty fetches all preferences for one party.
func (r *PreferenceRepo) ListByParty(ctx context.Context, partyID uuid.UUID) ([]domain.PreferenceRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM preferences WHERE party_id = $1 ORDER BY preference_type, channel`, preferenceColumns)

	rows, err := r.pool.Query(ctx, query, partyID)
	if err != nil {
		return nil, fmt.Errorf("list preferences by party: %w", err)
	}
	defer rows.Close()

	return collectPreferences(rows)
}

// List fetches preferences with filtering and pagination.
func (r *PreferenceRepo) List(ctx context.Context, params ports.PreferenceListParams) ([]domain.PreferenceRecord, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	if params.PartyID != nil {
		conditions = append(conditions, fmt.Sprintf("party_id = $%d", argIdx))
		args = append(args, *params.PartyID)
		argIdx++
	}
	if params.Channel != nil {
		conditions = append(conditions, fmt.Sprintf("channel = $%d", argIdx))
		args = append(args, *params.Channel)
		argIdx++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM preferences %s", where)
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count preferences: %w", err)
	}

	dataQuery := fmt.Sprintf(`SELECT %s FROM preferences %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		preferenceColumns, where, argIdx, argIdx+1)
	args = append(args, params.Limit, params.Offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list preferences: %w", err)
	}
	defer rows.Close()

	prefs, err := collectPreferences(rows)
	if err != nil {
		return nil, 0, err
	}
	return prefs, total, nil
}

func collectPreferences(rows pgx.Rows) ([]domain.PreferenceRecord, error) {
	var prefs []domain.PreferenceRecord
	for rows.Next() {
		p := domain.PreferenceRecord{}
		err := rows.Scan(&p.ID, &p.PartyID, &p.PreferenceType, &p.Channel, &p.Enabled, &p.Frequency, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan preference row: %w", err)
		}
		prefs = append(prefs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate preference rows: %w", err)
	}
	return prefs, nil
}
