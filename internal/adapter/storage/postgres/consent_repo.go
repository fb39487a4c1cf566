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

// ConsentRepo implements ports.ConsentRepository.
type ConsentRepo struct {
	pool Pool
}

// NewConsentRepo creates a new ConsentRepo.
func NewConsentRepo(pool Pool) *ConsentRepo {
	return &ConsentRepo{pool: pool}
}

const consentColumns = `id, party_id, consent_type, purpose, status, channel, legal_basis,
		category, jurisdiction, granted_at, revoked_at, expires_at, created_at, updated_at`

// Create inserts a new consent record within the write transaction.
func (r *ConsentRepo) Create(ctx context.Context, tx pgx.Tx, c *domain.ConsentRecord) error {
	query := `INSERT INTO consents (id, party_id, consent_type, purpose, status, channel, legal_basis,
		category, jurisdiction, granted_at, revoked_at, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := tx.Exec(ctx, query,
		c.ID, c.PartyID, c.ConsentType, c.Purpose, c.Status, c.Channel, c.LegalBasis,
		c.Category, c.Jurisdiction, c.GrantedAt, c.RevokedAt, c.ExpiresAt, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert consent: %w", err)
	}
	return nil
}

// GetByID fetches a consent record by UUID. Returns nil when not found.
func (r *ConsentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ConsentRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM consents WHERE id = $1`, consentColumns)
	return r.scanConsent(r.pool.QueryRow(ctx, query, id))
}

// Update rewrites the consent's mutable fields within the write transaction.
func (r *ConsentRepo) Update(ctx context.Context, tx pgx.Tx, c *domain.ConsentRecord) error {
	query := `UPDATE consents SET status = $1, granted_at = $2, revoked_at = $3, expires_at = $4,
		purpose = $5, updated_at = $6 WHERE id = $7`

	tag, err := tx.Exec(ctx, query,
		c.Status, c.GrantedAt, c.RevokedAt, c.ExpiresAt, c.Purpose, c.UpdatedAt, c.ID,
	)
	if err != nil {
		return fmt.Errorf("update consent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("consent not found: %s", c.ID)
	}
	return nil
}

// ListByParty fetches all consent records for one party, newest first.
func (r *ConsentRepo) ListByParty(ctx context.Context, partyID uuid.UUID) ([]domain.ConsentRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM consents WHERE party_id = $1 ORDER BY created_at DESC`, consentColumns)

	rows, err := r.pool.Query(ctx, query, partyID)
	if err != nil {
		return nil, fmt.Errorf("list consents by party: %w", err)
	}
	defer rows.Close()

	return r.collectConsents(rows)
}

// List fetches consent records with filtering and pagination.
func (r *ConsentRepo) List(ctx context.Context, params ports.ConsentListParams) ([]domain.ConsentRecord, int64, error) {
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
	if params.ConsentType != nil {
		conditions = append(conditions, fmt.Sprintf("consent_type = $%d", argIdx))
		args = append(args, *params.ConsentType)
		argIdx++
	}
	if params.Jurisdiction != "" {
		conditions = append(conditions, fmt.Sprintf("jurisdiction = $%d", argIdx))
		args = append(args, params.Jurisdiction)
		argIdx++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM consents %s", where)
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count consents: %w", err)
	}

	dataQuery := fmt.Sprintf(`SELECT %s FROM consents %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		consentColumns, where, argIdx, argIdx+1)
	args = append(args, params.Limit, params.Offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list consents: %w", err)
	}
	defer rows.Close()

	consents, err := r.collectConsents(rows)
	if err != nil {
		return nil, 0, err
	}
	return consents, total, nil
}

// AggregateStats computes grouped counts over a reporting window. Expired is
// derived: granted records whose expiry falls at or before the window end.
func (r *ConsentRepo) AggregateStats(ctx context.Context, params ports.ConsentStatsParams) (*ports.ConsentAggregates, error) {
	conditions := []string{"created_at >= $1", "created_at < $2"}
	args := []any{params.From, params.To}
	argIdx := 3

	if params.Dimensions.Jurisdiction != "" {
		conditions = append(conditions, fmt.Sprintf("jurisdiction = $%d", argIdx))
		args = append(args, params.Dimensions.Jurisdiction)
		argIdx++
	}
	if params.Dimensions.Channel != "" {
		conditions = append(conditions, fmt.Sprintf("channel = $%d", argIdx))
		args = append(args, params.Dimensions.Channel)
		argIdx++
	}
	if params.Dimensions.ConsentType != "" {
		conditions = append(conditions, fmt.Sprintf("consent_type = $%d", argIdx))
		args = append(args, params.Dimensions.ConsentType)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	query := fmt.Sprintf(`SELECT
		COUNT(*) AS total,
		COUNT(*) FILTER (WHERE status = 'granted' AND (expires_at IS NULL OR expires_at > $2)) AS granted,
		COUNT(*) FILTER (WHERE status = 'revoked') AS revoked,
		COUNT(*) FILTER (WHERE status = 'granted' AND expires_at IS NOT NULL AND expires_at <= $2) AS expired,
		COUNT(*) FILTER (WHERE status = 'pending') AS pending
		FROM consents WHERE %s`, where)

	agg := &ports.ConsentAggregates{}
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&agg.Total, &agg.Granted, &agg.Revoked, &agg.Expired, &agg.Pending,
	)
	if err != nil {
		return nil, fmt.Errorf("aggregate consents: %w", err)
	}

	typeQuery := fmt.Sprintf(`SELECT consent_type, COUNT(*) FROM consents WHERE %s GROUP BY consent_type`, where)
	rows, err := r.pool.Query(ctx, typeQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("aggregate consents by type: %w", err)
	}
	defer rows.Close()

	agg.ByType = make(map[string]int64)
	for rows.Next() {
		var consentType string
		var count int64
		if err := rows.Scan(&consentType, &count); err != nil {
			return nil, fmt.Errorf("scan consent type count: %w", err)
		}
		agg.ByType[consentType] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate consent type counts: %w", err)
	}
	return agg, nil
}

// CountAnomalies counts inconsistent rows: granted without granted_at,
// revoked without revoked_at.
func (r *ConsentRepo) CountAnomalies(ctx context.Context) (int64, error) {
	query := `SELECT COUNT(*) FROM consents
		WHERE (status = 'granted' AND granted_at IS NULL)
		   OR (status = 'revoked' AND revoked_at IS NULL)`

	var count int64
	if err := r.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count consent anomalies: %w", err)
	}
	return count, nil
}

func (r *ConsentRepo) scanConsent(row pgx.Row) (*domain.ConsentRecord, error) {
	c := &domain.ConsentRecord{}
	err := row.Scan(
		&c.ID, &c.PartyID, &c.ConsentType, &c.Purpose, &c.Status, &c.Channel, &c.LegalBasis,
		&c.Category, &c.Jurisdiction, &c.GrantedAt, &c.RevokedAt, &c.ExpiresAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan consent: %w", err)
	}
	return c, nil
}

func (r *ConsentRepo) collectConsents(rows pgx.Rows) ([]domain.ConsentRecord, error) {
	var consents []domain.ConsentRecord
	for rows.Next() {
		c := domain.ConsentRecord{}
		err := rows.Scan(
			&c.ID, &c.PartyID, &c.ConsentType, &c.Purpose, &c.Status, &c.Channel, &c.LegalBasis,
			&c.Category, &c.Jurisdiction, &c.GrantedAt, &c.RevokedAt, &c.ExpiresAt, &c.CreatedAt, &c.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan consent row: %w", err)
		}
		consents = append(consents, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate consent rows: %w", err)
	}
	return consents, nil
}
