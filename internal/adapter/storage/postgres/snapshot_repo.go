package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"consenthub/internal/core/domain"
	"consenthub/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SnapshotRepo implements ports.SnapshotRepository. Consent and DSAR
// snapshots upsert on (period_type, period_start, period_end, dims_hash) so
// recomputation replaces rather than duplicates; compliance reports are
// insert-only documents.
type SnapshotRepo struct {
	pool Pool
}

// NewSnapshotRepo creates a new SnapshotRepo.
func NewSnapshotRepo(pool Pool) *SnapshotRepo {
	return &SnapshotRepo{pool: pool}
}

func (r *SnapshotRepo) UpsertConsentAnalytics(ctx context.Context, s *domain.ConsentAnalytics) error {
	dims, err := json.Marshal(s.Dimensions)
	if err != nil {
		return fmt.Errorf("marshal snapshot dimensions: %w", err)
	}
	counts, err := json.Marshal(s.CountsByType)
	if err != nil {
		return fmt.Errorf("marshal snapshot type counts: %w", err)
	}

	query := `INSERT INTO consent_analytics (id, period_type, period_start, period_end, dims_hash, dimensions,
			total_consents, granted, revoked, expired, pending, grant_rate, counts_by_type, calculated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (period_type, period_start, period_end, dims_hash) DO UPDATE SET
			total_consents = EXCLUDED.total_consents,
			granted = EXCLUDED.granted,
			revoked = EXCLUDED.revoked,
			expired = EXCLUDED.expired,
			pending = EXCLUDED.pending,
			grant_rate = EXCLUDED.grant_rate,
			counts_by_type = EXCLUDED.counts_by_type,
			calculated_at = EXCLUDED.calculated_at`

	_, err = r.pool.Exec(ctx, query,
		s.ID, s.PeriodType, s.PeriodStart, s.PeriodEnd, s.Dimensions.Hash(), dims,
		s.TotalConsents, s.Granted, s.Revoked, s.Expired, s.Pending, s.GrantRate, counts, s.CalculatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert consent analytics: %w", err)
	}
	return nil
}

func (r *SnapshotRepo) UpsertPerformanceMetrics(ctx context.Context, s *domain.PerformanceMetrics) error {
	query := `INSERT INTO performance_metrics (id, period_type, period_start, period_end,
			total_requests, completed, rejected, cancelled, overdue, avg_completion_days, on_time_rate, calculated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (period_type, period_start, period_end) DO UPDATE SET
			total_requests = EXCLUDED.total_requests,
			completed = EXCLUDED.completed,
			rejected = EXCLUDED.rejected,
			cancelled = EXCLUDED.cancelled,
			overdue = EXCLUDED.overdue,
			avg_completion_days = EXCLUDED.avg_completion_days,
			on_time_rate = EXCLUDED.on_time_rate,
			calculated_at = EXCLUDED.calculated_at`

	_, err := r.pool.Exec(ctx, query,
		s.ID, s.PeriodType, s.PeriodStart, s.PeriodEnd,
		s.TotalRequests, s.Completed, s.Rejected, s.Cancelled, s.Overdue,
		s.AvgCompletionDays, s.OnTimeRate, s.CalculatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert performance metrics: %w", err)
	}
	return nil
}

func (r *SnapshotRepo) ListConsentAnalytics(ctx context.Context, params ports.SnapshotListParams) ([]domain.ConsentAnalytics, int64, error) {
	where, args := buildSnapshotFilter(params, "period_start")

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM consent_analytics %s", where)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count consent analytics: %w", err)
	}

	argIdx := len(args) + 1
	query := fmt.Sprintf(`SELECT id, period_type, period_start, period_end, dimensions,
			total_consents, granted, revoked, expired, pending, grant_rate, counts_by_type, calculated_at
		FROM consent_analytics %s ORDER BY period_start DESC LIMIT $%d OFFSET $%d`,
		where, argIdx, argIdx+1)
	args = append(args, params.Limit, params.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list consent analytics: %w", err)
	}
	defer rows.Close()

	var snaps []domain.ConsentAnalytics
	for rows.Next() {
		var s domain.ConsentAnalytics
		var dims, counts []byte
		err := rows.Scan(
			&s.ID, &s.PeriodType, &s.PeriodStart, &s.PeriodEnd, &dims,
			&s.TotalConsents, &s.Granted, &s.Revoked, &s.Expired, &s.Pending,
			&s.GrantRate, &counts, &s.CalculatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan consent analytics row: %w", err)
		}
		if err := json.Unmarshal(dims, &s.Dimensions); err != nil {
			return nil, 0, fmt.Errorf("unmarshal snapshot dimensions: %w", err)
		}
		if len(counts) > 0 {
			if err := json.Unmarshal(counts, &s.CountsByType); err != nil {
				return nil, 0, fmt.Errorf("unmarshal snapshot type counts: %w", err)
			}
		}
		snaps = append(snaps, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate consent analytics rows: %w", err)
	}
	return snaps, total, nil
}

func (r *SnapshotRepo) ListPerformanceMetrics(ctx context.Context, params ports.SnapshotListParams) ([]domain.PerformanceMetrics, int64, error) {
	where, args := buildSnapshotFilter(params, "period_start")

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM performance_metrics %s", where)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count performance metrics: %w", err)
	}

	argIdx := len(args) + 1
	query := fmt.Sprintf(`SELECT id, period_type, period_start, period_end,
			total_requests, completed, rejected, cancelled, overdue, avg_completion_days, on_time_rate, calculated_at
		FROM performance_metrics %s ORDER BY period_start DESC LIMIT $%d OFFSET $%d`,
		where, argIdx, argIdx+1)
	args = append(args, params.Limit, params.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list performance metrics: %w", err)
	}
	defer rows.Close()

	var snaps []domain.PerformanceMetrics
	for rows.Next() {
		var s domain.PerformanceMetrics
		err := rows.Scan(
			&s.ID, &s.PeriodType, &s.PeriodStart, &s.PeriodEnd,
			&s.TotalRequests, &s.Completed, &s.Rejected, &s.Cancelled, &s.Overdue,
			&s.AvgCompletionDays, &s.OnTimeRate, &s.CalculatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan performance metrics row: %w", err)
		}
		snaps = append(snaps, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate performance metrics rows: %w", err)
	}
	return snaps, total, nil
}

func (r *SnapshotRepo) InsertComplianceReport(ctx context.Context, rep *domain.ComplianceReport) error {
	dsar, err := json.Marshal(rep.DSAR)
	if err != nil {
		return fmt.Errorf("marshal dsar section: %w", err)
	}
	consents, err := json.Marshal(rep.Consents)
	if err != nil {
		return fmt.Errorf("marshal consent section: %w", err)
	}
	audit, err := json.Marshal(rep.AuditTrail)
	if err != nil {
		return fmt.Errorf("marshal audit section: %w", err)
	}

	query := `INSERT INTO compliance_reports (id, title, period_start, period_end, dsar_section,
			consent_section, audit_section, manual_section, generated_by, generated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = r.pool.Exec(ctx, query,
		rep.ID, rep.Title, rep.PeriodStart, rep.PeriodEnd, dsar, consents, audit,
		rep.Manual, rep.GeneratedBy, rep.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("insert compliance report: %w", err)
	}
	return nil
}

func (r *SnapshotRepo) GetComplianceReport(ctx context.Context, id uuid.UUID) (*domain.ComplianceReport, error) {
	query := `SELECT id, title, period_start, period_end, dsar_section, consent_section,
			audit_section, manual_section, generated_by, generated_at
		FROM compliance_reports WHERE id = $1`

	rep, err := scanComplianceReport(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get compliance report: %w", err)
	}
	return rep, nil
}

func (r *SnapshotRepo) ListComplianceReports(ctx context.Context, limit, offset int) ([]domain.ComplianceReport, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM compliance_reports`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count compliance reports: %w", err)
	}

	query := `SELECT id, title, period_start, period_end, dsar_section, consent_section,
			audit_section, manual_section, generated_by, generated_at
		FROM compliance_reports ORDER BY generated_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list compliance reports: %w", err)
	}
	defer rows.Close()

	var reports []domain.ComplianceReport
	for rows.Next() {
		rep, err := scanComplianceReport(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan compliance report row: %w", err)
		}
		reports = append(reports, *rep)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate compliance report rows: %w", err)
	}
	return reports, total, nil
}

func scanComplianceReport(row pgx.Row) (*domain.ComplianceReport, error) {
	rep := &domain.ComplianceReport{}
	var dsar, consents, audit []byte
	err := row.Scan(
		&rep.ID, &rep.Title, &rep.PeriodStart, &rep.PeriodEnd, &dsar, &consents,
		&audit, &rep.Manual, &rep.GeneratedBy, &rep.GeneratedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(dsar, &rep.DSAR); err != nil {
		return nil, fmt.Errorf("unmarshal dsar section: %w", err)
	}
	if err := json.Unmarshal(consents, &rep.Consents); err != nil {
		return nil, fmt.Errorf("unmarshal consent section: %w", err)
	}
	if err := json.Unmarshal(audit, &rep.AuditTrail); err != nil {
		return nil, fmt.Errorf("unmarshal audit section: %w", err)
	}
	return rep, nil
}

func buildSnapshotFilter(params ports.SnapshotListParams, timeColumn string) (string, []any) {
	var conditions []string
	var args []any
	argIdx := 1

	if params.PeriodType != nil {
		conditions = append(conditions, fmt.Sprintf("period_type = $%d", argIdx))
		args = append(args, *params.PeriodType)
		argIdx++
	}
	if params.From != nil {
		conditions = append(conditions, fmt.Sprintf("%s >= $%d", timeColumn, argIdx))
		args = append(args, *params.From)
		argIdx++
	}
	if params.To != nil {
		conditions = append(conditions, fmt.Sprintf("%s <= $%d", timeColumn, argIdx))
		args = append(args, *params.To)
		argIdx++
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}
