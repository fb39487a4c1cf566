package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"consenthub/internal/core/domain"
	"consenthub/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// AuditRepo implements ports.AuditRepository. The audit_entries table is
// append-only: no update statement exists anywhere in this file.
type AuditRepo struct {
	pool Pool
}

// NewAuditRepo creates a new AuditRepo.
func NewAuditRepo(pool Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

const auditColumns = `id, event_type, actor_id, actor_type, party_id, resource_id, resource_type,
		action, description, details, old_values, new_values, ip_address, user_agent, source, severity, timestamp`

// Append inserts an audit entry within the same transaction as the domain
// write it describes.
func (r *AuditRepo) Append(ctx context.Context, tx pgx.Tx, e *domain.AuditEntry) error {
	query := `INSERT INTO audit_entries (id, event_type, actor_id, actor_type, party_id, resource_id,
		resource_type, action, description, details, old_values, new_values, ip_address, user_agent,
		source, severity, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err := tx.Exec(ctx, query,
		e.ID, e.EventType, e.ActorID, e.ActorType, e.PartyID, e.ResourceID,
		e.ResourceType, e.Action, e.Description, e.Details, e.OldValues, e.NewValues,
		e.IPAddress, e.UserAgent, e.Source, e.Severity, e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Query fetches audit entries with filtering, free-text search and
// pagination, newest first.
func (r *AuditRepo) Query(ctx context.Context, params ports.AuditQueryParams) ([]domain.AuditEntry, int64, error) {
	where, args := buildAuditFilter(params)

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM audit_entries %s", where)
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit entries: %w", err)
	}

	argIdx := len(args) + 1
	dataQuery := fmt.Sprintf(`SELECT %s FROM audit_entries %s ORDER BY timestamp DESC LIMIT $%d OFFSET $%d`,
		auditColumns, where, argIdx, argIdx+1)
	args = append(args, params.Limit, params.Offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	entries, err := collectAuditEntries(rows)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// Export fetches at most limit matching entries, oldest first so the file
// reads chronologically.
func (r *AuditRepo) Export(ctx context.Context, params ports.AuditQueryParams, limit int) ([]domain.AuditEntry, error) {
	where, args := buildAuditFilter(params)

	argIdx := len(args) + 1
	query := fmt.Sprintf(`SELECT %s FROM audit_entries %s ORDER BY timestamp ASC LIMIT $%d`,
		auditColumns, where, argIdx)
	args = append(args, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("export audit entries: %w", err)
	}
	defer rows.Close()

	return collectAuditEntries(rows)
}

// Statistics computes grouped counts and a 30-day daily series with
// aggregation queries, not incrementally maintained counters.
func (r *AuditRepo) Statistics(ctx context.Context, params ports.AuditStatsParams) (*ports.AuditStatistics, error) {
	var conditions []string
	var args []any
	argIdx := 1

	if params.From != nil {
		conditions = append(conditions, fmt.Sprintf("timestamp >= $%d", argIdx))
		args = append(args, *params.From)
		argIdx++
	}
	if params.To != nil {
		conditions = append(conditions, fmt.Sprintf("timestamp <= $%d", argIdx))
		args = append(args, *params.To)
		argIdx++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	stats := &ports.AuditStatistics{
		ByEventType:    make(map[string]int64),
		ByAction:       make(map[string]int64),
		ByResourceType: make(map[string]int64),
		ByActorType:    make(map[string]int64),
	}

	if err := r.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM audit_entries %s", where), args...).Scan(&stats.Total); err != nil {
		return nil, fmt.Errorf("count audit entries: %w", err)
	}

	groups := []struct {
		column string
		dest   map[string]int64
	}{
		{"event_type", stats.ByEventType},
		{"action", stats.ByAction},
		{"resource_type", stats.ByResourceType},
		{"actor_type", stats.ByActorType},
	}
	for _, g := range groups {
		query := fmt.Sprintf(`SELECT %s, COUNT(*) FROM audit_entries %s GROUP BY %s`, g.column, where, g.column)
		if err := r.scanGroupCounts(ctx, query, args, g.dest); err != nil {
			return nil, fmt.Errorf("group audit entries by %s: %w", g.column, err)
		}
	}

	// Daily series over the trailing 30 days, independent of the filter
	// window bounds.
	dailyQuery := `SELECT to_char(date_trunc('day', timestamp), 'YYYY-MM-DD') AS day, COUNT(*)
		FROM audit_entries
		WHERE timestamp >= now() - interval '30 days'
		GROUP BY day ORDER BY day ASC`

	rows, err := r.pool.Query(ctx, dailyQuery)
	if err != nil {
		return nil, fmt.Errorf("daily audit series: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var dc ports.DailyCount
		if err := rows.Scan(&dc.Date, &dc.Count); err != nil {
			return nil, fmt.Errorf("scan daily count: %w", err)
		}
		stats.Daily = append(stats.Daily, dc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily counts: %w", err)
	}
	return stats, nil
}

// CountBySeverity groups entry counts by severity for a window.
func (r *AuditRepo) CountBySeverity(ctx context.Context, from, to time.Time) (map[string]int64, error) {
	query := `SELECT severity, COUNT(*) FROM audit_entries
		WHERE timestamp >= $1 AND timestamp < $2 GROUP BY severity`

	counts := make(map[string]int64)
	if err := r.scanGroupCounts(ctx, query, []any{from, to}, counts); err != nil {
		return nil, fmt.Errorf("count audit entries by severity: %w", err)
	}
	return counts, nil
}

// ArchiveExpired moves entries older than cutoff into audit_entries_archive
// and deletes them from the live table, at most batch rows per call.
// Archive-then-delete: compliance evidence is never hard-deleted outright.
func (r *AuditRepo) ArchiveExpired(ctx context.Context, cutoff time.Time, batch int) (int64, error) {
	query := `WITH moved AS (
			DELETE FROM audit_entries
			WHERE id IN (
				SELECT id FROM audit_entries WHERE timestamp < $1 ORDER BY timestamp ASC LIMIT $2
			)
			RETURNING *
		)
		INSERT INTO audit_entries_archive SELECT * FROM moved`

	tag, err := r.pool.Exec(ctx, query, cutoff, batch)
	if err != nil {
		return 0, fmt.Errorf("archive audit entries: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *AuditRepo) scanGroupCounts(ctx context.Context, query string, args []any, dest map[string]int64) error {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return err
		}
		dest[key] = count
	}
	return rows.Err()
}

func buildAuditFilter(params ports.AuditQueryParams) (string, []any) {
	var conditions []string
	var args []any
	argIdx := 1

	add := func(cond string, val any) {
		conditions = append(conditions, fmt.Sprintf(cond, argIdx))
		args = append(args, val)
		argIdx++
	}

	if params.EventType != nil {
		add("event_type = $%d", *params.EventType)
	}
	if params.PartyID != nil {
		add("party_id = $%d", *params.PartyID)
	}
	if params.ActorType != nil {
		add("actor_type = $%d", *params.ActorType)
	}
	if params.ResourceType != "" {
		add("resource_type = $%d", params.ResourceType)
	}
	if params.Action != nil {
		add("action = $%d", *params.Action)
	}
	if params.Severity != nil {
		add("severity = $%d", *params.Severity)
	}
	if params.From != nil {
		add("timestamp >= $%d", *params.From)
	}
	if params.To != nil {
		add("timestamp <= $%d", *params.To)
	}
	if params.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			`(event_type ILIKE $%d OR description ILIKE $%d OR party_id::text ILIKE $%d OR resource_id ILIKE $%d OR resource_type ILIKE $%d)`,
			argIdx, argIdx, argIdx, argIdx, argIdx))
		args = append(args, "%"+params.Search+"%")
		argIdx++
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

func collectAuditEntries(rows pgx.Rows) ([]domain.AuditEntry, error) {
	var entries []domain.AuditEntry
	for rows.Next() {
		e := domain.AuditEntry{}
		err := rows.Scan(
			&e.ID, &e.EventType, &e.ActorID, &e.ActorType, &e.PartyID, &e.ResourceID,
			&e.ResourceType, &e.Action, &e.Description, &e.Details, &e.OldValues, &e.NewValues,
			&e.IPAddress, &e.UserAgent, &e.Source, &e.Severity, &e.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit rows: %w", err)
	}
	return entries, nil
}
