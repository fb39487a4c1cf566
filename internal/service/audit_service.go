package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"consenthub/internal/core/domain"
	"consenthub/internal/core/ports"
	"consenthub/pkg/apperror"
	"consenthub/pkg/export"

	"github.com/rs/zerolog"
)

// AuditServiceImpl implements ports.AuditService: the read side of the
// audit trail plus exports.
type AuditServiceImpl struct {
	auditRepo   ports.AuditRepository
	outboxRepo  ports.OutboxRepository
	statsCache  ports.StatsCache
	transactor  ports.DBTransactor
	exportLimit int
	statsTTL    time.Duration
	log         zerolog.Logger
}

// NewAuditService creates a new AuditServiceImpl.
func NewAuditService(
	auditRepo ports.AuditRepository,
	outboxRepo ports.OutboxRepository,
	statsCache ports.StatsCache,
	transactor ports.DBTransactor,
	exportLimit int,
	statsTTL time.Duration,
	log zerolog.Logger,
) *AuditServiceImpl {
	return &AuditServiceImpl{
		auditRepo:   auditRepo,
		outboxRepo:  outboxRepo,
		statsCache:  statsCache,
		transactor:  transactor,
		exportLimit: exportLimit,
		statsTTL:    statsTTL,
		log:         log,
	}
}

func (s *AuditServiceImpl) Query(ctx context.Context, params ports.AuditQueryParams) ([]domain.AuditEntry, int64, error) {
	entries, total, err := s.auditRepo.Query(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(err)
	}
	return entries, total, nil
}

// Statistics serves the aggregation, caching results briefly. A cache
// failure degrades to computing fresh, never to an error.
func (s *AuditServiceImpl) Statistics(ctx context.Context, params ports.AuditStatsParams) (*ports.AuditStatistics, error) {
	key := statsCacheKey(params)

	cached, err := s.statsCache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Msg("stats cache read failed, computing fresh")
	}
	if cached != nil {
		return cached, nil
	}

	stats, err := s.auditRepo.Statistics(ctx, params)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	if err := s.statsCache.Set(ctx, key, stats, s.statsTTL); err != nil {
		s.log.Warn().Err(err).Msg("stats cache write failed")
	}
	return stats, nil
}

// Export renders matching entries as json or csv, capped at the configured
// row limit. The export itself becomes an audit entry and outbox event.
func (s *AuditServiceImpl) Export(ctx context.Context, params ports.AuditQueryParams, format string, actor ports.Actor) (*ports.AuditExport, error) {
	format = strings.ToLower(format)
	if format != "json" && format != "csv" {
		return nil, apperror.ErrUnsupportedExportFormat(format)
	}

	entries, err := s.auditRepo.Export(ctx, params, s.exportLimit)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	stamp := time.Now().UTC().Format("20060102T150405Z")
	out := &ports.AuditExport{}
	switch format {
	case "json":
		body, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("marshal export: %w", err))
		}
		out.ContentType = "application/json"
		out.Filename = fmt.Sprintf("audit-export-%s.json", stamp)
		out.Body = body
	case "csv":
		body, err := export.CSV(auditDataset(entries))
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("render export: %w", err))
		}
		out.ContentType = "text/csv"
		out.Filename = fmt.Sprintf("audit-export-%s.csv", stamp)
		out.Body = body
	}

	if err := s.recordExport(ctx, actor, format, len(entries)); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("format", format).
		Int("rows", len(entries)).
		Str("actor_id", actor.ID).
		Msg("audit trail exported")
	return out, nil
}

func (s *AuditServiceImpl) recordExport(ctx context.Context, actor ports.Actor, format string, rows int) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	rec := newRecorder(s.auditRepo, s.outboxRepo)
	err = rec.record(ctx, dbTx, recordInput{
		EventType:    domain.EventAuditExported,
		Action:       domain.ActionExport,
		Actor:        actor,
		ResourceID:   "audit_trail",
		ResourceType: "audit_trail",
		Description:  fmt.Sprintf("audit trail exported as %s (%d rows)", format, rows),
		NewValues:    map[string]any{"format": format, "rows": rows},
		Severity:     domain.SeverityWarning,
	})
	if err != nil {
		return apperror.InternalError(fmt.Errorf("record export: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

func auditDataset(entries []domain.AuditEntry) export.Dataset {
	ds := export.Dataset{
		Headers: []string{"id", "timestamp", "event_type", "action", "actor_id", "actor_type",
			"party_id", "resource_id", "resource_type", "description", "ip_address", "source", "severity"},
	}
	for _, e := range entries {
		partyID := ""
		if e.PartyID != nil {
			partyID = e.PartyID.String()
		}
		ds.Rows = append(ds.Rows, []string{
			e.ID.String(), e.Timestamp.Format(time.RFC3339), string(e.EventType), string(e.Action),
			e.ActorID, string(e.ActorType), partyID, e.ResourceID, e.ResourceType,
			e.Description, e.IPAddress, string(e.Source), string(e.Severity),
		})
	}
	return ds
}

func statsCacheKey(params ports.AuditStatsParams) string {
	from, to := "", ""
	if params.From != nil {
		from = params.From.UTC().Format(time.RFC3339)
	}
	if params.To != nil {
		to = params.To.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("%s|%s", from, to)
}
