package service

import (
	"context"
	"time"

	"consenthub/internal/core/domain"
	"consenthub/internal/core/ports"
	"consenthub/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ComplianceServiceImpl implements ports.ComplianceService. Each generation
// assembles a fresh point-in-time snapshot from the base tables; reports are
// never updated after the fact.
type ComplianceServiceImpl struct {
	consentRepo  ports.ConsentRepository
	dsarRepo     ports.DSARRepository
	auditRepo    ports.AuditRepository
	snapshotRepo ports.SnapshotRepository
	log          zerolog.Logger
}

// NewComplianceService creates a new ComplianceServiceImpl.
func NewComplianceService(
	consentRepo ports.ConsentRepository,
	dsarRepo ports.DSARRepository,
	auditRepo ports.AuditRepository,
	snapshotRepo ports.SnapshotRepository,
	log zerolog.Logger,
) *ComplianceServiceImpl {
	return &ComplianceServiceImpl{
		consentRepo:  consentRepo,
		dsarRepo:     dsarRepo,
		auditRepo:    auditRepo,
		snapshotRepo: snapshotRepo,
		log:          log,
	}
}

func (s *ComplianceServiceImpl) Generate(ctx context.Context, in ports.GenerateReportInput) (*domain.ComplianceReport, error) {
	if !in.PeriodEnd.After(in.PeriodStart) {
		return nil, apperror.Validation("period_end must be after period_start")
	}

	dsarAgg, err := s.dsarRepo.AggregateStats(ctx, in.PeriodStart, in.PeriodEnd)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	dsarSection := domain.DSARSection{
		Total:     dsarAgg.Total,
		Completed: dsarAgg.Completed,
		Overdue:   dsarAgg.Overdue,
	}
	if dsarAgg.Completed > 0 {
		dsarSection.OnTimeRate = float64(dsarAgg.CompletedOnTime) / float64(dsarAgg.Completed)
	}

	consentAgg, err := s.consentRepo.AggregateStats(ctx, ports.ConsentStatsParams{
		From: in.PeriodStart,
		To:   in.PeriodEnd,
	})
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	anomalies, err := s.consentRepo.CountAnomalies(ctx)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	consentSection := domain.ConsentSection{
		Total:     consentAgg.Total,
		Valid:     consentAgg.Granted,
		Expired:   consentAgg.Expired,
		Revoked:   consentAgg.Revoked,
		Anomalies: anomalies,
	}

	bySeverity, err := s.auditRepo.CountBySeverity(ctx, in.PeriodStart, in.PeriodEnd)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	auditSection := domain.AuditSection{BySeverity: bySeverity}
	for _, count := range bySeverity {
		auditSection.Total += count
	}

	report := &domain.ComplianceReport{
		ID:          uuid.New(),
		Title:       in.Title,
		PeriodStart: in.PeriodStart,
		PeriodEnd:   in.PeriodEnd,
		DSAR:        dsarSection,
		Consents:    consentSection,
		AuditTrail:  auditSection,
		Manual:      in.Manual,
		GeneratedBy: in.Actor.ID,
		GeneratedAt: time.Now().UTC(),
	}

	if err := s.snapshotRepo.InsertComplianceReport(ctx, report); err != nil {
		return nil, apperror.InternalError(err)
	}

	s.log.Info().
		Str("report_id", report.ID.String()).
		Time("period_start", in.PeriodStart).
		Time("period_end", in.PeriodEnd).
		Msg("compliance report generated")
	return report, nil
}

func (s *ComplianceServiceImpl) Get(ctx context.Context, id uuid.UUID) (*domain.ComplianceReport, error) {
	report, err := s.snapshotRepo.GetComplianceReport(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if report == nil {
		return nil, apperror.ErrNotFound("report")
	}
	return report, nil
}

func (s *ComplianceServiceImpl) List(ctx context.Context, limit, offset int) ([]domain.ComplianceReport, int64, error) {
	reports, total, err := s.snapshotRepo.ListComplianceReports(ctx, limit, offset)
	if err != nil {
		return nil, 0, apperror.InternalError(err)
	}
	return reports, total, nil
}
