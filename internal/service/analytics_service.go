package service

import (
	"context"
	"fmt"
	"time"

	"consenthub/internal/core/domain"
	"consenthub/internal/core/ports"
	"consenthub/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AnalyticsServiceImpl implements ports.AnalyticsService. Snapshots are
// derived data: each compute aggregates the base tables for one period and
// upserts on the period + dimensions key, so reruns replace rather than
// duplicate.
type AnalyticsServiceImpl struct {
	consentRepo  ports.ConsentRepository
	dsarRepo     ports.DSARRepository
	snapshotRepo ports.SnapshotRepository
	log          zerolog.Logger
}

// NewAnalyticsService creates a new AnalyticsServiceImpl.
func NewAnalyticsService(
	consentRepo ports.ConsentRepository,
	dsarRepo ports.DSARRepository,
	snapshotRepo ports.SnapshotRepository,
	log zerolog.Logger,
) *AnalyticsServiceImpl {
	return &AnalyticsServiceImpl{
		consentRepo:  consentRepo,
		dsarRepo:     dsarRepo,
		snapshotRepo: snapshotRepo,
		log:          log,
	}
}

// PeriodBounds returns the half-open [start, end) window for a period
// containing start, normalized to period boundaries. Weekly periods start
// on Monday.
func PeriodBounds(periodType domain.PeriodType, start time.Time) (time.Time, time.Time) {
	start = start.UTC()
	switch periodType {
	case domain.PeriodWeekly:
		day := start.Truncate(24 * time.Hour)
		offset := (int(day.Weekday()) + 6) % 7
		weekStart := day.AddDate(0, 0, -offset)
		return weekStart, weekStart.AddDate(0, 0, 7)
	case domain.PeriodMonthly:
		monthStart := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
		return monthStart, monthStart.AddDate(0, 1, 0)
	default:
		dayStart := start.Truncate(24 * time.Hour)
		return dayStart, dayStart.AddDate(0, 0, 1)
	}
}

func (s *AnalyticsServiceImpl) ComputeConsentAnalytics(ctx context.Context, periodType domain.PeriodType, start time.Time, dims domain.Dimensions) (*domain.ConsentAnalytics, error) {
	if !domain.ValidPeriodType(periodType) {
		return nil, apperror.Validation(fmt.Sprintf("unknown period type: %s", periodType))
	}
	from, to := PeriodBounds(periodType, start)

	agg, err := s.consentRepo.AggregateStats(ctx, ports.ConsentStatsParams{
		From:       from,
		To:         to,
		Dimensions: dims,
	})
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	snap := &domain.ConsentAnalytics{
		ID:            uuid.New(),
		PeriodType:    periodType,
		PeriodStart:   from,
		PeriodEnd:     to,
		Dimensions:    dims,
		TotalConsents: agg.Total,
		Granted:       agg.Granted,
		Revoked:       agg.Revoked,
		Expired:       agg.Expired,
		Pending:       agg.Pending,
		CountsByType:  agg.ByType,
		CalculatedAt:  time.Now().UTC(),
	}
	if agg.Total > 0 {
		snap.GrantRate = float64(agg.Granted) / float64(agg.Total)
	}

	if err := s.snapshotRepo.UpsertConsentAnalytics(ctx, snap); err != nil {
		return nil, apperror.InternalError(err)
	}

	s.log.Info().
		Str("period_type", string(periodType)).
		Time("period_start", from).
		Int64("total", agg.Total).
		Msg("consent analytics computed")
	return snap, nil
}

func (s *AnalyticsServiceImpl) ComputePerformanceMetrics(ctx context.Context, periodType domain.PeriodType, start time.Time) (*domain.PerformanceMetrics, error) {
	if !domain.ValidPeriodType(periodType) {
		return nil, apperror.Validation(fmt.Sprintf("unknown period type: %s", periodType))
	}
	from, to := PeriodBounds(periodType, start)

	agg, err := s.dsarRepo.AggregateStats(ctx, from, to)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	snap := &domain.PerformanceMetrics{
		ID:                uuid.New(),
		PeriodType:        periodType,
		PeriodStart:       from,
		PeriodEnd:         to,
		TotalRequests:     agg.Total,
		Completed:         agg.Completed,
		Rejected:          agg.Rejected,
		Cancelled:         agg.Cancelled,
		Overdue:           agg.Overdue,
		AvgCompletionDays: agg.AvgCompletionDays,
		CalculatedAt:      time.Now().UTC(),
	}
	if agg.Completed > 0 {
		snap.OnTimeRate = float64(agg.CompletedOnTime) / float64(agg.Completed)
	}

	if err := s.snapshotRepo.UpsertPerformanceMetrics(ctx, snap); err != nil {
		return nil, apperror.InternalError(err)
	}

	s.log.Info().
		Str("period_type", string(periodType)).
		Time("period_start", from).
		Int64("total", agg.Total).
		Msg("performance metrics computed")
	return snap, nil
}

// Recompute refreshes both snapshot families for one period on demand.
func (s *AnalyticsServiceImpl) Recompute(ctx context.Context, in ports.RecomputeInput) error {
	if _, err := s.ComputeConsentAnalytics(ctx, in.PeriodType, in.Start, in.Dimensions); err != nil {
		return err
	}
	if _, err := s.ComputePerformanceMetrics(ctx, in.PeriodType, in.Start); err != nil {
		return err
	}
	return nil
}

func (s *AnalyticsServiceImpl) ListConsentAnalytics(ctx context.Context, params ports.SnapshotListParams) ([]domain.ConsentAnalytics, int64, error) {
	snaps, total, err := s.snapshotRepo.ListConsentAnalytics(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(err)
	}
	return snaps, total, nil
}

func (s *AnalyticsServiceImpl) ListPerformanceMetrics(ctx context.Context, params ports.SnapshotListParams) ([]domain.PerformanceMetrics, int64, error) {
	snaps, total, err := s.snapshotRepo.ListPerformanceMetrics(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(err)
	}
	return snaps, total, nil
}
