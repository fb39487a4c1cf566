package service

import (
	"context"
	"testing"
	"time"

	"consenthub/internal/core/domain"
	"consenthub/internal/core/ports"
	"consenthub/internal/core/ports/mocks"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type analyticsTestDeps struct {
	svc          *AnalyticsServiceImpl
	consentRepo  *mocks.MockConsentRepository
	dsarRepo     *mocks.MockDSARRepository
	snapshotRepo *mocks.MockSnapshotRepository
	ctrl         *gomock.Controller
}

func setupAnalyticsService(t *testing.T) *analyticsTestDeps {
	ctrl := gomock.NewController(t)
	d := &analyticsTestDeps{
		consentRepo:  mocks.NewMockConsentRepository(ctrl),
		dsarRepo:     mocks.NewMockDSARRepository(ctrl),
		snapshotRepo: mocks.NewMockSnapshotRepository(ctrl),
		ctrl:         ctrl,
	}
	d.svc = NewAnalyticsService(d.consentRepo, d.dsarRepo, d.snapshotRepo, zerolog.Nop())
	return d
}

// ==================== PeriodBounds Tests ====================

func TestPeriodBounds_Daily(t *testing.T) {
	at := time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)
	from, to := PeriodBounds(domain.PeriodDaily, at)
	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), to)
}

func TestPeriodBounds_WeeklyStartsMonday(t *testing.T) {
	// 2025-03-14 is a Friday; the containing week starts Monday the 10th.
	at := time.Date(2025, 3, 14, 15, 0, 0, 0, time.UTC)
	from, to := PeriodBounds(domain.PeriodWeekly, at)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC), to)
	assert.Equal(t, time.Monday, from.Weekday())
}

func TestPeriodBounds_WeeklyOnMonday(t *testing.T) {
	at := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	from, _ := PeriodBounds(domain.PeriodWeekly, at)
	assert.Equal(t, at, from)
}

func TestPeriodBounds_Monthly(t *testing.T) {
	at := time.Date(2025, 1, 31, 23, 59, 0, 0, time.UTC)
	from, to := PeriodBounds(domain.PeriodMonthly, at)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), to)
}

// ==================== Compute Tests ====================

func TestAnalyticsService_ComputeConsentAnalytics(t *testing.T) {
	d := setupAnalyticsService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	start := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	dims := domain.Dimensions{Jurisdiction: "EU"}

	d.consentRepo.EXPECT().AggregateStats(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, params ports.ConsentStatsParams) (*ports.ConsentAggregates, error) {
			assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), params.From)
			assert.Equal(t, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), params.To)
			assert.Equal(t, dims, params.Dimensions)
			return &ports.ConsentAggregates{
				Total:   200,
				Granted: 150,
				Revoked: 30,
				Pending: 20,
				ByType:  map[string]int64{"marketing": 120, "analytics": 80},
			}, nil
		})
	d.snapshotRepo.EXPECT().UpsertConsentAnalytics(ctx, gomock.Any()).Return(nil)

	snap, err := d.svc.ComputeConsentAnalytics(ctx, domain.PeriodDaily, start, dims)
	require.NoError(t, err)
	assert.Equal(t, int64(200), snap.TotalConsents)
	assert.InDelta(t, 0.75, snap.GrantRate, 1e-9)
	assert.Equal(t, dims, snap.Dimensions)
}

func TestAnalyticsService_ComputeConsentAnalytics_EmptyPeriod(t *testing.T) {
	d := setupAnalyticsService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()

	d.consentRepo.EXPECT().AggregateStats(ctx, gomock.Any()).Return(&ports.ConsentAggregates{}, nil)
	d.snapshotRepo.EXPECT().UpsertConsentAnalytics(ctx, gomock.Any()).Return(nil)

	snap, err := d.svc.ComputeConsentAnalytics(ctx, domain.PeriodDaily, time.Now(), domain.Dimensions{})
	require.NoError(t, err)
	assert.Zero(t, snap.TotalConsents)
	assert.Zero(t, snap.GrantRate)
}

func TestAnalyticsService_ComputeConsentAnalytics_UnknownPeriod(t *testing.T) {
	d := setupAnalyticsService(t)
	defer d.ctrl.Finish()

	snap, err := d.svc.ComputeConsentAnalytics(context.Background(), "hourly", time.Now(), domain.Dimensions{})
	assert.Nil(t, snap)
	assertAppError(t, err, "VAL_001")
}

func TestAnalyticsService_ComputePerformanceMetrics(t *testing.T) {
	d := setupAnalyticsService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	d.dsarRepo.EXPECT().AggregateStats(ctx, start, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)).
		Return(&ports.DSARAggregates{
			Total:             40,
			Completed:         25,
			Rejected:          5,
			Overdue:           3,
			AvgCompletionDays: 12.5,
			CompletedOnTime:   20,
		}, nil)
	d.snapshotRepo.EXPECT().UpsertPerformanceMetrics(ctx, gomock.Any()).Return(nil)

	snap, err := d.svc.ComputePerformanceMetrics(ctx, domain.PeriodMonthly, start)
	require.NoError(t, err)
	assert.Equal(t, int64(40), snap.TotalRequests)
	assert.InDelta(t, 0.8, snap.OnTimeRate, 1e-9)
	assert.InDelta(t, 12.5, snap.AvgCompletionDays, 1e-9)
}

func TestAnalyticsService_Recompute(t *testing.T) {
	d := setupAnalyticsService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()

	d.consentRepo.EXPECT().AggregateStats(ctx, gomock.Any()).Return(&ports.ConsentAggregates{}, nil)
	d.snapshotRepo.EXPECT().UpsertConsentAnalytics(ctx, gomock.Any()).Return(nil)
	d.dsarRepo.EXPECT().AggregateStats(ctx, gomock.Any(), gomock.Any()).Return(&ports.DSARAggregates{}, nil)
	d.snapshotRepo.EXPECT().UpsertPerformanceMetrics(ctx, gomock.Any()).Return(nil)

	err := d.svc.Recompute(ctx, ports.RecomputeInput{
		PeriodType: domain.PeriodDaily,
		Start:      time.Now(),
		Actor:      ports.SystemActor(),
	})
	require.NoError(t, err)
}
