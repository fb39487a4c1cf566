package worker

import (
	"context"
	"time"

	"consenthub/internal/core/domain"
	"consenthub/internal/core/ports"

	"github.com/rs/zerolog"
)

// Snapshotter recomputes analytics snapshots on a schedule. Each run covers
// the current daily, weekly and monthly periods; the upsert key makes reruns
// idempotent.
type Snapshotter struct {
	analytics ports.AnalyticsService
	interval  time.Duration
	log       zerolog.Logger
}

// NewSnapshotter creates a snapshot scheduler.
func NewSnapshotter(analytics ports.AnalyticsService, interval time.Duration, log zerolog.Logger) *Snapshotter {
	return &Snapshotter{analytics: analytics, interval: interval, log: log}
}

// Run recomputes snapshots until ctx is cancelled. The first run happens
// immediately so a fresh deployment has data without waiting a full interval.
func (s *Snapshotter) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info().Dur("interval", s.interval).Msg("snapshot scheduler started")
	s.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("snapshot scheduler stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce computes the current period snapshots for every granularity.
func (s *Snapshotter) RunOnce(ctx context.Context) {
	now := time.Now().UTC()
	for _, periodType := range []domain.PeriodType{domain.PeriodDaily, domain.PeriodWeekly, domain.PeriodMonthly} {
		if _, err := s.analytics.ComputeConsentAnalytics(ctx, periodType, now, domain.Dimensions{}); err != nil {
			snapshotRuns.WithLabelValues("consent", "error").Inc()
			s.log.Error().Err(err).Str("period_type", string(periodType)).Msg("consent snapshot failed")
		} else {
			snapshotRuns.WithLabelValues("consent", "ok").Inc()
		}

		if _, err := s.analytics.ComputePerformanceMetrics(ctx, periodType, now); err != nil {
			snapshotRuns.WithLabelValues("performance", "error").Inc()
			s.log.Error().Err(err).Str("period_type", string(periodType)).Msg("performance snapshot failed")
		} else {
			snapshotRuns.WithLabelValues("performance", "ok").Inc()
		}
	}
}
