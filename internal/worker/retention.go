package worker

import (
	"context"
	"time"

	"consenthub/internal/core/ports"

	"github.com/rs/zerolog"
)

const archiveBatchSize = 1000

// Archiver enforces audit retention: entries older than the retention window
// move to the archive table in batches. Nothing is hard-deleted from the
// system outright.
type Archiver struct {
	auditRepo ports.AuditRepository
	retention time.Duration
	interval  time.Duration
	log       zerolog.Logger
}

// NewArchiver creates a retention archiver.
func NewArchiver(auditRepo ports.AuditRepository, retention, interval time.Duration, log zerolog.Logger) *Archiver {
	return &Archiver{auditRepo: auditRepo, retention: retention, interval: interval, log: log}
}

// Run archives expired entries until ctx is cancelled.
func (a *Archiver) Run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.log.Info().Dur("retention", a.retention).Dur("interval", a.interval).Msg("retention archiver started")
	for {
		select {
		case <-ctx.Done():
			a.log.Info().Msg("retention archiver stopped")
			return
		case <-ticker.C:
			a.RunOnce(ctx)
		}
	}
}

// RunOnce drains all currently expired entries, batch by batch.
func (a *Archiver) RunOnce(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-a.retention)
	var total int64
	for {
		moved, err := a.auditRepo.ArchiveExpired(ctx, cutoff, archiveBatchSize)
		if err != nil {
			a.log.Error().Err(err).Msg("archive expired audit entries")
			return
		}
		if moved == 0 {
			break
		}
		total += moved
		entriesArchived.Add(float64(moved))
	}
	if total > 0 {
		a.log.Info().Int64("archived", total).Time("cutoff", cutoff).Msg("audit entries archived")
	}
}
