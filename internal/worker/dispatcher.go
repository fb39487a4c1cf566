package worker

import (
	"context"
	"time"

	"consenthub/internal/core/domain"
	"consenthub/internal/core/ports"

	"github.com/rs/zerolog"
)

// Dispatcher drains the transactional outbox: it polls for pending entries,
// publishes them to the event bus in creation order and marks them
// published. Failed publishes are retried on later ticks; entries that
// exhaust maxAttempts are parked as failed and left queryable.
type Dispatcher struct {
	outboxRepo  ports.OutboxRepository
	publisher   ports.EventPublisher
	interval    time.Duration
	batchSize   int
	maxAttempts int
	log         zerolog.Logger
}

// NewDispatcher creates an outbox dispatcher.
func NewDispatcher(
	outboxRepo ports.OutboxRepository,
	publisher ports.EventPublisher,
	interval time.Duration,
	batchSize int,
	maxAttempts int,
	log zerolog.Logger,
) *Dispatcher {
	return &Dispatcher{
		outboxRepo:  outboxRepo,
		publisher:   publisher,
		interval:    interval,
		batchSize:   batchSize,
		maxAttempts: maxAttempts,
		log:         log,
	}
}

// Run polls until ctx is cancelled. Errors are logged and retried on the
// next tick; the loop never crashes the worker.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.log.Info().Dur("interval", d.interval).Msg("outbox dispatcher started")
	for {
		select {
		case <-ctx.Done():
			d.log.Info().Msg("outbox dispatcher stopped")
			return
		case <-ticker.C:
			if err := d.DispatchOnce(ctx); err != nil {
				d.log.Error().Err(err).Msg("outbox dispatch cycle failed")
			}
		}
	}
}

// DispatchOnce processes at most one batch of pending entries.
func (d *Dispatcher) DispatchOnce(ctx context.Context) error {
	entries, err := d.outboxRepo.ListPending(ctx, d.batchSize)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		envelope := domain.EventEnvelope{
			EventID:       entry.ID.String(),
			EventType:     entry.EventType,
			AggregateType: entry.AggregateType,
			AggregateID:   entry.AggregateID,
			OccurredAt:    entry.CreatedAt,
			Data:          entry.Payload,
		}

		if err := d.publisher.Publish(ctx, envelope); err != nil {
			eventsFailed.Inc()
			park := entry.Attempts+1 >= d.maxAttempts
			if park {
				eventsParked.Inc()
				d.log.Error().
					Err(err).
					Str("outbox_id", entry.ID.String()).
					Int("attempts", entry.Attempts+1).
					Msg("outbox entry parked after exhausting attempts")
			} else {
				d.log.Warn().
					Err(err).
					Str("outbox_id", entry.ID.String()).
					Int("attempts", entry.Attempts+1).
					Msg("outbox publish failed, will retry")
			}
			if ferr := d.outboxRepo.RecordFailure(ctx, entry.ID, err.Error(), park); ferr != nil {
				d.log.Error().Err(ferr).Str("outbox_id", entry.ID.String()).Msg("record outbox failure")
			}
			continue
		}

		if err := d.outboxRepo.MarkPublished(ctx, entry.ID, time.Now().UTC()); err != nil {
			// The event went out but the status write failed; the entry will
			// be republished next tick. Consumers must tolerate duplicates.
			d.log.Error().Err(err).Str("outbox_id", entry.ID.String()).Msg("mark outbox entry published")
			continue
		}
		eventsPublished.Inc()
	}

	if pending, err := d.outboxRepo.CountPending(ctx); err == nil {
		outboxBacklog.Set(float64(pending))
	}
	return nil
}
