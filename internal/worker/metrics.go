package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "consenthub_outbox_events_published_total",
		Help: "Outbox events successfully published to the event bus.",
	})
	eventsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "consenthub_outbox_events_failed_total",
		Help: "Outbox publish attempts that failed.",
	})
	eventsParked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "consenthub_outbox_events_parked_total",
		Help: "Outbox entries parked as failed after exhausting attempts.",
	})
	outboxBacklog = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "consenthub_outbox_pending",
		Help: "Outbox entries waiting for dispatch.",
	})
	snapshotRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "consenthub_snapshot_runs_total",
		Help: "Snapshot computation runs by outcome.",
	}, []string{"kind", "outcome"})
	entriesArchived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "consenthub_audit_entries_archived_total",
		Help: "Audit entries moved to the archive table by retention.",
	})
)
