package ports

import (
	"context"
	"time"

	"consenthub/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PartyRepository defines persistence operations for parties.
// Methods accepting pgx.Tx run inside the write transaction that also
// records the audit entry and outbox event.
type PartyRepository interface {
	Create(ctx context.Context, tx pgx.Tx, p *domain.Party) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Party, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	Update(ctx context.Context, tx pgx.Tx, p *domain.Party) error
	List(ctx context.Context, params PartyListParams) ([]domain.Party, int64, error)
}

// PartyListParams holds filter + pagination for listing parties.
type PartyListParams struct {
	Status *domain.PartyStatus
	Type   *domain.PartyType
	Search string // case-insensitive substring over name/email
	Limit  int
	Offset int
}

// ConsentRepository defines persistence operations for consent records.
type ConsentRepository interface {
	Create(ctx context.Context, tx pgx.Tx, c *domain.ConsentRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ConsentRecord, error)
	Update(ctx context.Context, tx pgx.Tx, c *domain.ConsentRecord) error
	ListByParty(ctx context.Context, partyID uuid.UUID) ([]domain.ConsentRecord, error)
	List(ctx context.Context, params ConsentListParams) ([]domain.ConsentRecord, int64, error)
	// AggregateStats powers the analytics snapshots.
	AggregateStats(ctx context.Context, params ConsentStatsParams) (*ConsentAggregates, error)
	// CountAnomalies counts records violating the granted/grantedAt and
	// revoked/revokedAt invariants, for compliance reporting.
	CountAnomalies(ctx context.Context) (int64, error)
}

// ConsentListParams holds filter + pagination for listing consents.
type ConsentListParams struct {
	PartyID      *uuid.UUID
	Status       *domain.ConsentStatus
	ConsentType  *domain.ConsentType
	Jurisdiction string
	Limit        int
	Offset       int
}

// ConsentStatsParams scopes an aggregation run.
type ConsentStatsParams struct {
	From       time.Time
	To         time.Time
	Dimensions domain.Dimensions
}

// ConsentAggregates is the raw aggregation result over consent records.
type ConsentAggregates struct {
	Total   int64
	Granted int64
	Revoked int64
	Expired int64
	Pending int64
	ByType  map[string]int64
}

// PreferenceRepository defines persistence operations for preferences.
type PreferenceRepository interface {
	Create(ctx context.Context, tx pgx.Tx, p *domain.PreferenceRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PreferenceRecord, error)
	Update(ctx context.Context, tx pgx.Tx, p *domain.PreferenceRecord) error
	Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
	ListByParty(ctx context.Context, partyID uuid.UUID) ([]domain.PreferenceRecord, error)
	List(ctx context.Context, params PreferenceListParams) ([]domain.PreferenceRecord, int64, error)
}

// PreferenceListParams holds filter + pagination for listing preferences.
type PreferenceListParams struct {
	PartyID *uuid.UUID
	Channel *domain.PreferenceChannel
	Limit   int
	Offset  int
}

// DSARRepository defines persistence operations for data subject requests.
type DSARRepository interface {
	Create(ctx context.Context, tx pgx.Tx, r *domain.DSARRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.DSARRequest, error)
	Update(ctx context.Context, tx pgx.Tx, r *domain.DSARRequest) error
	ListByParty(ctx context.Context, partyID uuid.UUID) ([]domain.DSARRequest, error)
	List(ctx context.Context, params DSARListParams) ([]domain.DSARRequest, int64, error)
	ListOverdue(ctx context.Context, now time.Time, limit int) ([]domain.DSARRequest, error)
	AggregateStats(ctx context.Context, from, to time.Time) (*DSARAggregates, error)
}

// DSARListParams holds filter + pagination for listing requests.
type DSARListParams struct {
	PartyID     *uuid.UUID
	Status      *domain.DSARStatus
	RequestType *domain.DSARType
	From        *time.Time
	To          *time.Time
	Limit       int
	Offset      int
}

// DSARAggregates is the raw aggregation result over requests in a window.
type DSARAggregates struct {
	Total             int64
	Completed         int64
	Rejected          int64
	Cancelled         int64
	Overdue           int64
	AvgCompletionDays float64
	CompletedOnTime   int64
}

// AuditRepository defines persistence for the append-only audit trail.
// Entries are immutable: there is no update path, only append, query,
// statistics and retention archiving.
type AuditRepository interface {
	Append(ctx context.Context, tx pgx.Tx, e *domain.AuditEntry) error
	Query(ctx context.Context, params AuditQueryParams) ([]domain.AuditEntry, int64, error)
	Statistics(ctx context.Context, params AuditStatsParams) (*AuditStatistics, error)
	// Export fetches at most limit entries matching the filter, oldest first.
	Export(ctx context.Context, params AuditQueryParams, limit int) ([]domain.AuditEntry, error)
	CountBySeverity(ctx context.Context, from, to time.Time) (map[string]int64, error)
	// ArchiveExpired moves entries older than cutoff to the archive table
	// and deletes them, returning the number moved.
	ArchiveExpired(ctx context.Context, cutoff time.Time, batch int) (int64, error)
}

// AuditQueryParams holds filter + pagination for the audit trail.
type AuditQueryParams struct {
	EventType    *domain.EventType
	PartyID      *uuid.UUID
	ActorType    *domain.ActorType
	ResourceType string
	Action       *domain.AuditAction
	Severity     *domain.AuditSeverity
	From         *time.Time
	To           *time.Time
	// Search matches case-insensitively against event type, description,
	// party id, resource id and resource type.
	Search string
	Limit  int
	Offset int
}

// AuditStatsParams scopes the statistics aggregation.
type AuditStatsParams struct {
	From *time.Time
	To   *time.Time
}

// AuditStatistics holds grouped counts plus a daily time series.
type AuditStatistics struct {
	Total          int64            `json:"total"`
	ByEventType    map[string]int64 `json:"by_event_type"`
	ByAction       map[string]int64 `json:"by_action"`
	ByResourceType map[string]int64 `json:"by_resource_type"`
	ByActorType    map[string]int64 `json:"by_actor_type"`
	Daily          []DailyCount     `json:"daily"` // most recent 30 days
}

// DailyCount is one point of the audit activity time series.
type DailyCount struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int64  `json:"count"`
}

// OutboxRepository defines persistence for the transactional outbox.
type OutboxRepository interface {
	Insert(ctx context.Context, tx pgx.Tx, e *domain.OutboxEntry) error
	// ListPending returns pending entries oldest first, up to limit.
	ListPending(ctx context.Context, limit int) ([]domain.OutboxEntry, error)
	MarkPublished(ctx context.Context, id uuid.UUID, publishedAt time.Time) error
	// RecordFailure increments the attempt counter and stores the error;
	// park moves the entry to failed so it stops being retried.
	RecordFailure(ctx context.Context, id uuid.UUID, lastError string, park bool) error
	CountPending(ctx context.Context) (int64, error)
}

// SnapshotRepository defines persistence for pre-aggregated analytics.
// Consent and DSAR snapshots upsert on their idempotency key; compliance
// reports are insert-only (a new snapshot per generation).
type SnapshotRepository interface {
	UpsertConsentAnalytics(ctx context.Context, s *domain.ConsentAnalytics) error
	UpsertPerformanceMetrics(ctx context.Context, s *domain.PerformanceMetrics) error
	ListConsentAnalytics(ctx context.Context, params SnapshotListParams) ([]domain.ConsentAnalytics, int64, error)
	ListPerformanceMetrics(ctx context.Context, params SnapshotListParams) ([]domain.PerformanceMetrics, int64, error)
	InsertComplianceReport(ctx context.Context, r *domain.ComplianceReport) error
	GetComplianceReport(ctx context.Context, id uuid.UUID) (*domain.ComplianceReport, error)
	ListComplianceReports(ctx context.Context, limit, offset int) ([]domain.ComplianceReport, int64, error)
}

// SnapshotListParams holds filter + pagination for stored snapshots.
type SnapshotListParams struct {
	PeriodType *domain.PeriodType
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
