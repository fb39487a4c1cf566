package ports

import (
	"context"
	"encoding/json"
	"time"

	"consenthub/internal/core/domain"

	"github.com/google/uuid"
)

// Actor describes the principal behind a request, carried into audit
// entries and outbox events.
type Actor struct {
	ID        string
	Type      domain.ActorType
	IPAddress string
	UserAgent string
	Source    domain.AuditSource
}

// SystemActor is used by background jobs.
func SystemActor() Actor {
	return Actor{ID: "system", Type: domain.ActorSystem, Source: domain.SourceSystem}
}

// ---- Party ----

// CreatePartyInput carries a validated party creation request.
type CreatePartyInput struct {
	Name  string
	Email string
	Phone string
	Type  domain.PartyType
	Actor Actor
}

// UpdatePartyInput carries partial party updates; nil fields are unchanged.
type UpdatePartyInput struct {
	Name   *string
	Phone  *string
	Status *domain.PartyStatus
	Actor  Actor
}

// PartyService manages party lifecycle with transactional audit recording.
type PartyService interface {
	Create(ctx context.Context, in CreatePartyInput) (*domain.Party, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Party, error)
	List(ctx context.Context, params PartyListParams) ([]domain.Party, int64, error)
	Update(ctx context.Context, id uuid.UUID, in UpdatePartyInput) (*domain.Party, error)
	// Deactivate soft-deletes: the party row stays for referential integrity
	// of consents and requests.
	Deactivate(ctx context.Context, id uuid.UUID, actor Actor) error
}

// ---- Consent ----

// CreateConsentInput carries a validated consent creation request.
type CreateConsentInput struct {
	PartyID      uuid.UUID
	ConsentType  domain.ConsentType
	Purpose      string
	Channel      string
	LegalBasis   domain.LegalBasis
	Category     string
	Jurisdiction string
	ExpiresAt    *time.Time
	// Granted creates the record directly in granted status (the customer
	// accepted at capture time).
	Granted bool
	Actor   Actor
}

// ConsentService manages the consent state machine.
type ConsentService interface {
	Create(ctx context.Context, in CreateConsentInput) (*domain.ConsentRecord, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.ConsentRecord, error)
	List(ctx context.Context, params ConsentListParams) ([]domain.ConsentRecord, int64, error)
	ListByParty(ctx context.Context, partyID uuid.UUID) ([]domain.ConsentRecord, error)
	Grant(ctx context.Context, id uuid.UUID, expiresAt *time.Time, actor Actor) (*domain.ConsentRecord, error)
	Revoke(ctx context.Context, id uuid.UUID, actor Actor) (*domain.ConsentRecord, error)
}

// ---- Preference ----

// CreatePreferenceInput carries a validated preference creation request.
type CreatePreferenceInput struct {
	PartyID        uuid.UUID
	PreferenceType string
	Channel        domain.PreferenceChannel
	Enabled        bool
	Frequency      domain.PreferenceFrequency
	Actor          Actor
}

// UpdatePreferenceInput carries partial preference updates.
type UpdatePreferenceInput struct {
	Enabled   *bool
	Frequency *domain.PreferenceFrequency
	Actor     Actor
}

// PreferenceService manages communication preferences.
type PreferenceService interface {
	Create(ctx context.Context, in CreatePreferenceInput) (*domain.PreferenceRecord, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.PreferenceRecord, error)
	List(ctx context.Context, params PreferenceListParams) ([]domain.PreferenceRecord, int64, error)
	ListByParty(ctx context.Context, partyID uuid.UUID) ([]domain.PreferenceRecord, error)
	Update(ctx context.Context, id uuid.UUID, in UpdatePreferenceInput) (*domain.PreferenceRecord, error)
	Delete(ctx context.Context, id uuid.UUID, actor Actor) error
}

// ---- DSAR ----

// SubmitDSARInput carries a validated request submission.
type SubmitDSARInput struct {
	PartyID     uuid.UUID
	RequestType domain.DSARType
	Description string
	// DueDate overrides the default 30-day window when set.
	DueDate *time.Time
	Actor   Actor
}

// DSARStatusInput carries a status transition.
type DSARStatusInput struct {
	Status          domain.DSARStatus
	ProcessingNotes string
	Verification    *domain.VerificationStatus
	Actor           Actor
}

// DSARService manages data subject request lifecycle.
type DSARService interface {
	Submit(ctx context.Context, in SubmitDSARInput) (*domain.DSARRequest, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.DSARRequest, error)
	List(ctx context.Context, params DSARListParams) ([]domain.DSARRequest, int64, error)
	ListByParty(ctx context.Context, partyID uuid.UUID) ([]domain.DSARRequest, error)
	ListOverdue(ctx context.Context, limit int) ([]domain.DSARRequest, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, in DSARStatusInput) (*domain.DSARRequest, error)
}

// ---- Audit ----

// AuditExport is a rendered export payload.
type AuditExport struct {
	ContentType string
	Filename    string
	Body        []byte
}

// AuditService exposes the read side of the audit trail.
type AuditService interface {
	Query(ctx context.Context, params AuditQueryParams) ([]domain.AuditEntry, int64, error)
	Statistics(ctx context.Context, params AuditStatsParams) (*AuditStatistics, error)
	// Export renders matching entries as json or csv, capped at the
	// configured row limit, and audit-logs the export itself.
	Export(ctx context.Context, params AuditQueryParams, format string, actor Actor) (*AuditExport, error)
}

// ---- Analytics & compliance ----

// RecomputeInput triggers an ad-hoc aggregation for one period.
type RecomputeInput struct {
	PeriodType domain.PeriodType
	Start      time.Time
	Dimensions domain.Dimensions
	Actor      Actor
}

// AnalyticsService computes and serves pre-aggregated snapshots.
type AnalyticsService interface {
	ComputeConsentAnalytics(ctx context.Context, periodType domain.PeriodType, start time.Time, dims domain.Dimensions) (*domain.ConsentAnalytics, error)
	ComputePerformanceMetrics(ctx context.Context, periodType domain.PeriodType, start time.Time) (*domain.PerformanceMetrics, error)
	Recompute(ctx context.Context, in RecomputeInput) error
	ListConsentAnalytics(ctx context.Context, params SnapshotListParams) ([]domain.ConsentAnalytics, int64, error)
	ListPerformanceMetrics(ctx context.Context, params SnapshotListParams) ([]domain.PerformanceMetrics, int64, error)
}

// GenerateReportInput carries a compliance report request. Manual holds the
// hand-maintained sections (training completion, vendor assessments, action
// plans) that have no system of record here; they are stored as supplied.
type GenerateReportInput struct {
	Title       string
	PeriodStart time.Time
	PeriodEnd   time.Time
	Manual      json.RawMessage
	Actor       Actor
}

// ComplianceService assembles and serves compliance report snapshots.
type ComplianceService interface {
	Generate(ctx context.Context, in GenerateReportInput) (*domain.ComplianceReport, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.ComplianceReport, error)
	List(ctx context.Context, limit, offset int) ([]domain.ComplianceReport, int64, error)
}

// ---- Auth ----

// TokenClaims are the verified identity claims injected into request context.
type TokenClaims struct {
	UID     string
	Role    string // customer, csr, admin
	PartyID string
}

// TokenService verifies bearer ID tokens issued by the identity provider.
type TokenService interface {
	Validate(token string) (*TokenClaims, error)
}

// ---- Events ----

// EventPublisher delivers outbox entries to the event bus.
type EventPublisher interface {
	Publish(ctx context.Context, envelope domain.EventEnvelope) error
	Close()
}

// ---- Caching ----

// StatsCache caches audit statistics snapshots for a short TTL to keep
// repeated dashboard polls off the aggregation queries.
type StatsCache interface {
	Get(ctx context.Context, key string) (*AuditStatistics, error)
	Set(ctx context.Context, key string, stats *AuditStatistics, ttl time.Duration) error
}
