package integration

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"consenthub/internal/core/domain"
	"consenthub/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func duplicateErr() error {
	return &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
}

// --- In-Memory Party Repo ---

type inMemoryPartyRepo struct {
	mu      sync.RWMutex
	parties map[uuid.UUID]*domain.Party
}

func newInMemoryPartyRepo() *inMemoryPartyRepo {
	return &inMemoryPartyRepo{parties: make(map[uuid.UUID]*domain.Party)}
}

func (r *inMemoryPartyRepo) Create(ctx context.Context, tx pgx.Tx, p *domain.Party) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.parties {
		if strings.EqualFold(existing.Email, p.Email) {
			return duplicateErr()
		}
	}
	cp := *p
	r.parties[p.ID] = &cp
	return nil
}

func (r *inMemoryPartyRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Party, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parties[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *inMemoryPartyRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parties[id]
	return ok && p.Status == domain.PartyStatusActive, nil
}

func (r *inMemoryPartyRepo) Update(ctx context.Context, tx pgx.Tx, p *domain.Party) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.parties[p.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *p
	r.parties[p.ID] = &cp
	return nil
}

func (r *inMemoryPartyRepo) List(ctx context.Context, params ports.PartyListParams) ([]domain.Party, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Party
	for _, p := range r.parties {
		if params.Status != nil && p.Status != *params.Status {
			continue
		}
		if params.Type != nil && p.Type != *params.Type {
			continue
		}
		if params.Search != "" {
			needle := strings.ToLower(params.Search)
			if !strings.Contains(strings.ToLower(p.Name), needle) &&
				!strings.Contains(strings.ToLower(p.Email), needle) {
				continue
			}
		}
		result = append(result, *p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return paginate(result, params.Limit, params.Offset)
}

// --- In-Memory Consent Repo ---

type inMemoryConsentRepo struct {
	mu       sync.RWMutex
	consents map[uuid.UUID]*domain.ConsentRecord
}

func newInMemoryConsentRepo() *inMemoryConsentRepo {
	return &inMemoryConsentRepo{consents: make(map[uuid.UUID]*domain.ConsentRecord)}
}

func (r *inMemoryConsentRepo) Create(ctx context.Context, tx pgx.Tx, c *domain.ConsentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.consents[c.ID] = &cp
	return nil
}

func (r *inMemoryConsentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ConsentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.consents[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *inMemoryConsentRepo) Update(ctx context.Context, tx pgx.Tx, c *domain.ConsentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.consents[c.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *c
	r.consents[c.ID] = &cp
	return nil
}

func (r *inMemoryConsentRepo) ListByParty(ctx context.Context, partyID uuid.UUID) ([]domain.ConsentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.ConsentRecord
	for _, c := range r.consents {
		if c.PartyID == partyID {
			result = append(result, *c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (r *inMemoryConsentRepo) List(ctx context.Context, params ports.ConsentListParams) ([]domain.ConsentRecord, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.ConsentRecord
	for _, c := range r.consents {
		if params.PartyID != nil && c.PartyID != *params.PartyID {
			continue
		}
		if params.Status != nil && c.Status != *params.Status {
			continue
		}
		if params.ConsentType != nil && c.ConsentType != *params.ConsentType {
			continue
		}
		if params.Jurisdiction != "" && c.Jurisdiction != params.Jurisdiction {
			continue
		}
		result = append(result, *c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return paginate(result, params.Limit, params.Offset)
}

func (r *inMemoryConsentRepo) AggregateStats(ctx context.Context, params ports.ConsentStatsParams) (*ports.ConsentAggregates, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	agg := &ports.ConsentAggregates{ByType: make(map[string]int64)}
	for _, c := range r.consents {
		if c.CreatedAt.Before(params.From) || !c.CreatedAt.Before(params.To) {
			continue
		}
		if params.Dimensions.Jurisdiction != "" && c.Jurisdiction != params.Dimensions.Jurisdiction {
			continue
		}
		if params.Dimensions.Channel != "" && c.Channel != params.Dimensions.Channel {
			continue
		}
		if params.Dimensions.ConsentType != "" && string(c.ConsentType) != params.Dimensions.ConsentType {
			continue
		}
		agg.Total++
		agg.ByType[string(c.ConsentType)]++
		switch c.Status {
		case domain.ConsentStatusGranted:
			agg.Granted++
		case domain.ConsentStatusRevoked:
			agg.Revoked++
		case domain.ConsentStatusExpired:
			agg.Expired++
		case domain.ConsentStatusPending:
			agg.Pending++
		}
	}
	return agg, nil
}

func (r *inMemoryConsentRepo) CountAnomalies(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var count int64
	for _, c := range r.consents {
		if c.Status == domain.ConsentStatusGranted && c.GrantedAt == nil {
			count++
			continue
		}
		if c.Status == domain.ConsentStatusRevoked && c.RevokedAt == nil {
			count++
		}
	}
	return count, nil
}

// --- In-Memory Preference Repo ---

type inMemoryPreferenceRepo struct {
	mu    sync.RWMutex
	prefs map[uuid.UUID]*domain.PreferenceRecord
}

func newInMemoryPreferenceRepo() *inMemoryPreferenceRepo {
	return &inMemoryPreferenceRepo{prefs: make(map[uuid.UUID]*domain.PreferenceRecord)}
}

func (r *inMemoryPreferenceRepo) Create(ctx context.Context, tx pgx.Tx, p *domain.PreferenceRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.prefs {
		if existing.PartyID == p.PartyID && existing.PreferenceType == p.PreferenceType && existing.Channel == p.Channel {
			return duplicateErr()
		}
	}
	cp := *p
	r.prefs[p.ID] = &cp
	return nil
}

func (r *inMemoryPreferenceRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PreferenceRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.prefs[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *inMemoryPreferenceRepo) Update(ctx context.Context, tx pgx.Tx, p *domain.PreferenceRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.prefs[p.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *p
	r.prefs[p.ID] = &cp
	return nil
}

func (r *inMemoryPreferenceRepo) Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.prefs, id)
	return nil
}

func (r *inMemoryPreferenceRepo) ListByParty(ctx context.Context, partyID uuid.UUID) ([]domain.PreferenceRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.PreferenceRecord
	for _, p := range r.prefs {
		if p.PartyID == partyID {
			result = append(result, *p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (r *inMemoryPreferenceRepo) List(ctx context.Context, params ports.PreferenceListParams) ([]domain.PreferenceRecord, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.PreferenceRecord
	for _, p := range r.prefs {
		if params.PartyID != nil && p.PartyID != *params.PartyID {
			continue
		}
		if params.Channel != nil && p.Channel != *params.Channel {
			continue
		}
		result = append(result, *p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return paginate(result, params.Limit, params.Offset)
}

// --- In-Memory DSAR Repo ---

type inMemoryDSARRepo struct {
	mu       sync.RWMutex
	requests map[uuid.UUID]*domain.DSARRequest
}

func newInMemoryDSARRepo() *inMemoryDSARRepo {
	return &inMemoryDSARRepo{requests: make(map[uuid.UUID]*domain.DSARRequest)}
}

func (r *inMemoryDSARRepo) Create(ctx context.Context, tx pgx.Tx, req *domain.DSARRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *req
	r.requests[req.ID] = &cp
	return nil
}

func (r *inMemoryDSARRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.DSARRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, nil
	}
	cp := *req
	return &cp, nil
}

func (r *inMemoryDSARRepo) Update(ctx context.Context, tx pgx.Tx, req *domain.DSARRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.requests[req.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *req
	r.requests[req.ID] = &cp
	return nil
}

func (r *inMemoryDSARRepo) ListByParty(ctx context.Context, partyID uuid.UUID) ([]domain.DSARRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.DSARRequest
	for _, req := range r.requests {
		if req.PartyID == partyID {
			result = append(result, *req)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SubmittedAt.Before(result[j].SubmittedAt) })
	return result, nil
}

func (r *inMemoryDSARRepo) List(ctx context.Context, params ports.DSARListParams) ([]domain.DSARRequest, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.DSARRequest
	for _, req := range r.requests {
		if params.PartyID != nil && req.PartyID != *params.PartyID {
			continue
		}
		if params.Status != nil && req.Status != *params.Status {
			continue
		}
		if params.RequestType != nil && req.RequestType != *params.RequestType {
			continue
		}
		if params.From != nil && req.SubmittedAt.Before(*params.From) {
			continue
		}
		if params.To != nil && !req.SubmittedAt.Before(*params.To) {
			continue
		}
		result = append(result, *req)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SubmittedAt.Before(result[j].SubmittedAt) })
	return paginate(result, params.Limit, params.Offset)
}

func (r *inMemoryDSARRepo) ListOverdue(ctx context.Context, now time.Time, limit int) ([]domain.DSARRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.DSARRequest
	for _, req := range r.requests {
		switch req.Status {
		case domain.DSARStatusPending, domain.DSARStatusInProgress:
			if now.After(req.DueDate) {
				result = append(result, *req)
			}
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].DueDate.Before(result[j].DueDate) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *inMemoryDSARRepo) AggregateStats(ctx context.Context, from, to time.Time) (*ports.DSARAggregates, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	agg := &ports.DSARAggregates{}
	var totalDays float64
	now := time.Now()
	for _, req := range r.requests {
		if req.SubmittedAt.Before(from) || !req.SubmittedAt.Before(to) {
			continue
		}
		agg.Total++
		switch req.Status {
		case domain.DSARStatusCompleted:
			agg.Completed++
			if req.CompletedAt != nil {
				totalDays += req.CompletedAt.Sub(req.SubmittedAt).Hours() / 24
				if !req.CompletedAt.After(req.DueDate) {
					agg.CompletedOnTime++
				}
			}
		case domain.DSARStatusRejected:
			agg.Rejected++
		case domain.DSARStatusCancelled:
			agg.Cancelled++
		}
		if req.IsOverdue(now) {
			agg.Overdue++
		}
	}
	if agg.Completed > 0 {
		agg.AvgCompletionDays = totalDays / float64(agg.Completed)
	}
	return agg, nil
}

// --- In-Memory Audit Repo ---

type inMemoryAuditRepo struct {
	mu       sync.RWMutex
	entries  []domain.AuditEntry
	archived []domain.AuditEntry
}

func newInMemoryAuditRepo() *inMemoryAuditRepo {
	return &inMemoryAuditRepo{}
}

func (r *inMemoryAuditRepo) Append(ctx context.Context, tx pgx.Tx, e *domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *e)
	return nil
}

func (r *inMemoryAuditRepo) matches(e domain.AuditEntry, params ports.AuditQueryParams) bool {
	if params.EventType != nil && e.EventType != *params.EventType {
		return false
	}
	if params.PartyID != nil && (e.PartyID == nil || *e.PartyID != *params.PartyID) {
		return false
	}
	if params.ActorType != nil && e.ActorType != *params.ActorType {
		return false
	}
	if params.ResourceType != "" && e.ResourceType != params.ResourceType {
		return false
	}
	if params.Action != nil && e.Action != *params.Action {
		return false
	}
	if params.Severity != nil && e.Severity != *params.Severity {
		return false
	}
	if params.From != nil && e.Timestamp.Before(*params.From) {
		return false
	}
	if params.To != nil && !e.Timestamp.Before(*params.To) {
		return false
	}
	if params.Search != "" {
		needle := strings.ToLower(params.Search)
		hay := strings.ToLower(string(e.EventType) + " " + e.Description + " " + e.ResourceID + " " + e.ResourceType)
		if e.PartyID != nil {
			hay += " " + e.PartyID.String()
		}
		if !strings.Contains(hay, needle) {
			return false
		}
	}
	return true
}

func (r *inMemoryAuditRepo) Query(ctx context.Context, params ports.AuditQueryParams) ([]domain.AuditEntry, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.AuditEntry
	for _, e := range r.entries {
		if r.matches(e, params) {
			result = append(result, e)
		}
	}
	// Newest first, like the SQL query.
	sort.Slice(result, func(i, j int) bool { return result[i].Timestamp.After(result[j].Timestamp) })
	return paginate(result, params.Limit, params.Offset)
}

func (r *inMemoryAuditRepo) Export(ctx context.Context, params ports.AuditQueryParams, limit int) ([]domain.AuditEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.AuditEntry
	for _, e := range r.entries {
		if r.matches(e, params) {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Timestamp.Before(result[j].Timestamp) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *inMemoryAuditRepo) Statistics(ctx context.Context, params ports.AuditStatsParams) (*ports.AuditStatistics, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := &ports.AuditStatistics{
		ByEventType:    make(map[string]int64),
		ByAction:       make(map[string]int64),
		ByResourceType: make(map[string]int64),
		ByActorType:    make(map[string]int64),
	}
	daily := make(map[string]int64)
	for _, e := range r.entries {
		if params.From != nil && e.Timestamp.Before(*params.From) {
			continue
		}
		if params.To != nil && !e.Timestamp.Before(*params.To) {
			continue
		}
		stats.Total++
		stats.ByEventType[string(e.EventType)]++
		stats.ByAction[string(e.Action)]++
		if e.ResourceType != "" {
			stats.ByResourceType[e.ResourceType]++
		}
		stats.ByActorType[string(e.ActorType)]++
		daily[e.Timestamp.UTC().Format("2006-01-02")]++
	}
	for date, count := range daily {
		stats.Daily = append(stats.Daily, ports.DailyCount{Date: date, Count: count})
	}
	sort.Slice(stats.Daily, func(i, j int) bool { return stats.Daily[i].Date < stats.Daily[j].Date })
	return stats, nil
}

func (r *inMemoryAuditRepo) CountBySeverity(ctx context.Context, from, to time.Time) (map[string]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[string]int64)
	for _, e := range r.entries {
		if e.Timestamp.Before(from) || !e.Timestamp.Before(to) {
			continue
		}
		counts[string(e.Severity)]++
	}
	return counts, nil
}

func (r *inMemoryAuditRepo) ArchiveExpired(ctx context.Context, cutoff time.Time, batch int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []domain.AuditEntry
	var moved int64
	for _, e := range r.entries {
		if e.Timestamp.Before(cutoff) && (batch <= 0 || moved < int64(batch)) {
			r.archived = append(r.archived, e)
			moved++
			continue
		}
		kept = append(kept, e)
	}
	r.entries = kept
	return moved, nil
}

// --- In-Memory Outbox Repo ---

type inMemoryOutboxRepo struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*domain.OutboxEntry
}

func newInMemoryOutboxRepo() *inMemoryOutboxRepo {
	return &inMemoryOutboxRepo{entries: make(map[uuid.UUID]*domain.OutboxEntry)}
}

func (r *inMemoryOutboxRepo) Insert(ctx context.Context, tx pgx.Tx, e *domain.OutboxEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e
	r.entries[e.ID] = &cp
	return nil
}

func (r *inMemoryOutboxRepo) ListPending(ctx context.Context, limit int) ([]domain.OutboxEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.OutboxEntry
	for _, e := range r.entries {
		if e.Status == domain.OutboxPending {
			result = append(result, *e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *inMemoryOutboxRepo) MarkPublished(ctx context.Context, id uuid.UUID, publishedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return pgx.ErrNoRows
	}
	e.Status = domain.OutboxPublished
	e.PublishedAt = &publishedAt
	return nil
}

func (r *inMemoryOutboxRepo) RecordFailure(ctx context.Context, id uuid.UUID, lastError string, park bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return pgx.ErrNoRows
	}
	e.Attempts++
	e.LastError = lastError
	if park {
		e.Status = domain.OutboxFailed
	}
	return nil
}

func (r *inMemoryOutboxRepo) CountPending(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var count int64
	for _, e := range r.entries {
		if e.Status == domain.OutboxPending {
			count++
		}
	}
	return count, nil
}

// --- In-Memory Snapshot Repo ---

type snapshotKey struct {
	periodType  domain.PeriodType
	periodStart time.Time
	dimsHash    string
}

type inMemorySnapshotRepo struct {
	mu       sync.RWMutex
	consents map[snapshotKey]*domain.ConsentAnalytics
	perf     map[snapshotKey]*domain.PerformanceMetrics
	reports  map[uuid.UUID]*domain.ComplianceReport
}

func newInMemorySnapshotRepo() *inMemorySnapshotRepo {
	return &inMemorySnapshotRepo{
		consents: make(map[snapshotKey]*domain.ConsentAnalytics),
		perf:     make(map[snapshotKey]*domain.PerformanceMetrics),
		reports:  make(map[uuid.UUID]*domain.ComplianceReport),
	}
}

func (r *inMemorySnapshotRepo) UpsertConsentAnalytics(ctx context.Context, s *domain.ConsentAnalytics) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.consents[snapshotKey{s.PeriodType, s.PeriodStart, s.Dimensions.Hash()}] = &cp
	return nil
}

func (r *inMemorySnapshotRepo) UpsertPerformanceMetrics(ctx context.Context, s *domain.PerformanceMetrics) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.perf[snapshotKey{s.PeriodType, s.PeriodStart, ""}] = &cp
	return nil
}

func (r *inMemorySnapshotRepo) ListConsentAnalytics(ctx context.Context, params ports.SnapshotListParams) ([]domain.ConsentAnalytics, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.ConsentAnalytics
	for _, s := range r.consents {
		if params.PeriodType != nil && s.PeriodType != *params.PeriodType {
			continue
		}
		if params.From != nil && s.PeriodStart.Before(*params.From) {
			continue
		}
		if params.To != nil && !s.PeriodStart.Before(*params.To) {
			continue
		}
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PeriodStart.Before(result[j].PeriodStart) })
	return paginate(result, params.Limit, params.Offset)
}

func (r *inMemorySnapshotRepo) ListPerformanceMetrics(ctx context.Context, params ports.SnapshotListParams) ([]domain.PerformanceMetrics, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.PerformanceMetrics
	for _, s := range r.perf {
		if params.PeriodType != nil && s.PeriodType != *params.PeriodType {
			continue
		}
		if params.From != nil && s.PeriodStart.Before(*params.From) {
			continue
		}
		if params.To != nil && !s.PeriodStart.Before(*params.To) {
			continue
		}
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PeriodStart.Before(result[j].PeriodStart) })
	return paginate(result, params.Limit, params.Offset)
}

func (r *inMemorySnapshotRepo) InsertComplianceReport(ctx context.Context, report *domain.ComplianceReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *report
	r.reports[report.ID] = &cp
	return nil
}

func (r *inMemorySnapshotRepo) GetComplianceReport(ctx context.Context, id uuid.UUID) (*domain.ComplianceReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	report, ok := r.reports[id]
	if !ok {
		return nil, nil
	}
	cp := *report
	return &cp, nil
}

func (r *inMemorySnapshotRepo) ListComplianceReports(ctx context.Context, limit, offset int) ([]domain.ComplianceReport, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.ComplianceReport
	for _, report := range r.reports {
		result = append(result, *report)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].GeneratedAt.After(result[j].GeneratedAt) })
	return paginate(result, limit, offset)
}

// --- In-Memory Stats Cache ---

type inMemoryStatsCache struct {
	mu    sync.RWMutex
	stats map[string]*ports.AuditStatistics
}

func newInMemoryStatsCache() *inMemoryStatsCache {
	return &inMemoryStatsCache{stats: make(map[string]*ports.AuditStatistics)}
}

func (c *inMemoryStatsCache) Get(ctx context.Context, key string) (*ports.AuditStatistics, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats[key], nil
}

func (c *inMemoryStatsCache) Set(ctx context.Context, key string, stats *ports.AuditStatistics, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats[key] = stats
	return nil
}

// --- In-Memory Transactor (no-op tx) ---

type inMemoryTransactor struct{}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &noopTx{}, nil
}

// noopTx is a no-op pgx.Tx implementation for in-memory testing.
type noopTx struct{}

func (t *noopTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *noopTx) Commit(ctx context.Context) error          { return nil }
func (t *noopTx) Rollback(ctx context.Context) error        { return nil }
func (t *noopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *noopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *noopTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *noopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *noopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *noopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *noopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *noopTx) Conn() *pgx.Conn { return nil }

// paginate applies limit/offset to a filtered slice.
func paginate[T any](items []T, limit, offset int) ([]T, int64, error) {
	total := int64(len(items))
	if offset >= len(items) {
		return []T{}, total, nil
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, total, nil
}
