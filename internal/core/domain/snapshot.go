package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// PeriodType is the reporting window granularity for snapshots.
type PeriodType string

const (
	PeriodDaily   PeriodType = "daily"
	PeriodWeekly  PeriodType = "weekly"
	PeriodMonthly PeriodType = "monthly"
)

// ValidPeriodType reports whether p is a known period granularity.
func ValidPeriodType(p PeriodType) bool {
	switch p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly:
		return true
	}
	return false
}

// Dimensions are the optional slice filters a snapshot was computed under.
type Dimensions struct {
	Jurisdiction string `json:"jurisdiction,omitempty"`
	Channel      string `json:"channel,omitempty"`
	ConsentType  string `json:"consent_type,omitempty"`
}

// Hash returns a stable digest of the dimension values. Together with the
// period it forms the snapshot idempotency key, so recomputing the same
// window upserts instead of duplicating.
func (d Dimensions) Hash() string {
	parts := []string{
		"jurisdiction=" + d.Jurisdiction,
		"channel=" + d.Channel,
		"consent_type=" + d.ConsentType,
	}
	sort.Strings(parts)
	sum := sha256.Sum256([]byte(fmt.Sprint(parts)))
	return hex.EncodeToString(sum[:])
}

// ConsentAnalytics is a point-in-time aggregation over consent records for
// one reporting period. Derived data: recomputable from the base tables at
// any time, with staleness tracked by CalculatedAt.
type ConsentAnalytics struct {
	ID             uuid.UUID        `json:"id"`
	PeriodType     PeriodType       `json:"period_type"`
	PeriodStart    time.Time        `json:"period_start"`
	PeriodEnd      time.Time        `json:"period_end"`
	Dimensions     Dimensions       `json:"dimensions"`
	TotalConsents  int64            `json:"total_consents"`
	Granted        int64            `json:"granted"`
	Revoked        int64            `json:"revoked"`
	Expired        int64            `json:"expired"`
	Pending        int64            `json:"pending"`
	GrantRate      float64          `json:"grant_rate"`
	CountsByType   map[string]int64 `json:"counts_by_type,omitempty"`
	CalculatedAt   time.Time        `json:"calculated_at"`
}

// PerformanceMetrics aggregates DSAR throughput for one reporting period.
type PerformanceMetrics struct {
	ID                 uuid.UUID  `json:"id"`
	PeriodType         PeriodType `json:"period_type"`
	PeriodStart        time.Time  `json:"period_start"`
	PeriodEnd          time.Time  `json:"period_end"`
	TotalRequests      int64      `json:"total_requests"`
	Completed          int64      `json:"completed"`
	Rejected           int64      `json:"rejected"`
	Cancelled          int64      `json:"cancelled"`
	Overdue            int64      `json:"overdue"`
	AvgCompletionDays  float64    `json:"avg_completion_days"`
	OnTimeRate         float64    `json:"on_time_rate"`
	CalculatedAt       time.Time  `json:"calculated_at"`
}

// ComplianceReport is the denormalized regulatory snapshot document.
// Computed sections come from the base tables; manual sections (training,
// vendors, action plans) have no system of record here and are stored as
// supplied.
type ComplianceReport struct {
	ID          uuid.UUID       `json:"id"`
	Title       string          `json:"title"`
	PeriodStart time.Time       `json:"period_start"`
	PeriodEnd   time.Time       `json:"period_end"`
	DSAR        DSARSection     `json:"dsar"`
	Consents    ConsentSection  `json:"consents"`
	AuditTrail  AuditSection    `json:"audit_trail"`
	Manual      json.RawMessage `json:"manual,omitempty"`
	GeneratedBy string          `json:"generated_by"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// DSARSection summarizes request compliance for the report period.
type DSARSection struct {
	Total      int64   `json:"total"`
	Completed  int64   `json:"completed"`
	Overdue    int64   `json:"overdue"`
	OnTimeRate float64 `json:"on_time_rate"`
}

// ConsentSection summarizes consent validity for the report period.
type ConsentSection struct {
	Total   int64 `json:"total"`
	Valid   int64 `json:"valid"`
	Expired int64 `json:"expired"`
	Revoked int64 `json:"revoked"`
	// Anomalies counts records violating the granted/grantedAt and
	// revoked/revokedAt invariants.
	Anomalies int64 `json:"anomalies"`
}

// AuditSection summarizes audit trail volume by severity.
type AuditSection struct {
	Total      int64            `json:"total"`
	BySeverity map[string]int64 `json:"by_severity,omitempty"`
}
