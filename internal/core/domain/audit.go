package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType is the closed taxonomy of auditable domain events.
type EventType string

const (
	EventConsentCreated    EventType = "consent_created"
	EventConsentGranted    EventType = "consent_granted"
	EventConsentRevoked    EventType = "consent_revoked"
	EventConsentExpired    EventType = "consent_expired"
	EventPartyCreated      EventType = "party_created"
	EventPartyUpdated      EventType = "party_updated"
	EventPartyDeleted      EventType = "party_deleted"
	EventPreferenceCreated EventType = "preference_created"
	EventPreferenceUpdated EventType = "preference_updated"
	EventPreferenceDeleted EventType = "preference_deleted"
	EventDSARSubmitted     EventType = "dsar_submitted"
	EventDSARStatusChanged EventType = "dsar_status_changed"
	EventDSARCompleted     EventType = "dsar_completed"
	EventAuditExported     EventType = "audit_exported"
)

// ActorType identifies what kind of principal performed an action.
type ActorType string

const (
	ActorUser   ActorType = "user"
	ActorSystem ActorType = "system"
	ActorCSR    ActorType = "csr"
	ActorAdmin  ActorType = "admin"
)

// AuditAction is the verb recorded against a resource.
type AuditAction string

const (
	ActionCreate AuditAction = "create"
	ActionRead   AuditAction = "read"
	ActionUpdate AuditAction = "update"
	ActionDelete AuditAction = "delete"
	ActionGrant  AuditAction = "grant"
	ActionRevoke AuditAction = "revoke"
	ActionExport AuditAction = "export"
	ActionImport AuditAction = "import"
)

// AuditSource identifies the surface a request came through.
type AuditSource string

const (
	SourceWeb    AuditSource = "web"
	SourceMobile AuditSource = "mobile"
	SourceAPI    AuditSource = "api"
	SourceCSR    AuditSource = "csr"
	SourceAdmin  AuditSource = "admin"
	SourceSystem AuditSource = "system"
)

// AuditSeverity grades the operational weight of an event.
type AuditSeverity string

const (
	SeverityInfo     AuditSeverity = "info"
	SeverityWarning  AuditSeverity = "warning"
	SeverityError    AuditSeverity = "error"
	SeverityCritical AuditSeverity = "critical"
)

// AuditEntry is one immutable record in the compliance audit trail. Entries
// are appended transactionally with the domain write they describe and are
// never updated; expiry is handled by the retention archiver.
type AuditEntry struct {
	ID           uuid.UUID       `json:"id"`
	EventType    EventType       `json:"event_type"`
	ActorID      string          `json:"actor_id,omitempty"`
	ActorType    ActorType       `json:"actor_type"`
	PartyID      *uuid.UUID      `json:"party_id,omitempty"`
	ResourceID   string          `json:"resource_id,omitempty"`
	ResourceType string          `json:"resource_type,omitempty"`
	Action       AuditAction     `json:"action"`
	Description  string          `json:"description,omitempty"`
	Details      json.RawMessage `json:"details,omitempty"`
	OldValues    json.RawMessage `json:"old_values,omitempty"`
	NewValues    json.RawMessage `json:"new_values,omitempty"`
	IPAddress    string          `json:"ip_address,omitempty"`
	UserAgent    string          `json:"user_agent,omitempty"`
	Source       AuditSource     `json:"source"`
	Severity     AuditSeverity   `json:"severity"`
	Timestamp    time.Time       `json:"timestamp"`
}

// Validate checks the closed-enum fields and reference requirements.
// It returns a descriptive reason for the first violation found.
func (e *AuditEntry) Validate() (string, bool) {
	if !ValidEventType(e.EventType) {
		return "unknown event type", false
	}
	if !ValidAuditAction(e.Action) {
		return "unknown audit action", false
	}
	if e.PartyID == nil && e.ResourceID == "" {
		return "entry requires a party or resource reference", false
	}
	if e.ActorType != "" && !ValidActorType(e.ActorType) {
		return "unknown actor type", false
	}
	if e.Source != "" && !ValidAuditSource(e.Source) {
		return "unknown source", false
	}
	if e.Severity != "" && !ValidAuditSeverity(e.Severity) {
		return "unknown severity", false
	}
	return "", true
}

// ValidEventType reports whether t belongs to the closed event taxonomy.
func ValidEventType(t EventType) bool {
	switch t {
	case EventConsentCreated, EventConsentGranted, EventConsentRevoked, EventConsentExpired,
		EventPartyCreated, EventPartyUpdated, EventPartyDeleted,
		EventPreferenceCreated, EventPreferenceUpdated, EventPreferenceDeleted,
		EventDSARSubmitted, EventDSARStatusChanged, EventDSARCompleted,
		EventAuditExported:
		return true
	}
	return false
}

// ValidAuditAction reports whether a is a known action verb.
func ValidAuditAction(a AuditAction) bool {
	switch a {
	case ActionCreate, ActionRead, ActionUpdate, ActionDelete,
		ActionGrant, ActionRevoke, ActionExport, ActionImport:
		return true
	}
	return false
}

// ValidActorType reports whether t is a known actor type.
func ValidActorType(t ActorType) bool {
	switch t {
	case ActorUser, ActorSystem, ActorCSR, ActorAdmin:
		return true
	}
	return false
}

// ValidAuditSource reports whether s is a known source.
func ValidAuditSource(s AuditSource) bool {
	switch s {
	case SourceWeb, SourceMobile, SourceAPI, SourceCSR, SourceAdmin, SourceSystem:
		return true
	}
	return false
}

// ValidAuditSeverity reports whether s is a known severity.
func ValidAuditSeverity(s AuditSeverity) bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityError, SeverityCritical:
		return true
	}
	return false
}
