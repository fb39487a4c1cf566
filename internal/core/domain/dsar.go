package domain

import (
	"time"

	"github.com/google/uuid"
)

// DSARDueDays is the regulatory response window applied when a request is
// submitted without an explicit due date. Fixed at creation, never
// recalculated.
const DSARDueDays = 30

// DSARType is the kind of data subject access request.
type DSARType string

const (
	DSARTypeAccess        DSARType = "access"
	DSARTypeRectification DSARType = "rectification"
	DSARTypeErasure       DSARType = "erasure"
	DSARTypePortability   DSARType = "portability"
	DSARTypeRestriction   DSARType = "restriction"
	DSARTypeObjection     DSARType = "objection"
)

// DSARStatus is the processing status of a request.
type DSARStatus string

const (
	DSARStatusPending    DSARStatus = "pending"
	DSARStatusInProgress DSARStatus = "in_progress"
	DSARStatusCompleted  DSARStatus = "completed"
	DSARStatusRejected   DSARStatus = "rejected"
	DSARStatusCancelled  DSARStatus = "cancelled"
)

// VerificationStatus tracks identity verification of the requester.
type VerificationStatus string

const (
	VerificationUnverified VerificationStatus = "unverified"
	VerificationVerified   VerificationStatus = "verified"
	VerificationFailed     VerificationStatus = "failed"
)

// DSARRequest is a data subject access request filed by or for a party.
type DSARRequest struct {
	ID                 uuid.UUID          `json:"id"`
	PartyID            uuid.UUID          `json:"party_id"`
	RequestType        DSARType           `json:"request_type"`
	Status             DSARStatus         `json:"status"`
	Description        string             `json:"description,omitempty"`
	SubmittedAt        time.Time          `json:"submitted_at"`
	DueDate            time.Time          `json:"due_date"`
	CompletedAt        *time.Time         `json:"completed_at,omitempty"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	ProcessingNotes    string             `json:"processing_notes,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// DefaultDueDate computes the due date for a request submitted at the given
// time: submission + 30 days exactly.
func DefaultDueDate(submittedAt time.Time) time.Time {
	return submittedAt.AddDate(0, 0, DSARDueDays)
}

// IsOverdue reports whether the request has passed its due date without
// completion. Derived, never stored.
func (r *DSARRequest) IsOverdue(now time.Time) bool {
	return now.After(r.DueDate) && r.Status != DSARStatusCompleted
}

// DaysRemaining returns whole days until the due date; negative when overdue.
func (r *DSARRequest) DaysRemaining(now time.Time) int {
	return int(r.DueDate.Sub(now).Hours() / 24)
}

// IsTerminal reports whether the request has reached a final status.
func (r *DSARRequest) IsTerminal() bool {
	switch r.Status {
	case DSARStatusCompleted, DSARStatusRejected, DSARStatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether moving to target is legal:
// pending -> in_progress -> {completed, rejected}; cancelled is reachable
// from pending or in_progress.
func (r *DSARRequest) CanTransition(target DSARStatus) bool {
	switch r.Status {
	case DSARStatusPending:
		return target == DSARStatusInProgress || target == DSARStatusCancelled || target == DSARStatusRejected
	case DSARStatusInProgress:
		return target == DSARStatusCompleted || target == DSARStatusRejected || target == DSARStatusCancelled
	}
	return false
}

// ValidDSARType reports whether t is a known request type.
func ValidDSARType(t DSARType) bool {
	switch t {
	case DSARTypeAccess, DSARTypeRectification, DSARTypeErasure,
		DSARTypePortability, DSARTypeRestriction, DSARTypeObjection:
		return true
	}
	return false
}

// ValidDSARStatus reports whether s is a known request status.
func ValidDSARStatus(s DSARStatus) bool {
	switch s {
	case DSARStatusPending, DSARStatusInProgress, DSARStatusCompleted,
		DSARStatusRejected, DSARStatusCancelled:
		return true
	}
	return false
}
