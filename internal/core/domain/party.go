package domain

import (
	"time"

	"github.com/google/uuid"
)

// PartyType distinguishes individuals from organizations.
type PartyType string

const (
	PartyTypeIndividual   PartyType = "individual"
	PartyTypeOrganization PartyType = "organization"
)

// PartyStatus is the lifecycle status of a party.
type PartyStatus string

const (
	PartyStatusActive    PartyStatus = "active"
	PartyStatusInactive  PartyStatus = "inactive"
	PartyStatusSuspended PartyStatus = "suspended"
)

// Party is a person or organization that consents, preferences and data
// subject requests attach to.
type Party struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"` // unique across parties
	Phone     string      `json:"phone,omitempty"`
	Type      PartyType   `json:"type"`
	Status    PartyStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// IsActive reports whether the party can own new consents or requests.
func (p *Party) IsActive() bool {
	return p.Status == PartyStatusActive
}

// ValidPartyType reports whether t is a known party type.
func ValidPartyType(t PartyType) bool {
	switch t {
	case PartyTypeIndividual, PartyTypeOrganization:
		return true
	}
	return false
}

// ValidPartyStatus reports whether s is a known party status.
func ValidPartyStatus(s PartyStatus) bool {
	switch s {
	case PartyStatusActive, PartyStatusInactive, PartyStatusSuspended:
		return true
	}
	return false
}
