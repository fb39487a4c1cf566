package domain

import (
	"time"

	"github.com/google/uuid"
)

// ConsentType is the processing purpose category a consent covers.
type ConsentType string

const (
	ConsentTypeMarketing       ConsentType = "marketing"
	ConsentTypeAnalytics       ConsentType = "analytics"
	ConsentTypePersonalization ConsentType = "personalization"
	ConsentTypeDataSharing     ConsentType = "data_sharing"
	ConsentTypeCookies         ConsentType = "cookies"
	ConsentTypeLocation        ConsentType = "location"
)

// ConsentStatus is the stored lifecycle status of a consent record.
// "expired" is only ever derived from ExpiresAt, never written by the API.
type ConsentStatus string

const (
	ConsentStatusPending ConsentStatus = "pending"
	ConsentStatusGranted ConsentStatus = "granted"
	ConsentStatusRevoked ConsentStatus = "revoked"
	ConsentStatusExpired ConsentStatus = "expired"
)

// LegalBasis is the GDPR article 6 basis for processing.
type LegalBasis string

const (
	LegalBasisConsent            LegalBasis = "consent"
	LegalBasisContract           LegalBasis = "contract"
	LegalBasisLegalObligation    LegalBasis = "legal_obligation"
	LegalBasisVitalInterest      LegalBasis = "vital_interest"
	LegalBasisPublicTask         LegalBasis = "public_task"
	LegalBasisLegitimateInterest LegalBasis = "legitimate_interest"
)

// ConsentRecord is a recorded grant or revocation of permission for a
// specific processing purpose.
type ConsentRecord struct {
	ID           uuid.UUID     `json:"id"`
	PartyID      uuid.UUID     `json:"party_id"`
	ConsentType  ConsentType   `json:"consent_type"`
	Purpose      string        `json:"purpose"`
	Status       ConsentStatus `json:"status"`
	Channel      string        `json:"channel,omitempty"`
	LegalBasis   LegalBasis    `json:"legal_basis"`
	Category     string        `json:"category,omitempty"`
	Jurisdiction string        `json:"jurisdiction,omitempty"`
	GrantedAt    *time.Time    `json:"granted_at,omitempty"`
	RevokedAt    *time.Time    `json:"revoked_at,omitempty"`
	ExpiresAt    *time.Time    `json:"expires_at,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// IsValid reports whether the consent currently authorizes processing:
// granted, and ExpiresAt unset or in the future.
func (c *ConsentRecord) IsValid(now time.Time) bool {
	if c.Status != ConsentStatusGranted {
		return false
	}
	return c.ExpiresAt == nil || c.ExpiresAt.After(now)
}

// EffectiveStatus returns the status with expiry applied. Expiry is computed
// on read, never persisted.
func (c *ConsentRecord) EffectiveStatus(now time.Time) ConsentStatus {
	if c.Status == ConsentStatusGranted && c.ExpiresAt != nil && !c.ExpiresAt.After(now) {
		return ConsentStatusExpired
	}
	return c.Status
}

// CanTransition reports whether moving the stored status to target is legal:
// pending -> granted -> revoked, with no path out of revoked.
func (c *ConsentRecord) CanTransition(target ConsentStatus) bool {
	switch c.Status {
	case ConsentStatusPending:
		return target == ConsentStatusGranted || target == ConsentStatusRevoked
	case ConsentStatusGranted:
		return target == ConsentStatusRevoked
	}
	return false
}

// ValidConsentType reports whether t is a known consent type.
func ValidConsentType(t ConsentType) bool {
	switch t {
	case ConsentTypeMarketing, ConsentTypeAnalytics, ConsentTypePersonalization,
		ConsentTypeDataSharing, ConsentTypeCookies, ConsentTypeLocation:
		return true
	}
	return false
}

// ValidLegalBasis reports whether b is a known legal basis.
func ValidLegalBasis(b LegalBasis) bool {
	switch b {
	case LegalBasisConsent, LegalBasisContract, LegalBasisLegalObligation,
		LegalBasisVitalInterest, LegalBasisPublicTask, LegalBasisLegitimateInterest:
		return true
	}
	return false
}
