package dto

import (
	"encoding/json"
	"time"

	"consenthub/internal/core/domain"
	"consenthub/internal/core/ports"

	"github.com/google/uuid"
)

// CreatePartyRequest is the request body for party creation.
type CreatePartyRequest struct {
	Name  string `json:"name" binding:"required,min=1,max=200"`
	Email string `json:"email" binding:"required,email,max=254"`
	Phone string `json:"phone" binding:"omitempty,max=32"`
	Type  string `json:"type" binding:"required"`
}

// Input converts the request into the service input.
func (r CreatePartyRequest) Input(actor ports.Actor) ports.CreatePartyInput {
	return ports.CreatePartyInput{
		Name:  r.Name,
		Email: r.Email,
		Phone: r.Phone,
		Type:  domain.PartyType(r.Type),
		Actor: actor,
	}
}

// UpdatePartyRequest carries partial party updates; absent fields are
// unchanged.
type UpdatePartyRequest struct {
	Name   *string `json:"name" binding:"omitempty,min=1,max=200"`
	Phone  *string `json:"phone" binding:"omitempty,max=32"`
	Status *string `json:"status"`
}

func (r UpdatePartyRequest) Input(actor ports.Actor) ports.UpdatePartyInput {
	in := ports.UpdatePartyInput{Name: r.Name, Phone: r.Phone, Actor: actor}
	if r.Status != nil {
		status := domain.PartyStatus(*r.Status)
		in.Status = &status
	}
	return in
}

// CreateConsentRequest is the request body for consent capture.
type CreateConsentRequest struct {
	PartyID      uuid.UUID  `json:"party_id" binding:"required"`
	ConsentType  string     `json:"consent_type" binding:"required"`
	Purpose      string     `json:"purpose" binding:"required,max=500"`
	Channel      string     `json:"channel" binding:"omitempty,max=50"`
	LegalBasis   string     `json:"legal_basis" binding:"required"`
	Category     string     `json:"category" binding:"omitempty,max=100"`
	Jurisdiction string     `json:"jurisdiction" binding:"omitempty,max=10"`
	ExpiresAt    *time.Time `json:"expires_at"`
	Granted      bool       `json:"granted"`
}

func (r CreateConsentRequest) Input(actor ports.Actor) ports.CreateConsentInput {
	return ports.CreateConsentInput{
		PartyID:      r.PartyID,
		ConsentType:  domain.ConsentType(r.ConsentType),
		Purpose:      r.Purpose,
		Channel:      r.Channel,
		LegalBasis:   domain.LegalBasis(r.LegalBasis),
		Category:     r.Category,
		Jurisdiction: r.Jurisdiction,
		ExpiresAt:    r.ExpiresAt,
		Granted:      r.Granted,
		Actor:        actor,
	}
}

// GrantConsentRequest optionally sets an expiry when granting.
type GrantConsentRequest struct {
	ExpiresAt *time.Time `json:"expires_at"`
}

// ConsentView is a consent record as served by the API: the stored fields
// plus status and validity computed at read time. Expiry is never written
// back to the record; it is applied on every read.
type ConsentView struct {
	domain.ConsentRecord
	Status  domain.ConsentStatus `json:"status"`
	IsValid bool                 `json:"is_valid"`
}

// NewConsentView computes the read-time view of one record.
func NewConsentView(rec *domain.ConsentRecord, now time.Time) ConsentView {
	return ConsentView{
		ConsentRecord: *rec,
		Status:        rec.EffectiveStatus(now),
		IsValid:       rec.IsValid(now),
	}
}

// NewConsentViews computes the read-time view of a record list.
func NewConsentViews(records []domain.ConsentRecord, now time.Time) []ConsentView {
	views := make([]ConsentView, len(records))
	for i := range records {
		views[i] = NewConsentView(&records[i], now)
	}
	return views
}

// CreatePreferenceRequest is the request body for preference creation.
type CreatePreferenceRequest struct {
	PartyID        uuid.UUID `json:"party_id" binding:"required"`
	PreferenceType string    `json:"preference_type" binding:"required,max=100"`
	Channel        string    `json:"channel" binding:"required"`
	Enabled        bool      `json:"enabled"`
	Frequency      string    `json:"frequency" binding:"required"`
}

func (r CreatePreferenceRequest) Input(actor ports.Actor) ports.CreatePreferenceInput {
	return ports.CreatePreferenceInput{
		PartyID:        r.PartyID,
		PreferenceType: r.PreferenceType,
		Channel:        domain.PreferenceChannel(r.Channel),
		Enabled:        r.Enabled,
		Frequency:      domain.PreferenceFrequency(r.Frequency),
		Actor:          actor,
	}
}

// UpdatePreferenceRequest carries partial preference updates.
type UpdatePreferenceRequest struct {
	Enabled   *bool   `json:"enabled"`
	Frequency *string `json:"frequency"`
}

func (r UpdatePreferenceRequest) Input(actor ports.Actor) ports.UpdatePreferenceInput {
	in := ports.UpdatePreferenceInput{Enabled: r.Enabled, Actor: actor}
	if r.Frequency != nil {
		freq := domain.PreferenceFrequency(*r.Frequency)
		in.Frequency = &freq
	}
	return in
}

// SubmitDSARRequest is the request body for filing a data subject request.
type SubmitDSARRequest struct {
	PartyID     uuid.UUID  `json:"party_id" binding:"required"`
	RequestType string     `json:"request_type" binding:"required"`
	Description string     `json:"description" binding:"omitempty,max=2000"`
	DueDate     *time.Time `json:"due_date"`
}

func (r SubmitDSARRequest) Input(actor ports.Actor) ports.SubmitDSARInput {
	return ports.SubmitDSARInput{
		PartyID:     r.PartyID,
		RequestType: domain.DSARType(r.RequestType),
		Description: r.Description,
		DueDate:     r.DueDate,
		Actor:       actor,
	}
}

// UpdateDSARStatusRequest carries a request status transition.
type UpdateDSARStatusRequest struct {
	Status          string  `json:"status" binding:"required"`
	ProcessingNotes string  `json:"processing_notes" binding:"omitempty,max=2000"`
	Verification    *string `json:"verification"`
}

func (r UpdateDSARStatusRequest) Input(actor ports.Actor) ports.DSARStatusInput {
	in := ports.DSARStatusInput{
		Status:          domain.DSARStatus(r.Status),
		ProcessingNotes: r.ProcessingNotes,
		Actor:           actor,
	}
	if r.Verification != nil {
		v := domain.VerificationStatus(*r.Verification)
		in.Verification = &v
	}
	return in
}

// RecomputeRequest triggers an ad-hoc snapshot recomputation.
type RecomputeRequest struct {
	PeriodType   string    `json:"period_type" binding:"required"`
	Start        time.Time `json:"start" binding:"required"`
	Jurisdiction string    `json:"jurisdiction"`
	Channel      string    `json:"channel"`
	ConsentType  string    `json:"consent_type"`
}

func (r RecomputeRequest) Input(actor ports.Actor) ports.RecomputeInput {
	return ports.RecomputeInput{
		PeriodType: domain.PeriodType(r.PeriodType),
		Start:      r.Start,
		Dimensions: domain.Dimensions{
			Jurisdiction: r.Jurisdiction,
			Channel:      r.Channel,
			ConsentType:  r.ConsentType,
		},
		Actor: actor,
	}
}

// GenerateReportRequest is the request body for compliance report
// generation. Manual sections are stored as supplied.
type GenerateReportRequest struct {
	Title       string          `json:"title" binding:"required,max=200"`
	PeriodStart time.Time       `json:"period_start" binding:"required"`
	PeriodEnd   time.Time       `json:"period_end" binding:"required"`
	Manual      json.RawMessage `json:"manual"`
}

func (r GenerateReportRequest) Input(actor ports.Actor) ports.GenerateReportInput {
	return ports.GenerateReportInput{
		Title:       r.Title,
		PeriodStart: r.PeriodStart,
		PeriodEnd:   r.PeriodEnd,
		Manual:      r.Manual,
		Actor:       actor,
	}
}
