package handler

import (
	"time"

	"consenthub/internal/adapter/http/dto"
	"consenthub/internal/adapter/http/middleware"
	"consenthub/internal/core/domain"
	"consenthub/internal/core/ports"
	"consenthub/pkg/apperror"
	"consenthub/pkg/response"

	"github.com/gin-gonic/gin"
)

// ConsentHandler serves the consent endpoints.
type ConsentHandler struct {
	svc ports.ConsentService
}

func NewConsentHandler(svc ports.ConsentService) *ConsentHandler {
	return &ConsentHandler{svc: svc}
}

// Create handles POST /consents.
func (h *ConsentHandler) Create(c *gin.Context) {
	var req dto.CreateConsentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	record, err := h.svc.Create(c.Request.Context(), req.Input(middleware.Actor(c)))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.NewConsentView(record, time.Now().UTC()))
}

// Get handles GET /consents/:id.
func (h *ConsentHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	record, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !middleware.OwnsParty(c, record.PartyID.String()) {
		response.Error(c, apperror.ErrForbidden())
		return
	}
	response.OK(c, dto.NewConsentView(record, time.Now().UTC()))
}

// List handles GET /consents.
func (h *ConsentHandler) List(c *gin.Context) {
	limit, offset := pagination(c)
	params := ports.ConsentListParams{
		Jurisdiction: c.Query("jurisdiction"),
		Limit:        limit,
		Offset:       offset,
	}
	partyID, err := queryUUID(c, "party_id")
	if err != nil {
		response.Error(c, err)
		return
	}
	params.PartyID = partyID
	if raw := c.Query("status"); raw != "" {
		status := domain.ConsentStatus(raw)
		params.Status = &status
	}
	if raw := c.Query("consent_type"); raw != "" {
		typ := domain.ConsentType(raw)
		params.ConsentType = &typ
	}

	records, total, err := h.svc.List(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, "consents", dto.NewConsentViews(records, time.Now().UTC()), total, limit, offset)
}

// ListByParty handles GET /consents/party/:partyId.
func (h *ConsentHandler) ListByParty(c *gin.Context) {
	partyID, ok := pathID(c, "partyId")
	if !ok {
		return
	}
	if !middleware.OwnsParty(c, partyID.String()) {
		response.Error(c, apperror.ErrForbidden())
		return
	}

	records, err := h.svc.ListByParty(c.Request.Context(), partyID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"consents": dto.NewConsentViews(records, time.Now().UTC())})
}

// Grant handles POST /consents/:id/grant.
func (h *ConsentHandler) Grant(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	// Body is optional on grant.
	var req dto.GrantConsentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, apperror.Validation(err.Error()))
			return
		}
	}

	record, err := h.svc.Grant(c.Request.Context(), id, req.ExpiresAt, middleware.Actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewConsentView(record, time.Now().UTC()))
}

// Revoke handles POST /consents/:id/revoke.
func (h *ConsentHandler) Revoke(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	record, err := h.svc.Revoke(c.Request.Context(), id, middleware.Actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewConsentView(record, time.Now().UTC()))
}
