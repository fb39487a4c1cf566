package handler

import (
	"consenthub/internal/adapter/http/dto"
	"consenthub/internal/adapter/http/middleware"
	"consenthub/internal/core/domain"
	"consenthub/internal/core/ports"
	"consenthub/pkg/apperror"
	"consenthub/pkg/response"

	"github.com/gin-gonic/gin"
)

// DSARHandler serves the data subject request endpoints.
type DSARHandler struct {
	svc ports.DSARService
}

func NewDSARHandler(svc ports.DSARService) *DSARHandler {
	return &DSARHandler{svc: svc}
}

// Submit handles POST /dsar. Customers may file requests against their
// own party only.
func (h *DSARHandler) Submit(c *gin.Context) {
	var req dto.SubmitDSARRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	if !middleware.OwnsParty(c, req.PartyID.String()) {
		response.Error(c, apperror.ErrForbidden())
		return
	}

	request, err := h.svc.Submit(c.Request.Context(), req.Input(middleware.Actor(c)))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// Get handles GET /dsar/:id.
func (h *DSARHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	request, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !middleware.OwnsParty(c, request.PartyID.String()) {
		response.Error(c, apperror.ErrForbidden())
		return
	}
	response.OK(c, request)
}

// List handles GET /dsar.
func (h *DSARHandler) List(c *gin.Context) {
	limit, offset := pagination(c)
	params := ports.DSARListParams{Limit: limit, Offset: offset}
	partyID, err := queryUUID(c, "party_id")
	if err != nil {
		response.Error(c, err)
		return
	}
	params.PartyID = partyID
	if raw := c.Query("status"); raw != "" {
		status := domain.DSARStatus(raw)
		params.Status = &status
	}
	if raw := c.Query("request_type"); raw != "" {
		typ := domain.DSARType(raw)
		params.RequestType = &typ
	}
	if params.From, err = queryTime(c, "from"); err != nil {
		response.Error(c, err)
		return
	}
	if params.To, err = queryTime(c, "to"); err != nil {
		response.Error(c, err)
		return
	}

	requests, total, err := h.svc.List(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, "requests", requests, total, limit, offset)
}

// ListByParty handles GET /dsar/party/:partyId.
func (h *DSARHandler) ListByParty(c *gin.Context) {
	partyID, ok := pathID(c, "partyId")
	if !ok {
		return
	}
	if !middleware.OwnsParty(c, partyID.String()) {
		response.Error(c, apperror.ErrForbidden())
		return
	}

	requests, err := h.svc.ListByParty(c.Request.Context(), partyID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"requests": requests})
}

// ListOverdue handles GET /dsar/overdue.
func (h *DSARHandler) ListOverdue(c *gin.Context) {
	limit, _ := pagination(c)
	requests, err := h.svc.ListOverdue(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"requests": requests})
}

// UpdateStatus handles PUT /dsar/:id/status.
func (h *DSARHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateDSARStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	request, err := h.svc.UpdateStatus(c.Request.Context(), id, req.Input(middleware.Actor(c)))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, request)
}
