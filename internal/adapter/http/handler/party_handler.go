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

// PartyHandler serves the party endpoints.
type PartyHandler struct {
	svc ports.PartyService
}

func NewPartyHandler(svc ports.PartyService) *PartyHandler {
	return &PartyHandler{svc: svc}
}

// Create handles POST /parties.
func (h *PartyHandler) Create(c *gin.Context) {
	var req dto.CreatePartyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	party, err := h.svc.Create(c.Request.Context(), req.Input(middleware.Actor(c)))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, party)
}

// Get handles GET /parties/:id.
func (h *PartyHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if !middleware.OwnsParty(c, id.String()) {
		response.Error(c, apperror.ErrForbidden())
		return
	}

	party, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, party)
}

// List handles GET /parties.
func (h *PartyHandler) List(c *gin.Context) {
	limit, offset := pagination(c)
	params := ports.PartyListParams{
		Search: c.Query("search"),
		Limit:  limit,
		Offset: offset,
	}
	if raw := c.Query("status"); raw != "" {
		status := domain.PartyStatus(raw)
		params.Status = &status
	}
	if raw := c.Query("type"); raw != "" {
		typ := domain.PartyType(raw)
		params.Type = &typ
	}

	parties, total, err := h.svc.List(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, "parties", parties, total, limit, offset)
}

// Update handles PUT /parties/:id.
func (h *PartyHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdatePartyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	party, err := h.svc.Update(c.Request.Context(), id, req.Input(middleware.Actor(c)))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, party)
}

// Deactivate handles DELETE /parties/:id.
func (h *PartyHandler) Deactivate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Deactivate(c.Request.Context(), id, middleware.Actor(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"id": id, "status": domain.PartyStatusInactive})
}
