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

// PreferenceHandler serves the communication preference endpoints.
type PreferenceHandler struct {
	svc ports.PreferenceService
}

func NewPreferenceHandler(svc ports.PreferenceService) *PreferenceHandler {
	return &PreferenceHandler{svc: svc}
}

// Create handles POST /preferences.
func (h *PreferenceHandler) Create(c *gin.Context) {
	var req dto.CreatePreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	pref, err := h.svc.Create(c.Request.Context(), req.Input(middleware.Actor(c)))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, pref)
}

// Get handles GET /preferences/:id.
func (h *PreferenceHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	pref, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !middleware.OwnsParty(c, pref.PartyID.String()) {
		response.Error(c, apperror.ErrForbidden())
		return
	}
	response.OK(c, pref)
}

// List handles GET /preferences.
func (h *PreferenceHandler) List(c *gin.Context) {
	limit, offset := pagination(c)
	params := ports.PreferenceListParams{Limit: limit, Offset: offset}
	partyID, err := queryUUID(c, "party_id")
	if err != nil {
		response.Error(c, err)
		return
	}
	params.PartyID = partyID
	if raw := c.Query("channel"); raw != "" {
		channel := domain.PreferenceChannel(raw)
		params.Channel = &channel
	}

	prefs, total, err := h.svc.List(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, "preferences", prefs, total, limit, offset)
}

// ListByParty handles GET /preferences/party/:partyId.
func (h *PreferenceHandler) ListByParty(c *gin.Context) {
	partyID, ok := pathID(c, "partyId")
	if !ok {
		return
	}
	if !middleware.OwnsParty(c, partyID.String()) {
		response.Error(c, apperror.ErrForbidden())
		return
	}

	prefs, err := h.svc.ListByParty(c.Request.Context(), partyID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"preferences": prefs})
}

// Update handles PUT /preferences/:id.
func (h *PreferenceHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdatePreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	pref, err := h.svc.Update(c.Request.Context(), id, req.Input(middleware.Actor(c)))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, pref)
}

// Delete handles DELETE /preferences/:id.
func (h *PreferenceHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id, middleware.Actor(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"id": id, "deleted": true})
}
