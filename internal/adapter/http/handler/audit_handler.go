package handler

import (
	"net/http"

	"consenthub/internal/adapter/http/middleware"
	"consenthub/internal/core/domain"
	"consenthub/internal/core/ports"
	"consenthub/pkg/response"

	"github.com/gin-gonic/gin"
)

// AuditHandler serves the audit trail read endpoints.
type AuditHandler struct {
	svc ports.AuditService
}

func NewAuditHandler(svc ports.AuditService) *AuditHandler {
	return &AuditHandler{svc: svc}
}

func auditQueryParams(c *gin.Context) (ports.AuditQueryParams, error) {
	limit, offset := pagination(c)
	params := ports.AuditQueryParams{
		ResourceType: c.Query("resource_type"),
		Search:       c.Query("search"),
		Limit:        limit,
		Offset:       offset,
	}
	if raw := c.Query("event_type"); raw != "" {
		et := domain.EventType(raw)
		params.EventType = &et
	}
	partyID, err := queryUUID(c, "party_id")
	if err != nil {
		return params, err
	}
	params.PartyID = partyID
	if raw := c.Query("actor_type"); raw != "" {
		at := domain.ActorType(raw)
		params.ActorType = &at
	}
	if raw := c.Query("action"); raw != "" {
		action := domain.AuditAction(raw)
		params.Action = &action
	}
	if raw := c.Query("severity"); raw != "" {
		sev := domain.AuditSeverity(raw)
		params.Severity = &sev
	}
	if params.From, err = queryTime(c, "from"); err != nil {
		return params, err
	}
	if params.To, err = queryTime(c, "to"); err != nil {
		return params, err
	}
	return params, nil
}

// Query handles GET /audit.
func (h *AuditHandler) Query(c *gin.Context) {
	params, err := auditQueryParams(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	entries, total, err := h.svc.Query(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, "entries", entries, total, params.Limit, params.Offset)
}

// Statistics handles GET /audit/statistics.
func (h *AuditHandler) Statistics(c *gin.Context) {
	var params ports.AuditStatsParams
	var err error
	if params.From, err = queryTime(c, "from"); err != nil {
		response.Error(c, err)
		return
	}
	if params.To, err = queryTime(c, "to"); err != nil {
		response.Error(c, err)
		return
	}

	stats, err := h.svc.Statistics(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}

// Export handles GET /audit/export. The rendered file is returned as an
// attachment rather than wrapped in the JSON envelope.
func (h *AuditHandler) Export(c *gin.Context) {
	params, err := auditQueryParams(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	format := c.DefaultQuery("format", "json")

	export, err := h.svc.Export(c.Request.Context(), params, format, middleware.Actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+export.Filename+`"`)
	c.Data(http.StatusOK, export.ContentType, export.Body)
}
