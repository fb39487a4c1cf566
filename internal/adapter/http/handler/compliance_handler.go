package handler

import (
	"consenthub/internal/adapter/http/dto"
	"consenthub/internal/adapter/http/middleware"
	"consenthub/internal/core/ports"
	"consenthub/pkg/apperror"
	"consenthub/pkg/response"

	"github.com/gin-gonic/gin"
)

// ComplianceHandler serves compliance report generation and retrieval.
type ComplianceHandler struct {
	svc ports.ComplianceService
}

func NewComplianceHandler(svc ports.ComplianceService) *ComplianceHandler {
	return &ComplianceHandler{svc: svc}
}

// Generate handles POST /compliance/reports.
func (h *ComplianceHandler) Generate(c *gin.Context) {
	var req dto.GenerateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	report, err := h.svc.Generate(c.Request.Context(), req.Input(middleware.Actor(c)))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, report)
}

// Get handles GET /compliance/reports/:id.
func (h *ComplianceHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	report, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}

// List handles GET /compliance/reports.
func (h *ComplianceHandler) List(c *gin.Context) {
	limit, offset := pagination(c)
	reports, total, err := h.svc.List(c.Request.Context(), limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, "reports", reports, total, limit, offset)
}
