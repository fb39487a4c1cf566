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

// AnalyticsHandler serves the snapshot read endpoints plus ad-hoc
// recomputation.
type AnalyticsHandler struct {
	svc ports.AnalyticsService
}

func NewAnalyticsHandler(svc ports.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc}
}

func snapshotListParams(c *gin.Context) (ports.SnapshotListParams, error) {
	limit, offset := pagination(c)
	params := ports.SnapshotListParams{Limit: limit, Offset: offset}
	if raw := c.Query("period_type"); raw != "" {
		pt := domain.PeriodType(raw)
		params.PeriodType = &pt
	}
	var err error
	if params.From, err = queryTime(c, "from"); err != nil {
		return params, err
	}
	if params.To, err = queryTime(c, "to"); err != nil {
		return params, err
	}
	return params, nil
}

// ListConsents handles GET /analytics/consents.
func (h *AnalyticsHandler) ListConsents(c *gin.Context) {
	params, err := snapshotListParams(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	snapshots, total, err := h.svc.ListConsentAnalytics(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, "snapshots", snapshots, total, params.Limit, params.Offset)
}

// ListDSAR handles GET /analytics/dsar.
func (h *AnalyticsHandler) ListDSAR(c *gin.Context) {
	params, err := snapshotListParams(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	snapshots, total, err := h.svc.ListPerformanceMetrics(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, "snapshots", snapshots, total, params.Limit, params.Offset)
}

// Recompute handles POST /analytics/recompute.
func (h *AnalyticsHandler) Recompute(c *gin.Context) {
	var req dto.RecomputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	if err := h.svc.Recompute(c.Request.Context(), req.Input(middleware.Actor(c))); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"recomputed": true, "period_type": req.PeriodType})
}
