package handler

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-health-api/internal/dto"
	appErrors "github.com/noah-isme/school-health-api/pkg/errors"
	"github.com/noah-isme/school-health-api/pkg/response"
)

type kpiService interface {
	Summary(ctx context.Context, gradeLevel string) (*dto.KPISummary, bool, error)
}

type dashboardService interface {
	Overview(ctx context.Context) (*dto.DashboardOverview, bool, error)
}

// DashboardHandler wires KPI and dashboard aggregates to HTTP endpoints.
type DashboardHandler struct {
	kpi       kpiService
	dashboard dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(kpi kpiService, dashboard dashboardService) *DashboardHandler {
	return &DashboardHandler{kpi: kpi, dashboard: dashboard}
}

// KPISummary godoc
// @Summary Nutritional KPI summary
// @Tags Dashboard
// @Produce json
// @Param gradeLevel query string false "Restrict to one grade level"
// @Success 200 {object} response.Envelope
// @Router /kpi/summary [get]
func (h *DashboardHandler) KPISummary(c *gin.Context) {
	if h.kpi == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	summary, cacheHit, err := h.kpi.Summary(c.Request.Context(), strings.TrimSpace(c.Query("gradeLevel")))
	if err != nil {
		response.Error(c, err)
		return
	}
	cachedJSON(c, summary, cacheHit, start)
}

// Overview godoc
// @Summary Dashboard overview
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Overview(c *gin.Context) {
	if h.dashboard == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	overview, cacheHit, err := h.dashboard.Overview(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	cachedJSON(c, overview, cacheHit, start)
}
