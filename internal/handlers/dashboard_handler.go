package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/evalforge/assessment-platform/internal/services"
	"github.com/evalforge/assessment-platform/internal/utils"
)

type DashboardHandler struct {
	BaseHandler
	dashboardService services.DashboardService
}

func NewDashboardHandler(dashboardService services.DashboardService, logger utils.Logger) *DashboardHandler {
	return &DashboardHandler{
		BaseHandler:      NewBaseHandler(logger),
		dashboardService: dashboardService,
	}
}

// GetOverview returns the tenant dashboard counters
// @Summary Dashboard overview
// @Description Tenant-wide counters plus attempt averages. Revenue rows
// @Description appear only for admin callers.
// @Tags dashboard
// @Produce json
// @Success 200 {object} models.APIResponse{data=services.DashboardOverviewResponse}
// @Failure 403 {object} models.APIResponse
// @Router /dashboard/overview [get]
func (h *DashboardHandler) GetOverview(c *gin.Context) {
	principal, ok := h.principalFromContext(c)
	if !ok {
		return
	}

	overview, err := h.dashboardService.Overview(c.Request.Context(), principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respondOK(c, "Overview retrieved", overview)
}
