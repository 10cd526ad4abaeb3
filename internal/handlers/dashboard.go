package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apierrors "github.com/wemake-app/wemake-api/internal/errors"
	"github.com/wemake-app/wemake-api/internal/services"
)

type DashboardHandler struct {
	dashboardService *services.DashboardService
}

func NewDashboardHandler(dashboardService *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	dashboard, err := h.dashboardService.GetDashboard(c.Param("id"))
	if err != nil {
		apierrors.InternalError(c, "Failed to build dashboard")
		return
	}

	c.JSON(http.StatusOK, dashboard)
}

func (h *DashboardHandler) GetLeaderboard(c *gin.Context) {
	entries, err := h.dashboardService.GetLeaderboard(c.Param("id"))
	if err != nil {
		apierrors.InternalError(c, "Failed to build leaderboard")
		return
	}

	c.JSON(http.StatusOK, gin.H{"leaderboard": entries})
}

func (h *DashboardHandler) GetUserSummary(c *gin.Context) {
	summary, err := h.dashboardService.GetUserSummary(c.Param("id"), c.Param("user_id"))
	if err != nil {
		if errors.Is(err, services.ErrMemberNotFound) {
			apierrors.NotFound(c, err.Error())
			return
		}
		apierrors.InternalError(c, "Failed to build user summary")
		return
	}

	c.JSON(http.StatusOK, summary)
}
