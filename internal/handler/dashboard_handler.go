package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutor-cockpit-api/internal/dto"
	"github.com/noah-isme/tutor-cockpit-api/pkg/response"
)

type dashboardService interface {
	Summary(ctx context.Context) (*dto.DashboardResponse, bool, error)
}

// DashboardHandler exposes the overview endpoint.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(svc dashboardService) *DashboardHandler {
	return &DashboardHandler{service: svc}
}

// Summary godoc
// @Summary Dashboard overview
// @Description Income, profit, today's lessons, unpaid lessons and growth for the current day
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /dashboard [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	data, hit, err := h.service.Summary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, data, nil, map[string]interface{}{"cache_hit": hit})
}
