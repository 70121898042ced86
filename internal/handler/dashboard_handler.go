package handler

import (
	"net/http"

	"compliance-backend/internal/middleware"
	"compliance-backend/internal/service"
	"compliance-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	dashboard service.DashboardService
	auth      *middleware.Auth
}

// NewDashboardHandler sets up the routing dependencies for Dashboard endpoints
func NewDashboardHandler(dashboard service.DashboardService, auth *middleware.Auth) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, auth: auth}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *DashboardHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/api/dashboard", h.auth.RequireAuth(), h.Overview)
}

// Overview handles GET /api/dashboard
// @Summary      Organization dashboard
// @Description  KPIs, per-department aggregates, completion chart series and the upcoming-due buckets, computed over the caller's visible departments.
// @Tags         dashboard
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.DashboardResponse}
// @Failure      401  {object}  response.Response
// @Router       /api/dashboard [get]
func (h *DashboardHandler) Overview(c *gin.Context) {
	caller, ok := caller(c)
	if !ok {
		return
	}

	overview, err := h.dashboard.Overview(c.Request.Context(), caller)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, overview))
}
