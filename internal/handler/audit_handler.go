package handler

import (
	"net/http"

	"compliance-backend/internal/middleware"
	"compliance-backend/internal/service"
	"compliance-backend/pkg/pagination"
	"compliance-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	audit service.AuditService
	auth  *middleware.Auth
}

// NewAuditHandler sets up the routing dependencies for Audit endpoints
func NewAuditHandler(audit service.AuditService, auth *middleware.Auth) *AuditHandler {
	return &AuditHandler{audit: audit, auth: auth}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/api/audit-logs", h.auth.RequireAdmin(), h.List)
}

// List handles GET /api/audit-logs
// @Summary      List audit logs
// @Description  Paginated audit trail of role assignments and data mutations. Admin only.
// @Tags         audit
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page"
// @Param        limit  query     int  false  "Page size"
// @Success      200  {object}  response.Response{data=[]service.AuditLogResponse}
// @Failure      403  {object}  response.Response
// @Router       /api/audit-logs [get]
func (h *AuditHandler) List(c *gin.Context) {
	pg := pagination.Parse(c)

	logs, total, err := h.audit.List(c.Request.Context(), pg.Page, pg.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"items": logs,
		"total": total,
		"page":  pg.Page,
		"limit": pg.Limit,
	}))
}
