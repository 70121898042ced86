package handler

import (
	"net/http"

	"compliance-backend/internal/middleware"
	"compliance-backend/internal/service"
	"compliance-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type DepartmentHandler struct {
	departments service.DepartmentService
	auth        *middleware.Auth
}

// NewDepartmentHandler sets up the routing dependencies for Department endpoints
func NewDepartmentHandler(departments service.DepartmentService, auth *middleware.Auth) *DepartmentHandler {
	return &DepartmentHandler{departments: departments, auth: auth}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *DepartmentHandler) RegisterRoutes(router *gin.RouterGroup) {
	departments := router.Group("/api/departments", h.auth.RequireAuth())
	{
		departments.GET("", h.List)
		departments.POST("", h.Create)
		departments.PUT("/:id", h.Update)
		departments.DELETE("/:id", h.Delete)
		departments.POST("/:id/members", h.AssignMember)
		departments.GET("/:id/members", h.Members)
	}
}

// List handles GET /api/departments
// @Summary      List visible departments with aggregates
// @Description  Admins get every department; other callers get exactly their membership departments. Each entry carries the derived totals, overdue count and progress percent.
// @Tags         departments
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]stats.DepartmentSummary}
// @Failure      401  {object}  response.Response
// @Router       /api/departments [get]
func (h *DepartmentHandler) List(c *gin.Context) {
	caller, ok := caller(c)
	if !ok {
		return
	}

	summaries, err := h.departments.ListWithStats(c.Request.Context(), caller)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, summaries))
}

// Create handles POST /api/departments
// @Summary      Create a department
// @Tags         departments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateDepartmentRequest  true  "Department payload"
// @Success      201      {object}  response.Response{data=model.Department}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/departments [post]
func (h *DepartmentHandler) Create(c *gin.Context) {
	caller, ok := caller(c)
	if !ok {
		return
	}

	var req service.CreateDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	department, err := h.departments.Create(c.Request.Context(), caller, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, department))
}

// Update handles PUT /api/departments/:id
// @Summary      Rename a department
// @Tags         departments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                           true  "Department ID"
// @Param        payload  body      service.UpdateDepartmentRequest  true  "Department payload"
// @Success      200      {object}  response.Response{data=model.Department}
// @Failure      404      {object}  response.Response
// @Router       /api/departments/{id} [put]
func (h *DepartmentHandler) Update(c *gin.Context) {
	caller, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req service.UpdateDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	department, err := h.departments.Update(c.Request.Context(), caller, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, department))
}

// Delete handles DELETE /api/departments/:id
// @Summary      Delete an empty department
// @Description  Refused with 409 while the department still owns checklist items. Membership rows are removed first; a failure after that step is reported distinctly.
// @Tags         departments
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Department ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/departments/{id} [delete]
func (h *DepartmentHandler) Delete(c *gin.Context) {
	caller, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.departments.Delete(c.Request.Context(), caller, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": id}))
}

// Members handles GET /api/departments/:id/members
// @Summary      List a department's members
// @Description  Membership rows with each member's profile. Visible to admins and to members of the department; everyone else gets 404.
// @Tags         departments
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Department ID"
// @Success      200  {object}  response.Response{data=[]repository.Member}
// @Failure      404  {object}  response.Response
// @Router       /api/departments/{id}/members [get]
func (h *DepartmentHandler) Members(c *gin.Context) {
	caller, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	members, err := h.departments.Members(c.Request.Context(), caller, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, members))
}

// AssignMember handles POST /api/departments/:id/members
// @Summary      Grant a user membership in a department
// @Tags         departments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                       true  "Department ID"
// @Param        payload  body      service.AssignMemberRequest  true  "Membership payload"
// @Success      201      {object}  response.Response{data=model.UserDepartment}
// @Failure      404      {object}  response.Response
// @Router       /api/departments/{id}/members [post]
func (h *DepartmentHandler) AssignMember(c *gin.Context) {
	caller, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req service.AssignMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	assignment, err := h.departments.AssignMember(c.Request.Context(), caller, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, assignment))
}
