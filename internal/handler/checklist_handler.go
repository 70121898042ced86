package handler

import (
	"net/http"

	"compliance-backend/internal/middleware"
	"compliance-backend/internal/service"
	"compliance-backend/pkg/pagination"
	"compliance-backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ChecklistHandler struct {
	checklists service.ChecklistService
	auth       *middleware.Auth
}

// NewChecklistHandler sets up the routing dependencies for Checklist endpoints
func NewChecklistHandler(checklists service.ChecklistService, auth *middleware.Auth) *ChecklistHandler {
	return &ChecklistHandler{checklists: checklists, auth: auth}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *ChecklistHandler) RegisterRoutes(router *gin.RouterGroup) {
	checklists := router.Group("/api/checklists", h.auth.RequireAuth())
	{
		checklists.GET("", h.List)
		checklists.GET("/:id", h.Get)
		checklists.POST("", h.Create)
		checklists.PATCH("/:id", h.Update)
		checklists.GET("/:id/tags", h.Tags)
		checklists.POST("/:id/tags", h.AssignTags)
	}
}

// List handles GET /api/checklists
// @Summary      List visible checklist items
// @Description  Optionally narrowed to one department with ?department_id=. Visibility follows membership; admins see everything.
// @Tags         checklists
// @Produce      json
// @Security     BearerAuth
// @Param        department_id  query     string  false  "Department ID"
// @Param        page           query     int     false  "Page"
// @Param        limit          query     int     false  "Page size"
// @Success      200  {object}  response.Response{data=[]model.ChecklistItem}
// @Failure      401  {object}  response.Response
// @Router       /api/checklists [get]
func (h *ChecklistHandler) List(c *gin.Context) {
	caller, ok := caller(c)
	if !ok {
		return
	}

	var departmentID *uuid.UUID
	if raw := c.Query("department_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid department_id"))
			return
		}
		departmentID = &id
	}

	pg := pagination.Parse(c)
	items, total, err := h.checklists.List(c.Request.Context(), caller, departmentID, pg.Page, pg.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"items": items,
		"total": total,
		"page":  pg.Page,
		"limit": pg.Limit,
	}))
}

// Get handles GET /api/checklists/:id
// @Summary      Fetch one checklist item
// @Tags         checklists
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Checklist ID"
// @Success      200  {object}  response.Response{data=model.ChecklistItem}
// @Failure      404  {object}  response.Response
// @Router       /api/checklists/{id} [get]
func (h *ChecklistHandler) Get(c *gin.Context) {
	caller, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	item, err := h.checklists.Get(c.Request.Context(), caller, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// Create handles POST /api/checklists
// @Summary      Create a checklist item
// @Description  Title, department and due date are required. New items start uncompleted with empty notes.
// @Tags         checklists
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateChecklistRequest  true  "Checklist payload"
// @Success      201      {object}  response.Response{data=model.ChecklistItem}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/checklists [post]
func (h *ChecklistHandler) Create(c *gin.Context) {
	caller, ok := caller(c)
	if !ok {
		return
	}

	var req service.CreateChecklistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	item, err := h.checklists.Create(c.Request.Context(), caller, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, item))
}

// Update handles PATCH /api/checklists/:id
// @Summary      Patch a checklist item
// @Description  Partial update of completed, notes, assigned_to and due_date. A missing row and a forbidden row are the same 404.
// @Tags         checklists
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                          true  "Checklist ID"
// @Param        payload  body      service.UpdateChecklistRequest  true  "Fields to update"
// @Success      200      {object}  response.Response{data=model.ChecklistItem}
// @Failure      404      {object}  response.Response
// @Router       /api/checklists/{id} [patch]
func (h *ChecklistHandler) Update(c *gin.Context) {
	caller, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req service.UpdateChecklistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	item, err := h.checklists.Update(c.Request.Context(), caller, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// Tags handles GET /api/checklists/:id/tags
// @Summary      List a checklist item's tags
// @Tags         checklists
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Checklist ID"
// @Success      200  {object}  response.Response{data=[]model.Tag}
// @Failure      404  {object}  response.Response
// @Router       /api/checklists/{id}/tags [get]
func (h *ChecklistHandler) Tags(c *gin.Context) {
	caller, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	tags, err := h.checklists.Tags(c.Request.Context(), caller, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, tags))
}

// AssignTags handles POST /api/checklists/:id/tags
// @Summary      Assign tags to a checklist item
// @Description  Inserts one association per tag. Outcomes are reported per tag; a partial failure returns 409 with the per-tag report.
// @Tags         checklists
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                     true  "Checklist ID"
// @Param        payload  body      service.AssignTagsRequest  true  "Tag ids"
// @Success      200      {object}  response.Response{data=[]repository.TagAssignment}
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/checklists/{id}/tags [post]
func (h *ChecklistHandler) AssignTags(c *gin.Context) {
	caller, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req service.AssignTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	results, err := h.checklists.AssignTags(c.Request.Context(), caller, id, req)
	if err != nil {
		if results != nil {
			// partial failure: surface the per-tag report alongside the error
			status := http.StatusConflict
			resp := response.Error(status, err.Error())
			resp.Data = results
			c.JSON(status, resp)
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, results))
}
