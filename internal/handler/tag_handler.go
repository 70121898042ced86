package handler

import (
	"net/http"

	"compliance-backend/internal/middleware"
	"compliance-backend/internal/service"
	"compliance-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type TagHandler struct {
	tags service.TagService
	auth *middleware.Auth
}

// NewTagHandler sets up the routing dependencies for Tag endpoints
func NewTagHandler(tags service.TagService, auth *middleware.Auth) *TagHandler {
	return &TagHandler{tags: tags, auth: auth}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *TagHandler) RegisterRoutes(router *gin.RouterGroup) {
	tags := router.Group("/api/tags", h.auth.RequireAuth())
	{
		tags.GET("", h.List)
		tags.POST("", h.Create)
		tags.DELETE("/:id", h.Delete)
	}
}

// List handles GET /api/tags
// @Summary      List tags
// @Tags         tags
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]model.Tag}
// @Failure      401  {object}  response.Response
// @Router       /api/tags [get]
func (h *TagHandler) List(c *gin.Context) {
	caller, ok := caller(c)
	if !ok {
		return
	}

	tags, err := h.tags.List(c.Request.Context(), caller)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, tags))
}

// Create handles POST /api/tags
// @Summary      Create a tag
// @Description  Name must be unique case-insensitively; duplicates are rejected with 409 before any write.
// @Tags         tags
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateTagRequest  true  "Tag payload"
// @Success      201      {object}  response.Response{data=model.Tag}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/tags [post]
func (h *TagHandler) Create(c *gin.Context) {
	caller, ok := caller(c)
	if !ok {
		return
	}

	var req service.CreateTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	tag, err := h.tags.Create(c.Request.Context(), caller, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, tag))
}

// Delete handles DELETE /api/tags/:id
// @Summary      Delete a tag
// @Description  Removes the tag and its associations; checklist items are untouched.
// @Tags         tags
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Tag ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/tags/{id} [delete]
func (h *TagHandler) Delete(c *gin.Context) {
	caller, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.tags.Delete(c.Request.Context(), caller, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": id}))
}
