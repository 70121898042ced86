package handler

import (
	"net/http"

	"compliance-backend/internal/apperr"
	"compliance-backend/internal/middleware"
	"compliance-backend/internal/repository"
	"compliance-backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// respondError maps a service error onto the response envelope using the
// taxonomy's status mapping. The underlying message travels to the client so
// views can render it.
func respondError(c *gin.Context, err error) {
	status := apperr.Status(err)
	c.JSON(status, response.Error(status, err.Error()))
}

// caller pulls the authenticated caller or aborts with 401
func caller(c *gin.Context) (repository.Caller, bool) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Unauthenticated"))
		return repository.Caller{}, false
	}
	return caller, true
}

// pathID parses the :id path segment as a uuid or aborts with 400
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}
