package handler

import (
	"errors"
	"net/http"
	"strings"

	"compliance-backend/internal/apperr"
	"compliance-backend/internal/identity"
	"compliance-backend/internal/middleware"

	"github.com/gin-gonic/gin"
)

// AuthHandler exposes the identity endpoints the frontend calls before it can
// touch any data: first-login role assignment and data-access token issuance.
// Both authenticate with the identity provider's session token, not with the
// data token the rest of the API uses.
type AuthHandler struct {
	provider identity.Provider
	resolver *identity.Resolver
	auth     *middleware.Auth
}

// NewAuthHandler sets up the routing dependencies for the identity endpoints
func NewAuthHandler(provider identity.Provider, resolver *identity.Resolver, auth *middleware.Auth) *AuthHandler {
	return &AuthHandler{provider: provider, resolver: resolver, auth: auth}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/api/assign-role", h.AssignRole)
	router.GET("/api/supabase-token", h.SupabaseToken)
	router.GET("/api/me", h.Me)
}

// AssignRole handles POST /api/assign-role
// @Summary      Assign a global role at first login
// @Description  Inspects the caller's email domain and assigns admin for allow-listed domains, user otherwise. One-time classification persisted to the identity provider and mirrored locally.
// @Tags         auth
// @Produce      plain
// @Security     BearerAuth
// @Success      200  {string}  string  "Assigned role: admin"
// @Failure      401  {string}  string  "Unauthorized"
// @Router       /api/assign-role [post]
func (h *AuthHandler) AssignRole(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	role, err := h.resolver.AssignRole(c.Request.Context(), session.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	// the middleware's cached role is stale now
	h.auth.InvalidateRole(session.UserID)

	c.String(http.StatusOK, "Assigned role: "+role)
}

// SupabaseToken handles GET /api/supabase-token
// @Summary      Issue a data-access token
// @Description  Returns a short-lived signed token bound to the caller's identity, consumed by the data routes. Re-issuance within the validity window returns the same token.
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]string
// @Failure      401  {string}  string  "Unauthorized"
// @Router       /api/supabase-token [get]
func (h *AuthHandler) SupabaseToken(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	token, err := h.resolver.IssueAccessToken(session.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// Me handles GET /api/me
// @Summary      Resolve the caller's role classification
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  identity.RoleInfo
// @Failure      401  {string}  string  "Unauthorized"
// @Router       /api/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, identity.ResolveRole(session))
}

// session verifies the provider session token or responds 401 with the bare
// body the frontend expects from these endpoints
func (h *AuthHandler) session(c *gin.Context) (*identity.Session, bool) {
	authHeader := c.GetHeader("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		c.String(http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}

	session, err := h.provider.VerifySession(c.Request.Context(), parts[1])
	if err != nil {
		if errors.Is(err, apperr.ErrUnauthenticated) {
			c.String(http.StatusUnauthorized, "Unauthorized")
		} else {
			respondError(c, err)
		}
		return nil, false
	}
	return session, true
}
