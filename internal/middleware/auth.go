package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"compliance-backend/internal/model"
	"compliance-backend/internal/repository"
	"compliance-backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ctxCaller = "caller"
)

// roleCacheEntry stores a caller's resolved global role with TTL
type roleCacheEntry struct {
	role      string
	expiresAt time.Time
}

// Auth validates data-access tokens on the data routes and resolves the
// caller's global role from the profiles table, cached with a short TTL so a
// role change lands without a restart but reads stay cheap.
type Auth struct {
	secret   []byte
	profiles repository.ProfileRepository

	roleCache    sync.Map // identity id -> roleCacheEntry
	roleCacheTTL time.Duration
}

// NewAuth builds the auth middleware around the data-token secret
func NewAuth(secret []byte, profiles repository.ProfileRepository) *Auth {
	return &Auth{
		secret:       secret,
		profiles:     profiles,
		roleCacheTTL: 5 * time.Minute,
	}
}

// RequireAuth validates the bearer token and attaches the caller to the
// request context
func (a *Auth) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := a.authenticate(c)
		if !ok {
			return
		}
		c.Set(ctxCaller, caller)
		c.Next()
	}
}

// RequireAdmin validates the token and rejects non-admin callers
func (a *Auth) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := a.authenticate(c)
		if !ok {
			return
		}
		if !caller.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
			return
		}
		c.Set(ctxCaller, caller)
		c.Next()
	}
}

// CallerFrom extracts the authenticated caller placed by RequireAuth
func CallerFrom(c *gin.Context) (repository.Caller, bool) {
	v, ok := c.Get(ctxCaller)
	if !ok {
		return repository.Caller{}, false
	}
	caller, ok := v.(repository.Caller)
	return caller, ok
}

func (a *Auth) authenticate(c *gin.Context) (repository.Caller, bool) {
	tokenString := bearerToken(c)
	if tokenString == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
		return repository.Caller{}, false
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token"))
		return repository.Caller{}, false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token claims"))
		return repository.Caller{}, false
	}

	identityID, _ := claims["sub"].(string)
	if identityID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token claims"))
		return repository.Caller{}, false
	}

	role, err := a.globalRole(c, identityID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to resolve caller role"))
		return repository.Caller{}, false
	}

	return repository.Caller{ID: identityID, IsAdmin: role == model.RoleAdmin}, true
}

// globalRole returns the cached or freshly loaded global role for an identity
func (a *Auth) globalRole(c *gin.Context, identityID string) (string, error) {
	if entry, ok := a.roleCache.Load(identityID); ok {
		cached := entry.(roleCacheEntry)
		if time.Now().Before(cached.expiresAt) {
			return cached.role, nil
		}
	}

	role, err := a.profiles.GetRole(c.Request.Context(), identityID)
	if err != nil {
		return "", err
	}

	a.roleCache.Store(identityID, roleCacheEntry{
		role:      role,
		expiresAt: time.Now().Add(a.roleCacheTTL),
	})
	return role, nil
}

// InvalidateRole drops a cached role after an assignment change
func (a *Auth) InvalidateRole(identityID string) {
	a.roleCache.Delete(identityID)
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}
