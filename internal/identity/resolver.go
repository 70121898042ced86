package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"compliance-backend/internal/apperr"
	"compliance-backend/internal/model"

	"github.com/golang-jwt/jwt/v5"
)

// RoleInfo is the resolved role classification for a session. Safe to build
// before the session has loaded: callers get an unloaded state, never a block
// or an error.
type RoleInfo struct {
	Role       string `json:"role"`
	IsAdmin    bool   `json:"is_admin"`
	IsLoaded   bool   `json:"is_loaded"`
	IsSignedIn bool   `json:"is_signed_in"`
}

// ResolveRole classifies a session. A nil session is "not yet loaded"; a
// session with no role claim defaults to user. No side effects.
func ResolveRole(session *Session) RoleInfo {
	if session == nil {
		return RoleInfo{Role: model.RoleUser}
	}
	if !session.SignedIn {
		return RoleInfo{Role: model.RoleUser, IsLoaded: true}
	}
	role := session.Role
	if role == "" {
		role = model.RoleUser
	}
	return RoleInfo{
		Role:       role,
		IsAdmin:    role == model.RoleAdmin,
		IsLoaded:   true,
		IsSignedIn: true,
	}
}

// ProfileStore is the slice of profile persistence the resolver needs for
// first-login role assignment
type ProfileStore interface {
	Upsert(ctx context.Context, profile *model.Profile) error
}

// Resolver issues the short-lived data-access credentials the gateway calls
// carry, and performs the one-time first-login role classification.
type Resolver struct {
	provider     Provider
	profiles     ProfileStore
	secret       []byte
	ttl          time.Duration
	adminDomains []string
	now          func() time.Time

	mu     sync.Mutex
	issued map[string]issuedToken // identity id -> live token
}

type issuedToken struct {
	token     string
	expiresAt time.Time
}

// NewResolver builds a resolver. adminDomains are the email domains assigned
// the admin role at first login, lower-cased.
func NewResolver(provider Provider, profiles ProfileStore, secret []byte, ttl time.Duration, adminDomains []string) *Resolver {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Resolver{
		provider:     provider,
		profiles:     profiles,
		secret:       secret,
		ttl:          ttl,
		adminDomains: adminDomains,
		now:          time.Now,
		issued:       make(map[string]issuedToken),
	}
}

// IssueAccessToken returns a signed data-access token bound to identityID,
// expiring after the resolver's window. Re-issuance is idempotent per
// identity within the window: a cached token is reused until only a quarter
// of its lifetime remains, so callers never hit a query-time expiry loop.
func (r *Resolver) IssueAccessToken(identityID string) (string, error) {
	if identityID == "" {
		return "", apperr.ErrUnauthenticated
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	// drop dead entries so the map tracks live tokens, not every identity
	// ever seen
	for id, tok := range r.issued {
		if !tok.expiresAt.After(now) {
			delete(r.issued, id)
		}
	}
	if cached, ok := r.issued[identityID]; ok {
		if cached.expiresAt.Sub(now) > r.ttl/4 {
			return cached.token, nil
		}
	}

	expiresAt := now.Add(r.ttl)
	claims := jwt.MapClaims{
		"sub":  identityID,
		"role": "authenticated",
		"iat":  now.Unix(),
		"exp":  expiresAt.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
	if err != nil {
		return "", err
	}

	r.issued[identityID] = issuedToken{token: token, expiresAt: expiresAt}
	return token, nil
}

// AssignRole performs the first-login classification: admin when the
// identity's email domain is allow-listed, user otherwise. The result is
// persisted to the provider's metadata and mirrored into the local profiles
// row. Not re-evaluated per request.
func (r *Resolver) AssignRole(ctx context.Context, identityID string) (string, error) {
	if identityID == "" {
		return "", apperr.ErrUnauthenticated
	}

	user, err := r.provider.GetUser(ctx, identityID)
	if err != nil {
		return "", err
	}

	role := model.RoleUser
	if emailDomainAllowed(user.Email, r.adminDomains) {
		role = model.RoleAdmin
	}

	if err := r.provider.UpdateUserRole(ctx, identityID, role); err != nil {
		return "", err
	}

	if r.profiles != nil {
		profile := &model.Profile{
			ID:       identityID,
			FullName: user.FullName,
			Email:    user.Email,
			Role:     role,
		}
		if err := r.profiles.Upsert(ctx, profile); err != nil {
			// provider metadata is already set; surface the split outcome
			return "", &apperr.StepError{Step: "profile sync", Err: err}
		}
	}

	return role, nil
}

func emailDomainAllowed(email string, domains []string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	domain := strings.ToLower(email[at+1:])
	for _, d := range domains {
		if domain == d {
			return true
		}
	}
	return false
}
