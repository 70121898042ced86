package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"compliance-backend/internal/apperr"
)

// User is the identity provider's view of an account. Role lives in the
// provider-side public metadata so the frontend session carries it too.
type User struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// Session is a verified provider session. A nil Session means "not yet
// loaded"; SignedIn false means the session resolved to no identity.
type Session struct {
	UserID   string
	Role     string
	SignedIn bool
}

// Provider is the external identity service: it verifies frontend session
// tokens and owns the account records and their role metadata.
type Provider interface {
	VerifySession(ctx context.Context, sessionToken string) (*Session, error)
	GetUser(ctx context.Context, userID string) (*User, error)
	UpdateUserRole(ctx context.Context, userID, role string) error
}

// HTTPProvider talks to the identity provider's management API with a
// server-held API key. Calls have a bounded timeout; 429 and 5xx responses
// are retried with doubling backoff, 4xx responses are not.
type HTTPProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
}

// NewHTTPProvider creates a provider client for the given management API root
func NewHTTPProvider(baseURL, apiKey string) *HTTPProvider {
	return &HTTPProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		maxRetries: 3,
		baseDelay:  200 * time.Millisecond,
	}
}

// VerifySession resolves a frontend session token to an identity
func (p *HTTPProvider) VerifySession(ctx context.Context, sessionToken string) (*Session, error) {
	if sessionToken == "" {
		return nil, apperr.ErrUnauthenticated
	}

	var out struct {
		UserID string `json:"user_id"`
		Role   string `json:"role"`
	}
	err := p.do(ctx, http.MethodPost, "/v1/sessions/verify",
		map[string]string{"token": sessionToken}, &out)
	if err != nil {
		return nil, err
	}
	if out.UserID == "" {
		return nil, apperr.ErrUnauthenticated
	}
	return &Session{UserID: out.UserID, Role: out.Role, SignedIn: true}, nil
}

// GetUser fetches an account record
func (p *HTTPProvider) GetUser(ctx context.Context, userID string) (*User, error) {
	var out struct {
		ID             string `json:"id"`
		FullName       string `json:"full_name"`
		EmailAddresses []struct {
			EmailAddress string `json:"email_address"`
		} `json:"email_addresses"`
		PublicMetadata struct {
			Role string `json:"role"`
		} `json:"public_metadata"`
	}
	if err := p.do(ctx, http.MethodGet, "/v1/users/"+userID, nil, &out); err != nil {
		return nil, err
	}

	user := &User{ID: out.ID, FullName: out.FullName, Role: out.PublicMetadata.Role}
	if len(out.EmailAddresses) > 0 {
		user.Email = out.EmailAddresses[0].EmailAddress
	}
	return user, nil
}

// UpdateUserRole persists the role into the account's public metadata
func (p *HTTPProvider) UpdateUserRole(ctx context.Context, userID, role string) error {
	body := map[string]any{
		"public_metadata": map[string]string{"role": role},
	}
	return p.do(ctx, http.MethodPatch, "/v1/users/"+userID+"/metadata", body, nil)
}

// do is the core HTTP method: auth header, JSON (de)serialization, and retry
// with exponential backoff on rate limiting and server errors.
func (p *HTTPProvider) do(ctx context.Context, method, path string, body, result any) error {
	url := p.baseURL + path

	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		payload = data
	}

	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(float64(p.baseDelay) * math.Pow(2, float64(attempt-1)))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := p.httpClient.Do(req)
		if err != nil {
			// timeouts and connection failures are retryable
			lastErr = apperr.Transient(fmt.Errorf("identity provider %s %s: %w", method, path, err))
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = apperr.Transient(fmt.Errorf("reading response body: %w", readErr))
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = apperr.Transient(fmt.Errorf("identity provider %s %s: status %d", method, path, resp.StatusCode))
			continue
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return apperr.ErrUnauthenticated
		case resp.StatusCode == http.StatusNotFound:
			return apperr.ErrNotFoundOrForbidden
		case resp.StatusCode >= 400:
			return fmt.Errorf("identity provider %s %s: status %d: %s", method, path, resp.StatusCode, string(respBody))
		}

		if result != nil && len(respBody) > 0 {
			if err := json.Unmarshal(respBody, result); err != nil {
				return fmt.Errorf("unmarshaling response: %w", err)
			}
		}
		return nil
	}

	if lastErr == nil {
		lastErr = apperr.Transient(errors.New("identity provider unavailable"))
	}
	return lastErr
}
