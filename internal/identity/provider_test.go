package identity

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"compliance-backend/internal/apperr"
)

func testProvider(url string) *HTTPProvider {
	p := NewHTTPProvider(url, "sk_test")
	p.baseDelay = time.Millisecond
	return p
}

func TestVerifySession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/sessions/verify" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test" {
			t.Errorf("Authorization = %q", got)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		if body["token"] != "sess_abc" {
			t.Errorf("token = %q, want sess_abc", body["token"])
		}
		json.NewEncoder(w).Encode(map[string]string{"user_id": "user_1", "role": "admin"})
	}))
	defer srv.Close()

	session, err := testProvider(srv.URL).VerifySession(context.Background(), "sess_abc")
	if err != nil {
		t.Fatalf("VerifySession: %v", err)
	}
	if session.UserID != "user_1" || session.Role != "admin" || !session.SignedIn {
		t.Errorf("session = %+v", session)
	}
}

func TestVerifySessionEmptyToken(t *testing.T) {
	p := testProvider("http://unused.invalid")
	if _, err := p.VerifySession(context.Background(), ""); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Errorf("err = %v, want ErrUnauthenticated", err)
	}
}

func TestGetUserParsesProviderShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/users/user_1" {
			t.Errorf("path = %s", r.URL.Path)
		}
		io.WriteString(w, `{
			"id": "user_1",
			"full_name": "Dana Smith",
			"email_addresses": [{"email_address": "dana@acme.com"}],
			"public_metadata": {"role": "admin"}
		}`)
	}))
	defer srv.Close()

	user, err := testProvider(srv.URL).GetUser(context.Background(), "user_1")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	want := User{ID: "user_1", FullName: "Dana Smith", Email: "dana@acme.com", Role: "admin"}
	if *user != want {
		t.Errorf("user = %+v, want %+v", *user, want)
	}
}

func TestUpdateUserRoleWritesMetadata(t *testing.T) {
	var gotBody map[string]map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/v1/users/user_1/metadata" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := testProvider(srv.URL).UpdateUserRole(context.Background(), "user_1", "admin"); err != nil {
		t.Fatalf("UpdateUserRole: %v", err)
	}
	if gotBody["public_metadata"]["role"] != "admin" {
		t.Errorf("body = %v, want public_metadata.role=admin", gotBody)
	}
}

func TestDoRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		io.WriteString(w, `{"id": "user_1"}`)
	}))
	defer srv.Close()

	user, err := testProvider(srv.URL).GetUser(context.Background(), "user_1")
	if err != nil {
		t.Fatalf("GetUser after retries: %v", err)
	}
	if user.ID != "user_1" {
		t.Errorf("user = %+v", user)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("server saw %d calls, want 3", n)
	}
}

func TestDoRetriesRateLimiting(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		io.WriteString(w, `{"id": "user_1"}`)
	}))
	defer srv.Close()

	if _, err := testProvider(srv.URL).GetUser(context.Background(), "user_1"); err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("server saw %d calls, want 2", n)
	}
}

func TestDoExhaustedRetriesAreTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := testProvider(srv.URL).GetUser(context.Background(), "user_1")
	if err == nil {
		t.Fatal("expected an error after exhausting retries")
	}
	if !apperr.IsTransient(err) {
		t.Errorf("exhausted-retry error %v is not transient", err)
	}
}

func TestDoClientErrorsAreNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := testProvider(srv.URL).GetUser(context.Background(), "user_1")
	if !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Fatalf("err = %v, want ErrUnauthenticated", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("401 was retried: %d calls", n)
	}
}

func TestDoNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := testProvider(srv.URL).GetUser(context.Background(), "ghost"); !errors.Is(err, apperr.ErrNotFoundOrForbidden) {
		t.Errorf("err = %v, want ErrNotFoundOrForbidden", err)
	}
}
