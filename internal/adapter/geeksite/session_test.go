package geeksite

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/meeplelog/catalog-sync/internal/domain"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRetry() RetryPolicy {
	return RetryPolicy{Cooldown: time.Millisecond, MaxAttempts: 3}
}

func TestAuthenticator_Login_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode login body: %v", err)
		}
		if req.Credentials.Username != "syncbot" || req.Credentials.Password != "sekrit" {
			t.Errorf("unexpected credentials: %+v", req.Credentials)
		}
		http.SetCookie(w, &http.Cookie{Name: "SessionID", Value: "abc123"})
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	a := NewAuthenticator(srv.URL+"/login/api/v1", srv.Client(), testRetry(), newTestLogger())
	sess, err := a.Login(context.Background(), "syncbot", "sekrit")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess == nil || len(sess.cookies) != 1 {
		t.Fatalf("expected one session cookie, got %+v", sess)
	}
	if sess.cookies[0].Name != "SessionID" || sess.cookies[0].Value != "abc123" {
		t.Errorf("cookie = %v", sess.cookies[0])
	}
}

func TestAuthenticator_Login_Rejected(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	a := NewAuthenticator(srv.URL, srv.Client(), testRetry(), newTestLogger())
	_, err := a.Login(context.Background(), "syncbot", "wrong-password")
	if !errors.Is(err, domain.ErrAuthentication) {
		t.Fatalf("error = %v, want ErrAuthentication", err)
	}
	// The password must never leak into error text.
	if strings.Contains(err.Error(), "wrong-password") {
		t.Errorf("error message contains the password: %q", err.Error())
	}
}

func TestAuthenticator_Login_TransientThenSuccess(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "SessionID", Value: "ok"})
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := NewAuthenticator(srv.URL, srv.Client(), testRetry(), newTestLogger())
	sess, err := a.Login(context.Background(), "syncbot", "sekrit")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess == nil {
		t.Fatal("expected session after retries")
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("login attempts = %d, want 3", got)
	}
}

func TestAuthenticator_Login_RetryExhaustion(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	a := NewAuthenticator(srv.URL, srv.Client(), testRetry(), newTestLogger())
	_, err := a.Login(context.Background(), "syncbot", "sekrit")
	if !errors.Is(err, domain.ErrAuthentication) {
		t.Fatalf("error = %v, want ErrAuthentication", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("login attempts = %d, want exactly MaxAttempts", got)
	}
}

func TestAuthenticator_Login_NoCookie(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := NewAuthenticator(srv.URL, srv.Client(), testRetry(), newTestLogger())
	_, err := a.Login(context.Background(), "syncbot", "sekrit")
	if !errors.Is(err, domain.ErrAuthentication) {
		t.Fatalf("error = %v, want ErrAuthentication for cookie-less 200", err)
	}
}
