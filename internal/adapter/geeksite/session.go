package geeksite

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/meeplelog/catalog-sync/internal/domain"
)

// Authenticator obtains a session cookie from the site's JSON login
// endpoint. The bulk export is only served to logged-in users.
type Authenticator struct {
	loginURL   string
	httpClient *http.Client
	retry      RetryPolicy
	log        *slog.Logger
}

// NewAuthenticator creates an Authenticator for the given absolute login
// URL.
func NewAuthenticator(loginURL string, httpClient *http.Client, retry RetryPolicy, logger *slog.Logger) *Authenticator {
	return &Authenticator{
		loginURL:   loginURL,
		httpClient: httpClient,
		retry:      retry,
		log:        logger.With("adapter", "geeksite"),
	}
}

type loginRequest struct {
	Credentials loginCredentials `json:"credentials"`
}

type loginCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login posts the credentials and returns the resulting session.
// Transient failures (5xx, 429, network) are retried up to the policy's
// attempt budget; a rejection by the site maps to domain.ErrAuthentication.
// The password is never logged.
func (a *Authenticator) Login(ctx context.Context, username, password string) (*Session, error) {
	body, err := json.Marshal(loginRequest{Credentials: loginCredentials{Username: username, Password: password}})
	if err != nil {
		return nil, fmt.Errorf("geeksite: encode login request: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= a.retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleepCooldown(ctx, a.retry.Cooldown); err != nil {
				return nil, err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.loginURL, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("geeksite: create login request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		a.log.DebugContext(ctx, "login attempt", slog.String("username", username), slog.Int("attempt", attempt))

		resp, err := a.httpClient.Do(req)
		if err != nil {
			lastErr = err
			a.log.WarnContext(ctx, "login transient failure",
				slog.Int("attempt", attempt), slog.String("reason", "network error"))
			continue
		}

		if transientStatus(resp.StatusCode) {
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			drainClose(resp)
			a.log.WarnContext(ctx, "login transient failure",
				slog.Int("attempt", attempt), slog.Int("status", resp.StatusCode))
			continue
		}

		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, fmt.Errorf("geeksite: login status %d: %w", resp.StatusCode, domain.ErrAuthentication)
		}

		cookies := resp.Cookies()
		if len(cookies) == 0 {
			return nil, fmt.Errorf("geeksite: login returned no session cookie: %w", domain.ErrAuthentication)
		}

		a.log.InfoContext(ctx, "login succeeded", slog.String("username", username))
		return &Session{cookies: cookies}, nil
	}

	return nil, fmt.Errorf("geeksite: login unreachable after %d attempts (%v): %w",
		a.retry.MaxAttempts, lastErr, domain.ErrAuthentication)
}
