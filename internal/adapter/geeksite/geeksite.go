// Package geeksite talks to the external board-game catalog site: the
// login endpoint, the data-dumps landing page, the bulk-export archive,
// and the XML detail API.
//
// It is the only package that knows the site's URL layout and response
// quirks. Rate-limit and "please wait" behavior is normal operation for
// this API, not a failure, which is why retries here are driven by a
// fixed cool-down rather than an attempt budget (except where noted).
package geeksite

import (
	"context"
	"net/http"
	"time"
)

// Session is the opaque credential handed back by the login endpoint.
// It is a bag of cookies; nothing outside this package inspects it.
type Session struct {
	cookies []*http.Cookie
}

func (s *Session) apply(req *http.Request) {
	if s == nil {
		return
	}
	for _, c := range s.cookies {
		req.AddCookie(c)
	}
}

// RetryPolicy bounds the transient retries of the run-gating calls
// (login, export page, archive download). The enrichment client ignores
// MaxAttempts on purpose: a slow API must not abort a multi-hour run.
type RetryPolicy struct {
	Cooldown    time.Duration
	MaxAttempts int
}

// transientStatus reports whether an HTTP status is expected to clear on
// its own: rate limiting, server errors, and the site's 202 "please
// wait" stall while it prepares a response.
func transientStatus(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusAccepted ||
		code >= 500
}

// sleepCooldown waits for d or until ctx is cancelled, whichever comes
// first.
func sleepCooldown(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func drainClose(resp *http.Response) {
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
}
