package geeksite

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"golang.org/x/net/html"

	"github.com/meeplelog/catalog-sync/internal/domain"
)

// Export describes the current bulk-export download.
type Export struct {
	URL      string
	Filename string
}

// Locator discovers the bulk-export download URL by scanning the
// data-dumps landing page for its download anchor.
//
// This is the pipeline's only structural-scraping dependency, isolated
// here because it is the most likely point of external breakage: when
// the page layout changes, Locate fails with domain.ErrExportNotFound
// and the scan logic needs updating.
type Locator struct {
	pageURL    string
	httpClient *http.Client
	retry      RetryPolicy
	log        *slog.Logger
}

// NewLocator creates a Locator for the given absolute landing-page URL.
func NewLocator(pageURL string, httpClient *http.Client, retry RetryPolicy, logger *slog.Logger) *Locator {
	return &Locator{
		pageURL:    pageURL,
		httpClient: httpClient,
		retry:      retry,
		log:        logger.With("adapter", "geeksite"),
	}
}

// Locate fetches the landing page with the session applied and returns
// the first anchor carrying both href and download attributes.
func (l *Locator) Locate(ctx context.Context, sess *Session) (Export, error) {
	var lastErr error
	for attempt := 1; attempt <= l.retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleepCooldown(ctx, l.retry.Cooldown); err != nil {
				return Export{}, err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.pageURL, nil)
		if err != nil {
			return Export{}, fmt.Errorf("geeksite: create export page request: %w", err)
		}
		sess.apply(req)

		resp, err := l.httpClient.Do(req)
		if err != nil {
			lastErr = err
			l.log.WarnContext(ctx, "export page transient failure",
				slog.Int("attempt", attempt), slog.String("reason", "network error"))
			continue
		}

		if transientStatus(resp.StatusCode) {
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			drainClose(resp)
			l.log.WarnContext(ctx, "export page transient failure",
				slog.Int("attempt", attempt), slog.Int("status", resp.StatusCode))
			continue
		}

		if resp.StatusCode != http.StatusOK {
			drainClose(resp)
			return Export{}, fmt.Errorf("geeksite: export page status %d: %w", resp.StatusCode, domain.ErrExportNotFound)
		}

		doc, err := html.Parse(resp.Body)
		resp.Body.Close()
		if err != nil {
			return Export{}, fmt.Errorf("geeksite: parse export page: %w", domain.ErrExportNotFound)
		}

		export, ok := findDownloadAnchor(doc)
		if !ok {
			return Export{}, fmt.Errorf("geeksite: no download anchor on %s: %w", l.pageURL, domain.ErrExportNotFound)
		}

		export.URL, err = l.resolve(export.URL)
		if err != nil {
			return Export{}, fmt.Errorf("geeksite: bad export href: %w", domain.ErrExportNotFound)
		}

		l.log.InfoContext(ctx, "export located", slog.String("filename", export.Filename))
		return export, nil
	}

	return Export{}, fmt.Errorf("geeksite: export page unreachable after %d attempts (%v): %w",
		l.retry.MaxAttempts, lastErr, domain.ErrDownload)
}

// findDownloadAnchor walks the parsed document depth-first and returns
// the first <a> element carrying both href and download attributes.
func findDownloadAnchor(n *html.Node) (Export, bool) {
	if n.Type == html.ElementNode && n.Data == "a" {
		var href, download string
		var hasDownload bool
		for _, attr := range n.Attr {
			switch attr.Key {
			case "href":
				href = attr.Val
			case "download":
				download = attr.Val
				hasDownload = true
			}
		}
		if href != "" && hasDownload {
			return Export{URL: href, Filename: download}, true
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if export, ok := findDownloadAnchor(c); ok {
			return export, true
		}
	}
	return Export{}, false
}

// resolve makes a possibly-relative href absolute against the page URL.
func (l *Locator) resolve(href string) (string, error) {
	base, err := url.Parse(l.pageURL)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}
