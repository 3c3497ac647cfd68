package geeksite

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/meeplelog/catalog-sync/internal/domain"
)

// EnrichmentClient fetches detailed item data from the XML API, one
// batch of identifiers per call.
//
// Rate limiting (429), server errors (5xx), the 202 "please wait" stall
// and network-level failures are retried indefinitely with a fixed
// cool-down: against this API they are expected operating conditions,
// and aborting a multi-hour run because the remote side is slow would be
// worse than waiting. The run is cancelled through ctx instead. Any
// other non-200 status fails immediately: that is a malformed request,
// and retrying would only mask the bug.
type EnrichmentClient struct {
	apiBaseURL string
	httpClient *http.Client
	cooldown   time.Duration
	log        *slog.Logger
}

// NewEnrichmentClient creates an EnrichmentClient against the given API
// base URL (the "/thing" endpoint is appended).
func NewEnrichmentClient(apiBaseURL string, httpClient *http.Client, cooldown time.Duration, logger *slog.Logger) *EnrichmentClient {
	return &EnrichmentClient{
		apiBaseURL: strings.TrimRight(apiBaseURL, "/"),
		httpClient: httpClient,
		cooldown:   cooldown,
		log:        logger.With("adapter", "geeksite"),
	}
}

// FetchItems requests all ids in one call and returns one Item per
// identifier the API knows about. The cool-down sleep is cancellable;
// cancellation surfaces as ctx.Err().
func (c *EnrichmentClient) FetchItems(ctx context.Context, ids []int64) ([]Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	reqURL := c.apiBaseURL + "/thing?stats=1&id=" + joinIDs(ids)

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("geeksite: create thing request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.log.WarnContext(ctx, "enrichment retry",
				slog.Int("attempt", attempt),
				slog.String("reason", "network error"),
				slog.Duration("cooldown", c.cooldown))
			if err := sleepCooldown(ctx, c.cooldown); err != nil {
				return nil, err
			}
			continue
		}

		if transientStatus(resp.StatusCode) {
			code := resp.StatusCode
			drainClose(resp)
			c.log.WarnContext(ctx, "enrichment retry",
				slog.Int("attempt", attempt),
				slog.Int("status", code),
				slog.Duration("cooldown", c.cooldown))
			if err := sleepCooldown(ctx, c.cooldown); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode != http.StatusOK {
			drainClose(resp)
			return nil, fmt.Errorf("geeksite: thing status %d: %w", resp.StatusCode, domain.ErrEnrichmentAPI)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			c.log.WarnContext(ctx, "enrichment retry",
				slog.Int("attempt", attempt),
				slog.String("reason", "interrupted body"),
				slog.Duration("cooldown", c.cooldown))
			if err := sleepCooldown(ctx, c.cooldown); err != nil {
				return nil, err
			}
			continue
		}

		var envelope itemsEnvelope
		if err := xml.Unmarshal(body, &envelope); err != nil {
			return nil, fmt.Errorf("geeksite: decode thing response: %v: %w", err, domain.ErrEnrichmentAPI)
		}

		c.log.DebugContext(ctx, "enrichment batch fetched",
			slog.Int("requested", len(ids)),
			slog.Int("returned", len(envelope.Items)),
			slog.Int("attempts", attempt))

		return envelope.Items, nil
	}
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
