// Package feed fetches dedicated-rate payloads from a configured locator.
// The payload is decoded and logged only; body population from feed data is
// an explicit extension point via OnPayload and is not wired by default.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

const defaultTimeout = 15 * time.Second

// Client fetches a JSON document from a locator and hands it to OnPayload,
// or logs it when no callback is set.
type Client struct {
	// HTTPClient is used for the fetch. A nil client gets a default with a
	// request timeout.
	HTTPClient *http.Client

	// Logger receives the one diagnostic line per fetch. Nil uses the
	// package-level logger.
	Logger *log.Logger

	// OnPayload, when set, receives the decoded document instead of the
	// default log line. Errors are still logged, never propagated.
	OnPayload func(payload any)
}

// Fetch issues one GET to locator and decodes the response body as JSON.
func (c *Client) Fetch(ctx context.Context, locator string) (any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, fmt.Errorf("feed: build request: %w", err)
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed: fetch %s: %w", locator, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed: fetch %s: unexpected status %d", locator, resp.StatusCode)
	}

	var payload any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("feed: decode %s: %w", locator, err)
	}
	return payload, nil
}

// FetchAndLog fetches the locator and logs the decoded payload, or the
// error, exactly once. Failures are swallowed; nothing escapes the call.
func (c *Client) FetchAndLog(ctx context.Context, locator string) {
	payload, err := c.Fetch(ctx, locator)
	if err != nil {
		c.logf("feed: %v", err)
		return
	}
	if c.OnPayload != nil {
		c.OnPayload(payload)
		return
	}
	c.logf("feed: dedicated rates payload: %v", payload)
}

func (c *Client) logf(format string, args ...any) {
	if c.Logger != nil {
		c.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}
