// Package feed polls the status+listing endpoint that announces reveals.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrFeed marks every fetch or parse failure. Callers treat it as recoverable.
var ErrFeed = errors.New("feed error")

const (
	defaultTimeout   = 5 * time.Second
	defaultUserAgent = "revealbot-go/1.0"
)

// Client fetches snapshots from a single endpoint.
type Client struct {
	url       string
	http      *http.Client
	userAgent string
	log       zerolog.Logger
}

// Option configures Client construction parameters.
type Option func(*Client)

// WithHTTPClient swaps the transport, mostly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithTimeout overrides the per-request timeout of the default transport.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.http = &http.Client{Timeout: d}
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(cl *Client) {
		if ua = strings.TrimSpace(ua); ua != "" {
			cl.userAgent = ua
		}
	}
}

// NewClient constructs a feed client for url.
func NewClient(url string, log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		url:       strings.TrimSpace(url),
		http:      &http.Client{Timeout: defaultTimeout},
		userAgent: defaultUserAgent,
		log:       log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch performs one GET and decodes the [status, listing] pair.
func (c *Client) Fetch(ctx context.Context) (*Snapshot, error) {
	if c.url == "" {
		return nil, fmt.Errorf("%w: no url configured", ErrFeed)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrFeed, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: http do: %w", ErrFeed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrFeed, resp.StatusCode)
	}

	var parts []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&parts); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrFeed, err)
	}
	snap, err := parseSnapshot(parts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFeed, err)
	}
	c.log.Debug().Int("entities", len(snap.Entities)).Int("total", snap.Total).Msg("feed snapshot")
	return snap, nil
}

func parseSnapshot(parts []json.RawMessage) (*Snapshot, error) {
	if len(parts) < 2 {
		return nil, fmt.Errorf("expected [status, listing], got %d elements", len(parts))
	}
	var status map[string]any
	if err := json.Unmarshal(parts[0], &status); err != nil {
		return nil, fmt.Errorf("decode status: %v", err)
	}
	var listing Listing
	if err := json.Unmarshal(parts[1], &listing); err != nil {
		return nil, fmt.Errorf("decode listing: %v", err)
	}
	return &Snapshot{
		Status:   status,
		Entities: listing.Data,
		Total:    listing.Total,
	}, nil
}
