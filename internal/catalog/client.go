// Package catalog fetches listing snapshots from the upstream listings API.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/evenlyo/booking-service-go/internal/booking"
	"github.com/evenlyo/booking-service-go/internal/mapping"
	"github.com/evenlyo/booking-service-go/internal/middleware"
	"go.uber.org/zap"
)

var (
	ErrListingNotFound = errors.New("catalog: listing not found")
	// ErrUpstream wraps transport failures and non-2xx answers from the listings API.
	ErrUpstream = errors.New("catalog: listings upstream unavailable")
)

// maxBody caps how much of an upstream response is read.
const maxBody = 1 << 20

type Client struct {
	BaseURL         *url.URL
	HTTP            *http.Client
	DefaultCurrency string
	Logger          *zap.Logger
}

func NewClient(baseURL string, httpClient *http.Client, defaultCurrency string, logger *zap.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid listings base url %q: %w", baseURL, err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{BaseURL: u, HTTP: httpClient, DefaultCurrency: defaultCurrency, Logger: logger}, nil
}

// FetchListing returns the listing snapshot and pricing schedule for id.
func (c *Client) FetchListing(ctx context.Context, id string) (booking.ListingRef, booking.PricingSchedule, error) {
	body, err := c.get(ctx, "api", "listings", url.PathEscape(id))
	if err != nil {
		return booking.ListingRef{}, booking.PricingSchedule{}, err
	}
	ref, pricing, err := mapping.DecodeListing(body, c.DefaultCurrency)
	if err != nil {
		return booking.ListingRef{}, booking.PricingSchedule{}, fmt.Errorf("decode listing %s: %w", id, err)
	}
	return ref, pricing, nil
}

// get requests the escaped path segments relative to BaseURL, keeping any
// path prefix the base carries.
func (c *Client) get(ctx context.Context, segments ...string) ([]byte, error) {
	u := c.BaseURL.JoinPath(segments...)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if cid := middleware.GetCorrelationID(ctx); cid != "" {
		req.Header.Set(middleware.HeaderCorrelationID, cid)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", ErrUpstream, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrListingNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		c.Logger.Warn("listings upstream error",
			zap.String("url", u.String()),
			zap.Int("status", resp.StatusCode),
		)
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}
	return body, nil
}
