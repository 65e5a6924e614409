package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/evenlyo/booking-service-go/internal/booking"
	"github.com/evenlyo/booking-service-go/internal/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL, srv.Client(), "EUR", nil)
	require.NoError(t, err)
	return c
}

func TestFetchListing_Success(t *testing.T) {
	var gotPath, gotCID string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotCID = r.Header.Get(middleware.HeaderCorrelationID)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"_id":"l-1","title":"DJ","vendor":{"_id":"v-1"},"pricing":{"perHour":50}}`))
	})

	ctx := middleware.WithCorrelationID(context.Background(), "cid-1")
	ref, pricing, err := c.FetchListing(ctx, "l-1")
	require.NoError(t, err)

	assert.Equal(t, "/api/listings/l-1", gotPath)
	assert.Equal(t, "cid-1", gotCID)
	assert.Equal(t, "l-1", ref.ID)
	assert.Equal(t, "v-1", ref.VendorID)
	assert.Equal(t, booking.RateHourly, pricing.Type)
	assert.Equal(t, "EUR", pricing.Currency)
}

func TestFetchListing_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	_, _, err := c.FetchListing(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrListingNotFound)
}

func TestFetchListing_UpstreamFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, _, err := c.FetchListing(context.Background(), "l-1")
	require.ErrorIs(t, err, ErrUpstream)
	assert.NotErrorIs(t, err, ErrListingNotFound)
}

func TestFetchListing_DeadlineExceeded(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(200 * time.Millisecond):
		}
		w.WriteHeader(http.StatusOK)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, _, err := c.FetchListing(ctx, "l-1")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestFetchListing_BasePathAndEscaping(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = w.Write([]byte(`{"_id":"a/b c","pricing":{"perEvent":100}}`))
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL+"/catalog", srv.Client(), "EUR", nil)
	require.NoError(t, err)

	ref, _, err := c.FetchListing(context.Background(), "a/b c")
	require.NoError(t, err)

	assert.Equal(t, "/catalog/api/listings/a%2Fb%20c", gotPath)
	assert.Equal(t, "a/b c", ref.ID)
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient("://bad", nil, "EUR", nil)
	assert.Error(t, err)
}
