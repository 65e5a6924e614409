//go:build integration
// +build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/evenlyo/booking-service-go/internal/booking"
	"github.com/evenlyo/booking-service-go/internal/cartstore"
	"github.com/evenlyo/booking-service-go/internal/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestCartStore_RoundTripAndDecisions(t *testing.T) {
	pool := testutil.StartPostgres(t)
	repo := cartstore.NewPostgresRepository(pool)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	userID := "user-" + uuid.NewString()
	pricing := booking.PricingSchedule{
		Type:     booking.RateDaily,
		PerDay:   decimal.NewNullDecimal(decimal.NewFromInt(200)),
		Currency: "EUR",
		MultiDayDiscount: &booking.MultiDayDiscount{
			Enabled: true,
			Percent: decimal.NewFromInt(10),
			MinDays: 3,
		},
	}

	a, err := repo.Add(ctx, userID, cartstore.NewItem{
		Listing: booking.ListingRef{ID: "tent-1", Title: "Party tent", VendorID: "v-2"},
		Pricing: pricing,
	})
	require.NoError(t, err)
	b, err := repo.Add(ctx, userID, cartstore.NewItem{
		Listing: booking.ListingRef{ID: "tent-2", Title: "Second tent", VendorID: "v-2"},
		Pricing: pricing,
	})
	require.NoError(t, err)

	details := booking.TempDetails{
		EventDate:     booking.StringPtr("2025-07-01"),
		EndDate:       booking.StringPtr("2025-07-03"),
		EventTime:     booking.StringPtr("10:00"),
		EventLocation: booking.StringPtr("Leiden"),
	}
	require.NoError(t, repo.UpdateTempDetails(ctx, userID, a.ID, details))
	require.ErrorIs(t, repo.UpdateTempDetails(ctx, "someone-else", a.ID, details), cartstore.ErrNotFound)

	pending, err := repo.ListPending(ctx, userID)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	var stored booking.CartItem
	for _, it := range pending {
		if it.ID == a.ID {
			stored = it
		}
	}
	require.Equal(t, "Leiden", *stored.TempDetails.EventLocation)
	require.NotNil(t, stored.Pricing.MultiDayDiscount)
	require.Equal(t, 3, stored.Pricing.MultiDayDiscount.MinDays)

	quote := booking.QuoteItem(stored)
	require.True(t, quote.MultiDayDiscountApplied)

	reqs, err := repo.SubmitRequests(ctx, userID, []cartstore.SubmittedItem{{Item: stored, Quote: quote}})
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	require.Equal(t, cartstore.StatusRequested, reqs[0].Status)

	_, err = repo.SubmitRequests(ctx, userID, []cartstore.SubmittedItem{{Item: stored, Quote: quote}})
	require.ErrorIs(t, err, cartstore.ErrNotFound, "item already submitted")

	require.NoError(t, repo.Delete(ctx, userID, b.ID))
	pending, err = repo.ListPending(ctx, userID)
	require.NoError(t, err)
	require.Empty(t, pending)

	owner, err := repo.Decline(ctx, reqs[0].ID, "dates unavailable")
	require.NoError(t, err)
	require.Equal(t, userID, owner)

	_, err = repo.Accept(ctx, reqs[0].ID, booking.BookingDetails{Status: "accepted"})
	require.ErrorIs(t, err, cartstore.ErrNotFound)

	accepted, err := repo.ListAccepted(ctx, userID)
	require.NoError(t, err)
	require.Empty(t, accepted)

	all, err := repo.ListRequests(ctx, userID)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, cartstore.StatusDeclined, all[0].Status)
	require.Equal(t, "dates unavailable", all[0].DeclineReason)
	require.True(t, quote.Total.Equal(all[0].Quote.Total))
}
