package cartstore

import (
	"time"

	"github.com/evenlyo/booking-service-go/internal/booking"
)

type Status string

const (
	StatusRequested Status = "requested"
	StatusAccepted  Status = "accepted"
	StatusDeclined  Status = "declined"
)

// NewItem is a listing snapshot about to be stored in a user's cart.
type NewItem struct {
	Listing     booking.ListingRef
	Pricing     booking.PricingSchedule
	TempDetails booking.TempDetails
}

// SubmittedItem is a pending cart item together with the quote it was
// submitted at.
type SubmittedItem struct {
	Item  booking.CartItem
	Quote booking.PricingBreakdown
}

// Request is a submitted booking request and its vendor decision.
type Request struct {
	ID             string                   `json:"id"`
	UserID         string                   `json:"userId"`
	CartItemID     string                   `json:"cartItemId"`
	Listing        booking.ListingRef       `json:"listing"`
	Pricing        booking.PricingSchedule  `json:"pricing"`
	TempDetails    booking.TempDetails      `json:"tempDetails"`
	Quote          booking.PricingBreakdown `json:"quote"`
	Status         Status                   `json:"status"`
	BookingDetails *booking.BookingDetails  `json:"bookingDetails,omitempty"`
	DeclineReason  string                   `json:"declineReason,omitempty"`
	CreatedAt      time.Time                `json:"createdAt"`
	UpdatedAt      time.Time                `json:"updatedAt"`
}
