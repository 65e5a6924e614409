package events

import (
	"time"

	"github.com/evenlyo/booking-service-go/internal/booking"
	"github.com/evenlyo/booking-service-go/internal/mapping"
	"github.com/shopspring/decimal"
)

const (
	EventTypeBookingRequested = "BookingRequested"
	EventTypeBookingAccepted  = "BookingAccepted"
	EventTypeBookingDeclined  = "BookingDeclined"

	bookingRequestedSchema = "evenlyo.booking.requested.v1"
)

type BookingRequestedPayload struct {
	RequestID   string                   `json:"requestId"`
	UserID      string                   `json:"userId"`
	VendorID    string                   `json:"vendorId"`
	ListingID   string                   `json:"listingId"`
	Title       string                   `json:"title"`
	TempDetails mapping.TempDetailsDTO   `json:"tempDetails"`
	Quote       booking.PricingBreakdown `json:"quote"`
	RequestedAt time.Time                `json:"requestedAt"`
}

type BookingRequestedEvent struct {
	EventEnvelope
	Payload BookingRequestedPayload `json:"payload"`
}

type BookingAcceptedPayload struct {
	RequestID      string          `json:"requestId"`
	UserID         string          `json:"userId"`
	VendorID       string          `json:"vendorId"`
	PaymentStatus  string          `json:"paymentStatus"`
	ConfirmedTotal decimal.Decimal `json:"confirmedTotal"`
	Currency       string          `json:"currency"`
	AcceptedAt     time.Time       `json:"acceptedAt"`
}

type BookingDeclinedPayload struct {
	RequestID  string    `json:"requestId"`
	UserID     string    `json:"userId"`
	VendorID   string    `json:"vendorId"`
	Reason     string    `json:"reason"`
	DeclinedAt time.Time `json:"declinedAt"`
}

func (p BookingAcceptedPayload) Details() booking.BookingDetails {
	return booking.BookingDetails{
		Status:         "accepted",
		PaymentStatus:  p.PaymentStatus,
		ConfirmedTotal: p.ConfirmedTotal,
		Currency:       p.Currency,
		AcceptedAt:     p.AcceptedAt,
	}
}
