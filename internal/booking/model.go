package booking

import (
	"time"

	"github.com/shopspring/decimal"
)

type RateType string

const (
	RateHourly   RateType = "hourly"
	RateDaily    RateType = "daily"
	RatePerEvent RateType = "per_event"
)

// ListingRef is the snapshot of the booked listing taken when it was added to the cart.
type ListingRef struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Image    string `json:"image,omitempty"`
	VendorID string `json:"vendorId"`
}

type MultiDayDiscount struct {
	Enabled bool            `json:"enabled"`
	Percent decimal.Decimal `json:"percent"`
	MinDays int             `json:"minDays"`
}

// PricingSchedule describes how a listing charges. Currency is required and is
// never defaulted here.
type PricingSchedule struct {
	Type             RateType            `json:"type"`
	PerHour          decimal.NullDecimal `json:"perHour"`
	PerDay           decimal.NullDecimal `json:"perDay"`
	PerEvent         decimal.NullDecimal `json:"perEvent"`
	Currency         string              `json:"currency"`
	MultiDayDiscount *MultiDayDiscount   `json:"multiDayDiscount,omitempty"`
	SecurityFee      decimal.NullDecimal `json:"securityFee"`
}

// TempDetails holds the user's booking intent. A nil field is unset.
type TempDetails struct {
	EventDate         *string `json:"eventDate,omitempty"`
	EndDate           *string `json:"endDate,omitempty"`
	EventTime         *string `json:"eventTime,omitempty"`
	EndTime           *string `json:"endTime,omitempty"`
	EventLocation     *string `json:"eventLocation,omitempty"`
	SpecialRequests   *string `json:"specialRequests,omitempty"`
	GuestCount        *int    `json:"guestCount,omitempty"`
	EventType         *string `json:"eventType,omitempty"`
	ContactPreference *string `json:"contactPreference,omitempty"`
}

// BookingDetails is attached once a vendor accepted the request.
type BookingDetails struct {
	Status         string          `json:"status"`
	PaymentStatus  string          `json:"paymentStatus"`
	ConfirmedTotal decimal.Decimal `json:"confirmedTotal"`
	Currency       string          `json:"currency"`
	AcceptedAt     time.Time       `json:"acceptedAt"`
}

type CartItem struct {
	ID             string          `json:"id"`
	Listing        ListingRef      `json:"listing"`
	Pricing        PricingSchedule `json:"pricing"`
	TempDetails    TempDetails     `json:"tempDetails"`
	BookingDetails *BookingDetails `json:"bookingDetails,omitempty"`
}

// ItemPatch is a shallow top-level update. Non-nil fields replace the item's
// field as a whole; TempDetails is never merged field by field.
type ItemPatch struct {
	Listing        *ListingRef
	Pricing        *PricingSchedule
	TempDetails    *TempDetails
	BookingDetails *BookingDetails
}

func (d TempDetails) clone() TempDetails {
	return TempDetails{
		EventDate:         cloneString(d.EventDate),
		EndDate:           cloneString(d.EndDate),
		EventTime:         cloneString(d.EventTime),
		EndTime:           cloneString(d.EndTime),
		EventLocation:     cloneString(d.EventLocation),
		SpecialRequests:   cloneString(d.SpecialRequests),
		GuestCount:        cloneInt(d.GuestCount),
		EventType:         cloneString(d.EventType),
		ContactPreference: cloneString(d.ContactPreference),
	}
}

func (it CartItem) clone() CartItem {
	out := it
	out.TempDetails = it.TempDetails.clone()
	if it.Pricing.MultiDayDiscount != nil {
		mdd := *it.Pricing.MultiDayDiscount
		out.Pricing.MultiDayDiscount = &mdd
	}
	if it.BookingDetails != nil {
		bd := *it.BookingDetails
		out.BookingDetails = &bd
	}
	return out
}

func cloneItems(items []CartItem) []CartItem {
	out := make([]CartItem, len(items))
	for i, it := range items {
		out[i] = it.clone()
	}
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneInt(n *int) *int {
	if n == nil {
		return nil
	}
	v := *n
	return &v
}

// StringPtr is a small helper for building TempDetails literals.
func StringPtr(s string) *string {
	return &s
}
