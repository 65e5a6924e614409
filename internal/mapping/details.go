// Package mapping converts between wire payloads and the booking core types.
package mapping

import (
	"strings"

	"github.com/evenlyo/booking-service-go/internal/booking"
)

// unsetSentinel is the placeholder older clients store for missing details.
const unsetSentinel = "To be specified"

// NormalizeDetail returns nil for blank values and the legacy placeholder.
func NormalizeDetail(s string) *string {
	v := strings.TrimSpace(s)
	if v == "" || strings.EqualFold(v, unsetSentinel) {
		return nil
	}
	return &v
}

// TempDetailsDTO is the JSON shape of booking intent accepted and returned by
// the HTTP API. Cart rows store booking.TempDetails instead.
type TempDetailsDTO struct {
	EventDate         string `json:"eventDate,omitempty"`
	EndDate           string `json:"endDate,omitempty"`
	EventTime         string `json:"eventTime,omitempty"`
	EndTime           string `json:"endTime,omitempty"`
	EventLocation     string `json:"eventLocation,omitempty"`
	SpecialRequests   string `json:"specialRequests,omitempty"`
	GuestCount        *int   `json:"guestCount,omitempty"`
	EventType         string `json:"eventType,omitempty"`
	ContactPreference string `json:"contactPreference,omitempty"`
}

func TempDetailsFromWire(in TempDetailsDTO) booking.TempDetails {
	out := booking.TempDetails{
		EventDate:         NormalizeDetail(in.EventDate),
		EndDate:           NormalizeDetail(in.EndDate),
		EventTime:         NormalizeDetail(in.EventTime),
		EndTime:           NormalizeDetail(in.EndTime),
		EventLocation:     NormalizeDetail(in.EventLocation),
		SpecialRequests:   NormalizeDetail(in.SpecialRequests),
		EventType:         NormalizeDetail(in.EventType),
		ContactPreference: NormalizeDetail(in.ContactPreference),
	}
	if in.GuestCount != nil && *in.GuestCount > 0 {
		n := *in.GuestCount
		out.GuestCount = &n
	}
	return out
}

func TempDetailsToWire(in booking.TempDetails) TempDetailsDTO {
	out := TempDetailsDTO{
		EventDate:         deref(in.EventDate),
		EndDate:           deref(in.EndDate),
		EventTime:         deref(in.EventTime),
		EndTime:           deref(in.EndTime),
		EventLocation:     deref(in.EventLocation),
		SpecialRequests:   deref(in.SpecialRequests),
		EventType:         deref(in.EventType),
		ContactPreference: deref(in.ContactPreference),
	}
	if in.GuestCount != nil {
		n := *in.GuestCount
		out.GuestCount = &n
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
