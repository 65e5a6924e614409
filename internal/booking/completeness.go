package booking

import "strings"

// IsConfirmed reports whether a vendor has accepted the booking for item.
func IsConfirmed(item CartItem) bool {
	return item.BookingDetails != nil
}

// IsComplete reports whether item carries enough information to be booked.
// Confirmed items are always complete.
func IsComplete(item CartItem) bool {
	if IsConfirmed(item) {
		return true
	}
	td := item.TempDetails
	return isSet(td.EventDate) && isSet(td.EventTime) && isSet(td.EventLocation)
}

func isSet(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}
