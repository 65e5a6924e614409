package mapping

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/evenlyo/booking-service-go/internal/booking"
	"github.com/shopspring/decimal"
)

var ErrInvalidListing = errors.New("mapping: invalid listing")

type object = map[string]any

// DecodeListing reads an upstream listing document. The upstream contract is
// loose: identifiers, titles and rates appear under several names, numbers may
// be strings, and titles may be localized objects. The pricing type is taken
// from pricing.type when recognised, otherwise inferred from the first rate
// present in the order perEvent, perHour, perDay. A missing currency becomes
// defaultCurrency.
func DecodeListing(raw []byte, defaultCurrency string) (booking.ListingRef, booking.PricingSchedule, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var doc object
	if err := dec.Decode(&doc); err != nil {
		return booking.ListingRef{}, booking.PricingSchedule{}, fmt.Errorf("%w: %v", ErrInvalidListing, err)
	}
	// some endpoints wrap the document
	if inner, ok := doc["data"].(object); ok {
		doc = inner
	} else if inner, ok := doc["listing"].(object); ok {
		doc = inner
	}

	ref := booking.ListingRef{
		ID:       firstString(doc, "_id", "id", "listingId"),
		Title:    firstText(doc, "title", "name", "serviceName"),
		Image:    listingImage(doc),
		VendorID: vendorID(doc),
	}
	if ref.ID == "" {
		return booking.ListingRef{}, booking.PricingSchedule{}, fmt.Errorf("%w: missing id", ErrInvalidListing)
	}

	pricing, _ := doc["pricing"].(object)
	if pricing == nil {
		pricing = object{}
	}
	return ref, decodePricing(pricing, defaultCurrency), nil
}

func decodePricing(p object, defaultCurrency string) booking.PricingSchedule {
	s := booking.PricingSchedule{
		PerHour:     firstNumber(p, "perHour", "hourlyRate"),
		PerDay:      firstNumber(p, "perDay", "dailyRate"),
		PerEvent:    firstNumber(p, "perEvent", "eventRate", "fixedPrice"),
		SecurityFee: firstNumber(p, "securityFee", "securityDeposit"),
		Currency:    strings.ToUpper(firstString(p, "currency")),
	}
	if s.Currency == "" {
		s.Currency = defaultCurrency
	}

	s.Type = rateType(firstString(p, "type"))
	if s.Type == "" {
		switch {
		case s.PerEvent.Valid:
			s.Type = booking.RatePerEvent
		case s.PerHour.Valid:
			s.Type = booking.RateHourly
		case s.PerDay.Valid:
			s.Type = booking.RateDaily
		}
	}

	if d, ok := p["multiDayDiscount"].(object); ok {
		percent := firstNumber(d, "percent", "percentage")
		minDays := firstNumber(d, "minDays")
		mdd := &booking.MultiDayDiscount{
			Enabled: truthy(d["enabled"]),
			Percent: percent.Decimal,
		}
		if minDays.Valid {
			mdd.MinDays = int(minDays.Decimal.IntPart())
		}
		s.MultiDayDiscount = mdd
	}
	return s
}

func rateType(v string) booking.RateType {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "hourly", "perhour", "per_hour", "hour":
		return booking.RateHourly
	case "daily", "perday", "per_day", "day":
		return booking.RateDaily
	case "per_event", "perevent", "event", "fixed":
		return booking.RatePerEvent
	default:
		return ""
	}
}

func listingImage(doc object) string {
	if s := firstString(doc, "image", "featuredImage"); s != "" {
		return s
	}
	if imgs, ok := doc["images"].([]any); ok && len(imgs) > 0 {
		switch v := imgs[0].(type) {
		case string:
			return v
		case object:
			return firstString(v, "url", "src")
		}
	}
	return ""
}

func vendorID(doc object) string {
	switch v := doc["vendor"].(type) {
	case string:
		return v
	case object:
		if id := firstString(v, "_id", "id"); id != "" {
			return id
		}
	}
	return firstString(doc, "vendorId", "userId")
}

func firstString(m object, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case json.Number:
			return v.String()
		}
	}
	return ""
}

// titleLanguages is the preferred order for localized titles. Other
// languages follow alphabetically.
var titleLanguages = []string{"en", "nl", "de", "fr"}

// firstText also accepts localized {"en": "...", "nl": "..."} values.
func firstText(m object, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case object:
			if s := firstString(v, titleLanguages...); s != "" {
				return s
			}
			langs := make([]string, 0, len(v))
			for lang := range v {
				langs = append(langs, lang)
			}
			sort.Strings(langs)
			if s := firstString(v, langs...); s != "" {
				return s
			}
		}
	}
	return ""
}

func firstNumber(m object, keys ...string) decimal.NullDecimal {
	for _, k := range keys {
		var (
			d   decimal.Decimal
			err error
		)
		switch v := m[k].(type) {
		case json.Number:
			d, err = decimal.NewFromString(v.String())
		case string:
			if strings.TrimSpace(v) == "" {
				continue
			}
			d, err = decimal.NewFromString(strings.TrimSpace(v))
		default:
			continue
		}
		if err == nil {
			return decimal.NewNullDecimal(d)
		}
	}
	return decimal.NullDecimal{}
}

func truthy(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return strings.EqualFold(b, "true")
	default:
		return false
	}
}
