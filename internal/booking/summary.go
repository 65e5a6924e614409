package booking

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type View string

const (
	ViewPending  View = "pending"
	ViewAccepted View = "accepted"
)

func ParseView(s string) (View, error) {
	switch View(s) {
	case "", ViewPending:
		return ViewPending, nil
	case ViewAccepted:
		return ViewAccepted, nil
	default:
		return "", fmt.Errorf("booking: unknown view %q", s)
	}
}

// FeePolicy drives the at-a-glance order summary. It is unrelated to
// SystemFeeRate, which applies to authoritative quotes.
type FeePolicy struct {
	ServiceChargeRate    decimal.Decimal
	AcceptedSecurityFee  decimal.Decimal
	AcceptedKilometerFee decimal.Decimal
	AssumedHours         decimal.Decimal
	FallbackPrice        decimal.Decimal
}

func DefaultFeePolicy() FeePolicy {
	return FeePolicy{
		ServiceChargeRate:    decimal.RequireFromString("0.10"),
		AcceptedSecurityFee:  decimal.NewFromInt(25),
		AcceptedKilometerFee: decimal.NewFromInt(5),
		AssumedHours:         decimal.NewFromInt(8),
		FallbackPrice:        decimal.NewFromInt(300),
	}
}

type SummaryLine struct {
	ItemID       string          `json:"itemId"`
	Title        string          `json:"title"`
	DisplayPrice decimal.Decimal `json:"displayPrice"`
	Currency     string          `json:"currency"`
	// Estimated marks the flat fallback price used when the schedule has no rate.
	Estimated bool `json:"estimated"`
}

type OrderSummary struct {
	View           View            `json:"view"`
	Lines          []SummaryLine   `json:"lines"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	SecurityFee    decimal.Decimal `json:"securityFee"`
	KilometerFee   decimal.Decimal `json:"kilometerFee"`
	ServiceCharges decimal.Decimal `json:"serviceCharges"`
	Total          decimal.Decimal `json:"total"`
	Currency       string          `json:"currency"`
}

// Summarize totals the selected items of view. Pending items must also be
// complete; accepted items are always priced.
func Summarize(state State, view View, policy FeePolicy) OrderSummary {
	var working []CartItem
	switch view {
	case ViewAccepted:
		for _, it := range state.AcceptedItems {
			if state.IsSelected(it.ID) {
				working = append(working, it)
			}
		}
	default:
		view = ViewPending
		for _, it := range state.Items {
			if state.IsSelected(it.ID) && IsComplete(it) {
				working = append(working, it)
			}
		}
	}

	out := OrderSummary{
		View:         view,
		Lines:        make([]SummaryLine, 0, len(working)),
		Subtotal:     decimal.Zero,
		SecurityFee:  decimal.Zero,
		KilometerFee: decimal.Zero,
	}
	currencies := make(map[string]struct{})
	for _, it := range working {
		price, estimated := displayPrice(it.Pricing, policy)
		out.Lines = append(out.Lines, SummaryLine{
			ItemID:       it.ID,
			Title:        it.Listing.Title,
			DisplayPrice: price,
			Currency:     it.Pricing.Currency,
			Estimated:    estimated,
		})
		out.Subtotal = out.Subtotal.Add(price)
		currencies[it.Pricing.Currency] = struct{}{}
	}
	if len(currencies) == 1 {
		for c := range currencies {
			out.Currency = c
		}
	}

	if view == ViewAccepted {
		out.SecurityFee = policy.AcceptedSecurityFee
		out.KilometerFee = policy.AcceptedKilometerFee
	}
	out.ServiceCharges = out.Subtotal.Mul(policy.ServiceChargeRate).Round(0)
	out.Total = out.Subtotal.Add(out.SecurityFee).Add(out.KilometerFee).Add(out.ServiceCharges)
	return out
}

func displayPrice(s PricingSchedule, policy FeePolicy) (decimal.Decimal, bool) {
	switch {
	case s.PerEvent.Valid:
		return s.PerEvent.Decimal, false
	case s.PerHour.Valid:
		return s.PerHour.Decimal.Mul(policy.AssumedHours), false
	case s.PerDay.Valid:
		return s.PerDay.Decimal, false
	default:
		return policy.FallbackPrice, true
	}
}
