package booking

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SystemFeeRate is the platform fee charged on top of every booking quote.
var SystemFeeRate = decimal.RequireFromString("0.02")

const dateLayout = "2006-01-02"

var (
	minBillableHours = decimal.NewFromInt(1)
	minutesPerHour   = decimal.NewFromInt(60)
	hundred          = decimal.NewFromInt(100)
)

type RateApplied string

const (
	RateAppliedNone   RateApplied = ""
	RateAppliedHourly RateApplied = "hourlyRate"
	RateAppliedDaily  RateApplied = "dailyRate"
	RateAppliedEvent  RateApplied = "eventRate"
)

// TimeRange is a daily start/end in 24-hour HH:MM.
type TimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type PricingBreakdown struct {
	Days                    int             `json:"days"`
	DurationHours           decimal.Decimal `json:"durationHours"`
	RateApplied             RateApplied     `json:"rateApplied"`
	Subtotal                decimal.Decimal `json:"subtotal"`
	MultiDayDiscountApplied bool            `json:"multiDayDiscountApplied"`
	DiscountAmount          decimal.Decimal `json:"discountAmount"`
	SecurityFee             decimal.Decimal `json:"securityFee"`
	SystemFee               decimal.Decimal `json:"systemFee"`
	Total                   decimal.Decimal `json:"total"`
	Currency                string          `json:"currency"`
}

func zeroBreakdown(currency string) PricingBreakdown {
	return PricingBreakdown{
		DurationHours:  decimal.Zero,
		Subtotal:       decimal.Zero,
		DiscountAmount: decimal.Zero,
		SecurityFee:    decimal.Zero,
		SystemFee:      decimal.Zero,
		Total:          decimal.Zero,
		Currency:       currency,
	}
}

// ComputePricing quotes a booking of the given schedule over the span of dates
// (min to max, inclusive) for times on each day. It never fails: missing or
// malformed inputs degrade to zero amounts.
func ComputePricing(schedule PricingSchedule, dates []time.Time, times TimeRange) PricingBreakdown {
	out := zeroBreakdown(schedule.Currency)
	if len(dates) == 0 {
		return out
	}

	days := spanDays(dates)
	multiDay := days > 1
	hours := billableHours(times)

	out.Days = days
	out.DurationHours = hours

	daysDec := decimal.NewFromInt(int64(days))
	subtotal := decimal.Zero
	switch {
	case schedule.Type == RateDaily && schedule.PerDay.Valid:
		out.RateApplied = RateAppliedDaily
		subtotal = schedule.PerDay.Decimal.Mul(daysDec)
	case schedule.Type == RateHourly && schedule.PerHour.Valid:
		out.RateApplied = RateAppliedHourly
		subtotal = schedule.PerHour.Decimal.Mul(hours).Mul(daysDec)
	case schedule.Type == RatePerEvent && schedule.PerEvent.Valid:
		out.RateApplied = RateAppliedEvent
		if multiDay {
			subtotal = schedule.PerEvent.Decimal.Mul(daysDec)
		} else {
			subtotal = schedule.PerEvent.Decimal
		}
	}

	if d := schedule.MultiDayDiscount; multiDay && d != nil && d.Enabled && days >= d.MinDays {
		discount := subtotal.Mul(d.Percent).Div(hundred)
		subtotal = subtotal.Sub(discount)
		out.DiscountAmount = discount
		out.MultiDayDiscountApplied = true
	}

	out.Subtotal = subtotal
	out.SystemFee = subtotal.Mul(SystemFeeRate)
	if schedule.SecurityFee.Valid {
		out.SecurityFee = schedule.SecurityFee.Decimal
	}
	out.Total = out.Subtotal.Add(out.SystemFee).Add(out.SecurityFee)
	return out
}

// QuoteItem prices item from its own schedule and booking intent.
func QuoteItem(item CartItem) PricingBreakdown {
	return ComputePricing(item.Pricing, DatesFromDetails(item.TempDetails), TimeRangeFromDetails(item.TempDetails))
}

// DatesFromDetails returns the dates bounding the booking intent: the event
// date and, when later, the end date. Unparseable dates yield nil.
func DatesFromDetails(td TempDetails) []time.Time {
	start, ok := parseDate(td.EventDate)
	if !ok {
		return nil
	}
	dates := []time.Time{start}
	if end, ok := parseDate(td.EndDate); ok && end.After(start) {
		dates = append(dates, end)
	}
	return dates
}

func TimeRangeFromDetails(td TempDetails) TimeRange {
	var tr TimeRange
	if td.EventTime != nil {
		tr.Start = *td.EventTime
	}
	if td.EndTime != nil {
		tr.End = *td.EndTime
	}
	return tr
}

func parseDate(s *string) (time.Time, bool) {
	if s == nil {
		return time.Time{}, false
	}
	v := strings.TrimSpace(*s)
	if len(v) > len(dateLayout) {
		// accept full timestamps, keep the calendar date
		v = v[:len(dateLayout)]
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func spanDays(dates []time.Time) int {
	minDate, maxDate := calendarDate(dates[0]), calendarDate(dates[0])
	for _, d := range dates[1:] {
		cd := calendarDate(d)
		if cd.Before(minDate) {
			minDate = cd
		}
		if cd.After(maxDate) {
			maxDate = cd
		}
	}
	days := int(math.Ceil(maxDate.Sub(minDate).Hours()/24)) + 1
	if days < 1 {
		return 1
	}
	return days
}

func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func billableHours(tr TimeRange) decimal.Decimal {
	start, okStart := parseClock(tr.Start)
	end, okEnd := parseClock(tr.End)
	if !okStart || !okEnd {
		return minBillableHours
	}
	if end < start {
		end += 24 * 60
	}
	hours := decimal.NewFromInt(int64(end - start)).Div(minutesPerHour)
	if hours.LessThan(minBillableHours) {
		return minBillableHours
	}
	return hours
}

// parseClock returns minutes since midnight.
func parseClock(s string) (int, bool) {
	v := strings.TrimSpace(s)
	if v == "" {
		return 0, false
	}
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Hour()*60 + t.Minute(), true
		}
	}
	return 0, false
}
