package http

import (
	"time"

	"github.com/evenlyo/booking-service-go/internal/booking"
	"github.com/evenlyo/booking-service-go/internal/cartstore"
	"github.com/evenlyo/booking-service-go/internal/mapping"
)

type itemResponse struct {
	ID             string                  `json:"id"`
	Listing        booking.ListingRef      `json:"listing"`
	Pricing        booking.PricingSchedule `json:"pricing"`
	TempDetails    mapping.TempDetailsDTO  `json:"tempDetails"`
	BookingDetails *booking.BookingDetails `json:"bookingDetails,omitempty"`
	Selected       bool                    `json:"selected"`
	NeedsDetails   bool                    `json:"needsDetails"`
}

type cartResponse struct {
	UserID          string         `json:"userId"`
	Items           []itemResponse `json:"items"`
	AcceptedItems   []itemResponse `json:"acceptedItems"`
	SelectedItemIDs []string       `json:"selectedItemIds"`
	CanSubmit       bool           `json:"canSubmit"`
	Loading         bool           `json:"loading"`
	Error           string         `json:"error,omitempty"`
}

type requestResponse struct {
	ID             string                   `json:"id"`
	CartItemID     string                   `json:"cartItemId"`
	Listing        booking.ListingRef       `json:"listing"`
	TempDetails    mapping.TempDetailsDTO   `json:"tempDetails"`
	Quote          booking.PricingBreakdown `json:"quote"`
	Status         cartstore.Status         `json:"status"`
	BookingDetails *booking.BookingDetails  `json:"bookingDetails,omitempty"`
	DeclineReason  string                   `json:"declineReason,omitempty"`
	CreatedAt      time.Time                `json:"createdAt"`
	UpdatedAt      time.Time                `json:"updatedAt"`
}

type submitResponse struct {
	Requests []requestResponse `json:"requests"`
	Cart     cartResponse      `json:"cart"`
}

type addItemRequest struct {
	ListingID   string                 `json:"listingId"`
	TempDetails mapping.TempDetailsDTO `json:"tempDetails"`
}

type updateItemRequest struct {
	TempDetails mapping.TempDetailsDTO `json:"tempDetails"`
}

type quoteListingRequest struct {
	Dates     []string `json:"dates"`
	StartTime string   `json:"startTime"`
	EndTime   string   `json:"endTime"`
}

func toItemResponse(it booking.CartItem, st booking.State) itemResponse {
	return itemResponse{
		ID:             it.ID,
		Listing:        it.Listing,
		Pricing:        it.Pricing,
		TempDetails:    mapping.TempDetailsToWire(it.TempDetails),
		BookingDetails: it.BookingDetails,
		Selected:       st.IsSelected(it.ID),
		NeedsDetails:   !booking.IsComplete(it),
	}
}

func toCartResponse(userID string, st booking.State) cartResponse {
	out := cartResponse{
		UserID:          userID,
		Items:           make([]itemResponse, 0, len(st.Items)),
		AcceptedItems:   make([]itemResponse, 0, len(st.AcceptedItems)),
		SelectedItemIDs: st.SelectedItemIDs,
		Loading:         st.Loading,
		Error:           st.Error,
	}
	if out.SelectedItemIDs == nil {
		out.SelectedItemIDs = []string{}
	}

	for _, it := range st.Items {
		out.Items = append(out.Items, toItemResponse(it, st))
	}
	for _, it := range st.AcceptedItems {
		out.AcceptedItems = append(out.AcceptedItems, toItemResponse(it, st))
	}
	out.CanSubmit = st.CanSubmit()
	return out
}

func toRequestResponse(r cartstore.Request) requestResponse {
	return requestResponse{
		ID:             r.ID,
		CartItemID:     r.CartItemID,
		Listing:        r.Listing,
		TempDetails:    mapping.TempDetailsToWire(r.TempDetails),
		Quote:          r.Quote,
		Status:         r.Status,
		BookingDetails: r.BookingDetails,
		DeclineReason:  r.DeclineReason,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func toRequestResponses(reqs []cartstore.Request) []requestResponse {
	out := make([]requestResponse, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, toRequestResponse(r))
	}
	return out
}
