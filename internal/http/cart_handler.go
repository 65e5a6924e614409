package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/evenlyo/booking-service-go/internal/booking"
	"github.com/evenlyo/booking-service-go/internal/cartstore"
	"github.com/evenlyo/booking-service-go/internal/catalog"
	"github.com/evenlyo/booking-service-go/internal/mapping"
	"github.com/evenlyo/booking-service-go/internal/middleware"
	"github.com/evenlyo/booking-service-go/internal/session"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// CartService is the part of session.Service the HTTP layer drives.
type CartService interface {
	State(ctx context.Context, userID string) (booking.State, error)
	Refresh(ctx context.Context, userID string) (booking.State, error)
	AddListing(ctx context.Context, userID, listingID string, details booking.TempDetails) (booking.CartItem, error)
	UpdateDetails(ctx context.Context, userID, itemID string, details booking.TempDetails) (booking.State, error)
	RemoveItem(ctx context.Context, userID, itemID string) (booking.State, error)
	ToggleSelection(ctx context.Context, userID, itemID string) (booking.State, error)
	SelectAllEligible(ctx context.Context, userID string) (booking.State, error)
	ClearSelection(ctx context.Context, userID string) (booking.State, error)
	Summary(ctx context.Context, userID string, view booking.View) (booking.OrderSummary, error)
	QuoteItem(ctx context.Context, userID, itemID string) (booking.PricingBreakdown, error)
	QuoteListing(ctx context.Context, listingID string, dates []time.Time, times booking.TimeRange) (booking.PricingBreakdown, error)
	Submit(ctx context.Context, userID string) (session.SubmitResult, error)
	Requests(ctx context.Context, userID string) ([]cartstore.Request, error)
}

type CartHandler struct {
	svc     CartService
	logger  *zap.Logger
	timeout time.Duration
}

func NewCartHandler(svc CartService, logger *zap.Logger, timeout time.Duration) *CartHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CartHandler{svc: svc, logger: logger, timeout: timeout}
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	st, err := h.svc.State(ctx, userID)
	if err != nil {
		h.fail(w, r, err, "failed to load cart")
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(userID, st))
}

func (h *CartHandler) RefreshCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	st, err := h.svc.Refresh(ctx, userID)
	if err != nil {
		h.fail(w, r, err, "failed to refresh cart")
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(userID, st))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var body addItemRequest
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json")
		return
	}
	body.ListingID = strings.TrimSpace(body.ListingID)
	if body.ListingID == "" {
		writeError(w, r, http.StatusBadRequest, "missing listingId")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	item, err := h.svc.AddListing(ctx, userID, body.ListingID, mapping.TempDetailsFromWire(body.TempDetails))
	if err != nil {
		h.fail(w, r, err, "failed to add listing")
		return
	}
	st, err := h.svc.State(ctx, userID)
	if err != nil {
		h.fail(w, r, err, "failed to load cart")
		return
	}
	writeJSON(w, http.StatusCreated, toItemResponse(item, st))
}

func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	itemID := chi.URLParam(r, "itemId")

	var body updateItemRequest
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	st, err := h.svc.UpdateDetails(ctx, userID, itemID, mapping.TempDetailsFromWire(body.TempDetails))
	if err != nil {
		h.fail(w, r, err, "failed to update item")
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(userID, st))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	h.itemAction(w, r, "failed to remove item", h.svc.RemoveItem)
}

func (h *CartHandler) ToggleItem(w http.ResponseWriter, r *http.Request) {
	h.itemAction(w, r, "failed to toggle selection", h.svc.ToggleSelection)
}

func (h *CartHandler) SelectAll(w http.ResponseWriter, r *http.Request) {
	h.cartAction(w, r, "failed to select items", h.svc.SelectAllEligible)
}

func (h *CartHandler) ClearSelection(w http.ResponseWriter, r *http.Request) {
	h.cartAction(w, r, "failed to clear selection", h.svc.ClearSelection)
}

func (h *CartHandler) QuoteItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	q, err := h.svc.QuoteItem(ctx, userID, chi.URLParam(r, "itemId"))
	if err != nil {
		h.fail(w, r, err, "failed to quote item")
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *CartHandler) Summary(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	view, err := booking.ParseView(r.URL.Query().Get("view"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "view must be pending or accepted")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sum, err := h.svc.Summary(ctx, userID, view)
	if err != nil {
		h.fail(w, r, err, "failed to summarize cart")
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *CartHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	res, err := h.svc.Submit(ctx, userID)
	if err != nil {
		h.fail(w, r, err, "failed to submit booking requests")
		return
	}
	writeJSON(w, http.StatusCreated, submitResponse{
		Requests: toRequestResponses(res.Requests),
		Cart:     toCartResponse(userID, res.State),
	})
}

func (h *CartHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	reqs, err := h.svc.Requests(ctx, userID)
	if err != nil {
		h.fail(w, r, err, "failed to load booking requests")
		return
	}
	writeJSON(w, http.StatusOK, toRequestResponses(reqs))
}

func (h *CartHandler) QuoteListing(w http.ResponseWriter, r *http.Request) {
	listingID := strings.TrimSpace(chi.URLParam(r, "listingId"))
	if listingID == "" {
		writeError(w, r, http.StatusBadRequest, "missing listingId")
		return
	}

	var body quoteListingRequest
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json")
		return
	}
	dates := make([]time.Time, 0, len(body.Dates))
	for _, d := range body.Dates {
		t, err := time.Parse(dateLayout, strings.TrimSpace(d))
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "dates must be YYYY-MM-DD")
			return
		}
		dates = append(dates, t)
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	q, err := h.svc.QuoteListing(ctx, listingID, dates, booking.TimeRange{Start: body.StartTime, End: body.EndTime})
	if err != nil {
		h.fail(w, r, err, "failed to quote listing")
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *CartHandler) itemAction(w http.ResponseWriter, r *http.Request, msg string, fn func(ctx context.Context, userID, itemID string) (booking.State, error)) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	st, err := fn(ctx, userID, chi.URLParam(r, "itemId"))
	if err != nil {
		h.fail(w, r, err, msg)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(userID, st))
}

func (h *CartHandler) cartAction(w http.ResponseWriter, r *http.Request, msg string, fn func(ctx context.Context, userID string) (booking.State, error)) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	st, err := fn(ctx, userID)
	if err != nil {
		h.fail(w, r, err, msg)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(userID, st))
}

func (h *CartHandler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := strings.TrimSpace(chi.URLParam(r, "userId"))
	if userID == "" {
		writeError(w, r, http.StatusBadRequest, "missing userId")
		return "", false
	}
	return userID, true
}

// fail maps service errors to a status. Unknown errors are logged and reported
// with fallback as the message.
func (h *CartHandler) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError || status == http.StatusBadGateway {
		h.logger.Error(fallback,
			zap.Error(err),
			zap.String("path", r.URL.Path),
			zap.String("correlationId", middleware.GetCorrelationID(r.Context())),
		)
	}
	if msg == "" {
		msg = fallback
	}
	writeError(w, r, status, msg)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, booking.ErrItemNotFound):
		return http.StatusNotFound, "cart item not found"
	case errors.Is(err, catalog.ErrListingNotFound):
		return http.StatusNotFound, "listing not found"
	case errors.Is(err, session.ErrNothingSelected):
		return http.StatusConflict, "select at least one pending item"
	case errors.Is(err, session.ErrIncompleteSelection):
		return http.StatusConflict, "selected items are missing booking details"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out"
	case errors.Is(err, catalog.ErrUpstream), errors.Is(err, mapping.ErrInvalidListing):
		return http.StatusBadGateway, "listings service unavailable"
	default:
		return http.StatusInternalServerError, ""
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, map[string]string{
		"error":         msg,
		"correlationId": middleware.GetCorrelationID(r.Context()),
	})
}
