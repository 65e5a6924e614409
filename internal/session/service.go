// Package session hosts one booking cart per user on top of the cart store,
// the listings API and the event publisher.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/evenlyo/booking-service-go/internal/booking"
	"github.com/evenlyo/booking-service-go/internal/cartstore"
	"github.com/evenlyo/booking-service-go/internal/events"
	"github.com/evenlyo/booking-service-go/internal/middleware"
	"go.uber.org/zap"
)

var (
	ErrNothingSelected     = errors.New("session: no pending items selected")
	ErrIncompleteSelection = errors.New("session: selected items are missing booking details")
)

type ListingFetcher interface {
	FetchListing(ctx context.Context, id string) (booking.ListingRef, booking.PricingSchedule, error)
}

type BookingPublisher interface {
	PublishBookingRequested(ctx context.Context, meta events.EventMeta, reqs []cartstore.Request) error
}

type Options struct {
	Store     cartstore.Repository
	Listings  ListingFetcher
	Publisher BookingPublisher // nil disables publishing
	Policy    booking.FeePolicy
	Logger    *zap.Logger
}

type Service struct {
	store     cartstore.Repository
	listings  ListingFetcher
	publisher BookingPublisher
	policy    booking.FeePolicy
	logger    *zap.Logger

	mu    sync.Mutex
	carts map[string]*userCart
}

// userCart serialises every transition of one user's cart.
type userCart struct {
	mu     sync.Mutex
	cart   *booking.Cart
	loaded bool
}

func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     opts.Store,
		listings:  opts.Listings,
		publisher: opts.Publisher,
		policy:    opts.Policy,
		logger:    logger,
		carts:     make(map[string]*userCart),
	}
}

func (s *Service) cartFor(userID string) *userCart {
	s.mu.Lock()
	defer s.mu.Unlock()
	uc, ok := s.carts[userID]
	if !ok {
		uc = &userCart{cart: booking.NewCart()}
		s.carts[userID] = uc
	}
	return uc
}

func (s *Service) loadedCart(userID string) (*userCart, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	uc, ok := s.carts[userID]
	return uc, ok
}

// withCart runs fn holding the user's lock, hydrating the cart first if needed.
func (s *Service) withCart(ctx context.Context, userID string, fn func(uc *userCart) error) error {
	uc := s.cartFor(userID)
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if !uc.loaded {
		if err := s.refreshLocked(ctx, userID, uc); err != nil {
			return err
		}
	}
	return fn(uc)
}

func (s *Service) refreshLocked(ctx context.Context, userID string, uc *userCart) error {
	uc.cart.SetLoading(true)

	pending, err := s.store.ListPending(ctx, userID)
	if err != nil {
		uc.cart.SetError("could not load cart")
		uc.cart.SetLoading(false)
		return fmt.Errorf("load pending items: %w", err)
	}
	accepted, err := s.store.ListAccepted(ctx, userID)
	if err != nil {
		uc.cart.SetError("could not load accepted bookings")
		uc.cart.SetLoading(false)
		return fmt.Errorf("load accepted items: %w", err)
	}

	uc.cart.SetItems(pending)
	uc.cart.SetAcceptedItems(accepted)
	uc.loaded = true
	return nil
}

func (s *Service) State(ctx context.Context, userID string) (booking.State, error) {
	var st booking.State
	err := s.withCart(ctx, userID, func(uc *userCart) error {
		st = uc.cart.Snapshot()
		return nil
	})
	if err != nil {
		return s.snapshot(userID), err
	}
	return st, nil
}

func (s *Service) Refresh(ctx context.Context, userID string) (booking.State, error) {
	uc := s.cartFor(userID)
	uc.mu.Lock()
	defer uc.mu.Unlock()

	err := s.refreshLocked(ctx, userID, uc)
	return uc.cart.Snapshot(), err
}

func (s *Service) snapshot(userID string) booking.State {
	uc := s.cartFor(userID)
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.cart.Snapshot()
}

// AddListing snapshots the listing into the user's cart.
func (s *Service) AddListing(ctx context.Context, userID, listingID string, details booking.TempDetails) (booking.CartItem, error) {
	listing, pricing, err := s.listings.FetchListing(ctx, listingID)
	if err != nil {
		return booking.CartItem{}, err
	}

	var item booking.CartItem
	err = s.withCart(ctx, userID, func(uc *userCart) error {
		item, err = s.store.Add(ctx, userID, cartstore.NewItem{
			Listing:     listing,
			Pricing:     pricing,
			TempDetails: details,
		})
		if err != nil {
			return err
		}
		return s.refreshLocked(ctx, userID, uc)
	})
	if err != nil {
		return booking.CartItem{}, err
	}

	s.logger.Info("listing added to cart",
		zap.String("userId", userID),
		zap.String("listingId", listing.ID),
		zap.String("itemId", item.ID),
	)
	return item, nil
}

// UpdateDetails replaces the booking intent of a pending item as a whole.
func (s *Service) UpdateDetails(ctx context.Context, userID, itemID string, details booking.TempDetails) (booking.State, error) {
	var st booking.State
	err := s.withCart(ctx, userID, func(uc *userCart) error {
		if err := s.store.UpdateTempDetails(ctx, userID, itemID, details); err != nil {
			if errors.Is(err, cartstore.ErrNotFound) {
				return booking.ErrItemNotFound
			}
			return err
		}
		if err := uc.cart.UpdateItem(itemID, booking.ItemPatch{TempDetails: &details}); err != nil {
			// stored but not in memory yet
			if err := s.refreshLocked(ctx, userID, uc); err != nil {
				return err
			}
		}
		st = uc.cart.Snapshot()
		return nil
	})
	return st, err
}

func (s *Service) RemoveItem(ctx context.Context, userID, itemID string) (booking.State, error) {
	var st booking.State
	err := s.withCart(ctx, userID, func(uc *userCart) error {
		if err := s.store.Delete(ctx, userID, itemID); err != nil {
			if errors.Is(err, cartstore.ErrNotFound) {
				return booking.ErrItemNotFound
			}
			return err
		}
		uc.cart.RemoveItem(itemID)
		st = uc.cart.Snapshot()
		return nil
	})
	return st, err
}

func (s *Service) ToggleSelection(ctx context.Context, userID, itemID string) (booking.State, error) {
	return s.mutate(ctx, userID, func(c *booking.Cart) error {
		return c.ToggleSelection(itemID)
	})
}

func (s *Service) SelectAllEligible(ctx context.Context, userID string) (booking.State, error) {
	return s.mutate(ctx, userID, func(c *booking.Cart) error {
		c.SelectAllEligible()
		return nil
	})
}

func (s *Service) ClearSelection(ctx context.Context, userID string) (booking.State, error) {
	return s.mutate(ctx, userID, func(c *booking.Cart) error {
		c.ClearSelection()
		return nil
	})
}

func (s *Service) mutate(ctx context.Context, userID string, fn func(c *booking.Cart) error) (booking.State, error) {
	var st booking.State
	err := s.withCart(ctx, userID, func(uc *userCart) error {
		if err := fn(uc.cart); err != nil {
			return err
		}
		st = uc.cart.Snapshot()
		return nil
	})
	return st, err
}

func (s *Service) Summary(ctx context.Context, userID string, view booking.View) (booking.OrderSummary, error) {
	st, err := s.State(ctx, userID)
	if err != nil {
		return booking.OrderSummary{}, err
	}
	return booking.Summarize(st, view, s.policy), nil
}

// QuoteItem prices a pending or accepted item from its stored details.
func (s *Service) QuoteItem(ctx context.Context, userID, itemID string) (booking.PricingBreakdown, error) {
	st, err := s.State(ctx, userID)
	if err != nil {
		return booking.PricingBreakdown{}, err
	}
	for _, list := range [][]booking.CartItem{st.Items, st.AcceptedItems} {
		for _, it := range list {
			if it.ID == itemID {
				return booking.QuoteItem(it), nil
			}
		}
	}
	return booking.PricingBreakdown{}, booking.ErrItemNotFound
}

// QuoteListing prices a listing before it is added to any cart.
func (s *Service) QuoteListing(ctx context.Context, listingID string, dates []time.Time, times booking.TimeRange) (booking.PricingBreakdown, error) {
	_, pricing, err := s.listings.FetchListing(ctx, listingID)
	if err != nil {
		return booking.PricingBreakdown{}, err
	}
	return booking.ComputePricing(pricing, dates, times), nil
}

type SubmitResult struct {
	Requests []cartstore.Request `json:"requests"`
	State    booking.State       `json:"state"`
}

// Submit turns the selected pending items into booking requests. Every
// selected pending item must be complete.
func (s *Service) Submit(ctx context.Context, userID string) (SubmitResult, error) {
	var res SubmitResult
	err := s.withCart(ctx, userID, func(uc *userCart) error {
		selected := uc.cart.SelectedItems()
		if len(selected) == 0 {
			return ErrNothingSelected
		}
		if !uc.cart.CanSubmit() {
			return ErrIncompleteSelection
		}

		items := make([]cartstore.SubmittedItem, 0, len(selected))
		for _, it := range selected {
			items = append(items, cartstore.SubmittedItem{Item: it, Quote: booking.QuoteItem(it)})
		}

		reqs, err := s.store.SubmitRequests(ctx, userID, items)
		if err != nil {
			if errors.Is(err, cartstore.ErrNotFound) {
				// cart changed underneath us; resync before reporting
				_ = s.refreshLocked(ctx, userID, uc)
				return booking.ErrItemNotFound
			}
			return err
		}

		s.publishRequested(ctx, userID, reqs)

		uc.cart.ClearSelection()
		if err := s.refreshLocked(ctx, userID, uc); err != nil {
			return err
		}
		res = SubmitResult{Requests: reqs, State: uc.cart.Snapshot()}
		return nil
	})
	return res, err
}

func (s *Service) publishRequested(ctx context.Context, userID string, reqs []cartstore.Request) {
	if s.publisher == nil {
		return
	}
	meta := events.EventMeta{
		CorrelationID: middleware.GetCorrelationID(ctx),
		PartitionKey:  userID,
	}
	// TODO: publish through an outbox table so a broker outage cannot drop committed requests.
	if err := s.publisher.PublishBookingRequested(ctx, meta, reqs); err != nil {
		s.logger.Error("publish booking requested",
			zap.Error(err),
			zap.String("userId", userID),
			zap.Int("requests", len(reqs)),
		)
	}
}

// ApplyAccepted records a vendor acceptance and refreshes the owner's cart
// when it is held in memory.
func (s *Service) ApplyAccepted(ctx context.Context, requestID string, details booking.BookingDetails) error {
	userID, err := s.store.Accept(ctx, requestID, details)
	if err != nil {
		return fmt.Errorf("accept request %s: %w", requestID, err)
	}
	s.logger.Info("booking accepted", zap.String("requestId", requestID), zap.String("userId", userID))
	return s.refreshIfLoaded(ctx, userID)
}

func (s *Service) ApplyDeclined(ctx context.Context, requestID, reason string) error {
	userID, err := s.store.Decline(ctx, requestID, reason)
	if err != nil {
		return fmt.Errorf("decline request %s: %w", requestID, err)
	}
	s.logger.Info("booking declined", zap.String("requestId", requestID), zap.String("userId", userID))
	return s.refreshIfLoaded(ctx, userID)
}

func (s *Service) refreshIfLoaded(ctx context.Context, userID string) error {
	uc, ok := s.loadedCart(userID)
	if !ok {
		return nil
	}
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if !uc.loaded {
		return nil
	}
	return s.refreshLocked(ctx, userID, uc)
}

func (s *Service) Requests(ctx context.Context, userID string) ([]cartstore.Request, error) {
	return s.store.ListRequests(ctx, userID)
}
