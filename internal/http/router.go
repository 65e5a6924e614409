package http

import (
	"net/http"
	"time"

	"github.com/evenlyo/booking-service-go/internal/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Deps struct {
	Logger           *zap.Logger
	Service          CartService
	CORSAllowOrigins []string
	RequestTimeout   time.Duration
	HealthProbes     []HealthProbe
}

func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	// Middlewares (outer -> inner)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.CorrelationID)
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS(d.CORSAllowOrigins))

	health := &HealthHandler{Probes: d.HealthProbes}
	r.Get("/health", health.Service)
	r.Get("/health/dependencies", health.Dependencies)

	cart := NewCartHandler(d.Service, logger, d.RequestTimeout)
	r.Route("/api/cart/{userId}", func(r chi.Router) {
		r.Get("/", cart.GetCart)
		r.Post("/refresh", cart.RefreshCart)
		r.Post("/items", cart.AddItem)
		r.Put("/items/{itemId}", cart.UpdateItem)
		r.Delete("/items/{itemId}", cart.RemoveItem)
		r.Post("/items/{itemId}/toggle", cart.ToggleItem)
		r.Get("/items/{itemId}/quote", cart.QuoteItem)
		r.Post("/selection/all", cart.SelectAll)
		r.Delete("/selection", cart.ClearSelection)
		r.Get("/summary", cart.Summary)
		r.Post("/submit", cart.Submit)
	})
	r.Get("/api/bookings/{userId}", cart.ListRequests)
	r.Post("/api/listings/{listingId}/quote", cart.QuoteListing)

	return r
}
