package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/evenlyo/booking-service-go/internal/booking"
	"github.com/evenlyo/booking-service-go/internal/cartstore"
	"github.com/evenlyo/booking-service-go/internal/catalog"
	"github.com/evenlyo/booking-service-go/internal/config"
	"github.com/evenlyo/booking-service-go/internal/db"
	"github.com/evenlyo/booking-service-go/internal/dedup"
	"github.com/evenlyo/booking-service-go/internal/events"
	httpapi "github.com/evenlyo/booking-service-go/internal/http"
	"github.com/evenlyo/booking-service-go/internal/observability"
	"github.com/evenlyo/booking-service-go/internal/sequence"
	"github.com/evenlyo/booking-service-go/internal/session"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("booking-service stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- DB ---
	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.RunMigrations(cfg.DatabaseDSN, logger); err != nil {
			return fmt.Errorf("db migrate: %w", err)
		}
	}

	store := cartstore.NewPostgresRepository(pool)

	listings, err := catalog.NewClient(cfg.ListingsURL, &http.Client{Timeout: cfg.UpstreamTimeout}, cfg.DefaultCurrency, logger.Named("catalog"))
	if err != nil {
		return err
	}

	// --- AMQP ---
	var conn *amqp.Connection
	if cfg.PublishEvents || cfg.ConsumeEvents {
		conn, err = events.Dial(cfg.RabbitMQURL)
		if err != nil {
			return fmt.Errorf("rabbitmq connect: %w", err)
		}
		defer conn.Close()
	}

	opts := session.Options{
		Store:    store,
		Listings: listings,
		Policy:   booking.DefaultFeePolicy(),
		Logger:   logger.Named("session"),
	}
	if cfg.PublishEvents {
		publisher, err := events.NewPublisher(conn, sequence.NewRepository(pool), events.PublisherOptions{
			Producer: events.ServiceName,
			Logger:   logger.Named("publisher"),
		})
		if err != nil {
			return fmt.Errorf("create publisher: %w", err)
		}
		defer publisher.Close()
		opts.Publisher = publisher
	}
	svc := session.NewService(opts)

	if cfg.ConsumeEvents {
		checkpoints := dedup.NewRepository(pool)
		consumerLogger := logger.Named("consumer")
		consumers := map[string]events.HandlerFunc{
			events.BookingAcceptedRoutingKey: events.BookingAcceptedHandler(svc, checkpoints, consumerLogger),
			events.BookingDeclinedRoutingKey: events.BookingDeclinedHandler(svc, checkpoints, consumerLogger),
		}
		for rk, handler := range consumers {
			if err := events.StartConsumer(ctx, conn, rk, handler, consumerLogger); err != nil {
				return fmt.Errorf("start consumer %s: %w", rk, err)
			}
		}
	}

	// --- HTTP ---
	probes := []httpapi.HealthProbe{{Name: "postgres", Check: pool.Ping}}
	if conn != nil {
		probes = append(probes, httpapi.HealthProbe{Name: "rabbitmq", Check: func(context.Context) error {
			if conn.IsClosed() {
				return errors.New("connection closed")
			}
			return nil
		}})
	}
	router := httpapi.NewRouter(httpapi.Deps{
		Logger:           logger.Named("http"),
		Service:          svc,
		CORSAllowOrigins: cfg.CORSAllowOrigins,
		RequestTimeout:   cfg.RequestTimeout,
		HealthProbes:     probes,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown", zap.Error(err))
	}
	logger.Info("shutdown complete")
	return nil
}
