package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/evenlyo/booking-service-go/internal/booking"
	"github.com/evenlyo/booking-service-go/internal/cartstore"
	"github.com/evenlyo/booking-service-go/internal/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Checkpoints tracks the last processed sequence per consumer and partition.
type Checkpoints interface {
	GetLastSequence(ctx context.Context, consumerName, partitionKey string) (int64, bool, error)
	UpsertLastSequence(ctx context.Context, consumerName, partitionKey string, newSeq int64) error
}

// BookingApplier records vendor decisions against submitted requests.
type BookingApplier interface {
	ApplyAccepted(ctx context.Context, requestID string, details booking.BookingDetails) error
	ApplyDeclined(ctx context.Context, requestID, reason string) error
}

// BookingAcceptedHandler applies BookingAccepted events. Redelivered or
// stale sequences are acked without effect.
func BookingAcceptedHandler(applier BookingApplier, checkpoints Checkpoints, logger *zap.Logger) HandlerFunc {
	consumerName := QueueName(BookingAcceptedRoutingKey)
	return func(ctx context.Context, body []byte) error {
		env, err := parseEnvelope(body)
		if err != nil {
			return err
		}
		if err := env.Validate(EventTypeBookingAccepted, 1); err != nil {
			return err
		}
		var payload BookingAcceptedPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal BookingAccepted payload: %w", err)
		}
		if payload.RequestID == "" {
			return fmt.Errorf("missing requestId")
		}

		return dedupe(ctx, checkpoints, consumerName, env, logger, func(ctx context.Context) error {
			return applier.ApplyAccepted(ctx, payload.RequestID, payload.Details())
		})
	}
}

func BookingDeclinedHandler(applier BookingApplier, checkpoints Checkpoints, logger *zap.Logger) HandlerFunc {
	consumerName := QueueName(BookingDeclinedRoutingKey)
	return func(ctx context.Context, body []byte) error {
		env, err := parseEnvelope(body)
		if err != nil {
			return err
		}
		if err := env.Validate(EventTypeBookingDeclined, 1); err != nil {
			return err
		}
		var payload BookingDeclinedPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal BookingDeclined payload: %w", err)
		}
		if payload.RequestID == "" {
			return fmt.Errorf("missing requestId")
		}

		return dedupe(ctx, checkpoints, consumerName, env, logger, func(ctx context.Context) error {
			return applier.ApplyDeclined(ctx, payload.RequestID, payload.Reason)
		})
	}
}

func dedupe(ctx context.Context, checkpoints Checkpoints, consumerName string, env EventEnvelope, logger *zap.Logger, apply func(context.Context) error) error {
	log := logger.With(
		zap.String("event", env.EventName),
		zap.String("eventId", env.EventID),
		zap.String("partitionKey", env.PartitionKey),
		zap.Int64("sequence", env.Sequence),
	)

	cid := env.CorrelationID
	if cid == "" {
		cid = uuid.NewString()
	}
	ctx = middleware.WithCorrelationID(ctx, cid)

	if env.Sequence != 0 {
		lastSeq, ok, err := checkpoints.GetLastSequence(ctx, consumerName, env.PartitionKey)
		if err != nil {
			return err
		}
		if ok {
			if env.Sequence <= lastSeq {
				log.Info("skip duplicate", zap.Int64("last", lastSeq))
				return nil
			}
			if env.Sequence > lastSeq+1 {
				log.Warn("sequence gap", zap.Int64("last", lastSeq))
			}
		}
	}

	if err := apply(ctx); err != nil {
		if !errors.Is(err, cartstore.ErrNotFound) {
			return err
		}
		// the request is gone or already decided the other way; nothing to retry
		log.Warn("booking request not applicable", zap.Error(err))
	}

	if env.Sequence != 0 {
		if err := checkpoints.UpsertLastSequence(ctx, consumerName, env.PartitionKey, env.Sequence); err != nil {
			return err
		}
	}
	log.Info("applied event")
	return nil
}
