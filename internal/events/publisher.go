package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/evenlyo/booking-service-go/internal/cartstore"
	"github.com/evenlyo/booking-service-go/internal/mapping"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const publishTimeout = 3 * time.Second

// Sequencer hands out per-partition sequence numbers.
type Sequencer interface {
	NextSequence(ctx context.Context, partitionKey string) (int64, error)
}

type Publisher struct {
	ch       Channel
	seq      Sequencer
	producer string
	logger   *zap.Logger
	now      func() time.Time
}

type PublisherOptions struct {
	Producer string
	Logger   *zap.Logger
}

// NewPublisher opens a channel on conn and declares the events exchange.
func NewPublisher(conn *amqp.Connection, seq Sequencer, opts PublisherOptions) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	return NewPublisherWithChannel(ch, seq, opts)
}

func NewPublisherWithChannel(ch Channel, seq Sequencer, opts PublisherOptions) (*Publisher, error) {
	if err := declareEventsExchange(ch); err != nil {
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}

	producer := opts.Producer
	if producer == "" {
		producer = "booking-service"
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Publisher{
		ch:       ch,
		seq:      seq,
		producer: producer,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

// PublishBookingRequested emits one BookingRequested event per request, in
// order, on the user's partition.
func (p *Publisher) PublishBookingRequested(ctx context.Context, meta EventMeta, reqs []cartstore.Request) error {
	for _, r := range reqs {
		occurredAt := p.now()
		seq, err := p.seq.NextSequence(ctx, meta.PartitionKey)
		if err != nil {
			return fmt.Errorf("reserve sequence: %w", err)
		}

		payload := BookingRequestedPayload{
			RequestID:   r.ID,
			UserID:      r.UserID,
			VendorID:    r.Listing.VendorID,
			ListingID:   r.Listing.ID,
			Title:       r.Listing.Title,
			TempDetails: mapping.TempDetailsToWire(r.TempDetails),
			Quote:       r.Quote,
			RequestedAt: r.CreatedAt,
		}
		env := newBookingRequestedEvent(meta, seq, p.producer, payload, occurredAt)
		body, err := json.Marshal(env)
		if err != nil {
			return fmt.Errorf("marshal BookingRequested envelope: %w", err)
		}
		if err := p.publishJSON(ctx, BookingRequestedRoutingKey, body); err != nil {
			return fmt.Errorf("publish BookingRequested %s: %w", r.ID, err)
		}
		p.logger.Info("published booking requested",
			zap.String("requestId", r.ID),
			zap.String("partitionKey", meta.PartitionKey),
			zap.Int64("sequence", seq),
		)
	}
	return nil
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

func newBookingRequestedEvent(meta EventMeta, seq int64, producer string, payload BookingRequestedPayload, occurredAt time.Time) BookingRequestedEvent {
	return BookingRequestedEvent{
		EventEnvelope: EventEnvelope{
			EventName:     EventTypeBookingRequested,
			EventVersion:  1,
			EventID:       uuid.NewString(),
			CorrelationID: meta.CorrelationID,
			CausationID:   meta.CausationID,
			Producer:      producer,
			PartitionKey:  meta.PartitionKey,
			Sequence:      seq,
			OccurredAt:    occurredAt,
			Schema:        bookingRequestedSchema,
		},
		Payload: payload,
	}
}
