package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/evenlyo/booking-service-go/internal/booking"
	"github.com/evenlyo/booking-service-go/internal/cartstore"
	"github.com/evenlyo/booking-service-go/internal/middleware"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeApplier struct {
	accepted   map[string]booking.BookingDetails
	declined   map[string]string
	err        error
	lastCID    string
	applyCalls int
}

func newFakeApplier() *fakeApplier {
	return &fakeApplier{accepted: map[string]booking.BookingDetails{}, declined: map[string]string{}}
}

func (f *fakeApplier) ApplyAccepted(ctx context.Context, requestID string, details booking.BookingDetails) error {
	f.applyCalls++
	f.lastCID = middleware.GetCorrelationID(ctx)
	if f.err != nil {
		return f.err
	}
	f.accepted[requestID] = details
	return nil
}

func (f *fakeApplier) ApplyDeclined(ctx context.Context, requestID, reason string) error {
	f.applyCalls++
	f.lastCID = middleware.GetCorrelationID(ctx)
	if f.err != nil {
		return f.err
	}
	f.declined[requestID] = reason
	return nil
}

type memCheckpoints struct {
	last map[string]int64
}

func newMemCheckpoints() *memCheckpoints {
	return &memCheckpoints{last: map[string]int64{}}
}

func (m *memCheckpoints) GetLastSequence(ctx context.Context, consumerName, partitionKey string) (int64, bool, error) {
	v, ok := m.last[consumerName+"|"+partitionKey]
	return v, ok, nil
}

func (m *memCheckpoints) UpsertLastSequence(ctx context.Context, consumerName, partitionKey string, newSeq int64) error {
	k := consumerName + "|" + partitionKey
	if newSeq > m.last[k] {
		m.last[k] = newSeq
	}
	return nil
}

func envelopeBody(t *testing.T, name string, seq int64, payload any) []byte {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	body, err := json.Marshal(EventEnvelope{
		EventName:     name,
		EventVersion:  1,
		EventID:       fmt.Sprintf("evt-%d", seq),
		CorrelationID: "cid-vendor",
		Producer:      "vendor-service",
		PartitionKey:  "user-1",
		Sequence:      seq,
		OccurredAt:    time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC),
		Payload:       raw,
	})
	require.NoError(t, err)
	return body
}

func acceptedPayload(requestID string) BookingAcceptedPayload {
	return BookingAcceptedPayload{
		RequestID:      requestID,
		UserID:         "user-1",
		VendorID:       "v-1",
		PaymentStatus:  "pending",
		ConfirmedTotal: decimal.NewFromInt(408),
		Currency:       "EUR",
		AcceptedAt:     time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC),
	}
}

func TestBookingAcceptedHandler(t *testing.T) {
	applier := newFakeApplier()
	cps := newMemCheckpoints()
	h := BookingAcceptedHandler(applier, cps, zap.NewNop())

	require.NoError(t, h(context.Background(), envelopeBody(t, EventTypeBookingAccepted, 1, acceptedPayload("req-1"))))

	details, ok := applier.accepted["req-1"]
	require.True(t, ok)
	assert.Equal(t, "accepted", details.Status)
	assert.True(t, decimal.NewFromInt(408).Equal(details.ConfirmedTotal))
	assert.Equal(t, "cid-vendor", applier.lastCID)
	assert.Equal(t, int64(1), cps.last[QueueName(BookingAcceptedRoutingKey)+"|user-1"])
}

func TestBookingAcceptedHandler_SkipsDuplicates(t *testing.T) {
	applier := newFakeApplier()
	h := BookingAcceptedHandler(applier, newMemCheckpoints(), zap.NewNop())
	body := envelopeBody(t, EventTypeBookingAccepted, 3, acceptedPayload("req-1"))

	require.NoError(t, h(context.Background(), body))
	require.NoError(t, h(context.Background(), body))

	assert.Equal(t, 1, applier.applyCalls)
}

func TestBookingAcceptedHandler_Rejects(t *testing.T) {
	h := BookingAcceptedHandler(newFakeApplier(), newMemCheckpoints(), zap.NewNop())

	tests := map[string][]byte{
		"malformed json":   []byte(`{`),
		"wrong event name": envelopeBody(t, EventTypeBookingDeclined, 1, acceptedPayload("req-1")),
		"missing request":  envelopeBody(t, EventTypeBookingAccepted, 1, acceptedPayload("")),
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, h(context.Background(), body))
		})
	}
}

func TestBookingAcceptedHandler_UnknownRequestIsAcked(t *testing.T) {
	applier := newFakeApplier()
	applier.err = fmt.Errorf("accept: %w", cartstore.ErrNotFound)
	cps := newMemCheckpoints()
	h := BookingAcceptedHandler(applier, cps, zap.NewNop())

	require.NoError(t, h(context.Background(), envelopeBody(t, EventTypeBookingAccepted, 2, acceptedPayload("req-x"))))
	assert.Equal(t, int64(2), cps.last[QueueName(BookingAcceptedRoutingKey)+"|user-1"])
}

func TestBookingAcceptedHandler_TransientErrorKeepsCheckpoint(t *testing.T) {
	applier := newFakeApplier()
	applier.err = errors.New("db down")
	cps := newMemCheckpoints()
	h := BookingAcceptedHandler(applier, cps, zap.NewNop())

	require.Error(t, h(context.Background(), envelopeBody(t, EventTypeBookingAccepted, 1, acceptedPayload("req-1"))))
	assert.Empty(t, cps.last)
}

func TestBookingDeclinedHandler(t *testing.T) {
	applier := newFakeApplier()
	h := BookingDeclinedHandler(applier, newMemCheckpoints(), zap.NewNop())

	body := envelopeBody(t, EventTypeBookingDeclined, 1, BookingDeclinedPayload{
		RequestID: "req-2",
		UserID:    "user-1",
		Reason:    "fully booked",
	})
	require.NoError(t, h(context.Background(), body))
	assert.Equal(t, "fully booked", applier.declined["req-2"])
}

type fakeAck struct {
	acked, nacked []uint64
}

func (f *fakeAck) Ack(tag uint64, multiple bool) error {
	f.acked = append(f.acked, tag)
	return nil
}

func (f *fakeAck) Nack(tag uint64, multiple, requeue bool) error {
	f.nacked = append(f.nacked, tag)
	return nil
}

func (f *fakeAck) Reject(tag uint64, requeue bool) error { return nil }

func TestConsumeLoop_AckAndNack(t *testing.T) {
	ack := &fakeAck{}
	msgs := make(chan amqp.Delivery, 2)
	msgs <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte("ok")}
	msgs <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 2, Body: []byte("bad")}
	close(msgs)

	handler := func(ctx context.Context, body []byte) error {
		if string(body) == "bad" {
			return errors.New("boom")
		}
		return nil
	}
	consumeLoop(context.Background(), msgs, handler, zap.NewNop())

	assert.Equal(t, []uint64{1}, ack.acked)
	assert.Equal(t, []uint64{2}, ack.nacked)
}
