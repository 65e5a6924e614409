package events

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	EventsExchange             = "evenlyo.events"
	BookingRequestedRoutingKey = "booking.requested.v1"
	BookingAcceptedRoutingKey  = "booking.accepted.v1"
	BookingDeclinedRoutingKey  = "booking.declined.v1"
	ServiceName                = "booking-service-go"
)

// Channel is the subset of *amqp.Channel used for publishing.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// QueueName is the durable queue this service binds for routingKey.
func QueueName(routingKey string) string {
	return ServiceName + "." + routingKey
}

func declareEventsExchange(ch Channel) error {
	return ch.ExchangeDeclare(
		EventsExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
}

func Dial(url string) (*amqp.Connection, error) {
	return amqp.Dial(url)
}
