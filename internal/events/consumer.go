package events

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// HandlerFunc processes one message body. A returned error nacks the
// message without requeue.
type HandlerFunc func(ctx context.Context, body []byte) error

// StartConsumer declares and binds the service queue for routingKey and
// dispatches deliveries to handler until ctx is done.
func StartConsumer(ctx context.Context, conn *amqp.Connection, routingKey string, handler HandlerFunc, logger *zap.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}

	if err := declareEventsExchange(ch); err != nil {
		return fmt.Errorf("declare events exchange: %w", err)
	}

	queue := QueueName(routingKey)
	_, err = ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("queue declare %s: %w", queue, err)
	}
	if err := ch.QueueBind(queue, routingKey, EventsExchange, false, nil); err != nil {
		return fmt.Errorf("queue bind %s: %w", queue, err)
	}

	msgs, err := ch.Consume(
		queue,
		ServiceName, // consumer tag
		false,       // autoAck
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume %s: %w", queue, err)
	}

	go func() {
		defer ch.Close()
		consumeLoop(ctx, msgs, handler, logger.With(zap.String("queue", queue)))
	}()
	return nil
}

func consumeLoop(ctx context.Context, msgs <-chan amqp.Delivery, handler HandlerFunc, logger *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("stopping consumer")
			return
		case msg, ok := <-msgs:
			if !ok {
				logger.Warn("deliveries channel closed")
				return
			}

			if err := handler(ctx, msg.Body); err != nil {
				logger.Error("handle message", zap.Error(err), zap.String("messageId", msg.MessageId))
				_ = msg.Nack(false, false)
				continue
			}
			_ = msg.Ack(false)
		}
	}
}
