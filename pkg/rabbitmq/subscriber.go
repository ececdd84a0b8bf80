package rabbitmq

import (
	"context"
	"errors"
	"fmt"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Subscriber receives every invalidation published on the fanout exchange
// through a queue of its own. The queue is exclusive and goes away with the
// connection, so a stopped instance leaves nothing behind.
type Subscriber struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	queue    string
	exchange string
	logger   *zap.Logger
}

func NewSubscriber(url, exchange string, logger *zap.Logger) (*Subscriber, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	fail := func(step string, err error) (*Subscriber, error) {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("%s: %w", step, err)
	}

	err = channel.ExchangeDeclare(
		exchange, // name
		"fanout", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return fail("declare exchange", err)
	}

	queue, err := channel.QueueDeclare(
		"",    // name, generated by the broker
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fail("declare queue", err)
	}

	err = channel.QueueBind(
		queue.Name, // queue name
		"",         // routing key, ignored by fanout
		exchange,   // exchange
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		return fail("bind queue", err)
	}

	logger.Info("AMQP subscriber ready",
		zap.String("exchange", exchange),
		zap.String("queue", queue.Name),
	)
	return &Subscriber{conn: conn, channel: channel, queue: queue.Name, exchange: exchange, logger: logger}, nil
}

// Consume hands each message to handler until ctx is done. Undecodable
// messages are dropped. A handler error is logged and the message dropped as
// well, since redelivering an invalidation cannot make it succeed.
func (s *Subscriber) Consume(ctx context.Context, handler func(context.Context, *InvalidationMessage) error) error {
	deliveries, err := s.channel.Consume(
		s.queue, // queue
		"",      // consumer
		false,   // auto-ack
		true,    // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	s.logger.Info("Started consuming invalidations", zap.String("queue", s.queue))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stopping invalidation consumer", zap.Error(ctx.Err()))
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("invalidation delivery channel closed")
			}
			s.handle(ctx, delivery, handler)
		}
	}
}

func (s *Subscriber) handle(ctx context.Context, delivery amqp091.Delivery, handler func(context.Context, *InvalidationMessage) error) {
	msg, err := InvalidationMessageFromJSON(delivery.Body)
	if err != nil {
		s.logger.Error("Failed to unmarshal invalidation", zap.Error(err))
		delivery.Nack(false, false)
		return
	}

	if err := handler(ctx, msg); err != nil {
		s.logger.Error("Failed to handle invalidation",
			zap.String("user_id", msg.UserID),
			zap.Error(err),
		)
		delivery.Nack(false, false)
		return
	}
	delivery.Ack(false)
}

func (s *Subscriber) Close() error {
	if s.channel != nil {
		s.channel.Close()
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
