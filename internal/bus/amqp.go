package bus

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Publisher publishes envelopes to a topic. The retry and notification
// services depend on this interface rather than on the AMQP producer so
// that tests can capture what would hit the wire.
type Publisher interface {
	Publish(ctx context.Context, topic string, env *Envelope) error
}

// HandlerFunc processes one decoded envelope. Errors are terminal for the
// delivery; rescheduling happens inside the handler via the retry service.
type HandlerFunc func(ctx context.Context, env *Envelope) error

// Conn wraps an AMQP connection with the topic exchange the bridge uses.
type Conn struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	log      zerolog.Logger
}

// Dial connects to the broker and declares the topic exchange (idempotent).
func Dial(url, exchange string, log zerolog.Logger) (*Conn, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &Conn{
		conn:     conn,
		ch:       ch,
		exchange: exchange,
		log:      log.With().Str("component", "bus").Logger(),
	}, nil
}

// Close tears down the channel and connection.
func (c *Conn) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Publish sends an envelope to the topic. Messages are persistent; the
// at-least-once contract relies on the broker holding them across restarts.
func (c *Conn) Publish(ctx context.Context, topic string, env *Envelope) error {
	body, err := env.Marshal()
	if err != nil {
		return err
	}
	err = c.ch.PublishWithContext(ctx, c.exchange, topic, false, false, amqp.Publishing{
		ContentType:  MimeJSON,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Consume binds a durable queue to the topic and feeds deliveries to the
// handler until the context is cancelled. Each delivery is acked after the
// handler returns; a handler error nacks without requeue (the retry service
// has already republished anything worth keeping).
func (c *Conn) Consume(ctx context.Context, topic, queue string, handle HandlerFunc) error {
	q, err := c.ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}
	if err := c.ch.QueueBind(q.Name, topic, c.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s to %s: %w", q.Name, topic, err)
	}
	deliveries, err := c.ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", q.Name, err)
	}

	c.log.Info().Str("queue", q.Name).Str("topic", topic).Msg("consuming")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed for %s", q.Name)
			}
			env, err := ParseEnvelope(d.Body)
			if err != nil {
				c.log.Warn().Err(err).Msg("dropping malformed envelope")
				_ = d.Nack(false, false)
				continue
			}
			if err := handle(ctx, env); err != nil {
				c.log.Error().Err(err).Str("topic", env.Topic).Msg("handler failed")
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}
