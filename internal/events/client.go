package events

import (
	"context"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Publisher announces recorded transactions.
type Publisher interface {
	PublishTransactionRecorded(ctx context.Context, msg *TransactionRecorded) error
}

// Nop drops every event. Used when no broker is configured.
type Nop struct{}

func (Nop) PublishTransactionRecorded(context.Context, *TransactionRecorded) error { return nil }

// Client publishes and consumes events over a durable direct exchange.
type Client struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	queue    string
	log      zerolog.Logger
}

func NewClient(url, exchange, queue string, log zerolog.Logger) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	c := &Client{conn: conn, channel: ch, exchange: exchange, queue: queue, log: log}
	if err := c.setup(); err != nil {
		c.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}
	return c, nil
}

func (c *Client) setup() error {
	if err := c.channel.ExchangeDeclare(c.exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := c.channel.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := c.channel.QueueBind(c.queue, RoutingKey, c.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

func (c *Client) PublishTransactionRecorded(ctx context.Context, msg *TransactionRecorded) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = c.channel.PublishWithContext(ctx, c.exchange, RoutingKey, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    msg.EventID.String(),
		Timestamp:    msg.OccurredAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	c.log.Debug().Str("event_id", msg.EventID.String()).Int64("transaction_id", msg.Transaction.ID).Msg("published transaction.recorded")
	return nil
}

// Handler processes one event. Returning an error requeues the message.
type Handler func(ctx context.Context, msg *TransactionRecorded) error

// Consume delivers events to h until ctx is done. Malformed bodies are
// dropped, handler failures are requeued.
func (c *Client) Consume(ctx context.Context, h Handler) error {
	if err := c.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	deliveries, err := c.channel.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	c.log.Info().Str("queue", c.queue).Msg("consuming transaction.recorded")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			switch Dispatch(ctx, d.Body, h, c.log) {
			case Ack:
				_ = d.Ack(false)
			case Requeue:
				_ = d.Nack(false, true)
			case Drop:
				_ = d.Nack(false, false)
			}
		}
	}
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Outcome is what to tell the broker about a delivery.
type Outcome int

const (
	Ack Outcome = iota
	Requeue
	Drop
)

// Dispatch decodes body and runs h on it.
func Dispatch(ctx context.Context, body []byte, h Handler, log zerolog.Logger) Outcome {
	msg, err := TransactionRecordedFromJSON(body)
	if err != nil {
		log.Error().Err(err).Msg("dropping malformed event")
		return Drop
	}
	if err := h(ctx, msg); err != nil {
		log.Error().Err(err).Str("event_id", msg.EventID.String()).Msg("event handler failed, requeueing")
		return Requeue
	}
	return Ack
}
