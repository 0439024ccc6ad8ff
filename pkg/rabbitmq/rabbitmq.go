package rabbitmq

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	amqp "github.com/streadway/amqp"
)

const (
	// ExchangeName is the topic exchange blog events are published to.
	ExchangeName = "blog_events"
	// AuditQueue receives every event; the server consumes it for audit logging.
	AuditQueue = "blog_events_audit"
)

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	mu      sync.Mutex // amqp channels are not safe for concurrent publishing
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL string
}

// Event is the envelope every message carries.
type Event struct {
	Name       string          `json:"event"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// NewClient connects to RabbitMQ, opens a channel and declares the events
// exchange with its audit queue.
func NewClient(cfg Config) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareTopology(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	logrus.WithField("exchange", ExchangeName).Info("RabbitMQ client connected")

	return &Client{
		conn:    conn,
		channel: ch,
	}, nil
}

func declareTopology(ch *amqp.Channel) error {
	err := ch.ExchangeDeclare(
		ExchangeName, // name
		"topic",      // kind
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", ExchangeName, err)
	}

	_, err = ch.QueueDeclare(
		AuditQueue, // name
		true,       // durable
		false,      // delete when unused
		false,      // exclusive
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", AuditQueue, err)
	}

	if err := ch.QueueBind(AuditQueue, "#", ExchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", AuditQueue, err)
	}
	return nil
}

// Close closes the RabbitMQ channel and connection.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred during RabbitMQ client close: %v", errs)
	}
	return nil
}

// Publish sends payload wrapped in an Event envelope, routed by the event name.
func (c *Client) Publish(event string, payload any) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}

	body, err := Encode(event, payload, time.Now())
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	err = c.channel.Publish(
		ExchangeName, // exchange
		event,        // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", event, err)
	}

	logrus.WithField("event", event).Debug("event published")
	return nil
}

// Encode builds the JSON envelope for an event.
func Encode(event string, payload any, at time.Time) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", event, err)
	}
	body, err := json.Marshal(Event{Name: event, OccurredAt: at.UTC(), Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s envelope: %w", event, err)
	}
	return body, nil
}

// ConsumeEvents delivers messages from the audit queue to handler on a
// background goroutine. A handler error requeues the message once; a
// message that fails again after redelivery is dropped.
func (c *Client) ConsumeEvents(handler func(Event) error) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available for consumption")
	}

	msgs, err := c.channel.Consume(
		AuditQueue, // queue
		"",         // consumer tag
		false,      // auto-ack
		false,      // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		for msg := range msgs {
			var event Event
			if err := json.Unmarshal(msg.Body, &event); err != nil {
				logrus.WithError(err).WithField("delivery_tag", msg.DeliveryTag).Warn("dropping malformed event")
				if nackErr := msg.Nack(false, false); nackErr != nil {
					logrus.WithError(nackErr).Warn("failed to nack message")
				}
				continue
			}
			if err := handler(event); err != nil {
				logrus.WithError(err).WithField("event", event.Name).Warn("failed to handle event")
				if nackErr := msg.Nack(false, !msg.Redelivered); nackErr != nil {
					logrus.WithError(nackErr).Warn("failed to nack message")
				}
				continue
			}
			if ackErr := msg.Ack(false); ackErr != nil {
				logrus.WithError(ackErr).Warn("failed to ack message")
			}
		}
	}()

	return nil
}
