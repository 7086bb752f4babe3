package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/diagnosis/venue-bookings/pkg/logger"
	"github.com/nats-io/nats.go"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
}

type Subscriber interface {
	QueueSubscribe(subject, queue string, handler func(msg *Message)) error
}

type EventBus interface {
	Publisher
	Subscriber
	Close() error
}

type Message struct {
	Subject    string
	Data       []byte
	ReceivedAt time.Time
}

// Decode unmarshals the message payload into v.
func (m *Message) Decode(v interface{}) error {
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", m.Subject, err)
	}
	return nil
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url, clientName string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url,
		nats.Name(clientName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "bytes", len(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	_, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(&Message{
			Subject:    msg.Subject,
			Data:       msg.Data,
			ReceivedAt: time.Now(),
		})
	})
	return err
}

// Close drains pending messages before closing the connection.
func (n *NATSEventBus) Close() error {
	return n.conn.Drain()
}

const (
	BookingCreated  = "booking.created"
	BookingCanceled = "booking.canceled"
)

type BookingCreatedEvent struct {
	BookingID    int64     `json:"booking_id"`
	SessionID    int64     `json:"session_id"`
	VenueID      int64     `json:"venue_id"`
	UserID       int64     `json:"user_id"`
	UserEmail    string    `json:"user_email"`
	VenueName    string    `json:"venue_name"`
	SessionTitle string    `json:"session_title"`
	StartsAt     time.Time `json:"starts_at"`
	CreatedAt    time.Time `json:"created_at"`
}

type BookingCanceledEvent struct {
	BookingID    int64     `json:"booking_id"`
	SessionID    int64     `json:"session_id"`
	VenueID      int64     `json:"venue_id"`
	UserID       int64     `json:"user_id"`
	UserEmail    string    `json:"user_email"`
	VenueName    string    `json:"venue_name"`
	SessionTitle string    `json:"session_title"`
	StartsAt     time.Time `json:"starts_at"`
	CanceledAt   time.Time `json:"canceled_at"`
}
