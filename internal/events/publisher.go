// Package events publishes domain events to RabbitMQ so downstream
// notification consumers can fan them out to customers, admins, and hotel
// partners. Publish failures are logged and returned but must never abort
// the state transition that produced the event.
package events

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Queue names. Durable, one per event kind.
const (
	QueueTripStatusChanged = "trip.status_changed"
	QueueQuoteSubmitted    = "rfq.quote_submitted"
)

// TripStatusChangedEvent is emitted on every trip state machine transition.
type TripStatusChangedEvent struct {
	TripID          string    `json:"trip_id"`
	CustomerID      string    `json:"customer_id"`
	PreviousStatus  string    `json:"previous_status"`
	NewStatus       string    `json:"new_status"`
	ApprovedHotelID string    `json:"approved_hotel_id,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// QuoteSubmittedEvent is emitted when a hotel partner submits a quote.
type QuoteSubmittedEvent struct {
	RequestID   string    `json:"request_id"`
	TripID      string    `json:"trip_id"`
	HotelID     string    `json:"hotel_id"`
	FinalPrice  float64   `json:"final_price"`
	RoundNumber int       `json:"round_number"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Publisher sends domain events to RabbitMQ. A nil Publisher is valid and
// drops all events, so event publishing can be switched off in config.
type Publisher struct {
	url    string
	logger *logrus.Logger
}

// NewPublisher creates a Publisher for the given AMQP URL.
func NewPublisher(url string, logger *logrus.Logger) *Publisher {
	return &Publisher{url: url, logger: logger}
}

// PublishTripStatusChanged publishes a TripStatusChangedEvent.
func (p *Publisher) PublishTripStatusChanged(ctx context.Context, event TripStatusChangedEvent) error {
	if p == nil {
		return nil
	}
	return p.publish(ctx, QueueTripStatusChanged, event)
}

// PublishQuoteSubmitted publishes a QuoteSubmittedEvent.
func (p *Publisher) PublishQuoteSubmitted(ctx context.Context, event QuoteSubmittedEvent) error {
	if p == nil {
		return nil
	}
	return p.publish(ctx, QueueQuoteSubmitted, event)
}

// publish dials, declares the durable queue, and sends one persistent JSON
// message. Connections are short-lived; event volume here is a handful per
// trip, not a throughput concern.
func (p *Publisher) publish(ctx context.Context, queue string, payload interface{}) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.logger.WithError(err).WithField("queue", queue).Error("Event publish failed: dial")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.logger.WithError(err).WithField("queue", queue).Error("Event publish failed: channel")
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		p.logger.WithError(err).WithField("queue", queue).Error("Event publish failed: queue declare")
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		p.logger.WithError(err).WithField("queue", queue).Error("Event publish failed: marshal")
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
		p.logger.WithError(err).WithField("queue", queue).Error("Event publish failed: publish")
		return err
	}
	return nil
}
