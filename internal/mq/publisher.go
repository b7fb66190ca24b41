// Package mq mirrors committed domain events onto a RabbitMQ topic exchange
// for consumers outside this process.
package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"rapidroad/internal/model"
	"rapidroad/internal/service"

	"github.com/rabbitmq/amqp091-go"
)

const (
	Exchange       = "ride_topic"
	publishTimeout = time.Second
)

var _ service.Notifier = (*Publisher)(nil)

// channel is the subset of *amqp091.Channel the publisher needs.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

type Publisher struct {
	conn *amqp091.Connection
	ch   channel
}

// Dial connects, opens a channel and declares the durable topic exchange.
func Dial(url string) (*Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", Exchange, err)
	}
	return &Publisher{conn: conn, ch: ch}, nil
}

func (p *Publisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Close()
}

// TripEvent is the body of trip.status.* messages.
type TripEvent struct {
	TripID        string    `json:"trip_id"`
	BookingID     string    `json:"booking_id"`
	DriverID      string    `json:"driver_id"`
	TripStatus    string    `json:"trip_status"`
	BookingStatus string    `json:"booking_status"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type BookingEvent struct {
	BookingID  string    `json:"booking_id"`
	CustomerID string    `json:"customer_id"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

type LocationEvent struct {
	DriverID   string    `json:"driver_id"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	RecordedAt time.Time `json:"recorded_at"`
}

func TripRoutingKey(status model.TripStatus) string {
	return "trip.status." + string(status)
}

func BookingRoutingKey(status model.BookingStatus) string {
	return "booking.status." + string(status)
}

const (
	BookingCreatedKey = "booking.created"
	LocationKey       = "driver.location.updated"
)

// Publish sends a persistent JSON message. Failures are logged, never returned.
func (p *Publisher) Publish(ctx context.Context, key string, event interface{}) {
	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("mq: failed to encode key=%s err=%v", key, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	err = p.ch.PublishWithContext(ctx,
		Exchange, // exchange
		key,      // routing key
		false,    // mandatory
		false,    // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
		})
	if err != nil {
		log.Printf("mq: failed to publish key=%s err=%v", key, err)
	}
}

func (p *Publisher) TripUpdated(ctx context.Context, booking *model.Booking, trip *model.Trip) {
	p.Publish(ctx, TripRoutingKey(trip.Status), TripEvent{
		TripID:        trip.ID.String(),
		BookingID:     booking.ID.String(),
		DriverID:      trip.DriverID.String(),
		TripStatus:    string(trip.Status),
		BookingStatus: string(booking.Status),
		OccurredAt:    trip.UpdatedAt,
	})
}

func (p *Publisher) BookingCreated(ctx context.Context, booking *model.Booking, _ *model.BookingLocation) {
	p.Publish(ctx, BookingCreatedKey, bookingEvent(booking))
}

func (p *Publisher) BookingStatusChanged(ctx context.Context, booking *model.Booking) {
	p.Publish(ctx, BookingRoutingKey(booking.Status), bookingEvent(booking))
}

func (p *Publisher) DriverLocationUpdated(ctx context.Context, loc *model.DriverLocation) {
	p.Publish(ctx, LocationKey, LocationEvent{
		DriverID:   loc.DriverID.String(),
		Lat:        loc.Lat,
		Lon:        loc.Lon,
		RecordedAt: loc.RecordedAt,
	})
}

func bookingEvent(b *model.Booking) BookingEvent {
	return BookingEvent{
		BookingID:  b.ID.String(),
		CustomerID: b.CustomerID.String(),
		Status:     string(b.Status),
		OccurredAt: b.UpdatedAt,
	}
}
