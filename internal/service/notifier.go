package service

import (
	"context"
	"log"

	"rapidroad/internal/model"
)

// Notifier receives committed state changes. Implementations must not block
// for long and must not return errors to the caller: delivery is best effort.
type Notifier interface {
	TripUpdated(ctx context.Context, booking *model.Booking, trip *model.Trip)
	BookingCreated(ctx context.Context, booking *model.Booking, loc *model.BookingLocation)
	BookingStatusChanged(ctx context.Context, booking *model.Booking)
	DriverLocationUpdated(ctx context.Context, loc *model.DriverLocation)
}

// Notifiers fans one event out to several sinks. A panicking sink is logged
// and does not stop delivery to the rest.
type Notifiers []Notifier

func (n Notifiers) each(event string, fn func(Notifier)) {
	for _, sink := range n {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("notifier panic event=%s err=%v", event, r)
				}
			}()
			fn(sink)
		}()
	}
}

func (n Notifiers) TripUpdated(ctx context.Context, booking *model.Booking, trip *model.Trip) {
	n.each("trip.updated", func(s Notifier) { s.TripUpdated(ctx, booking, trip) })
}

func (n Notifiers) BookingCreated(ctx context.Context, booking *model.Booking, loc *model.BookingLocation) {
	n.each("booking.created", func(s Notifier) { s.BookingCreated(ctx, booking, loc) })
}

func (n Notifiers) BookingStatusChanged(ctx context.Context, booking *model.Booking) {
	n.each("booking.status", func(s Notifier) { s.BookingStatusChanged(ctx, booking) })
}

func (n Notifiers) DriverLocationUpdated(ctx context.Context, loc *model.DriverLocation) {
	n.each("driver.location", func(s Notifier) { s.DriverLocationUpdated(ctx, loc) })
}
