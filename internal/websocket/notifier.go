package websocket

import (
	"context"

	"rapidroad/internal/model"
	"rapidroad/internal/service"
)

var _ service.Notifier = (*Hub)(nil)

// TripUpdated fans one committed transition out as three audience-specific events.
func (h *Hub) TripUpdated(_ context.Context, booking *model.Booking, trip *model.Trip) {
	h.Emit(GroupAdmins, EventTripStatusChanged, map[string]interface{}{
		"bookingId": booking.ID,
		"tripId":    trip.ID,
		"driverId":  trip.DriverID,
		"status":    trip.Status,
	})
	h.Emit(GroupCustomers, EventDriverAssigned, map[string]interface{}{
		"bookingId": booking.ID,
		"driverId":  trip.DriverID,
		"status":    booking.Status,
	})
	h.Emit(GroupDrivers, EventTripAssigned, map[string]interface{}{
		"tripId":    trip.ID,
		"bookingId": booking.ID,
	})
}

func (h *Hub) BookingCreated(_ context.Context, booking *model.Booking, loc *model.BookingLocation) {
	data := map[string]interface{}{
		"bookingId":  booking.ID,
		"customerId": booking.CustomerID,
		"createdAt":  booking.CreatedAt,
	}
	if loc != nil {
		data["pickupAddress"] = loc.PickupAddress
		data["dropoffAddress"] = loc.DropoffAddress
	}
	h.Emit(GroupAdmins, EventNewBookingAlert, data)
}

func (h *Hub) BookingStatusChanged(_ context.Context, booking *model.Booking) {
	data := map[string]interface{}{
		"bookingId": booking.ID,
		"status":    booking.Status,
	}
	h.Emit(GroupAdmins, EventBookingStatusChanged, data)
	h.Emit(GroupCustomers, EventBookingStatusChanged, data)
}

func (h *Hub) DriverLocationUpdated(_ context.Context, loc *model.DriverLocation) {
	data := map[string]interface{}{
		"driverId":   loc.DriverID,
		"lat":        loc.Lat,
		"lon":        loc.Lon,
		"recordedAt": loc.RecordedAt,
	}
	if loc.HeadingDegrees.Valid {
		data["headingDegrees"] = loc.HeadingDegrees.Decimal
	}
	if loc.SpeedMps.Valid {
		data["speedMps"] = loc.SpeedMps.Decimal
	}
	if loc.AccuracyM.Valid {
		data["accuracyM"] = loc.AccuracyM.Decimal
	}
	h.Emit(GroupAdmins, EventDriverLocationUpdate, data)
}
