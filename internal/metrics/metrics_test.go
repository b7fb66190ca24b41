package metrics

import (
	"context"
	"strings"
	"testing"
	"time"

	"rapidroad/internal/model"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestTripTransitionsByStatus(t *testing.T) {
	m := New()
	ctx := context.Background()

	m.TripUpdated(ctx, &model.Booking{}, &model.Trip{Status: model.TripAccepted})
	m.TripUpdated(ctx, &model.Booking{}, &model.Trip{Status: model.TripAccepted})
	m.TripUpdated(ctx, &model.Booking{}, &model.Trip{Status: model.TripCompleted})

	if got := testutil.ToFloat64(m.tripTransitions.WithLabelValues("accepted")); got != 2 {
		t.Fatalf("accepted = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.tripTransitions.WithLabelValues("completed")); got != 1 {
		t.Fatalf("completed = %v, want 1", got)
	}
}

func TestBookingAndLocationCounters(t *testing.T) {
	m := New()
	ctx := context.Background()

	m.BookingCreated(ctx, &model.Booking{}, &model.BookingLocation{})
	m.BookingStatusChanged(ctx, &model.Booking{Status: model.BookingCancelled})
	m.DriverLocationUpdated(ctx, &model.DriverLocation{})
	m.DriverLocationUpdated(ctx, &model.DriverLocation{})

	if got := testutil.ToFloat64(m.bookingsCreated); got != 1 {
		t.Fatalf("bookings created = %v", got)
	}
	if got := testutil.ToFloat64(m.bookingStatus.WithLabelValues("cancelled")); got != 1 {
		t.Fatalf("cancelled = %v", got)
	}
	if got := testutil.ToFloat64(m.locationUpdates); got != 2 {
		t.Fatalf("location updates = %v", got)
	}
}

func TestObserveRequestUsesRoutePattern(t *testing.T) {
	m := New()
	m.ObserveRequest("POST", "/v1/trips/:tripId/accept", 200, 15*time.Millisecond)
	m.ObserveRequest("GET", "", 404, time.Millisecond)

	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues("POST", "/v1/trips/:tripId/accept", "200")); got != 1 {
		t.Fatalf("accept requests = %v", got)
	}
	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "unmatched", "404")); got != 1 {
		t.Fatalf("unmatched requests = %v", got)
	}
}

func TestWatchSocketsExportsGauges(t *testing.T) {
	m := New()
	admins := 2
	m.WatchSockets(map[string]func() int{
		"admins":  func() int { return admins },
		"drivers": func() int { return 0 },
	})

	expected := `
# HELP rapidroad_ws_connections Open websocket connections by group.
# TYPE rapidroad_ws_connections gauge
rapidroad_ws_connections{group="admins"} 2
rapidroad_ws_connections{group="drivers"} 0
`
	if err := testutil.GatherAndCompare(m.registry, strings.NewReader(expected), "rapidroad_ws_connections"); err != nil {
		t.Fatal(err)
	}
}
