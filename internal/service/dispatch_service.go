package service

import (
	"context"
	"fmt"
	"time"

	"rapidroad/internal/apperror"
	"rapidroad/internal/model"
	"rapidroad/internal/repository"
	"rapidroad/pkg/pagination"

	"github.com/google/uuid"
)

type AssignDriverRequest struct {
	DriverID string `json:"driver_id" binding:"required,uuid"`
}

type CompleteTripRequest struct {
	DistanceM *int `json:"distance_m" binding:"omitempty,gte=0"`
	DurationS *int `json:"duration_s" binding:"omitempty,gte=0"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

type DispatchConfig struct {
	// AllowInFlightReassign lets an admin move a started trip to another driver.
	AllowInFlightReassign bool
}

// DispatchService drives the booking/trip state machine.
type DispatchService interface {
	AssignDriver(ctx context.Context, actor Actor, bookingID, driverID uuid.UUID) (*TripResponse, error)
	AcceptTrip(ctx context.Context, actor Actor, tripID uuid.UUID) (*TripResponse, error)
	StartTrip(ctx context.Context, actor Actor, tripID uuid.UUID) (*TripResponse, error)
	CompleteTrip(ctx context.Context, actor Actor, tripID uuid.UUID, req CompleteTripRequest) (*TripResponse, error)
	CancelBooking(ctx context.Context, actor Actor, bookingID uuid.UUID, reason string) (*BookingResponse, error)
	GetTrip(ctx context.Context, actor Actor, tripID uuid.UUID) (*TripResponse, error)
	ListTrips(ctx context.Context, actor Actor, status string, limit, offset int) ([]TripResponse, int64, error)
}

type dispatchService struct {
	txManager repository.TransactionManager
	bookings  repository.BookingRepository
	trips     repository.TripRepository
	users     repository.UserRepository
	audit     repository.AuditRepository
	notifier  Notifier
	cfg       DispatchConfig
	now       func() time.Time
}

func NewDispatchService(
	txManager repository.TransactionManager,
	bookings repository.BookingRepository,
	trips repository.TripRepository,
	users repository.UserRepository,
	audit repository.AuditRepository,
	notifier Notifier,
	cfg DispatchConfig,
) DispatchService {
	return &dispatchService{
		txManager: txManager,
		bookings:  bookings,
		trips:     trips,
		users:     users,
		audit:     audit,
		notifier:  notifier,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *dispatchService) AssignDriver(ctx context.Context, actor Actor, bookingID, driverID uuid.UUID) (*TripResponse, error) {
	if !actor.IsAdmin() {
		return nil, apperror.Forbidden("only admins can assign drivers")
	}

	driver, err := s.users.GetByID(ctx, driverID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperror.NotFound("driver not found")
		}
		return nil, fmt.Errorf("failed to load driver: %w", err)
	}
	if driver.Role != model.RoleDriver || !driver.IsActive() {
		return nil, apperror.BadRequest("user is not an active driver")
	}

	var booking model.Booking
	var trip model.Trip
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		b, err := s.bookings.FindByIDForUpdate(txCtx, bookingID)
		if err != nil {
			if repository.IsNotFound(err) {
				return apperror.NotFound("booking not found")
			}
			return fmt.Errorf("failed to lock booking: %w", err)
		}
		if b.Status.Terminal() {
			return apperror.BadRequest("booking not assignable")
		}

		var previousDriver *uuid.UUID
		t, err := s.trips.FindByBookingIDForUpdate(txCtx, bookingID)
		switch {
		case err == nil:
			if t.Status == model.TripStarted && !s.cfg.AllowInFlightReassign {
				return apperror.BadRequest("trip already in progress")
			}
			prev := t.DriverID
			previousDriver = &prev
			t.DriverID = driverID
			t.Status = model.TripPending
			t.StartedAt = nil
			if err := s.trips.Update(txCtx, t); err != nil {
				return fmt.Errorf("failed to update trip: %w", err)
			}
		case repository.IsNotFound(err):
			t = &model.Trip{BookingID: bookingID, DriverID: driverID, Status: model.TripPending}
			if err := s.trips.Create(txCtx, t); err != nil {
				return fmt.Errorf("failed to create trip: %w", err)
			}
		default:
			return fmt.Errorf("failed to lock trip: %w", err)
		}

		b.AssignedDriverID = &driverID
		b.Status = model.BookingDriverAssigned
		if err := s.bookings.Update(txCtx, b); err != nil {
			return fmt.Errorf("failed to update booking: %w", err)
		}

		details := map[string]interface{}{"booking_id": bookingID, "driver_id": driverID, "trip_id": t.ID}
		if previousDriver != nil {
			details["previous_driver_id"] = *previousDriver
		}
		if err := recordAudit(txCtx, s.audit, actor.ID, model.ActionAssignDriver, t.ID.String(), driver.Email, details); err != nil {
			return err
		}

		booking, trip = *b, *t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.TripUpdated(ctx, &booking, &trip)
	return mapTrip(&trip, &booking), nil
}

// transition mutates a trip and its booking. apply reports whether anything
// changed; an unchanged result is an idempotent repeat and is still broadcast.
type transition func(b *model.Booking, t *model.Trip, now time.Time) (bool, error)

func (s *dispatchService) driverTransition(ctx context.Context, actor Actor, tripID uuid.UUID, action string, apply transition) (*TripResponse, error) {
	if actor.Role != model.RoleDriver {
		return nil, apperror.Forbidden("only the assigned driver can update this trip")
	}

	var booking model.Booking
	var trip model.Trip
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		// Ownership is settled before any status is read.
		current, err := s.trips.FindByID(txCtx, tripID)
		if err != nil {
			if repository.IsNotFound(err) {
				return apperror.NotFound("trip not found")
			}
			return fmt.Errorf("failed to load trip: %w", err)
		}
		if current.DriverID != actor.ID {
			return apperror.Forbidden("not assigned to this trip")
		}

		b, err := s.bookings.FindByIDForUpdate(txCtx, current.BookingID)
		if err != nil {
			if repository.IsNotFound(err) {
				return apperror.NotFound("booking not found")
			}
			return fmt.Errorf("failed to lock booking: %w", err)
		}
		t, err := s.trips.FindByIDForUpdate(txCtx, tripID)
		if err != nil {
			return fmt.Errorf("failed to lock trip: %w", err)
		}
		if t.DriverID != actor.ID {
			return apperror.Forbidden("not assigned to this trip")
		}

		changed, err := apply(b, t, s.now())
		if err != nil {
			return err
		}
		if changed {
			if err := s.trips.Update(txCtx, t); err != nil {
				return fmt.Errorf("failed to update trip: %w", err)
			}
			if err := s.bookings.Update(txCtx, b); err != nil {
				return fmt.Errorf("failed to update booking: %w", err)
			}
			details := map[string]interface{}{"booking_id": b.ID, "trip_status": t.Status, "booking_status": b.Status}
			if err := recordAudit(txCtx, s.audit, actor.ID, action, t.ID.String(), "trip", details); err != nil {
				return err
			}
		}

		booking, trip = *b, *t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.TripUpdated(ctx, &booking, &trip)
	return mapTrip(&trip, &booking), nil
}

func (s *dispatchService) AcceptTrip(ctx context.Context, actor Actor, tripID uuid.UUID) (*TripResponse, error) {
	return s.driverTransition(ctx, actor, tripID, model.ActionAcceptTrip, func(b *model.Booking, t *model.Trip, _ time.Time) (bool, error) {
		switch t.Status {
		case model.TripAccepted:
			return false, nil
		case model.TripPending:
			t.Status = model.TripAccepted
			b.Status = model.BookingConfirmed
			return true, nil
		}
		return false, apperror.BadRequest(fmt.Sprintf("trip cannot be accepted while %s", t.Status))
	})
}

func (s *dispatchService) StartTrip(ctx context.Context, actor Actor, tripID uuid.UUID) (*TripResponse, error) {
	return s.driverTransition(ctx, actor, tripID, model.ActionStartTrip, func(b *model.Booking, t *model.Trip, now time.Time) (bool, error) {
		switch t.Status {
		case model.TripStarted:
			return false, nil
		case model.TripAccepted:
			t.Status = model.TripStarted
			if t.StartedAt == nil {
				t.StartedAt = &now
			}
			b.Status = model.BookingInProgress
			return true, nil
		}
		return false, apperror.BadRequest(fmt.Sprintf("trip cannot be started while %s", t.Status))
	})
}

func (s *dispatchService) CompleteTrip(ctx context.Context, actor Actor, tripID uuid.UUID, req CompleteTripRequest) (*TripResponse, error) {
	return s.driverTransition(ctx, actor, tripID, model.ActionCompleteTrip, func(b *model.Booking, t *model.Trip, now time.Time) (bool, error) {
		switch t.Status {
		case model.TripCompleted:
			return false, nil
		case model.TripStarted:
			t.Status = model.TripCompleted
			t.CompletedAt = &now
			if req.DistanceM != nil {
				t.DistanceM = req.DistanceM
			}
			if req.DurationS != nil {
				t.DurationS = req.DurationS
			}
			b.Status = model.BookingCompleted
			return true, nil
		}
		return false, apperror.BadRequest(fmt.Sprintf("trip cannot be completed while %s", t.Status))
	})
}

func customerCancellable(status model.BookingStatus) bool {
	switch status {
	case model.BookingCreated, model.BookingDriverAssigned, model.BookingConfirmed:
		return true
	}
	return false
}

func (s *dispatchService) CancelBooking(ctx context.Context, actor Actor, bookingID uuid.UUID, reason string) (*BookingResponse, error) {
	if !actor.IsAdmin() && actor.Role != model.RoleCustomer {
		return nil, apperror.Forbidden("drivers cannot cancel bookings")
	}

	var booking model.Booking
	var trip *model.Trip
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		b, err := s.bookings.FindByIDForUpdate(txCtx, bookingID)
		if err != nil {
			if repository.IsNotFound(err) {
				return apperror.NotFound("booking not found")
			}
			return fmt.Errorf("failed to lock booking: %w", err)
		}

		if !actor.IsAdmin() {
			if b.CustomerID != actor.ID {
				return apperror.Forbidden("booking belongs to another customer")
			}
			if !customerCancellable(b.Status) {
				return apperror.BadRequest(fmt.Sprintf("booking cannot be cancelled while %s", b.Status))
			}
		} else if b.Status.Terminal() {
			return apperror.BadRequest("booking already finalized")
		}

		t, err := s.trips.FindByBookingIDForUpdate(txCtx, bookingID)
		switch {
		case err == nil:
			if t.Status != model.TripCompleted && t.Status != model.TripCancelled {
				t.Status = model.TripCancelled
				if err := s.trips.Update(txCtx, t); err != nil {
					return fmt.Errorf("failed to update trip: %w", err)
				}
			}
			trip = t
		case !repository.IsNotFound(err):
			return fmt.Errorf("failed to lock trip: %w", err)
		}

		b.Status = model.BookingCancelled
		if err := s.bookings.Update(txCtx, b); err != nil {
			return fmt.Errorf("failed to update booking: %w", err)
		}

		details := map[string]interface{}{"reason": reason, "actor_role": actor.Role}
		if err := recordAudit(txCtx, s.audit, actor.ID, model.ActionCancelBooking, b.ID.String(), "booking", details); err != nil {
			return err
		}

		booking = *b
		return nil
	})
	if err != nil {
		return nil, err
	}

	if trip != nil {
		s.notifier.TripUpdated(ctx, &booking, trip)
	} else {
		s.notifier.BookingStatusChanged(ctx, &booking)
	}
	return mapBooking(&booking, nil), nil
}

func (s *dispatchService) GetTrip(ctx context.Context, actor Actor, tripID uuid.UUID) (*TripResponse, error) {
	if !actor.IsAdmin() && actor.Role != model.RoleDriver {
		return nil, apperror.Forbidden("trips are visible to drivers and admins only")
	}
	t, err := s.trips.FindByID(ctx, tripID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperror.NotFound("trip not found")
		}
		return nil, fmt.Errorf("failed to load trip: %w", err)
	}
	if !actor.IsAdmin() && t.DriverID != actor.ID {
		return nil, apperror.Forbidden("not assigned to this trip")
	}

	b, err := s.bookings.FindByID(ctx, t.BookingID)
	if err != nil && !repository.IsNotFound(err) {
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	return mapTrip(t, b), nil
}

func (s *dispatchService) ListTrips(ctx context.Context, actor Actor, status string, limit, offset int) ([]TripResponse, int64, error) {
	if status != "" && !model.ValidTripStatus(status) {
		return nil, 0, apperror.BadRequest("invalid trip status")
	}

	p := pagination.Clamp(limit, offset)
	filter := repository.TripFilter{Status: status, Limit: p.Limit, Offset: p.Offset}
	switch {
	case actor.IsAdmin():
	case actor.Role == model.RoleDriver:
		id := actor.ID
		filter.DriverID = &id
	default:
		return nil, 0, apperror.Forbidden("trips are visible to drivers and admins only")
	}

	trips, total, err := s.trips.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list trips: %w", err)
	}

	res := make([]TripResponse, 0, len(trips))
	for i := range trips {
		res = append(res, *mapTrip(&trips[i], nil))
	}
	return res, total, nil
}
