package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"rapidroad/internal/apperror"
	"rapidroad/internal/model"
	"rapidroad/internal/repository"
	"rapidroad/pkg/pagination"

	"github.com/google/uuid"
)

type CreateBookingRequest struct {
	PickupAddress      string     `json:"pickup_address" binding:"required,max=500"`
	DropoffAddress     string     `json:"dropoff_address" binding:"required,max=500"`
	PickupLat          *float64   `json:"pickup_lat" binding:"required,gte=-90,lte=90"`
	PickupLon          *float64   `json:"pickup_lon" binding:"required,gte=-180,lte=180"`
	DropoffLat         *float64   `json:"dropoff_lat" binding:"required,gte=-90,lte=90"`
	DropoffLon         *float64   `json:"dropoff_lon" binding:"required,gte=-180,lte=180"`
	PickupNotes        *string    `json:"pickup_notes" binding:"omitempty,max=500"`
	DropoffNotes       *string    `json:"dropoff_notes" binding:"omitempty,max=500"`
	ScheduledPickupAt  *time.Time `json:"scheduled_pickup_at"`
	EstimatedDistanceM *int       `json:"estimated_distance_m" binding:"omitempty,gte=0"`
	EstimatedDurationS *int       `json:"estimated_duration_s" binding:"omitempty,gte=0"`
	Notes              *string    `json:"notes" binding:"omitempty,max=1000"`
}

type BookingService interface {
	CreateBooking(ctx context.Context, actor Actor, req CreateBookingRequest) (*BookingResponse, error)
	GetBooking(ctx context.Context, actor Actor, id uuid.UUID) (*BookingResponse, error)
	ListBookings(ctx context.Context, actor Actor, status string, limit, offset int) ([]BookingResponse, int64, error)
}

type bookingService struct {
	txManager repository.TransactionManager
	bookings  repository.BookingRepository
	notifier  Notifier
}

func NewBookingService(txManager repository.TransactionManager, bookings repository.BookingRepository, notifier Notifier) BookingService {
	return &bookingService{txManager: txManager, bookings: bookings, notifier: notifier}
}

func coordinate(v *float64, lo, hi float64) (float64, bool) {
	if v == nil || *v < lo || *v > hi {
		return 0, false
	}
	return *v, true
}

func (s *bookingService) CreateBooking(ctx context.Context, actor Actor, req CreateBookingRequest) (*BookingResponse, error) {
	if actor.Role != model.RoleCustomer {
		return nil, apperror.Forbidden("only customers can create bookings")
	}
	pickup := strings.TrimSpace(req.PickupAddress)
	dropoff := strings.TrimSpace(req.DropoffAddress)
	if pickup == "" || dropoff == "" {
		return nil, apperror.BadRequest("pickup and drop-off addresses are required")
	}
	pLat, ok1 := coordinate(req.PickupLat, -90, 90)
	pLon, ok2 := coordinate(req.PickupLon, -180, 180)
	dLat, ok3 := coordinate(req.DropoffLat, -90, 90)
	dLon, ok4 := coordinate(req.DropoffLon, -180, 180)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil, apperror.BadRequest("invalid coordinates")
	}

	booking := &model.Booking{
		CustomerID:         actor.ID,
		Status:             model.BookingCreated,
		ScheduledPickupAt:  req.ScheduledPickupAt,
		EstimatedDistanceM: req.EstimatedDistanceM,
		EstimatedDurationS: req.EstimatedDurationS,
		Currency:           "GBP",
		Notes:              req.Notes,
	}
	loc := &model.BookingLocation{
		PickupAddress:  pickup,
		DropoffAddress: dropoff,
		PickupLat:      pLat,
		PickupLon:      pLon,
		DropoffLat:     dLat,
		DropoffLon:     dLon,
		PickupNotes:    req.PickupNotes,
		DropoffNotes:   req.DropoffNotes,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.bookings.Create(txCtx, booking); err != nil {
			return fmt.Errorf("failed to create booking: %w", err)
		}
		loc.BookingID = booking.ID
		if err := s.bookings.CreateLocation(txCtx, loc); err != nil {
			return fmt.Errorf("failed to create booking location: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.BookingCreated(ctx, booking, loc)
	return mapBooking(booking, loc), nil
}

func canSeeBooking(actor Actor, b *model.Booking) bool {
	switch {
	case actor.IsAdmin():
		return true
	case actor.Role == model.RoleCustomer:
		return b.CustomerID == actor.ID
	case actor.Role == model.RoleDriver:
		return b.AssignedDriverID != nil && *b.AssignedDriverID == actor.ID
	}
	return false
}

func (s *bookingService) GetBooking(ctx context.Context, actor Actor, id uuid.UUID) (*BookingResponse, error) {
	b, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperror.NotFound("booking not found")
		}
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	if !canSeeBooking(actor, b) {
		return nil, apperror.Forbidden("booking belongs to another user")
	}

	loc, err := s.bookings.FindLocation(ctx, id)
	if err != nil && !repository.IsNotFound(err) {
		return nil, fmt.Errorf("failed to load booking location: %w", err)
	}
	return mapBooking(b, loc), nil
}

func validBookingStatus(status string) bool {
	switch model.BookingStatus(status) {
	case model.BookingCreated, model.BookingDriverAssigned, model.BookingConfirmed,
		model.BookingInProgress, model.BookingCompleted, model.BookingCancelled, model.BookingFailed:
		return true
	}
	return false
}

func (s *bookingService) ListBookings(ctx context.Context, actor Actor, status string, limit, offset int) ([]BookingResponse, int64, error) {
	if status != "" && !validBookingStatus(status) {
		return nil, 0, apperror.BadRequest("invalid booking status")
	}

	p := pagination.Clamp(limit, offset)
	filter := repository.BookingFilter{Status: status, Limit: p.Limit, Offset: p.Offset}
	id := actor.ID
	switch {
	case actor.IsAdmin():
	case actor.Role == model.RoleCustomer:
		filter.CustomerID = &id
	case actor.Role == model.RoleDriver:
		filter.DriverID = &id
	default:
		return nil, 0, apperror.Forbidden("unknown role")
	}

	bookings, total, err := s.bookings.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}

	res := make([]BookingResponse, 0, len(bookings))
	for i := range bookings {
		res = append(res, *mapBooking(&bookings[i], nil))
	}
	return res, total, nil
}
