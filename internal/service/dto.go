package service

import (
	"time"

	"rapidroad/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	ID   uuid.UUID
	Role string
}

func (a Actor) IsAdmin() bool { return model.IsAdminRole(a.Role) }

// UserResponse is a User without credentials
type UserResponse struct {
	ID              uuid.UUID  `json:"id"`
	Email           string     `json:"email"`
	PhoneE164       *string    `json:"phone_e164,omitempty"`
	Role            string     `json:"role"`
	Status          string     `json:"status"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	LastLoginAt     *time.Time `json:"last_login_at,omitempty"`
	CreatedAt       string     `json:"created_at"`
	UpdatedAt       string     `json:"updated_at"`
}

func mapUser(u *model.User) *UserResponse {
	return &UserResponse{
		ID:              u.ID,
		Email:           u.Email,
		PhoneE164:       u.PhoneE164,
		Role:            u.Role,
		Status:          u.Status,
		EmailVerifiedAt: u.EmailVerifiedAt,
		LastLoginAt:     u.LastLoginAt,
		CreatedAt:       u.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       u.UpdatedAt.Format(time.RFC3339),
	}
}

type LocationResponse struct {
	PickupAddress  string  `json:"pickup_address"`
	DropoffAddress string  `json:"dropoff_address"`
	PickupLat      float64 `json:"pickup_lat"`
	PickupLon      float64 `json:"pickup_lon"`
	DropoffLat     float64 `json:"dropoff_lat"`
	DropoffLon     float64 `json:"dropoff_lon"`
	PickupNotes    *string `json:"pickup_notes,omitempty"`
	DropoffNotes   *string `json:"dropoff_notes,omitempty"`
}

type BookingResponse struct {
	ID                 uuid.UUID           `json:"id"`
	CustomerID         uuid.UUID           `json:"customer_id"`
	AssignedDriverID   *uuid.UUID          `json:"assigned_driver_id"`
	Status             model.BookingStatus `json:"status"`
	ScheduledPickupAt  *time.Time          `json:"scheduled_pickup_at,omitempty"`
	EstimatedDistanceM *int                `json:"estimated_distance_m,omitempty"`
	EstimatedDurationS *int                `json:"estimated_duration_s,omitempty"`
	QuotedFare         decimal.NullDecimal `json:"quoted_fare"`
	FinalFare          decimal.NullDecimal `json:"final_fare"`
	Currency           string              `json:"currency"`
	Notes              *string             `json:"notes,omitempty"`
	Location           *LocationResponse   `json:"location,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

func mapBooking(b *model.Booking, loc *model.BookingLocation) *BookingResponse {
	res := &BookingResponse{
		ID:                 b.ID,
		CustomerID:         b.CustomerID,
		AssignedDriverID:   b.AssignedDriverID,
		Status:             b.Status,
		ScheduledPickupAt:  b.ScheduledPickupAt,
		EstimatedDistanceM: b.EstimatedDistanceM,
		EstimatedDurationS: b.EstimatedDurationS,
		QuotedFare:         b.QuotedFare,
		FinalFare:          b.FinalFare,
		Currency:           b.Currency,
		Notes:              b.Notes,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
	if loc != nil {
		res.Location = &LocationResponse{
			PickupAddress:  loc.PickupAddress,
			DropoffAddress: loc.DropoffAddress,
			PickupLat:      loc.PickupLat,
			PickupLon:      loc.PickupLon,
			DropoffLat:     loc.DropoffLat,
			DropoffLon:     loc.DropoffLon,
			PickupNotes:    loc.PickupNotes,
			DropoffNotes:   loc.DropoffNotes,
		}
	}
	return res
}

type TripResponse struct {
	ID            uuid.UUID           `json:"id"`
	BookingID     uuid.UUID           `json:"booking_id"`
	DriverID      uuid.UUID           `json:"driver_id"`
	Status        model.TripStatus    `json:"status"`
	BookingStatus model.BookingStatus `json:"booking_status,omitempty"`
	StartedAt     *time.Time          `json:"started_at,omitempty"`
	CompletedAt   *time.Time          `json:"completed_at,omitempty"`
	DistanceM     *int                `json:"distance_m,omitempty"`
	DurationS     *int                `json:"duration_s,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

func mapTrip(t *model.Trip, b *model.Booking) *TripResponse {
	res := &TripResponse{
		ID:          t.ID,
		BookingID:   t.BookingID,
		DriverID:    t.DriverID,
		Status:      t.Status,
		StartedAt:   t.StartedAt,
		CompletedAt: t.CompletedAt,
		DistanceM:   t.DistanceM,
		DurationS:   t.DurationS,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if b != nil {
		res.BookingStatus = b.Status
	}
	return res
}
