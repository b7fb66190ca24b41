package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingCreated        BookingStatus = "created"
	BookingDriverAssigned BookingStatus = "driver_assigned"
	BookingConfirmed      BookingStatus = "confirmed"
	BookingInProgress     BookingStatus = "in_progress"
	BookingCompleted      BookingStatus = "completed"
	BookingCancelled      BookingStatus = "cancelled"
	BookingFailed         BookingStatus = "failed"
)

// Terminal bookings are immutable.
func (s BookingStatus) Terminal() bool {
	return s == BookingCompleted || s == BookingCancelled || s == BookingFailed
}

// Booking is a customer's ride request and the source of truth for customer-facing status
type Booking struct {
	ID                 uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CustomerID         uuid.UUID           `gorm:"type:uuid;not null;index" json:"customer_id"`
	AssignedDriverID   *uuid.UUID          `gorm:"type:uuid;index" json:"assigned_driver_id"`
	Status             BookingStatus       `gorm:"type:varchar(20);not null;default:'created';index" json:"status"`
	ScheduledPickupAt  *time.Time          `json:"scheduled_pickup_at"`
	EstimatedDistanceM *int                `json:"estimated_distance_m"`
	EstimatedDurationS *int                `json:"estimated_duration_s"`
	QuotedFare         decimal.NullDecimal `gorm:"type:numeric(12,2)" json:"quoted_fare"`
	FinalFare          decimal.NullDecimal `gorm:"type:numeric(12,2)" json:"final_fare"`
	Currency           string              `gorm:"type:char(3);not null;default:'GBP'" json:"currency"`
	Notes              *string             `gorm:"type:text" json:"notes"`
	CreatedAt          time.Time           `gorm:"index" json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// BookingLocation holds pickup and drop-off details for a booking (1:1)
type BookingLocation struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	BookingID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"booking_id"`
	PickupAddress  string    `gorm:"type:text;not null" json:"pickup_address"`
	DropoffAddress string    `gorm:"type:text;not null" json:"dropoff_address"`
	PickupLat      float64   `gorm:"not null" json:"pickup_lat"`
	PickupLon      float64   `gorm:"not null" json:"pickup_lon"`
	DropoffLat     float64   `gorm:"not null" json:"dropoff_lat"`
	DropoffLon     float64   `gorm:"not null" json:"dropoff_lon"`
	PickupNotes    *string   `gorm:"type:text" json:"pickup_notes"`
	DropoffNotes   *string   `gorm:"type:text" json:"dropoff_notes"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
