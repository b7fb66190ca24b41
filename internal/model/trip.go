package model

import (
	"time"

	"github.com/google/uuid"
)

type TripStatus string

const (
	TripPending   TripStatus = "pending"
	TripAccepted  TripStatus = "accepted"
	TripStarted   TripStatus = "started"
	TripCompleted TripStatus = "completed"
	TripCancelled TripStatus = "cancelled"
)

func ValidTripStatus(s string) bool {
	switch TripStatus(s) {
	case TripPending, TripAccepted, TripStarted, TripCompleted, TripCancelled:
		return true
	}
	return false
}

// Trip is the operational record of a booking once a driver is attached.
// BookingID is unique: re-assignment mutates this row instead of adding one.
type Trip struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	BookingID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"booking_id"`
	DriverID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"driver_id"`
	Status      TripStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	DistanceM   *int       `json:"distance_m"`
	DurationS   *int       `json:"duration_s"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
