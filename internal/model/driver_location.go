package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DriverLocation is one GPS sample reported by a driver
type DriverLocation struct {
	ID             int64               `gorm:"primaryKey;autoIncrement" json:"id"`
	DriverID       uuid.UUID           `gorm:"type:uuid;not null;index" json:"driver_id"`
	Lat            float64             `gorm:"not null" json:"lat"`
	Lon            float64             `gorm:"not null" json:"lon"`
	HeadingDegrees decimal.NullDecimal `gorm:"type:numeric(6,2)" json:"heading_degrees"`
	SpeedMps       decimal.NullDecimal `gorm:"type:numeric(8,3)" json:"speed_mps"`
	AccuracyM      decimal.NullDecimal `gorm:"type:numeric(8,3)" json:"accuracy_m"`
	RecordedAt     time.Time           `gorm:"not null;index" json:"recorded_at"`
}
