package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionAssignDriver        = "ASSIGN_DRIVER"
	ActionAcceptTrip          = "ACCEPT_TRIP"
	ActionStartTrip           = "START_TRIP"
	ActionCompleteTrip        = "COMPLETE_TRIP"
	ActionCancelBooking       = "CANCEL_BOOKING"
	ActionCreateUser          = "CREATE_USER"
	ActionUpdateUserStatus    = "UPDATE_USER_STATUS"
	ActionBootstrapSuperAdmin = "BOOTSTRAP_SUPERADMIN"
)

// AuditLog tracks who changed dispatch or account state, and when
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // nil for unauthenticated bootstrap
	User       *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string     `gorm:"type:jsonb" json:"details"` // serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
