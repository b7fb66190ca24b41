package model

import (
	"time"

	"github.com/google/uuid"
)

// Role names carried in access tokens and stored on users
const (
	RoleCustomer   = "customer"
	RoleDriver     = "driver"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
)

const (
	UserStatusActive    = "active"
	UserStatusSuspended = "suspended"
	UserStatusDisabled  = "disabled"
)

// User represents any account: customers, drivers and operators
type User struct {
	ID              uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email           string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PhoneE164       *string    `gorm:"type:varchar(20);uniqueIndex" json:"phone_e164"`
	PasswordHash    string     `gorm:"type:varchar(255)" json:"-"` // empty for magic-link-only accounts
	Role            string     `gorm:"type:varchar(20);not null;default:'customer';index" json:"role"`
	Status          string     `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	EmailVerifiedAt *time.Time `json:"email_verified_at"`
	PhoneVerifiedAt *time.Time `json:"phone_verified_at"`
	LastLoginAt     *time.Time `json:"last_login_at"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// IsAdminRole reports whether role may operate the dispatch console.
func IsAdminRole(role string) bool {
	return role == RoleAdmin || role == RoleSuperAdmin
}

func ValidRole(role string) bool {
	switch role {
	case RoleCustomer, RoleDriver, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

func ValidUserStatus(status string) bool {
	switch status {
	case UserStatusActive, UserStatusSuspended, UserStatusDisabled:
		return true
	}
	return false
}
