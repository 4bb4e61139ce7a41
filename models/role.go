package models

import (
	"time"

	"gorm.io/gorm"
)

type Role struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	Name        string         `json:"name" gorm:"unique"`
	Description string         `json:"description"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
	Permissions []Permission   `json:"permissions,omitempty" gorm:"many2many:role_permissions;"`
}

type Permission struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	Name        string         `json:"name" gorm:"unique"`
	Description string         `json:"description"`
	Resource    string         `json:"resource"` // e.g. "bookings", "schedule"
	Action      string         `json:"action"`   // "create", "read", "update", "delete"
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// DefaultRolePermissions is the static role→permission table. The auth layer
// looks it up once at seed time rather than recomputing per request.
var DefaultRolePermissions = map[string][]string{
	"owner":        {"bookings:*", "schedule:*", "services:*", "employees:*"},
	"manager":      {"bookings:*", "schedule:*", "services:read", "employees:read"},
	"employee":     {"bookings:read", "schedule:read", "schedule:update_own"},
	"receptionist": {"bookings:create", "bookings:read", "bookings:update", "schedule:read"},
	"customer":     {"bookings:create", "bookings:read_own", "bookings:cancel_own"},
}
