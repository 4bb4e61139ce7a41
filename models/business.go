package models

import (
	"gorm.io/gorm"
)

// Business is a tenant-scoped operator offering services and employing staff.
type Business struct {
	gorm.Model
	TenantID            uint   `json:"tenant_id" gorm:"index"`
	Name                string `json:"name"`
	Timezone            string `json:"timezone" gorm:"default:'UTC'"` // IANA identifier
	Currency            string `json:"currency" gorm:"default:'USD'"`
	AutoConfirmBookings bool   `json:"auto_confirm_bookings"`
	Email               string `json:"email"`
	PhoneNumber         string `json:"phone_number"`
	Address             string `json:"address"`
}
