package models

import (
	"gorm.io/gorm"
)

// Employee is a business-scoped staff identity, distinct from the underlying
// user account.
type Employee struct {
	gorm.Model
	BusinessID uint                `json:"business_id" gorm:"index"`
	Business   Business            `json:"business,omitempty" gorm:"foreignKey:BusinessID"`
	UserID     *uint               `json:"user_id,omitempty"`
	Name       string              `json:"name"`
	Email      string              `json:"email"`
	IsActive   bool                `json:"is_active" gorm:"default:true"`
	Services   []Service           `json:"services,omitempty" gorm:"many2many:employee_services;"`
	Hours      []WorkingHoursEntry `json:"working_hours,omitempty" gorm:"foreignKey:EmployeeID"`
}

// Customer is the business-scoped booking party.
type Customer struct {
	gorm.Model
	BusinessID  uint   `json:"business_id" gorm:"index"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
}
