package models

import (
	"time"

	"gorm.io/gorm"
)

type ServiceStatus string

const (
	ServiceActive   ServiceStatus = "active"
	ServiceInactive ServiceStatus = "inactive"
	ServiceArchived ServiceStatus = "archived"
)

// Service is a bookable offering. Temporal fields (duration, buffers) are
// immutable once a booking references the service; price and description may
// still change.
type Service struct {
	gorm.Model
	BusinessID   uint          `json:"business_id" gorm:"index"`
	Business     Business      `json:"business,omitempty" gorm:"foreignKey:BusinessID"`
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	Duration     int           `json:"duration" gorm:"column:duration"` // minutes
	Price        float64       `json:"price"`
	Currency     string        `json:"currency"`
	BufferBefore int           `json:"buffer_before_minutes" gorm:"column:buffer_before_minutes"`
	BufferAfter  int           `json:"buffer_after_minutes" gorm:"column:buffer_after_minutes"`
	Status       ServiceStatus `json:"status" gorm:"default:'active'"`
	Employees    []Employee    `json:"employees,omitempty" gorm:"many2many:employee_services;"`
}

// DurationD returns the service duration as a time.Duration.
func (s *Service) DurationD() time.Duration {
	return time.Duration(s.Duration) * time.Minute
}

func (s *Service) IsBookable() bool {
	return s.Status == ServiceActive
}
