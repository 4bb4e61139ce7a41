package models

import (
	"time"

	"gorm.io/gorm"
)

// AvailabilityOverride is a one-off exception to the weekly template for one
// employee. IsUnavailable true blocks the range (time off) and supersedes
// working hours; false grants exceptional availability outside normal hours.
// Overrides for the same employee must not overlap each other.
type AvailabilityOverride struct {
	gorm.Model
	BusinessID    uint      `json:"business_id" gorm:"index"`
	EmployeeID    uint      `json:"employee_id" gorm:"index"`
	Employee      Employee  `json:"employee,omitempty" gorm:"foreignKey:EmployeeID"`
	StartTime     time.Time `json:"start_time" gorm:"column:start_time"` // UTC
	EndTime       time.Time `json:"end_time" gorm:"column:end_time"`     // UTC
	IsUnavailable bool      `json:"is_unavailable" gorm:"column:is_unavailable"`
	Reason        string    `json:"reason,omitempty"`
}
