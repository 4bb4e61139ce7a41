package models

import (
	"gorm.io/gorm"
)

type DayOfWeek int

const (
	Sunday DayOfWeek = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

// WorkingHoursEntry is one recurring weekly window. EmployeeID nil means the
// entry is the business-wide default for that weekday; set, it overrides the
// default for that employee. Multiple entries per day model split shifts and
// must not overlap within the same scope+day.
type WorkingHoursEntry struct {
	gorm.Model
	BusinessID uint      `json:"business_id" gorm:"index"`
	EmployeeID *uint     `json:"employee_id,omitempty" gorm:"index"`
	DayOfWeek  DayOfWeek `json:"day_of_week" gorm:"column:day_of_week"`
	StartTime  string    `json:"start_time" gorm:"column:start_time"` // "HH:MM", 24h local
	EndTime    string    `json:"end_time" gorm:"column:end_time"`     // "HH:MM", 24h local
	IsOff      bool      `json:"is_off" gorm:"column:is_off"`
}
