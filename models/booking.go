package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/bookable/bookable/errs"
)

type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
	StatusCompleted BookingStatus = "completed"
	StatusRejected  BookingStatus = "rejected"
	StatusNoShow    BookingStatus = "no_show"
)

// legalTransitions drives the booking state machine. Terminal states have no
// outgoing edges.
var legalTransitions = map[BookingStatus][]BookingStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled, StatusRejected},
	StatusConfirmed: {StatusCompleted, StatusCancelled, StatusNoShow},
}

// Booking is never physically deleted; cancellation is a status transition.
// Buffer minutes are copied from the service at creation time so conflict
// checks stay correct even if the service is later edited.
type Booking struct {
	gorm.Model
	Reference      string        `json:"reference" gorm:"uniqueIndex"`
	BusinessID     uint          `json:"business_id" gorm:"index"`
	ServiceID      uint          `json:"service_id" gorm:"column:service_id"`
	Service        Service       `json:"service,omitempty" gorm:"foreignKey:ServiceID"`
	EmployeeID     uint          `json:"employee_id" gorm:"column:employee_id;index"`
	Employee       Employee      `json:"employee,omitempty" gorm:"foreignKey:EmployeeID"`
	CustomerID     uint          `json:"customer_id" gorm:"column:customer_id"`
	Customer       Customer      `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	StartTime      time.Time     `json:"start_time" gorm:"column:start_time;index"` // UTC
	EndTime        time.Time     `json:"end_time" gorm:"column:end_time"`           // UTC
	Status         BookingStatus `json:"status" gorm:"index"`
	BufferBefore   int           `json:"buffer_before_minutes" gorm:"column:buffer_before_minutes"`
	BufferAfter    int           `json:"buffer_after_minutes" gorm:"column:buffer_after_minutes"`
	Notes          string        `json:"notes,omitempty"`
	ReminderSent24 bool          `json:"reminder_sent_24h" gorm:"column:reminder_sent_24h"`
	ReminderSent1  bool          `json:"reminder_sent_1h" gorm:"column:reminder_sent_1h"`
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.Status == "" {
		b.Status = StatusPending
	}
	return nil
}

// CanTransition reports whether status may move to next.
func (b Booking) CanTransition(next BookingStatus) bool {
	for _, s := range legalTransitions[b.Status] {
		if s == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the booking is in a final state.
func (b Booking) IsTerminal() bool {
	return len(legalTransitions[b.Status]) == 0
}

// UpdateStatus applies the state machine and persists the change. Status
// changes are the only permitted mutation of an existing booking besides the
// reminder flags.
func (b *Booking) UpdateStatus(tx *gorm.DB, next BookingStatus) error {
	if !b.CanTransition(next) {
		return errs.Validation("invalid transition from %s to %s", b.Status, next)
	}
	if err := tx.Model(b).Update("status", next).Error; err != nil {
		return errs.FromDB(err, "update booking status")
	}
	b.Status = next
	return nil
}

// Occupies returns the buffer-expanded interval during which the employee is
// considered busy: [start-buffer_before, end+buffer_after).
func (b *Booking) Occupies() (time.Time, time.Time) {
	return b.StartTime.Add(-time.Duration(b.BufferBefore) * time.Minute),
		b.EndTime.Add(time.Duration(b.BufferAfter) * time.Minute)
}

// ActiveStatuses are the statuses that block a slot.
func ActiveStatuses() []BookingStatus {
	return []BookingStatus{StatusPending, StatusConfirmed}
}
