// Package notify defines the structured events handed to the external
// notification collaborator, plus an SMTP implementation.
package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bookable/bookable/models"
)

type EventType string

const (
	EventBookingConfirmed   EventType = "booking_confirmed"
	EventBookingCancelled   EventType = "booking_cancelled"
	EventBookingRescheduled EventType = "booking_rescheduled"
	EventReminder24h        EventType = "booking_reminder_24h"
	EventReminder1h         EventType = "booking_reminder_1h"
)

// Event carries everything downstream formatters need; start time stays UTC
// and the business timezone travels with it.
type Event struct {
	Type             EventType `json:"type"`
	BookingID        uint      `json:"booking_id"`
	BusinessID       uint      `json:"business_id"`
	CustomerName     string    `json:"customer_name"`
	CustomerContact  string    `json:"customer_contact"`
	ServiceName      string    `json:"service_name"`
	ServiceDuration  int       `json:"service_duration"` // minutes
	EmployeeName     string    `json:"employee_name"`
	StartTime        time.Time `json:"start_time"` // UTC
	BusinessTimezone string    `json:"business_timezone"`
}

type Notifier interface {
	Send(ctx context.Context, e Event) error
}

// FromBooking builds an event from a booking with Service, Employee and
// Customer preloaded.
func FromBooking(t EventType, b *models.Booking, business *models.Business) Event {
	return Event{
		Type:             t,
		BookingID:        b.ID,
		BusinessID:       business.ID,
		CustomerName:     b.Customer.Name,
		CustomerContact:  b.Customer.Email,
		ServiceName:      b.Service.Name,
		ServiceDuration:  b.Service.Duration,
		EmployeeName:     b.Employee.Name,
		StartTime:        b.StartTime.UTC(),
		BusinessTimezone: business.Timezone,
	}
}

// LogNotifier writes events to the log instead of delivering them. Used when
// SMTP is not configured.
type LogNotifier struct{}

func (LogNotifier) Send(_ context.Context, e Event) error {
	log.Info().
		Str("type", string(e.Type)).
		Uint("booking_id", e.BookingID).
		Uint("business_id", e.BusinessID).
		Str("customer", e.CustomerContact).
		Time("start_time", e.StartTime).
		Msg("notification event")
	return nil
}
