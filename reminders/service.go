// Package reminders scans confirmed future bookings and hands each one to the
// notification collaborator exactly once per horizon. The serialization point
// is the flag claim: a conditional update flips the reminder flag only if it
// is still false, so overlapping runs (including other process instances)
// cannot double-send. A claimed flag whose notification then fails is a
// logged, accepted loss.
package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/bookable/bookable/errs"
	"github.com/bookable/bookable/models"
	"github.com/bookable/bookable/notify"
)

// Horizon is one reminder lead time with its own sent flag and job period.
type Horizon struct {
	Event  notify.EventType
	Lead   time.Duration
	Period time.Duration // how often the job for this horizon runs
	Column string        // reminder flag column on bookings
}

var (
	Horizon24h = Horizon{Event: notify.EventReminder24h, Lead: 24 * time.Hour, Period: time.Hour, Column: "reminder_sent_24h"}
	Horizon1h  = Horizon{Event: notify.EventReminder1h, Lead: time.Hour, Period: 15 * time.Minute, Column: "reminder_sent_1h"}
)

type Service struct {
	db       *gorm.DB
	notifier notify.Notifier
}

func NewService(db *gorm.DB, notifier notify.Notifier) *Service {
	return &Service{db: db, notifier: notifier}
}

// Run executes one claim-then-notify pass for the horizon and returns how many
// bookings were claimed. One notification failure never aborts the rest of the
// batch.
func (s *Service) Run(ctx context.Context, h Horizon) (int, error) {
	now := time.Now().UTC()
	from := now.Add(h.Lead - h.Period)
	to := now.Add(h.Lead)

	var ids []uint
	err := s.db.WithContext(ctx).Model(&models.Booking{}).
		Where("status = ?", models.StatusConfirmed).
		Where("start_time >= ? AND start_time < ?", from, to).
		Where(h.Column+" = ?", false).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, errs.FromDB(err, "scan reminder candidates")
	}

	claimed := 0
	for _, id := range ids {
		// The claim: flip the flag only if still false. Zero rows affected
		// means another run got there first.
		res := s.db.WithContext(ctx).Model(&models.Booking{}).
			Where(fmt.Sprintf("id = ? AND %s = ?", h.Column), id, false).
			Update(h.Column, true)
		if res.Error != nil {
			log.Error().Err(res.Error).Uint("booking_id", id).Msg("reminder claim failed")
			continue
		}
		if res.RowsAffected == 0 {
			continue
		}
		claimed++
		s.sendReminder(ctx, h, id)
	}

	if claimed > 0 {
		log.Info().Str("horizon", string(h.Event)).Int("claimed", claimed).Msg("reminder batch processed")
	}
	return claimed, nil
}

// sendReminder delivers one reminder. The claim is deliberately not rolled
// back on failure; the error is logged per booking.
func (s *Service) sendReminder(ctx context.Context, h Horizon, bookingID uint) {
	var booking models.Booking
	err := s.db.WithContext(ctx).
		Preload("Service").Preload("Employee").Preload("Customer").
		First(&booking, bookingID).Error
	if err != nil {
		log.Error().Err(err).Uint("booking_id", bookingID).Msg("failed to load booking for reminder")
		return
	}
	var business models.Business
	if err := s.db.WithContext(ctx).First(&business, booking.BusinessID).Error; err != nil {
		log.Error().Err(err).Uint("business_id", booking.BusinessID).Msg("failed to load business for reminder")
		return
	}
	if err := s.notifier.Send(ctx, notify.FromBooking(h.Event, &booking, &business)); err != nil {
		log.Error().Err(err).
			Uint("booking_id", bookingID).
			Str("horizon", string(h.Event)).
			Msg("reminder send failed, flag stays claimed")
	}
}
