// Package booking is the transaction manager: it converts a chosen slot into
// a committed booking without letting two customers claim the same
// employee-time, and owns the booking status state machine.
package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/bookable/bookable/availability"
	"github.com/bookable/bookable/cache"
	"github.com/bookable/bookable/errs"
	"github.com/bookable/bookable/models"
	"github.com/bookable/bookable/notify"
)

type CreateBookingInput struct {
	ServiceID  uint      `json:"service_id"`
	EmployeeID *uint     `json:"employee_id,omitempty"`
	CustomerID uint      `json:"customer_id"`
	StartTime  time.Time `json:"start_time"` // UTC
	Notes      string    `json:"notes,omitempty"`
}

type Manager struct {
	db       *gorm.DB
	store    *Store
	resolver *availability.Resolver
	notifier notify.Notifier
	cache    *cache.Cache
}

func NewManager(db *gorm.DB, resolver *availability.Resolver, notifier notify.Notifier, c *cache.Cache) *Manager {
	return &Manager{
		db:       db,
		store:    NewStore(db),
		resolver: resolver,
		notifier: notifier,
		cache:    c,
	}
}

// CreateBooking validates ownership, then re-checks the slot against live data
// inside the reservation transaction and inserts. A slot that is gone by
// commit time surfaces as a ConflictError; the caller may re-fetch
// availability and offer alternatives. With no employee given, the active
// employees assigned to the service are tried in turn and the first free one
// gets the booking.
func (m *Manager) CreateBooking(ctx context.Context, businessID uint, in CreateBookingInput) (*models.Booking, error) {
	tx := m.db.WithContext(ctx)

	var business models.Business
	if err := tx.First(&business, businessID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("business", "business %d not found", businessID)
		}
		return nil, errs.FromDB(err, "load business")
	}

	var svc models.Service
	if err := tx.Where("business_id = ?", businessID).First(&svc, in.ServiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("service", "service %d not found", in.ServiceID)
		}
		return nil, errs.FromDB(err, "load service")
	}
	if !svc.IsBookable() {
		return nil, errs.Validation("service %q is not bookable", svc.Name)
	}

	var customer models.Customer
	if err := tx.Where("business_id = ?", businessID).First(&customer, in.CustomerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("customer", "customer %d not found", in.CustomerID)
		}
		return nil, errs.FromDB(err, "load customer")
	}

	candidates, err := m.candidateEmployees(tx, businessID, in.ServiceID, in.EmployeeID)
	if err != nil {
		return nil, err
	}

	status := models.StatusPending
	if business.AutoConfirmBookings {
		status = models.StatusConfirmed
	}

	start := in.StartTime.UTC()
	for _, emp := range candidates {
		booking := &models.Booking{
			Reference:    uuid.NewString(),
			BusinessID:   businessID,
			ServiceID:    svc.ID,
			EmployeeID:   emp.ID,
			CustomerID:   customer.ID,
			StartTime:    start,
			EndTime:      start.Add(svc.DurationD()),
			Status:       status,
			BufferBefore: svc.BufferBefore,
			BufferAfter:  svc.BufferAfter,
			Notes:        in.Notes,
		}

		err := m.store.TryReserve(ctx, emp.ID, func(resTx *gorm.DB) error {
			free, err := m.resolver.CheckSlotTx(resTx, businessID, svc.ID, start, emp.ID)
			if err != nil {
				return err
			}
			if !free {
				return errs.Conflict("slot no longer available")
			}
			return resTx.Create(booking).Error
		})
		if errs.IsConflict(err) {
			continue // next candidate, if any
		}
		if err != nil {
			if errs.IsValidation(err) || errs.IsNotFound(err) || errs.IsTransient(err) {
				return nil, err
			}
			return nil, errs.FromDB(err, "create booking")
		}

		m.cache.Bump(ctx, businessID)
		if status == models.StatusConfirmed {
			m.emit(ctx, notify.EventBookingConfirmed, booking.ID)
		}
		return booking, nil
	}
	return nil, errs.Conflict("slot no longer available")
}

// UpdateStatus moves a booking through the state machine. Illegal transitions
// are rejected with a ValidationError and nothing is written.
func (m *Manager) UpdateStatus(ctx context.Context, businessID, bookingID uint, next models.BookingStatus) (*models.Booking, error) {
	var booking models.Booking
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("business_id = ?", businessID).First(&booking, bookingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFound("booking", "booking %d not found", bookingID)
			}
			return err
		}
		return booking.UpdateStatus(tx, next)
	})
	if err != nil {
		if errs.IsValidation(err) || errs.IsNotFound(err) {
			return nil, err
		}
		return nil, errs.FromDB(err, "update booking status")
	}

	// A cancellation or rejection frees the slot for other customers.
	switch next {
	case models.StatusCancelled, models.StatusRejected:
		m.cache.Bump(ctx, businessID)
		m.emit(ctx, notify.EventBookingCancelled, booking.ID)
	case models.StatusConfirmed:
		m.emit(ctx, notify.EventBookingConfirmed, booking.ID)
	}
	return &booking, nil
}

// Cancel is a convenience wrapper for the cancelled transition.
func (m *Manager) Cancel(ctx context.Context, businessID, bookingID uint) (*models.Booking, error) {
	return m.UpdateStatus(ctx, businessID, bookingID, models.StatusCancelled)
}

// Reschedule moves a pending or confirmed booking to a new start through the
// same reservation gate as creation; the booking's own occupancy is excluded
// from the conflict check so it cannot collide with itself.
func (m *Manager) Reschedule(ctx context.Context, businessID, bookingID uint, newStart time.Time) (*models.Booking, error) {
	var booking models.Booking
	if err := m.db.WithContext(ctx).Where("business_id = ?", businessID).First(&booking, bookingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("booking", "booking %d not found", bookingID)
		}
		return nil, errs.FromDB(err, "load booking")
	}
	if booking.IsTerminal() {
		return nil, errs.Validation("cannot reschedule a %s booking", booking.Status)
	}

	start := newStart.UTC()
	duration := booking.EndTime.Sub(booking.StartTime)
	err := m.store.TryReserve(ctx, booking.EmployeeID, func(tx *gorm.DB) error {
		free, err := m.resolver.CheckSlotExcludingTx(tx, businessID, booking.ServiceID, start, booking.EmployeeID, booking.ID)
		if err != nil {
			return err
		}
		if !free {
			return errs.Conflict("slot no longer available")
		}
		return tx.Model(&booking).
			Updates(map[string]any{"start_time": start, "end_time": start.Add(duration)}).Error
	})
	if err != nil {
		if errs.IsConflict(err) || errs.IsValidation(err) || errs.IsNotFound(err) || errs.IsTransient(err) {
			return nil, err
		}
		return nil, errs.FromDB(err, "reschedule booking")
	}
	booking.StartTime = start
	booking.EndTime = start.Add(duration)

	m.cache.Bump(ctx, businessID)
	m.emit(ctx, notify.EventBookingRescheduled, booking.ID)
	return &booking, nil
}

// Upcoming lists an employee's pending and confirmed bookings inside a named
// date filter, soonest first.
func (m *Manager) Upcoming(ctx context.Context, businessID, employeeID uint, filter string, limit int) ([]models.Booking, error) {
	now := time.Now().UTC()
	from, to := now, now.AddDate(0, 1, 0)
	switch filter {
	case "today":
		to = now.Truncate(24 * time.Hour).Add(24 * time.Hour)
	case "tomorrow":
		from = now.Truncate(24 * time.Hour).Add(24 * time.Hour)
		to = from.Add(24 * time.Hour)
	case "week":
		to = now.AddDate(0, 0, 7)
	}

	q := m.db.WithContext(ctx).
		Preload("Service").Preload("Customer").
		Where("business_id = ? AND employee_id = ?", businessID, employeeID).
		Where("status IN ?", models.ActiveStatuses()).
		Where("start_time >= ? AND start_time < ?", from, to).
		Order("start_time asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var bookings []models.Booking
	if err := q.Find(&bookings).Error; err != nil {
		return nil, errs.FromDB(err, "list upcoming bookings")
	}
	return bookings, nil
}

func (m *Manager) candidateEmployees(tx *gorm.DB, businessID, serviceID uint, employeeID *uint) ([]models.Employee, error) {
	q := tx.Model(&models.Employee{}).
		Joins("JOIN employee_services es ON es.employee_id = employees.id").
		Where("employees.business_id = ? AND employees.is_active = ?", businessID, true).
		Where("es.service_id = ?", serviceID)
	if employeeID != nil {
		q = q.Where("employees.id = ?", *employeeID)
	}
	var employees []models.Employee
	if err := q.Find(&employees).Error; err != nil {
		return nil, errs.FromDB(err, "load employees")
	}
	if len(employees) == 0 {
		if employeeID != nil {
			return nil, errs.NotFound("employee", "employee %d is not assigned to service %d", *employeeID, serviceID)
		}
		return nil, errs.NotFound("employee", "no active employees assigned to service %d", serviceID)
	}
	return employees, nil
}

// emit sends the event for a booking; delivery failures are logged, never
// surfaced, since the booking itself has already committed.
func (m *Manager) emit(ctx context.Context, t notify.EventType, bookingID uint) {
	if m.notifier == nil {
		return
	}
	var booking models.Booking
	err := m.db.WithContext(ctx).
		Preload("Service").Preload("Employee").Preload("Customer").
		First(&booking, bookingID).Error
	if err != nil {
		log.Error().Err(err).Uint("booking_id", bookingID).Msg("failed to load booking for notification")
		return
	}
	var business models.Business
	if err := m.db.WithContext(ctx).First(&business, booking.BusinessID).Error; err != nil {
		log.Error().Err(err).Uint("business_id", booking.BusinessID).Msg("failed to load business for notification")
		return
	}
	if err := m.notifier.Send(ctx, notify.FromBooking(t, &booking, &business)); err != nil {
		log.Error().Err(err).Uint("booking_id", bookingID).Str("event", string(t)).Msg("notification send failed")
	}
}
