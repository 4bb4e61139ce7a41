// Package availability turns schedule configuration (weekly working hours,
// per-employee overrides, existing bookings, service buffers) into bookable
// time slots. The booking transaction re-uses the exact same interval core via
// CheckSlotTx, so the pre-computation and the final gate cannot diverge.
package availability

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/bookable/bookable/cache"
	"github.com/bookable/bookable/errs"
	"github.com/bookable/bookable/models"
	"github.com/bookable/bookable/schedule"
	"github.com/bookable/bookable/timezone"
)

// TimeSlot is a candidate bookable [start, start+duration) interval.
type TimeSlot struct {
	Start      time.Time `json:"start_time"`
	End        time.Time `json:"end_time"`
	EmployeeID uint      `json:"employee_id"`
	Available  bool      `json:"available"`
}

const cacheTTL = 30 * time.Second

type Resolver struct {
	db    *gorm.DB
	cache *cache.Cache
}

func NewResolver(db *gorm.DB, c *cache.Cache) *Resolver {
	return &Resolver{db: db, cache: c}
}

// ComputeAvailableSlots returns the ordered bookable slots for a service on a
// local calendar date ("2006-01-02" in the business's timezone). With a nil
// employeeID every active employee assigned to the service is considered and a
// slot is available if at least one of them is free; the slot carries the
// first free employee.
func (r *Resolver) ComputeAvailableSlots(ctx context.Context, businessID, serviceID uint, date string, employeeID *uint) ([]TimeSlot, error) {
	tx := r.db.WithContext(ctx)

	business, svc, err := loadBusinessService(tx, businessID, serviceID)
	if err != nil {
		return nil, err
	}

	var reqEmployee uint
	if employeeID != nil {
		reqEmployee = *employeeID
	}
	key := fmt.Sprintf("avail:%d:%d:%s:%d:v%d",
		businessID, serviceID, date, reqEmployee, r.cache.Version(ctx, businessID))
	var cached []TimeSlot
	if r.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	candidates, err := candidateEmployees(tx, businessID, serviceID, employeeID)
	if err != nil {
		return nil, err
	}

	loc, err := timezone.Location(business.Timezone)
	if err != nil {
		return nil, err
	}
	day, err := time.ParseInLocation(timezone.DateLayout, date, loc)
	if err != nil {
		return nil, errs.Validation("invalid date %q", date)
	}

	// time.Time map keys compare the location too, and interval endpoints
	// coming off the database carry the driver's location, so dedupe on the
	// instant.
	seen := map[int64]bool{}
	var slots []TimeSlot
	for _, emp := range candidates {
		work, busy, err := freeForEmployee(tx, business, day, loc, emp.ID, 0)
		if err != nil {
			return nil, err
		}
		for _, start := range walkSlots(work, busy, svc) {
			if seen[start.UnixNano()] {
				continue
			}
			seen[start.UnixNano()] = true
			slots = append(slots, TimeSlot{
				Start:      start,
				End:        start.Add(svc.DurationD()),
				EmployeeID: emp.ID,
				Available:  true,
			})
		}
	}
	sortSlots(slots)

	r.cache.Set(ctx, key, slots, cacheTTL)
	return slots, nil
}

// IsSlotStillAvailable re-runs the free/occupied test for a single start
// instant against current data.
func (r *Resolver) IsSlotStillAvailable(ctx context.Context, businessID, serviceID uint, startUTC time.Time, employeeID uint) (bool, error) {
	return r.CheckSlotTx(r.db.WithContext(ctx), businessID, serviceID, startUTC, employeeID)
}

// CheckSlotTx is the transactional form of IsSlotStillAvailable. The booking
// manager calls it inside the reservation transaction so the answer reflects
// live, lock-protected data, not a cached read.
func (r *Resolver) CheckSlotTx(tx *gorm.DB, businessID, serviceID uint, startUTC time.Time, employeeID uint) (bool, error) {
	return r.CheckSlotExcludingTx(tx, businessID, serviceID, startUTC, employeeID, 0)
}

// CheckSlotExcludingTx is CheckSlotTx with one booking left out of the busy
// set; reschedules use it so a booking does not conflict with itself.
func (r *Resolver) CheckSlotExcludingTx(tx *gorm.DB, businessID, serviceID uint, startUTC time.Time, employeeID, excludeBookingID uint) (bool, error) {
	business, svc, err := loadBusinessService(tx, businessID, serviceID)
	if err != nil {
		return false, err
	}
	loc, err := timezone.Location(business.Timezone)
	if err != nil {
		return false, err
	}
	day := startUTC.In(loc)

	work, busy, err := freeForEmployee(tx, business, day, loc, employeeID, excludeBookingID)
	if err != nil {
		return false, err
	}
	return slotFree(work, busy, startUTC, svc), nil
}

// slotFree applies the one occupancy rule used everywhere: the bare slot must
// lie inside a working window, and the slot expanded by the service's own
// buffers must not touch any buffer-expanded active booking. The second half
// is what keeps buffer-expanded bookings pairwise disjoint.
func slotFree(work, busy []Interval, start time.Time, svc *models.Service) bool {
	slot := Interval{Start: start, End: start.Add(svc.DurationD())}
	if !fits(work, slot) {
		return false
	}
	occupied := Interval{
		Start: slot.Start.Add(-time.Duration(svc.BufferBefore) * time.Minute),
		End:   slot.End.Add(time.Duration(svc.BufferAfter) * time.Minute),
	}
	for _, b := range busy {
		if b.Overlaps(occupied) {
			return false
		}
	}
	return true
}

// walkSlots steps through the free intervals in duration-sized steps from each
// interval's start, keeping starts whose slot passes slotFree.
func walkSlots(work, busy []Interval, svc *models.Service) []time.Time {
	dur := svc.DurationD()
	var starts []time.Time
	for _, iv := range subtractAll(work, busy) {
		for start := iv.Start; !start.Add(dur).After(iv.End); start = start.Add(dur) {
			if slotFree(work, busy, start, svc) {
				starts = append(starts, start)
			}
		}
	}
	return starts
}

// freeForEmployee resolves one employee's day into working intervals (weekly
// template with the business-default cascade, plus available overrides, minus
// unavailable overrides) and busy intervals (buffer-expanded bookings in
// pending or confirmed status).
func freeForEmployee(tx *gorm.DB, business *models.Business, day time.Time, loc *time.Location, employeeID, excludeBookingID uint) (work, busy []Interval, err error) {
	entries, err := schedule.EffectiveEntriesForDay(tx, business.ID, employeeID, models.DayOfWeek(day.Weekday()))
	if err != nil {
		return nil, nil, err
	}

	for _, e := range entries {
		if e.IsOff {
			continue
		}
		sh, sm, err := parseHHMM(e.StartTime)
		if err != nil {
			return nil, nil, err
		}
		eh, em, err := parseHHMM(e.EndTime)
		if err != nil {
			return nil, nil, err
		}
		work = append(work, Interval{
			Start: timezone.At(day, sh, sm, loc),
			End:   timezone.At(day, eh, em, loc),
		})
	}

	// AddDate, not +24h: a DST-transition day is 23 or 25 local hours.
	localMidnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	dayStart := localMidnight.UTC()
	dayEnd := localMidnight.AddDate(0, 0, 1).UTC()

	var overrides []models.AvailabilityOverride
	err = tx.Where("employee_id = ?", employeeID).
		Where("start_time < ? AND end_time > ?", dayEnd, dayStart).
		Find(&overrides).Error
	if err != nil {
		return nil, nil, errs.FromDB(err, "load overrides")
	}
	for _, o := range overrides {
		if !o.IsUnavailable {
			work = append(work, Interval{Start: o.StartTime.UTC(), End: o.EndTime.UTC()})
		}
	}
	work = mergeIntervals(work)
	for _, o := range overrides {
		if o.IsUnavailable {
			work = subtractInterval(work, Interval{Start: o.StartTime.UTC(), End: o.EndTime.UTC()})
		}
	}

	// Fetch with a day of slack on each side so buffers reaching into this
	// day from neighbouring bookings are not missed.
	var bookings []models.Booking
	q := tx.Where("employee_id = ? AND status IN ?", employeeID, models.ActiveStatuses()).
		Where("start_time < ? AND end_time > ?", dayEnd.Add(24*time.Hour), dayStart.Add(-24*time.Hour))
	if excludeBookingID != 0 {
		q = q.Where("id <> ?", excludeBookingID)
	}
	err = q.Find(&bookings).Error
	if err != nil {
		return nil, nil, errs.FromDB(err, "load bookings")
	}
	for _, b := range bookings {
		s, e := b.Occupies()
		busy = append(busy, Interval{Start: s.UTC(), End: e.UTC()})
	}
	return work, busy, nil
}

func loadBusinessService(tx *gorm.DB, businessID, serviceID uint) (*models.Business, *models.Service, error) {
	var business models.Business
	if err := tx.First(&business, businessID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, errs.NotFound("business", "business %d not found", businessID)
		}
		return nil, nil, errs.FromDB(err, "load business")
	}
	var svc models.Service
	if err := tx.Where("business_id = ?", businessID).First(&svc, serviceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, errs.NotFound("service", "service %d not found", serviceID)
		}
		return nil, nil, errs.FromDB(err, "load service")
	}
	if !svc.IsBookable() {
		return nil, nil, errs.Validation("service %q is not bookable", svc.Name)
	}
	return &business, &svc, nil
}

// candidateEmployees returns the requested employee, or every active employee
// assigned to the service when none is given.
func candidateEmployees(tx *gorm.DB, businessID, serviceID uint, employeeID *uint) ([]models.Employee, error) {
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
	if employeeID != nil && len(employees) == 0 {
		return nil, errs.NotFound("employee", "employee %d is not assigned to service %d", *employeeID, serviceID)
	}
	return employees, nil
}

func parseHHMM(s string) (int, int, error) {
	t, err := time.Parse(timezone.TimeLayout, s)
	if err != nil {
		return 0, 0, errs.Internal(err, "malformed stored time %q", s)
	}
	return t.Hour(), t.Minute(), nil
}

func sortSlots(slots []TimeSlot) {
	sort.Slice(slots, func(i, j int) bool { return slots[i].Start.Before(slots[j].Start) })
}
