package availability

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/bookable/bookable/db"
	"github.com/bookable/bookable/errs"
	"github.com/bookable/bookable/models"
	"github.com/bookable/bookable/schedule"
)

// 2025-06-16 is a Monday; New York is UTC-4 in June.
const monday = "2025-06-16"

type fixture struct {
	db       *gorm.DB
	store    *schedule.Store
	resolver *Resolver
	business models.Business
	employee models.Employee
	service  models.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb, err := db.Connect("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, gdb.AutoMigrate(
		&models.Business{},
		&models.Employee{},
		&models.Customer{},
		&models.Service{},
		&models.WorkingHoursEntry{},
		&models.AvailabilityOverride{},
		&models.Booking{},
	))

	f := &fixture{db: gdb, store: schedule.NewStore(gdb), resolver: NewResolver(gdb, nil)}

	f.business = models.Business{Name: "Shear Genius", Timezone: "America/New_York"}
	require.NoError(t, gdb.Create(&f.business).Error)
	f.employee = models.Employee{BusinessID: f.business.ID, Name: "Dana", IsActive: true}
	require.NoError(t, gdb.Create(&f.employee).Error)
	f.service = models.Service{
		BusinessID: f.business.ID,
		Name:       "Haircut",
		Duration:   60,
		Price:      35,
		Currency:   "USD",
		Status:     models.ServiceActive,
	}
	require.NoError(t, gdb.Create(&f.service).Error)
	require.NoError(t, gdb.Model(&f.employee).Association("Services").Append(&f.service))
	return f
}

func (f *fixture) setEmployeeHours(t *testing.T, entries ...models.WorkingHoursEntry) {
	t.Helper()
	_, err := f.store.SetWorkingHours(context.Background(),
		schedule.Scope{BusinessID: f.business.ID, EmployeeID: &f.employee.ID}, entries)
	require.NoError(t, err)
}

func (f *fixture) setBusinessHours(t *testing.T, entries ...models.WorkingHoursEntry) {
	t.Helper()
	_, err := f.store.SetWorkingHours(context.Background(),
		schedule.Scope{BusinessID: f.business.ID}, entries)
	require.NoError(t, err)
}

func (f *fixture) addBooking(t *testing.T, start, end time.Time, status models.BookingStatus, bufBefore, bufAfter int) models.Booking {
	t.Helper()
	b := models.Booking{
		Reference:    uuid.NewString(),
		BusinessID:   f.business.ID,
		ServiceID:    f.service.ID,
		EmployeeID:   f.employee.ID,
		StartTime:    start,
		EndTime:      end,
		Status:       status,
		BufferBefore: bufBefore,
		BufferAfter:  bufAfter,
	}
	require.NoError(t, f.db.Create(&b).Error)
	return b
}

func utc(hour, min int) time.Time {
	return time.Date(2025, 6, 16, hour, min, 0, 0, time.UTC)
}

func slotStarts(slots []TimeSlot) []time.Time {
	starts := make([]time.Time, len(slots))
	for i, s := range slots {
		starts[i] = s.Start
	}
	return starts
}

func TestMondaySlotsWithinWorkingHours(t *testing.T) {
	f := newFixture(t)
	f.setEmployeeHours(t, models.WorkingHoursEntry{DayOfWeek: models.Monday, StartTime: "09:00", EndTime: "17:00"})

	slots, err := f.resolver.ComputeAvailableSlots(context.Background(), f.business.ID, f.service.ID, monday, &f.employee.ID)
	require.NoError(t, err)
	require.Len(t, slots, 8) // 09:00 .. 16:00 local

	// 09:00 EDT = 13:00 UTC must be offered.
	assert.True(t, slots[0].Start.Equal(utc(13, 0)))
	// Last slot starts 16:00 local; 16:30 would end past close and 08:00 is
	// before open, neither may appear.
	assert.True(t, slots[len(slots)-1].Start.Equal(utc(20, 0)))
	for _, s := range slots {
		assert.False(t, s.Start.Equal(utc(20, 30)), "16:30 local slot would exceed closing time")
		assert.False(t, s.Start.Equal(utc(12, 0)), "08:00 local slot is before opening")
		assert.True(t, s.Available)
		assert.Equal(t, f.employee.ID, s.EmployeeID)
	}
}

func TestCascadesToBusinessDefaultWhenEmployeeHasNone(t *testing.T) {
	f := newFixture(t)
	f.setBusinessHours(t, models.WorkingHoursEntry{DayOfWeek: models.Monday, StartTime: "10:00", EndTime: "12:00"})

	slots, err := f.resolver.ComputeAvailableSlots(context.Background(), f.business.ID, f.service.ID, monday, &f.employee.ID)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.True(t, slots[0].Start.Equal(utc(14, 0))) // 10:00 EDT

	// Once the employee has their own Monday entry, it wins over the default.
	f.setEmployeeHours(t, models.WorkingHoursEntry{DayOfWeek: models.Monday, StartTime: "14:00", EndTime: "16:00"})
	slots, err = f.resolver.ComputeAvailableSlots(context.Background(), f.business.ID, f.service.ID, monday, &f.employee.ID)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.True(t, slots[0].Start.Equal(utc(18, 0))) // 14:00 EDT
}

func TestExistingBookingBlocksOverlappingSlot(t *testing.T) {
	f := newFixture(t)
	f.setEmployeeHours(t, models.WorkingHoursEntry{DayOfWeek: models.Monday, StartTime: "09:00", EndTime: "17:00"})
	// Confirmed booking 10:00-11:00 local (14:00-15:00 UTC).
	f.addBooking(t, utc(14, 0), utc(15, 0), models.StatusConfirmed, 0, 0)

	ok, err := f.resolver.IsSlotStillAvailable(context.Background(), f.business.ID, f.service.ID, utc(14, 30), f.employee.ID)
	require.NoError(t, err)
	assert.False(t, ok, "10:30 local overlaps the 10:00-11:00 booking")

	ok, err = f.resolver.IsSlotStillAvailable(context.Background(), f.business.ID, f.service.ID, utc(15, 0), f.employee.ID)
	require.NoError(t, err)
	assert.True(t, ok, "11:00 local touches but does not overlap")

	slots, err := f.resolver.ComputeAvailableSlots(context.Background(), f.business.ID, f.service.ID, monday, &f.employee.ID)
	require.NoError(t, err)
	assert.NotContains(t, slotStarts(slots), utc(14, 0))
	assert.NotContains(t, slotStarts(slots), utc(14, 30))
}

func TestCancelledBookingDoesNotBlock(t *testing.T) {
	f := newFixture(t)
	f.setEmployeeHours(t, models.WorkingHoursEntry{DayOfWeek: models.Monday, StartTime: "09:00", EndTime: "17:00"})
	f.addBooking(t, utc(14, 0), utc(15, 0), models.StatusCancelled, 0, 0)

	ok, err := f.resolver.IsSlotStillAvailable(context.Background(), f.business.ID, f.service.ID, utc(14, 0), f.employee.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUnavailableOverrideBlocksSlot(t *testing.T) {
	f := newFixture(t)
	f.setEmployeeHours(t, models.WorkingHoursEntry{DayOfWeek: models.Monday, StartTime: "09:00", EndTime: "17:00"})

	ok, err := f.resolver.IsSlotStillAvailable(context.Background(), f.business.ID, f.service.ID, utc(14, 30), f.employee.ID)
	require.NoError(t, err)
	require.True(t, ok, "slot free before the override exists")

	require.NoError(t, f.db.Create(&models.AvailabilityOverride{
		BusinessID:    f.business.ID,
		EmployeeID:    f.employee.ID,
		StartTime:     utc(14, 0),
		EndTime:       utc(15, 0),
		IsUnavailable: true,
		Reason:        "time off",
	}).Error)

	ok, err = f.resolver.IsSlotStillAvailable(context.Background(), f.business.ID, f.service.ID, utc(14, 30), f.employee.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAvailableOverrideAddsHoursOutsideTemplate(t *testing.T) {
	f := newFixture(t)
	f.setEmployeeHours(t, models.WorkingHoursEntry{DayOfWeek: models.Monday, StartTime: "09:00", EndTime: "12:00"})

	// Exceptional evening availability 18:00-20:00 local (22:00-00:00 UTC).
	require.NoError(t, f.db.Create(&models.AvailabilityOverride{
		BusinessID: f.business.ID,
		EmployeeID: f.employee.ID,
		StartTime:  utc(22, 0),
		EndTime:    time.Date(2025, 6, 17, 0, 0, 0, 0, time.UTC),
	}).Error)

	slots, err := f.resolver.ComputeAvailableSlots(context.Background(), f.business.ID, f.service.ID, monday, &f.employee.ID)
	require.NoError(t, err)
	assert.Contains(t, slotStarts(slots), utc(22, 0))
	assert.Contains(t, slotStarts(slots), utc(23, 0))
}

func TestBuffersExpandOccupancy(t *testing.T) {
	f := newFixture(t)
	f.setEmployeeHours(t, models.WorkingHoursEntry{DayOfWeek: models.Monday, StartTime: "09:00", EndTime: "17:00"})
	// Existing booking 14:00-15:00 UTC with 15 min buffer on each side.
	f.addBooking(t, utc(14, 0), utc(15, 0), models.StatusConfirmed, 15, 15)

	// 15:00 starts inside the trailing buffer.
	ok, err := f.resolver.IsSlotStillAvailable(context.Background(), f.business.ID, f.service.ID, utc(15, 0), f.employee.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.resolver.IsSlotStillAvailable(context.Background(), f.business.ID, f.service.ID, utc(15, 15), f.employee.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestServiceOwnBuffersKeepClearOfBookings(t *testing.T) {
	f := newFixture(t)
	f.service.BufferBefore = 15
	f.service.BufferAfter = 15
	require.NoError(t, f.db.Save(&f.service).Error)
	f.setEmployeeHours(t, models.WorkingHoursEntry{DayOfWeek: models.Monday, StartTime: "09:00", EndTime: "17:00"})
	f.addBooking(t, utc(14, 0), utc(15, 0), models.StatusConfirmed, 0, 0)

	// A new slot at 15:00 would put its leading buffer inside the booking.
	ok, err := f.resolver.IsSlotStillAvailable(context.Background(), f.business.ID, f.service.ID, utc(15, 0), f.employee.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.resolver.IsSlotStillAvailable(context.Background(), f.business.ID, f.service.ID, utc(15, 15), f.employee.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNoEmployeeMergesAcrossStaff(t *testing.T) {
	f := newFixture(t)
	f.setEmployeeHours(t, models.WorkingHoursEntry{DayOfWeek: models.Monday, StartTime: "09:00", EndTime: "11:00"})

	second := models.Employee{BusinessID: f.business.ID, Name: "Riley", IsActive: true}
	require.NoError(t, f.db.Create(&second).Error)
	require.NoError(t, f.db.Model(&second).Association("Services").Append(&f.service))
	_, err := f.store.SetWorkingHours(context.Background(),
		schedule.Scope{BusinessID: f.business.ID, EmployeeID: &second.ID},
		[]models.WorkingHoursEntry{{DayOfWeek: models.Monday, StartTime: "10:00", EndTime: "12:00"}})
	require.NoError(t, err)

	slots, err := f.resolver.ComputeAvailableSlots(context.Background(), f.business.ID, f.service.ID, monday, nil)
	require.NoError(t, err)
	starts := slotStarts(slots)
	assert.Contains(t, starts, utc(13, 0)) // 09:00 local, only Dana
	assert.Contains(t, starts, utc(15, 0)) // 11:00 local, only Riley
	assert.Contains(t, starts, utc(14, 0)) // 10:00 local, either
	// Merged and ordered, no duplicates.
	for i := 1; i < len(slots); i++ {
		assert.True(t, slots[i-1].Start.Before(slots[i].Start))
	}
}

func TestMergedSlotsDedupeAtBookingBoundaries(t *testing.T) {
	f := newFixture(t)
	f.setEmployeeHours(t, models.WorkingHoursEntry{DayOfWeek: models.Monday, StartTime: "09:00", EndTime: "13:00"})

	second := models.Employee{BusinessID: f.business.ID, Name: "Riley", IsActive: true}
	require.NoError(t, f.db.Create(&second).Error)
	require.NoError(t, f.db.Model(&second).Association("Services").Append(&f.service))
	_, err := f.store.SetWorkingHours(context.Background(),
		schedule.Scope{BusinessID: f.business.ID, EmployeeID: &second.ID},
		[]models.WorkingHoursEntry{{DayOfWeek: models.Monday, StartTime: "09:00", EndTime: "13:00"}})
	require.NoError(t, err)

	// Dana's free window restarts at the booking's end, so she reaches 15:00Z
	// off a stored boundary while Riley reaches it by stepping. The merged
	// list must still carry each start once.
	f.addBooking(t, utc(14, 0), utc(15, 0), models.StatusConfirmed, 0, 0)

	slots, err := f.resolver.ComputeAvailableSlots(context.Background(), f.business.ID, f.service.ID, monday, nil)
	require.NoError(t, err)

	nanos := make([]int64, len(slots))
	for i, s := range slots {
		nanos[i] = s.Start.UnixNano()
	}
	want := []int64{
		utc(13, 0).UnixNano(),
		utc(14, 0).UnixNano(), // Riley only; Dana is booked
		utc(15, 0).UnixNano(),
		utc(16, 0).UnixNano(),
	}
	assert.Equal(t, want, nanos)
}

func TestUnavailableOverrideInFallBackExtraHour(t *testing.T) {
	f := newFixture(t)
	f.setEmployeeHours(t, models.WorkingHoursEntry{DayOfWeek: models.Sunday, StartTime: "09:00", EndTime: "23:59"})

	short := models.Service{
		BusinessID: f.business.ID,
		Name:       "Trim",
		Duration:   30,
		Price:      20,
		Currency:   "USD",
		Status:     models.ServiceActive,
	}
	require.NoError(t, f.db.Create(&short).Error)
	require.NoError(t, f.db.Model(&f.employee).Association("Services").Append(&short))

	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	// Clocks fall back on 2025-11-02, so the local day runs 25 hours and
	// 23:00 EST already lies past local-midnight-plus-24h.
	start := time.Date(2025, 11, 2, 23, 0, 0, 0, loc).UTC()
	require.NoError(t, f.db.Create(&models.AvailabilityOverride{
		BusinessID:    f.business.ID,
		EmployeeID:    f.employee.ID,
		StartTime:     start,
		EndTime:       start.Add(30 * time.Minute),
		IsUnavailable: true,
	}).Error)

	ok, err := f.resolver.IsSlotStillAvailable(context.Background(), f.business.ID, short.ID, start, f.employee.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInactiveEmployeeAndUnassignedServiceExcluded(t *testing.T) {
	f := newFixture(t)
	f.setEmployeeHours(t, models.WorkingHoursEntry{DayOfWeek: models.Monday, StartTime: "09:00", EndTime: "17:00"})
	f.employee.IsActive = false
	require.NoError(t, f.db.Save(&f.employee).Error)

	_, err := f.resolver.ComputeAvailableSlots(context.Background(), f.business.ID, f.service.ID, monday, &f.employee.ID)
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))

	slots, err := f.resolver.ComputeAvailableSlots(context.Background(), f.business.ID, f.service.ID, monday, nil)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestUnknownServiceAndBusiness(t *testing.T) {
	f := newFixture(t)
	_, err := f.resolver.ComputeAvailableSlots(context.Background(), f.business.ID, 9999, monday, nil)
	assert.True(t, errs.IsNotFound(err))
	_, err = f.resolver.ComputeAvailableSlots(context.Background(), 9999, f.service.ID, monday, nil)
	assert.True(t, errs.IsNotFound(err))
}

func TestArchivedServiceRejected(t *testing.T) {
	f := newFixture(t)
	f.service.Status = models.ServiceArchived
	require.NoError(t, f.db.Save(&f.service).Error)
	_, err := f.resolver.ComputeAvailableSlots(context.Background(), f.business.ID, f.service.ID, monday, nil)
	require.Error(t, err)
	assert.True(t, errs.IsValidation(err))
}
