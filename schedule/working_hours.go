// Package schedule is the configuration store for recurring weekly working
// hours and one-off availability overrides. Weekly sets are replaced
// atomically per scope; they are never patched entry-by-entry.
package schedule

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"gorm.io/gorm"

	"github.com/bookable/bookable/errs"
	"github.com/bookable/bookable/models"
)

// Scope addresses one weekly set: the business-wide default when EmployeeID is
// nil, otherwise that employee's override of the default.
type Scope struct {
	BusinessID uint
	EmployeeID *uint
}

func (s Scope) String() string {
	if s.EmployeeID == nil {
		return fmt.Sprintf("business %d default", s.BusinessID)
	}
	return fmt.Sprintf("business %d employee %d", s.BusinessID, *s.EmployeeID)
}

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

var timePattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// SetWorkingHours validates and replaces the entire weekly set for the scope
// in one transaction. On any violation nothing is written and the prior set
// stays intact. The new set is returned sorted by (day_of_week, start_time).
func (s *Store) SetWorkingHours(ctx context.Context, scope Scope, entries []models.WorkingHoursEntry) ([]models.WorkingHoursEntry, error) {
	if err := validateWeek(entries); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := scoped(tx, scope).
			Delete(&models.WorkingHoursEntry{}).Error; err != nil {
			return err
		}
		for i := range entries {
			entries[i].ID = 0
			entries[i].BusinessID = scope.BusinessID
			entries[i].EmployeeID = scope.EmployeeID
		}
		if len(entries) == 0 {
			return nil
		}
		return tx.Create(&entries).Error
	})
	if err != nil {
		return nil, errs.FromDB(err, "replace working hours")
	}

	sortEntries(entries)
	return entries, nil
}

// GetWorkingHours returns the stored set for the scope ordered by
// (day_of_week, start_time). It does not cascade; the availability resolver
// handles the employee→business fallback.
func (s *Store) GetWorkingHours(ctx context.Context, scope Scope) ([]models.WorkingHoursEntry, error) {
	var entries []models.WorkingHoursEntry
	err := scoped(s.db.WithContext(ctx), scope).
		Order("day_of_week asc, start_time asc").
		Find(&entries).Error
	if err != nil {
		return nil, errs.FromDB(err, "get working hours")
	}
	return entries, nil
}

// EffectiveEntriesForDay resolves the working windows that apply to an
// employee on one weekday. Employee-specific entries win; when the employee
// has none configured for that weekday the business default cascades in.
func EffectiveEntriesForDay(tx *gorm.DB, businessID, employeeID uint, day models.DayOfWeek) ([]models.WorkingHoursEntry, error) {
	var entries []models.WorkingHoursEntry
	err := tx.
		Where("business_id = ? AND employee_id = ? AND day_of_week = ?", businessID, employeeID, day).
		Order("start_time asc").
		Find(&entries).Error
	if err != nil {
		return nil, errs.FromDB(err, "get employee working hours")
	}
	if len(entries) > 0 {
		return entries, nil
	}
	err = tx.
		Where("business_id = ? AND employee_id IS NULL AND day_of_week = ?", businessID, day).
		Order("start_time asc").
		Find(&entries).Error
	if err != nil {
		return nil, errs.FromDB(err, "get business working hours")
	}
	return entries, nil
}

func scoped(q *gorm.DB, scope Scope) *gorm.DB {
	if scope.EmployeeID == nil {
		return q.Where("business_id = ? AND employee_id IS NULL", scope.BusinessID)
	}
	return q.Where("business_id = ? AND employee_id = ?", scope.BusinessID, *scope.EmployeeID)
}

func validateWeek(entries []models.WorkingHoursEntry) error {
	byDay := map[models.DayOfWeek][]models.WorkingHoursEntry{}
	for _, e := range entries {
		if e.DayOfWeek < models.Sunday || e.DayOfWeek > models.Saturday {
			return errs.Validation("day_of_week %d is out of range", e.DayOfWeek)
		}
		if e.IsOff {
			byDay[e.DayOfWeek] = append(byDay[e.DayOfWeek], e)
			continue
		}
		if !timePattern.MatchString(e.StartTime) {
			return errs.Validation("day %d: start_time %q is not HH:MM", e.DayOfWeek, e.StartTime)
		}
		if !timePattern.MatchString(e.EndTime) {
			return errs.Validation("day %d: end_time %q is not HH:MM", e.DayOfWeek, e.EndTime)
		}
		// Zero-padded HH:MM compares correctly as a string.
		if e.StartTime >= e.EndTime {
			return errs.Validation("day %d: start %s must be before end %s", e.DayOfWeek, e.StartTime, e.EndTime)
		}
		byDay[e.DayOfWeek] = append(byDay[e.DayOfWeek], e)
	}

	for day, dayEntries := range byDay {
		for i := 0; i < len(dayEntries); i++ {
			if dayEntries[i].IsOff {
				continue
			}
			for j := i + 1; j < len(dayEntries); j++ {
				if dayEntries[j].IsOff {
					continue
				}
				if dayEntries[i].StartTime < dayEntries[j].EndTime &&
					dayEntries[j].StartTime < dayEntries[i].EndTime {
					return errs.Validation("day %d: entries %s-%s and %s-%s overlap",
						day,
						dayEntries[i].StartTime, dayEntries[i].EndTime,
						dayEntries[j].StartTime, dayEntries[j].EndTime)
				}
			}
		}
	}
	return nil
}

func sortEntries(entries []models.WorkingHoursEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].DayOfWeek != entries[j].DayOfWeek {
			return entries[i].DayOfWeek < entries[j].DayOfWeek
		}
		return entries[i].StartTime < entries[j].StartTime
	})
}
