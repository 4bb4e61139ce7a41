package schedule

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/bookable/bookable/errs"
	"github.com/bookable/bookable/models"
)

// CreateOverride records a one-off exception for an employee. Overlap against
// the employee's existing overrides is checked inside the same transaction as
// the insert, using the half-open interval test start1 < end2 && start2 < end1.
func (s *Store) CreateOverride(ctx context.Context, businessID, employeeID uint, start, end time.Time, isUnavailable bool, reason string) (*models.AvailabilityOverride, error) {
	if !start.Before(end) {
		return nil, errs.Validation("override start %s must be before end %s", start, end)
	}

	override := &models.AvailabilityOverride{
		BusinessID:    businessID,
		EmployeeID:    employeeID,
		StartTime:     start.UTC(),
		EndTime:       end.UTC(),
		IsUnavailable: isUnavailable,
		Reason:        reason,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var employee models.Employee
		if err := tx.Where("business_id = ?", businessID).First(&employee, employeeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFound("employee", "employee %d not found", employeeID)
			}
			return err
		}
		var count int64
		err := tx.Model(&models.AvailabilityOverride{}).
			Where("employee_id = ?", employeeID).
			Where("start_time < ? AND end_time > ?", override.EndTime, override.StartTime).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return errs.Conflict("override overlaps an existing override for employee %d", employeeID)
		}
		return tx.Create(override).Error
	})
	if err != nil {
		if errs.IsConflict(err) || errs.IsNotFound(err) {
			return nil, err
		}
		return nil, errs.FromDB(err, "create override")
	}
	return override, nil
}

// UpdateOverride re-runs the overlap check excluding the record being updated.
func (s *Store) UpdateOverride(ctx context.Context, businessID, overrideID uint, start, end time.Time, isUnavailable bool, reason string) (*models.AvailabilityOverride, error) {
	if !start.Before(end) {
		return nil, errs.Validation("override start %s must be before end %s", start, end)
	}

	var override models.AvailabilityOverride
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("business_id = ?", businessID).First(&override, overrideID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFound("override", "override %d not found", overrideID)
			}
			return err
		}
		var count int64
		err := tx.Model(&models.AvailabilityOverride{}).
			Where("employee_id = ? AND id <> ?", override.EmployeeID, override.ID).
			Where("start_time < ? AND end_time > ?", end.UTC(), start.UTC()).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return errs.Conflict("override overlaps an existing override for employee %d", override.EmployeeID)
		}
		override.StartTime = start.UTC()
		override.EndTime = end.UTC()
		override.IsUnavailable = isUnavailable
		override.Reason = reason
		return tx.Save(&override).Error
	})
	if err != nil {
		if errs.IsConflict(err) || errs.IsNotFound(err) {
			return nil, err
		}
		return nil, errs.FromDB(err, "update override")
	}
	return &override, nil
}

// DeleteOverride is unconditional given ownership.
func (s *Store) DeleteOverride(ctx context.Context, businessID, overrideID uint) error {
	res := s.db.WithContext(ctx).
		Where("business_id = ?", businessID).
		Delete(&models.AvailabilityOverride{}, overrideID)
	if res.Error != nil {
		return errs.FromDB(res.Error, "delete override")
	}
	if res.RowsAffected == 0 {
		return errs.NotFound("override", "override %d not found", overrideID)
	}
	return nil
}

// GetOverrides lists an employee's overrides ordered by start time, optionally
// limited to those intersecting [from, to).
func (s *Store) GetOverrides(ctx context.Context, businessID, employeeID uint, from, to *time.Time) ([]models.AvailabilityOverride, error) {
	q := s.db.WithContext(ctx).
		Where("business_id = ? AND employee_id = ?", businessID, employeeID)
	if from != nil && to != nil {
		q = q.Where("start_time < ? AND end_time > ?", to.UTC(), from.UTC())
	}
	var overrides []models.AvailabilityOverride
	if err := q.Order("start_time asc").Find(&overrides).Error; err != nil {
		return nil, errs.FromDB(err, "get overrides")
	}
	return overrides, nil
}
