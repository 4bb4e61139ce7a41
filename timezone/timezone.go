// Package timezone converts between canonical UTC instants and a business's
// local wall-clock representation using IANA zone identifiers. All conversions
// go through time.LoadLocation so DST transitions are handled by the zone
// database, never by fixed offsets.
package timezone

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bookable/bookable/errs"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// IsValidTimezone reports whether tz is a loadable IANA zone identifier.
func IsValidTimezone(tz string) bool {
	if tz == "" {
		return false
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

// Location resolves tz, failing with a ValidationError on an unknown zone.
func Location(tz string) (*time.Location, error) {
	if tz == "" {
		return nil, errs.Validation("timezone is required")
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, errs.Validation("invalid timezone %q", tz)
	}
	return loc, nil
}

// ToBusinessLocal converts a UTC instant to the business's local time.
func ToBusinessLocal(t time.Time, tz string) (time.Time, error) {
	loc, err := Location(tz)
	if err != nil {
		return time.Time{}, err
	}
	return t.In(loc), nil
}

// ToUTC interprets a local "2006-01-02" date and "15:04" wall-clock time in tz
// and returns the corresponding UTC instant.
func ToUTC(localDate, localTime, tz string) (time.Time, error) {
	loc, err := Location(tz)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.ParseInLocation(DateLayout+" "+TimeLayout, localDate+" "+localTime, loc)
	if err != nil {
		return time.Time{}, errs.Validation("invalid local date/time %q %q", localDate, localTime)
	}
	return t.UTC(), nil
}

// At returns the UTC instant for wall-clock hh:mm on the given local day.
// day must already be a date in loc (its year/month/day are used).
func At(day time.Time, hour, minute int, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc).UTC()
}

// DayBounds returns the UTC instants bounding the local calendar day that
// contains the "2006-01-02" date in tz.
func DayBounds(localDate, tz string) (time.Time, time.Time, error) {
	loc, err := Location(tz)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	d, err := time.ParseInLocation(DateLayout, localDate, loc)
	if err != nil {
		return time.Time{}, time.Time{}, errs.Validation("invalid date %q", localDate)
	}
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	return start.UTC(), start.AddDate(0, 0, 1).UTC(), nil
}

// FormatInZone formats an instant in the given zone. Display-only: on an
// unknown zone it logs and falls back to the system location instead of
// failing the caller.
func FormatInZone(t time.Time, layout, tz string) string {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Warn().Str("timezone", tz).Msg("unknown timezone, formatting in system location")
		return t.Format(layout)
	}
	return t.In(loc).Format(layout)
}
