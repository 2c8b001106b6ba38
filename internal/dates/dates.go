// Package dates turns spreadsheet date cells into calendar dates.
//
// A parsed date is a time.Time at 00:00 UTC. Parsing never fails loudly:
// anything that is not a recognisable date yields ok == false.
package dates

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// MinSerial and MaxSerial bound accepted spreadsheet serials
	// (1900-01-01 through 9999-12-31).
	MinSerial = 1
	MaxSerial = 2958465

	displayLayout = "02/01/2006"
	isoLayout     = "2006-01-02"
)

// serialEpoch is day zero of the spreadsheet serial calendar.
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

var (
	dayFirstSlash = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	dayFirstDash  = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})-(\d{4})$`)
	yearFirst     = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	numeric       = regexp.MustCompile(`^\d+(\.\d+)?$`)
)

// FromSerial converts a spreadsheet serial day number. The fractional time
// of day is dropped.
func FromSerial(serial float64) (time.Time, bool) {
	if math.IsNaN(serial) || math.IsInf(serial, 0) {
		return time.Time{}, false
	}
	days := math.Floor(serial)
	if days < MinSerial || days > MaxSerial {
		return time.Time{}, false
	}
	return serialEpoch.AddDate(0, 0, int(days)), true
}

// Parse reads a textual date. Supported forms, tried in order, are
// dd/MM/yyyy, dd-MM-yyyy and yyyy-MM-dd; day and month may have one or two
// digits. A purely numeric string is read as a spreadsheet serial.
func Parse(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	if m := dayFirstSlash.FindStringSubmatch(s); m != nil {
		if t, ok := build(m[3], m[2], m[1]); ok {
			return t, true
		}
	}
	if m := dayFirstDash.FindStringSubmatch(s); m != nil {
		if t, ok := build(m[3], m[2], m[1]); ok {
			return t, true
		}
	}
	if m := yearFirst.FindStringSubmatch(s); m != nil {
		if t, ok := build(m[1], m[2], m[3]); ok {
			return t, true
		}
	}

	if numeric.MatchString(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return FromSerial(f)
		}
	}

	return time.Time{}, false
}

// ParseCell accepts the values a spreadsheet reader hands back: numbers
// (serials), strings, or an already built time.
func ParseCell(v any) (time.Time, bool) {
	switch val := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		if val.IsZero() {
			return time.Time{}, false
		}
		return Day(val), true
	case float64:
		return FromSerial(val)
	case float32:
		return FromSerial(float64(val))
	case int:
		return FromSerial(float64(val))
	case int64:
		return FromSerial(float64(val))
	case string:
		return Parse(val)
	default:
		return time.Time{}, false
	}
}

// build validates the calendar date; time.Date would silently normalise
// 31/02 into March.
func build(year, month, day string) (time.Time, bool) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return time.Time{}, false
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return time.Time{}, false
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 {
		return time.Time{}, false
	}

	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

// Day truncates t to its calendar date in t's own location and returns it at
// 00:00 UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today is the current calendar date in loc, expressed at 00:00 UTC.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return Day(now.In(loc))
}

// WallClock re-expresses now's wall-clock reading in loc as a UTC time, so it
// can be compared with calendar dates held at 00:00 UTC.
func WallClock(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	l := now.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day(), l.Hour(), l.Minute(), l.Second(), l.Nanosecond(), time.UTC)
}

// Format renders dd/MM/yyyy, the form Parse reads first.
func Format(t time.Time) string {
	return t.UTC().Format(displayLayout)
}

// ISO renders yyyy-MM-dd.
func ISO(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// DaysBetween counts whole calendar days from a to b; both are truncated to
// their dates first.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}
