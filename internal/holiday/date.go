package holiday

import (
	"fmt"
	"time"
)

// dateLayout is the wire format for calendar dates in the holiday feed.
const dateLayout = "2006-01-02"

// Date is a civil calendar date without time of day or location.
type Date struct {
	// Year is the four-digit year.
	Year int
	// Month is one-based, matching time.Month.
	Month time.Month
	// Day is the day of month.
	Day int
}

// ParseDate parses a "YYYY-MM-DD" string into a Date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}

	return DateOf(t), nil
}

// DateOf extracts the civil date of the given instant in its location.
func DateOf(t time.Time) Date {
	year, month, day := t.Date()

	return Date{Year: year, Month: month, Day: day}
}

// Time returns midnight of the date in the given location.
func (d Date) Time(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// Weekday returns the day of week of the date.
func (d Date) Weekday() time.Weekday {
	return d.Time(time.UTC).Weekday()
}

// ISOWeek returns the ISO 8601 year and week number of the date.
// Week parity is what anchors the big/small week rotation, and ISO
// numbering keeps the parity stable across year boundaries.
func (d Date) ISOWeek() (int, int) {
	return d.Time(time.UTC).ISOWeek()
}

// AddDays returns the date shifted by the given number of days,
// normalizing across month and year boundaries.
func (d Date) AddDays(days int) Date {
	return DateOf(d.Time(time.UTC).AddDate(0, 0, days))
}

// Before reports whether d is earlier than other.
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}

	if d.Month != other.Month {
		return d.Month < other.Month
	}

	return d.Day < other.Day
}

// After reports whether d is later than other.
func (d Date) After(other Date) bool {
	return other.Before(d)
}

// String formats the date as "YYYY-MM-DD".
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}
