package alarm

import "time"

// Weekdays is an immutable bit set of the seven weekdays a repeating alarm
// fires on. Bit n corresponds to time.Weekday(n), so bit 0 is Sunday and
// bit 6 is Saturday.
type Weekdays uint8

const (
	// NoDays is the empty set and marks a non-repeating, specific-date alarm.
	NoDays Weekdays = 0
	// AllDays has every weekday set.
	AllDays Weekdays = 0x7F

	// daysInWeek is the rotation period for distance searches.
	daysInWeek = 7

	// NoMatch is returned by distance searches on an empty set.
	NoMatch = -1
)

// WeekdaysFromBits builds a Weekdays value from a raw bit mask,
// dropping any bits outside the valid 0..127 range.
func WeekdaysFromBits(bits int) Weekdays {
	if bits < 0 {
		return NoDays
	}

	return Weekdays(bits) & AllDays
}

// Bits returns the raw bit mask, suitable for persistence.
func (w Weekdays) Bits() int {
	return int(w)
}

// Contains reports whether the given weekday is in the set.
func (w Weekdays) Contains(day time.Weekday) bool {
	return w&(1<<uint(day)) != 0
}

// IsRepeating reports whether the set contains at least one day.
func (w Weekdays) IsRepeating() bool {
	return w != NoDays
}

// With returns a copy of the set with the given weekday added.
func (w Weekdays) With(day time.Weekday) Weekdays {
	return w | 1<<uint(day)
}

// DistanceToNext returns the number of days (0..6) from the given weekday
// forward to the nearest set day, 0 when the day itself is set.
// It returns NoMatch only for the empty set; callers must not rely on
// distances from an empty set.
func (w Weekdays) DistanceToNext(from time.Weekday) int {
	if !w.IsRepeating() {
		return NoMatch
	}

	for distance := 0; distance < daysInWeek; distance++ {
		day := (int(from) + distance) % daysInWeek
		if w.Contains(time.Weekday(day)) {
			return distance
		}
	}

	return NoMatch
}

// DistanceToPrevious returns the number of days (0..6) from the given weekday
// backward to the nearest set day, 0 when the day itself is set.
// It returns NoMatch only for the empty set.
func (w Weekdays) DistanceToPrevious(from time.Weekday) int {
	if !w.IsRepeating() {
		return NoMatch
	}

	for distance := 0; distance < daysInWeek; distance++ {
		day := (int(from) - distance + daysInWeek) % daysInWeek
		if w.Contains(time.Weekday(day)) {
			return distance
		}
	}

	return NoMatch
}
