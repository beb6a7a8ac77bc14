package alarm

import (
	"fmt"
	"time"
)

// InvalidID marks an alarm that has not been persisted yet.
const InvalidID int64 = -1

// HolidayOption selects how an alarm reacts to the holiday/workday calendar.
type HolidayOption int

const (
	// SkipOnHoliday suppresses firings that fall inside a holiday range.
	SkipOnHoliday HolidayOption = iota
	// BigWeek rests on Saturday and Sunday during "big" weeks and on
	// Sunday only during "small" weeks, alternating by ISO week parity.
	BigWeek
	// SmallWeek is the inverse rotation of BigWeek.
	SmallWeek
	// SingleDayOff treats only Sunday as the rest day; Saturday is an
	// ordinary working day.
	SingleDayOff
)

// ParseHolidayOption converts a persisted integer into a HolidayOption.
func ParseHolidayOption(v int) (HolidayOption, error) {
	option := HolidayOption(v)
	switch option {
	case SkipOnHoliday, BigWeek, SmallWeek, SingleDayOff:
		return option, nil
	default:
		return SkipOnHoliday, fmt.Errorf("unknown holiday option %d", v)
	}
}

// String returns a stable human-readable name for logs.
func (o HolidayOption) String() string {
	switch o {
	case SkipOnHoliday:
		return "skip_on_holiday"
	case BigWeek:
		return "big_week"
	case SmallWeek:
		return "small_week"
	case SingleDayOff:
		return "single_day_off"
	default:
		return fmt.Sprintf("holiday_option(%d)", int(o))
	}
}

// RingBehavior carries the presentation settings copied verbatim into each
// occurrence. The scheduling core never interprets these fields.
type RingBehavior struct {
	// Label is the user-visible alarm title.
	Label string
	// Ringtone references the sound to play; opaque to the core.
	Ringtone string
	// Vibrate enables vibration while ringing.
	Vibrate bool
	// Flash enables the camera flash while ringing.
	Flash bool
	// AutoSilence stops ringing after this duration; zero means never.
	AutoSilence time.Duration
	// Snooze is the delay before a snoozed occurrence fires again.
	Snooze time.Duration
	// Crescendo ramps the volume up over this duration.
	Crescendo time.Duration
	// Volume is the ring volume step.
	Volume int
}

// Alarm is a user-defined alarm: either repeating on a weekday set or bound
// to one specific date when Days is empty.
type Alarm struct {
	// ID is the stable identifier assigned by the repository.
	ID int64
	// Enabled indicates whether occurrences should be scheduled.
	Enabled bool
	// Year of the specific date; meaningful only when Days is empty.
	Year int
	// Month of the specific date, zero-based (January is 0).
	Month int
	// Day of month of the specific date.
	Day int
	// Hour of the time of day, 0..23.
	Hour int
	// Minute of the time of day, 0..59.
	Minute int
	// Days is the weekday recurrence set; empty means non-repeating.
	Days Weekdays
	// HolidayOption selects the holiday handling policy.
	HolidayOption HolidayOption
	// Ring holds the opaque ring behavior payload.
	Ring RingBehavior
}

// Default ring behavior, mirroring the values assigned to new alarms.
const (
	DefaultAutoSilence = 10 * time.Minute
	DefaultSnooze      = 10 * time.Minute
	DefaultVolume      = 11
)

// New creates a disabled, non-repeating alarm on the given date and time
// with default ring behavior.
func New(year int, month time.Month, day, hour, minute int) *Alarm {
	return &Alarm{
		ID:     InvalidID,
		Year:   year,
		Month:  int(month) - 1,
		Day:    day,
		Hour:   hour,
		Minute: minute,
		Days:   NoDays,
		Ring: RingBehavior{
			Vibrate:     true,
			Flash:       true,
			AutoSilence: DefaultAutoSilence,
			Snooze:      DefaultSnooze,
			Volume:      DefaultVolume,
		},
	}
}

// Validate checks the invariants a persisted alarm must satisfy.
func (a *Alarm) Validate() error {
	if a.Hour < 0 || a.Hour > 23 {
		return fmt.Errorf("hour %d out of range", a.Hour)
	}

	if a.Minute < 0 || a.Minute > 59 {
		return fmt.Errorf("minute %d out of range", a.Minute)
	}

	return nil
}

// Clone returns a copy of the alarm to avoid leaking internal references.
func (a *Alarm) Clone() *Alarm {
	if a == nil {
		return nil
	}

	cloned := *a

	return &cloned
}

// SpecificDate returns the alarm's one-shot date and time in the given
// location. Only meaningful for non-repeating alarms.
func (a *Alarm) SpecificDate(loc *time.Location) time.Time {
	return time.Date(a.Year, time.Month(a.Month+1), a.Day, a.Hour, a.Minute, 0, 0, loc)
}
