package holiday

import (
	"time"

	domain "github.com/workclock/alarmsched/internal/domain/alarm"
)

// Decision is the outcome of evaluating a holiday option for one date.
type Decision int

const (
	// Fire lets the alarm ring on the candidate date.
	Fire Decision = iota
	// Suppress skips the candidate date; the schedule engine searches on.
	Suppress
)

// String returns a stable name for logs.
func (d Decision) String() string {
	if d == Suppress {
		return "suppress"
	}

	return "fire"
}

// WeekParity selects which ISO week numbers count as "big" weeks in the
// alternating big/small work-week rotation.
type WeekParity int

const (
	// OddWeeksBig makes odd ISO week numbers the big (two-day rest) weeks.
	// This is the default anchor.
	OddWeeksBig WeekParity = iota
	// EvenWeeksBig makes even ISO week numbers the big weeks.
	EvenWeeksBig
)

// Policy evaluates an alarm's holiday option against a calendar.
//
// The zero value uses the default big-week anchor (odd ISO weeks are big).
// The anchor is a site convention, not a rule the holiday feed carries, so
// it stays configurable.
type Policy struct {
	// BigWeekParity anchors the big/small rotation.
	BigWeekParity WeekParity
}

// Decide maps a candidate date and the alarm's holiday option to a
// fire/suppress decision.
//
// Dates inside a holiday range suppress under every option. Compensation
// workdays fire under every option, including on weekends. Years without
// loaded data classify every date as Ordinary, so only the option's own
// weekend rule can still suppress: an alarm must never go silent merely
// because holiday data failed to load.
func (p Policy) Decide(d Date, option domain.HolidayOption, calendar *Calendar) Decision {
	status := calendar.Status(d)
	if status == Holiday {
		return Suppress
	}

	if status == CompWorkday {
		return Fire
	}

	switch option {
	case domain.SkipOnHoliday:
		return Fire

	case domain.SingleDayOff:
		// Only Sunday is the rest day; Saturday is an ordinary workday.
		if d.Weekday() == time.Sunday {
			return Suppress
		}

		return Fire

	case domain.BigWeek, domain.SmallWeek:
		return p.decideAlternating(d, option)

	default:
		return Fire
	}
}

// decideAlternating applies the big/small work-week rotation: Sunday always
// rests, Saturday rests only on the option's rest week.
func (p Policy) decideAlternating(d Date, option domain.HolidayOption) Decision {
	switch d.Weekday() {
	case time.Sunday:
		return Suppress
	case time.Saturday:
		big := p.isBigWeek(d)
		if option == domain.BigWeek && big {
			return Suppress
		}

		if option == domain.SmallWeek && !big {
			return Suppress
		}

		return Fire
	default:
		return Fire
	}
}

// isBigWeek reports whether the date falls in a big week under the
// configured parity anchor.
func (p Policy) isBigWeek(d Date) bool {
	_, week := d.ISOWeek()

	if p.BigWeekParity == EvenWeeksBig {
		return week%2 == 0
	}

	return week%2 == 1
}
