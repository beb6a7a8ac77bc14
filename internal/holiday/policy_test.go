package holiday

import (
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/workclock/alarmsched/internal/domain/alarm"
)

// calendarWithNationalDay builds a calendar holding the 2023-10-01..03 range
// with 2023-10-07 (Saturday) as a compensation workday.
func calendarWithNationalDay(t *testing.T) *Calendar {
	t.Helper()

	c := NewCalendar()
	c.ReplaceYear(2023, []Record{nationalDay(t)})

	return c
}

// TestDecide_SkipOnHoliday verifies suppression inside a holiday range and
// firing on ordinary and compensation days.
func TestDecide_SkipOnHoliday(t *testing.T) {
	t.Parallel()

	c := calendarWithNationalDay(t)

	var p Policy

	require.Equal(t, Suppress, p.Decide(mustDate(t, "2023-10-01"), domain.SkipOnHoliday, c))
	require.Equal(t, Suppress, p.Decide(mustDate(t, "2023-10-03"), domain.SkipOnHoliday, c))
	require.Equal(t, Fire, p.Decide(mustDate(t, "2023-10-04"), domain.SkipOnHoliday, c))

	// Compensation Saturday still fires.
	require.Equal(t, Fire, p.Decide(mustDate(t, "2023-10-07"), domain.SkipOnHoliday, c))
}

// TestDecide_SingleDayOff verifies that only Sunday rests under the
// single-day-off rotation and that compensation Sundays still fire.
func TestDecide_SingleDayOff(t *testing.T) {
	t.Parallel()

	var p Policy

	empty := NewCalendar()

	// 2023-10-08 is a Sunday, 2023-10-07 a Saturday.
	require.Equal(t, Suppress, p.Decide(mustDate(t, "2023-10-08"), domain.SingleDayOff, empty))
	require.Equal(t, Fire, p.Decide(mustDate(t, "2023-10-07"), domain.SingleDayOff, empty))
	require.Equal(t, Fire, p.Decide(mustDate(t, "2023-10-09"), domain.SingleDayOff, empty))

	// A compensation Sunday is a workday.
	c := NewCalendar()
	c.ReplaceYear(2023, []Record{{
		Name:     "National Day",
		Start:    mustDate(t, "2023-10-01"),
		End:      mustDate(t, "2023-10-03"),
		CompDays: []Date{mustDate(t, "2023-10-08")},
	}})
	require.Equal(t, Fire, p.Decide(mustDate(t, "2023-10-08"), domain.SingleDayOff, c))

	// Holiday ranges still suppress regardless of weekday.
	require.Equal(t, Suppress, p.Decide(mustDate(t, "2023-10-02"), domain.SingleDayOff, c))
}

// TestDecide_BigSmallWeek verifies the alternating Saturday rest rotation.
// 2023-10-07 falls in ISO week 40 (small under the default odd-weeks-big
// anchor) and 2023-10-14 in ISO week 41 (big).
func TestDecide_BigSmallWeek(t *testing.T) {
	t.Parallel()

	var p Policy

	empty := NewCalendar()

	smallSaturday := mustDate(t, "2023-10-07")
	bigSaturday := mustDate(t, "2023-10-14")

	// Big-week alarms rest Saturday only on big weeks.
	require.Equal(t, Fire, p.Decide(smallSaturday, domain.BigWeek, empty))
	require.Equal(t, Suppress, p.Decide(bigSaturday, domain.BigWeek, empty))

	// Small-week alarms are the inverse.
	require.Equal(t, Suppress, p.Decide(smallSaturday, domain.SmallWeek, empty))
	require.Equal(t, Fire, p.Decide(bigSaturday, domain.SmallWeek, empty))

	// Sunday rests under both rotations; weekdays fire under both.
	sunday := mustDate(t, "2023-10-08")
	monday := mustDate(t, "2023-10-09")
	require.Equal(t, Suppress, p.Decide(sunday, domain.BigWeek, empty))
	require.Equal(t, Suppress, p.Decide(sunday, domain.SmallWeek, empty))
	require.Equal(t, Fire, p.Decide(monday, domain.BigWeek, empty))
	require.Equal(t, Fire, p.Decide(monday, domain.SmallWeek, empty))
}

// TestDecide_BigWeekParityAnchor verifies the configurable rotation anchor.
func TestDecide_BigWeekParityAnchor(t *testing.T) {
	t.Parallel()

	empty := NewCalendar()
	saturdayWeek40 := mustDate(t, "2023-10-07")

	odd := Policy{BigWeekParity: OddWeeksBig}
	even := Policy{BigWeekParity: EvenWeeksBig}

	require.Equal(t, Fire, odd.Decide(saturdayWeek40, domain.BigWeek, empty))
	require.Equal(t, Suppress, even.Decide(saturdayWeek40, domain.BigWeek, empty))
}

// TestDecide_CompensationSaturdayOnRestWeek verifies that a compensation
// workday wins over the rotation's Saturday rest.
func TestDecide_CompensationSaturdayOnRestWeek(t *testing.T) {
	t.Parallel()

	c := NewCalendar()
	c.ReplaceYear(2023, []Record{{
		Name:     "Mid-Autumn",
		Start:    mustDate(t, "2023-10-10"),
		End:      mustDate(t, "2023-10-12"),
		CompDays: []Date{mustDate(t, "2023-10-14")},
	}})

	var p Policy

	// 2023-10-14 is a big-week Saturday but officially a workday.
	require.Equal(t, Fire, p.Decide(mustDate(t, "2023-10-14"), domain.BigWeek, c))
}

// TestDecide_FailOpenWithoutData asserts that a year without loaded data
// never suppresses beyond the option's own weekend rule.
func TestDecide_FailOpenWithoutData(t *testing.T) {
	t.Parallel()

	empty := NewCalendar()
	require.True(t, empty.IsEmptyForYear(2023))

	var p Policy

	// A date that would be a holiday with data loaded fires instead.
	require.Equal(t, Fire, p.Decide(mustDate(t, "2023-10-01"), domain.SkipOnHoliday, empty))

	// Weekday under every option fires.
	wednesday := mustDate(t, "2023-10-11")
	for _, option := range []domain.HolidayOption{
		domain.SkipOnHoliday, domain.BigWeek, domain.SmallWeek, domain.SingleDayOff,
	} {
		require.Equal(t, Fire, p.Decide(wednesday, option, empty), option.String())
	}
}
