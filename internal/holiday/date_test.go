package holiday

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestParseDate verifies wire-format parsing and rejection of malformed input.
func TestParseDate(t *testing.T) {
	t.Parallel()

	d, err := ParseDate("2023-10-01")
	require.NoError(t, err)
	require.Equal(t, Date{Year: 2023, Month: time.October, Day: 1}, d)
	require.Equal(t, "2023-10-01", d.String())
	require.Equal(t, time.Sunday, d.Weekday())

	_, err = ParseDate("2023-13-01")
	require.Error(t, err)

	_, err = ParseDate("01.10.2023")
	require.Error(t, err)
}

// TestDateOrdering verifies Before/After across day, month and year boundaries.
func TestDateOrdering(t *testing.T) {
	t.Parallel()

	a := Date{Year: 2023, Month: time.December, Day: 31}
	b := Date{Year: 2024, Month: time.January, Day: 1}

	require.True(t, a.Before(b))
	require.True(t, b.After(a))
	require.False(t, a.Before(a))
	require.False(t, a.After(a))
}

// TestDateAddDays verifies normalization across month and year boundaries.
func TestDateAddDays(t *testing.T) {
	t.Parallel()

	d := Date{Year: 2023, Month: time.December, Day: 30}
	require.Equal(t, Date{Year: 2024, Month: time.January, Day: 2}, d.AddDays(3))
	require.Equal(t, Date{Year: 2023, Month: time.December, Day: 29}, d.AddDays(-1))
}

// TestDateISOWeek pins the week numbers the big/small rotation depends on.
func TestDateISOWeek(t *testing.T) {
	t.Parallel()

	_, week := Date{Year: 2023, Month: time.October, Day: 7}.ISOWeek()
	require.Equal(t, 40, week)

	_, week = Date{Year: 2023, Month: time.October, Day: 14}.ISOWeek()
	require.Equal(t, 41, week)

	// Parity stays stable across the year boundary: 2022-12-31 and
	// 2023-01-01 are both in ISO week 52 of 2022.
	year, week := Date{Year: 2023, Month: time.January, Day: 1}.ISOWeek()
	require.Equal(t, 2022, year)
	require.Equal(t, 52, week)
}
