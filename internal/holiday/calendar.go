package holiday

import (
	"sync"
	"sync/atomic"
)

// DayStatus classifies a calendar date. Every date is exactly one of the
// three variants.
type DayStatus int

const (
	// Ordinary is any date the calendar has no record for.
	Ordinary DayStatus = iota
	// Holiday is a date inside a holiday range.
	Holiday
	// CompWorkday is an official working day compensating a holiday range.
	CompWorkday
)

// String returns a stable name for logs.
func (s DayStatus) String() string {
	switch s {
	case Holiday:
		return "holiday"
	case CompWorkday:
		return "comp_workday"
	default:
		return "ordinary"
	}
}

// calendarIndex is one immutable snapshot of the date index. Readers grab
// the whole snapshot through an atomic pointer, so an in-flight lookup keeps
// a consistent view while a refresh swaps in a new one.
type calendarIndex struct {
	// days maps every covered date to its status.
	days map[Date]DayStatus
	// loadedYears marks feed years that have at least one record.
	loadedYears map[int]bool
}

// emptyIndex is the snapshot served before any data is ingested.
var emptyIndex = &calendarIndex{
	days:        map[Date]DayStatus{},
	loadedYears: map[int]bool{},
}

// Calendar is the in-memory holiday/workday index.
//
// Status lookups are lock-free and safe to call from any goroutine.
// ReplaceYear serializes writers and publishes a rebuilt snapshot
// atomically.
type Calendar struct {
	// mu serializes writers only.
	mu sync.Mutex
	// recordsByYear holds the ingested source records per feed year.
	recordsByYear map[int][]Record
	// index is the current read snapshot.
	index atomic.Pointer[calendarIndex]
}

// NewCalendar returns an empty calendar where every date is Ordinary.
func NewCalendar() *Calendar {
	c := &Calendar{
		recordsByYear: map[int][]Record{},
	}
	c.index.Store(emptyIndex)

	return c
}

// Status classifies the given date. Dates in years without loaded data are
// Ordinary, which makes every downstream policy fail open.
func (c *Calendar) Status(d Date) DayStatus {
	return c.index.Load().days[d]
}

// IsEmptyForYear reports whether no holiday data is loaded for the year.
func (c *Calendar) IsEmptyForYear(year int) bool {
	return !c.index.Load().loadedYears[year]
}

// ReplaceYear atomically swaps all records for the given feed year.
// Invalid records are dropped individually and the rest of the batch still
// applies, so a re-ingest of the same data is idempotent. It returns the
// number of records kept.
func (c *Calendar) ReplaceYear(year int, records []Record) int {
	valid := make([]Record, 0, len(records))

	for _, r := range records {
		if r.Validate() == nil {
			valid = append(valid, r)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(valid) == 0 {
		delete(c.recordsByYear, year)
	} else {
		c.recordsByYear[year] = valid
	}

	c.index.Store(buildIndex(c.recordsByYear))

	return len(valid)
}

// buildIndex rebuilds the read snapshot from all ingested years.
// Compensation workdays are applied after holiday ranges so that a date
// listed in both resolves to CompWorkday: malformed input fails toward
// "is a workday" and the alarm rings.
func buildIndex(recordsByYear map[int][]Record) *calendarIndex {
	index := &calendarIndex{
		days:        map[Date]DayStatus{},
		loadedYears: make(map[int]bool, len(recordsByYear)),
	}

	for year, records := range recordsByYear {
		index.loadedYears[year] = len(records) > 0

		for _, r := range records {
			r.Days(func(d Date) {
				index.days[d] = Holiday
			})
		}
	}

	for _, records := range recordsByYear {
		for _, r := range records {
			for _, d := range r.CompDays {
				index.days[d] = CompWorkday
			}
		}
	}

	return index
}
