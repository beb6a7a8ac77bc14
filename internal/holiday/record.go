package holiday

import (
	"errors"
	"fmt"
)

var (
	// errEmptyName rejects records without a holiday name.
	errEmptyName = errors.New("holiday name is empty")
	// errInvertedRange rejects records whose start date is after the end date.
	errInvertedRange = errors.New("holiday start date is after end date")
)

// Record is one holiday entry: a contiguous date range that is off work,
// plus the compensation workdays that offset the extra days granted.
type Record struct {
	// Name is the official holiday name.
	Name string
	// Start is the first day of the holiday range, inclusive.
	Start Date
	// End is the last day of the holiday range, inclusive.
	End Date
	// CompDays lists weekend dates around the range that are officially
	// working days.
	CompDays []Date
}

// Validate checks the structural invariants of a single record.
// Callers drop invalid records individually and keep the rest of a batch.
func (r *Record) Validate() error {
	if r.Name == "" {
		return errEmptyName
	}

	if r.Start.After(r.End) {
		return fmt.Errorf("%q: %w", r.Name, errInvertedRange)
	}

	return nil
}

// Days iterates the holiday range from Start through End inclusive.
func (r *Record) Days(visit func(Date)) {
	for d := r.Start; !d.After(r.End); d = d.AddDays(1) {
		visit(d)
	}
}
