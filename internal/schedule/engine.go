package schedule

import (
	"errors"
	"time"

	domain "github.com/workclock/alarmsched/internal/domain/alarm"
	"github.com/workclock/alarmsched/internal/holiday"
)

// maxSearchDays bounds the forward/backward search. Holiday suppression can
// never hold for a whole year, so hitting the cap means corrupt input and is
// reported as ErrNoValidOccurrence instead of looping.
const maxSearchDays = 366

// ErrNoValidOccurrence is returned when the bounded search finds no date the
// alarm may fire on. This is an invariant violation, not an expected path;
// callers should log it as a bug.
var ErrNoValidOccurrence = errors.New("no valid occurrence within search window")

// Engine resolves next and previous trigger instants.
type Engine struct {
	// calendar supplies per-date holiday status.
	calendar *holiday.Calendar
	// policy evaluates the alarm's holiday option.
	policy holiday.Policy
}

// NewEngine builds an engine over the given calendar and policy.
func NewEngine(calendar *holiday.Calendar, policy holiday.Policy) *Engine {
	return &Engine{
		calendar: calendar,
		policy:   policy,
	}
}

// Calendar exposes the engine's holiday calendar so callers re-evaluating
// policy at fire time consult the same data.
func (e *Engine) Calendar() *holiday.Calendar {
	return e.calendar
}

// Decide evaluates the alarm's holiday option for one candidate date
// against the engine's current calendar.
func (e *Engine) Decide(d holiday.Date, option domain.HolidayOption) holiday.Decision {
	return e.policy.Decide(d, option, e.calendar)
}

// NextTrigger computes the next instant the alarm fires, strictly after now.
// An instant equal to now counts as already passed, so recomputing at the
// exact trigger time never refires the same instant.
//
// Non-repeating alarms resolve to their specific date; once that instant has
// passed they roll over to the same time one day later. Holiday policy is
// not applied here for one-shot alarms: with no recurrence to fall back to,
// suppression is decided only at fire time.
func (e *Engine) NextTrigger(a *domain.Alarm, now time.Time) (time.Time, error) {
	if !a.Days.IsRepeating() {
		next := a.SpecificDate(now.Location())
		if !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}

		return next, nil
	}

	candidate := time.Date(now.Year(), now.Month(), now.Day(), a.Hour, a.Minute, 0, 0, now.Location())
	if !candidate.After(now) {
		candidate = candidate.AddDate(0, 0, 1)
	}

	for elapsed := 0; elapsed < maxSearchDays; {
		distance := a.Days.DistanceToNext(candidate.Weekday())
		if distance > 0 {
			candidate = candidate.AddDate(0, 0, distance)
			elapsed += distance
		}

		decision := e.Decide(holiday.DateOf(candidate), a.HolidayOption)
		if decision == holiday.Fire {
			return candidate, nil
		}

		candidate = candidate.AddDate(0, 0, 1)
		elapsed++
	}

	return time.Time{}, ErrNoValidOccurrence
}

// PreviousTrigger computes the most recent instant the alarm fired at or
// before now, reported with ok=false when there is none. The backward search
// follows the weekday set only; holiday policy never applies backward.
func (e *Engine) PreviousTrigger(a *domain.Alarm, now time.Time) (time.Time, bool) {
	if !a.Days.IsRepeating() {
		previous := a.SpecificDate(now.Location())
		if previous.After(now) {
			return time.Time{}, false
		}

		return previous, true
	}

	candidate := time.Date(now.Year(), now.Month(), now.Day(), a.Hour, a.Minute, 0, 0, now.Location())
	if candidate.After(now) {
		candidate = candidate.AddDate(0, 0, -1)
	}

	distance := a.Days.DistanceToPrevious(candidate.Weekday())
	if distance == domain.NoMatch {
		return time.Time{}, false
	}

	return candidate.AddDate(0, 0, -distance), true
}
