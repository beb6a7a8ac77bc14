package alarm

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OccurrenceState is the lifecycle state of one materialized alarm firing.
type OccurrenceState int

const (
	// Scheduled means the occurrence waits for its first wake-up.
	Scheduled OccurrenceState = iota
	// LowNotification shows an early, silent reminder notification.
	LowNotification
	// HighNotification shows an urgent notification shortly before firing.
	HighNotification
	// Firing means the alarm is ringing.
	Firing
	// Snoozed pauses a ringing alarm for the snooze duration.
	Snoozed
	// Dismissed ends the occurrence by user action.
	Dismissed
	// Missed means the alarm rang unattended until its auto-silence timeout.
	Missed
	// PreDismissed cancels an occurrence before it ever fires.
	PreDismissed
)

// String returns a stable name for logs and errors.
func (s OccurrenceState) String() string {
	switch s {
	case Scheduled:
		return "scheduled"
	case LowNotification:
		return "low_notification"
	case HighNotification:
		return "high_notification"
	case Firing:
		return "firing"
	case Snoozed:
		return "snoozed"
	case Dismissed:
		return "dismissed"
	case Missed:
		return "missed"
	case PreDismissed:
		return "pre_dismissed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether the occurrence can leave this state.
func (s OccurrenceState) Terminal() bool {
	return s == Dismissed || s == Missed || s == PreDismissed
}

// CanTransition reports whether moving from s to target is a legal
// lifecycle step. Policy checks at fire time are layered on top by the
// scheduler service; this is the pure shape of the state machine.
func (s OccurrenceState) CanTransition(target OccurrenceState) bool {
	if s.Terminal() {
		return false
	}

	// Any live occurrence may be canceled before or while it rings.
	if target == PreDismissed {
		return s != Firing && s != Snoozed
	}

	switch s {
	case Scheduled:
		return target == LowNotification || target == HighNotification || target == Firing
	case LowNotification:
		return target == HighNotification || target == Firing
	case HighNotification:
		return target == Firing
	case Firing:
		return target == Snoozed || target == Dismissed || target == Missed
	case Snoozed:
		return target == Firing || target == Dismissed
	default:
		return false
	}
}

// MissedTimeToLive is how long a missed occurrence is kept around before
// its record is cleaned up.
const MissedTimeToLive = 12 * time.Hour

// Occurrence materializes one firing of an alarm at a concrete date and
// time, carrying a copy of the alarm's ring behavior taken at creation.
type Occurrence struct {
	// ID uniquely identifies the occurrence across its lifetime.
	ID string
	// AlarmID references the owning alarm definition.
	AlarmID int64
	// Year, Month (zero-based), Day, Hour and Minute locate the
	// scheduled firing instant.
	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int
	// State is mutated exclusively by the scheduler service.
	State OccurrenceState
	// Ring is the behavior payload copied from the alarm.
	Ring RingBehavior
}

// NewOccurrence materializes a Scheduled occurrence of the given alarm
// at the provided instant.
func NewOccurrence(a *Alarm, at time.Time) *Occurrence {
	o := &Occurrence{
		ID:      uuid.NewString(),
		AlarmID: a.ID,
		State:   Scheduled,
		Ring:    a.Ring,
	}
	o.SetTime(at)

	return o
}

// Time returns the scheduled firing instant in the given location.
func (o *Occurrence) Time(loc *time.Location) time.Time {
	return time.Date(o.Year, time.Month(o.Month+1), o.Day, o.Hour, o.Minute, 0, 0, loc)
}

// SetTime stores the date and time fields from the given instant.
func (o *Occurrence) SetTime(at time.Time) {
	o.Year = at.Year()
	o.Month = int(at.Month()) - 1
	o.Day = at.Day()
	o.Hour = at.Hour()
	o.Minute = at.Minute()
}

// MissedDeadline returns when a missed occurrence should be cleaned up.
func (o *Occurrence) MissedDeadline(loc *time.Location) time.Time {
	return o.Time(loc).Add(MissedTimeToLive)
}

// Clone returns a copy of the occurrence to avoid leaking internal references.
func (o *Occurrence) Clone() *Occurrence {
	if o == nil {
		return nil
	}

	cloned := *o

	return &cloned
}
