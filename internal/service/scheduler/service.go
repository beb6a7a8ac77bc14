package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/workclock/alarmsched/internal/domain/alarm"
	"github.com/workclock/alarmsched/internal/holiday"
	"github.com/workclock/alarmsched/internal/logger"
	repo "github.com/workclock/alarmsched/internal/repository/alarms"
	"github.com/workclock/alarmsched/internal/schedule"
)

// WakeScheduler is the external mechanism that wakes the process at an
// instant and can cancel a pending wake-up when its occurrence goes away.
type WakeScheduler interface {
	ScheduleWake(occurrenceID string, at time.Time)
	Cancel(occurrenceID string)
}

const (
	// DefaultReminderOffset is how long before the trigger the low
	// priority reminder notification shows.
	DefaultReminderOffset = 30 * time.Minute
	// DefaultHighNotificationOffset is how long before the trigger the
	// urgent notification replaces the reminder.
	DefaultHighNotificationOffset = 5 * time.Minute
)

// errIllegalTransition rejects lifecycle steps the state machine forbids.
var errIllegalTransition = errors.New("illegal occurrence transition")

// Config tunes the service. Zero values fall back to defaults.
type Config struct {
	// ReminderOffset positions the low notification before the trigger.
	ReminderOffset time.Duration
	// HighNotificationOffset positions the urgent notification.
	HighNotificationOffset time.Duration
	// Location resolves occurrence instants; defaults to time.Local.
	Location *time.Location
	// Clock returns the current time; defaults to time.Now. Tests
	// substitute a fixed clock.
	Clock func() time.Time
}

// normalize fills defaults in place.
func (c *Config) normalize() {
	if c.ReminderOffset <= 0 {
		c.ReminderOffset = DefaultReminderOffset
	}

	if c.HighNotificationOffset <= 0 {
		c.HighNotificationOffset = DefaultHighNotificationOffset
	}

	if c.Location == nil {
		c.Location = time.Local
	}

	if c.Clock == nil {
		c.Clock = time.Now
	}
}

// Service owns the occurrence lifecycle. It is the sole mutator of an
// occurrence's state field.
type Service struct {
	// repo persists alarms and occurrences.
	repo repo.Repository
	// engine resolves trigger instants and policy decisions.
	engine *schedule.Engine
	// wake schedules and cancels external wake-ups.
	wake WakeScheduler
	// locks serializes transitions per occurrence.
	locks *occurrenceLocks
	// cfg holds normalized tuning values.
	cfg Config
}

// NewService wires the scheduler service.
func NewService(repository repo.Repository, engine *schedule.Engine, wake WakeScheduler, cfg Config) *Service {
	cfg.normalize()

	return &Service{
		repo:   repository,
		engine: engine,
		wake:   wake,
		locks:  newOccurrenceLocks(),
		cfg:    cfg,
	}
}

// ScheduleAlarm recomputes the alarm's next trigger and replaces its
// occurrences with one fresh Scheduled occurrence. Disabled alarms just have
// their occurrences cleared. Returns the new occurrence, or nil when none
// was created.
func (s *Service) ScheduleAlarm(ctx context.Context, alarmID int64) (*domain.Occurrence, error) {
	a, err := s.repo.LoadAlarm(ctx, alarmID)
	if err != nil {
		return nil, fmt.Errorf("load alarm %d: %w", alarmID, err)
	}

	if err = s.clearOccurrences(ctx, alarmID); err != nil {
		return nil, err
	}

	if !a.Enabled {
		return nil, nil
	}

	return s.scheduleNext(ctx, a, s.cfg.Clock())
}

// UpdateAlarm persists an edited alarm and supersedes its occurrences.
func (s *Service) UpdateAlarm(ctx context.Context, a *domain.Alarm) (*domain.Occurrence, error) {
	if err := s.repo.SaveAlarm(ctx, a); err != nil {
		return nil, fmt.Errorf("save alarm: %w", err)
	}

	return s.ScheduleAlarm(ctx, a.ID)
}

// DisableAlarm turns the alarm off and clears its occurrences.
func (s *Service) DisableAlarm(ctx context.Context, alarmID int64) error {
	a, err := s.repo.LoadAlarm(ctx, alarmID)
	if err != nil {
		return fmt.Errorf("load alarm %d: %w", alarmID, err)
	}

	a.Enabled = false
	if err = s.repo.SaveAlarm(ctx, a); err != nil {
		return fmt.Errorf("save alarm: %w", err)
	}

	return s.clearOccurrences(ctx, alarmID)
}

// DeleteAlarm cancels pending wake-ups and removes the alarm with its
// occurrences.
func (s *Service) DeleteAlarm(ctx context.Context, alarmID int64) error {
	if err := s.clearOccurrences(ctx, alarmID); err != nil {
		return err
	}

	if err := s.repo.DeleteAlarm(ctx, alarmID); err != nil {
		return fmt.Errorf("delete alarm %d: %w", alarmID, err)
	}

	return nil
}

// RescheduleAll recomputes occurrences for every alarm, used after boot or
// a time change. Failures are logged per alarm so one bad alarm does not
// block the rest.
func (s *Service) RescheduleAll(ctx context.Context) error {
	list, err := s.repo.ListAlarms(ctx)
	if err != nil {
		return fmt.Errorf("list alarms: %w", err)
	}

	for _, a := range list {
		if _, err := s.ScheduleAlarm(ctx, a.ID); err != nil {
			logger.ErrorKV(ctx, "Failed to reschedule alarm", "alarm_id", a.ID, "error", err)
		}
	}

	return nil
}

// RequestStateChange applies an externally requested transition, e.g. a
// user snoozing or dismissing a ringing alarm. Transitions for the same
// occurrence are serialized.
func (s *Service) RequestStateChange(ctx context.Context, occurrenceID string, target domain.OccurrenceState) error {
	unlock := s.locks.lock(occurrenceID)
	defer unlock()

	o, err := s.repo.GetOccurrence(ctx, occurrenceID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			// Occurrence vanished; nothing to transition, drop the wake.
			s.wake.Cancel(occurrenceID)

			return nil
		}

		return fmt.Errorf("get occurrence %s: %w", occurrenceID, err)
	}

	return s.applyTransition(ctx, o, target)
}

// HandleWake reacts to a wake-up for the occurrence, deriving the due
// transition from its current state and scheduled times.
func (s *Service) HandleWake(ctx context.Context, occurrenceID string) error {
	unlock := s.locks.lock(occurrenceID)
	defer unlock()

	o, err := s.repo.GetOccurrence(ctx, occurrenceID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.wake.Cancel(occurrenceID)

			return nil
		}

		return fmt.Errorf("get occurrence %s: %w", occurrenceID, err)
	}

	if o.State == domain.Missed {
		// The missed record outlived its time to live.
		return s.discard(ctx, o)
	}

	target, ok := s.dueTransition(o)
	if !ok {
		s.wake.Cancel(occurrenceID)

		return nil
	}

	return s.applyTransition(ctx, o, target)
}

// dueTransition maps the occurrence's state and schedule onto the
// transition a wake-up should drive next.
func (s *Service) dueTransition(o *domain.Occurrence) (domain.OccurrenceState, bool) {
	now := s.cfg.Clock()
	trigger := o.Time(s.cfg.Location)
	high := trigger.Add(-s.cfg.HighNotificationOffset)

	switch o.State {
	case domain.Scheduled:
		if now.Before(high) {
			return domain.LowNotification, true
		}

		if now.Before(trigger) {
			return domain.HighNotification, true
		}

		return domain.Firing, true
	case domain.LowNotification:
		if now.Before(trigger) {
			return domain.HighNotification, true
		}

		return domain.Firing, true
	case domain.HighNotification, domain.Snoozed:
		return domain.Firing, true
	case domain.Firing:
		return domain.Missed, true
	default:
		return 0, false
	}
}

// applyTransition performs one serialized state change. The caller must
// hold the occurrence lock.
func (s *Service) applyTransition(ctx context.Context, o *domain.Occurrence, target domain.OccurrenceState) error {
	if !o.State.CanTransition(target) {
		return fmt.Errorf("%w: %s -> %s for %s", errIllegalTransition, o.State, target, o.ID)
	}

	if target == domain.Firing {
		return s.enterFiring(ctx, o)
	}

	previous := o.State
	o.State = target

	logger.InfoKV(ctx, "Occurrence transition",
		"occurrence_id", o.ID, "alarm_id", o.AlarmID, "from", previous, "to", target)

	switch target {
	case domain.LowNotification:
		if err := s.repo.SaveOccurrence(ctx, o); err != nil {
			return fmt.Errorf("save occurrence: %w", err)
		}

		s.wake.ScheduleWake(o.ID, o.Time(s.cfg.Location).Add(-s.cfg.HighNotificationOffset))

	case domain.HighNotification:
		if err := s.repo.SaveOccurrence(ctx, o); err != nil {
			return fmt.Errorf("save occurrence: %w", err)
		}

		s.wake.ScheduleWake(o.ID, o.Time(s.cfg.Location))

	case domain.Snoozed:
		if err := s.repo.SaveOccurrence(ctx, o); err != nil {
			return fmt.Errorf("save occurrence: %w", err)
		}

		s.wake.ScheduleWake(o.ID, s.cfg.Clock().Add(o.Ring.Snooze))

	case domain.Missed:
		if err := s.repo.SaveOccurrence(ctx, o); err != nil {
			return fmt.Errorf("save occurrence: %w", err)
		}

		// Keep the missed record around until its deadline, then let the
		// wake-up clean it up. The recurring schedule moves on meanwhile.
		s.wake.ScheduleWake(o.ID, o.MissedDeadline(s.cfg.Location))

		return s.continueSchedule(ctx, o, s.cfg.Clock())

	case domain.Dismissed, domain.PreDismissed:
		if err := s.discard(ctx, o); err != nil {
			return err
		}

		// A pre-dismissed occurrence skips its own instant, so the next
		// search starts after it; a dismissal just moves on from now.
		from := s.cfg.Clock()
		if target == domain.PreDismissed {
			if at := o.Time(s.cfg.Location); at.After(from) {
				from = at
			}
		}

		return s.continueSchedule(ctx, o, from)
	}

	return nil
}

// enterFiring gates the transition into Firing on a fresh holiday policy
// evaluation, since calendar data may have been refreshed after scheduling.
func (s *Service) enterFiring(ctx context.Context, o *domain.Occurrence) error {
	a, err := s.repo.LoadAlarm(ctx, o.AlarmID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			// Owning alarm is gone; never leave the occurrence dangling.
			logger.WarnKV(ctx, "Occurrence without alarm dismissed",
				"occurrence_id", o.ID, "alarm_id", o.AlarmID)

			return s.discard(ctx, o)
		}

		return fmt.Errorf("load alarm %d: %w", o.AlarmID, err)
	}

	day := holiday.DateOf(o.Time(s.cfg.Location))
	if s.engine.Decide(day, a.HolidayOption) == holiday.Suppress {
		logger.InfoKV(ctx, "Firing suppressed by holiday policy",
			"occurrence_id", o.ID, "alarm_id", a.ID,
			"date", day.String(), "option", a.HolidayOption)

		if err = s.discard(ctx, o); err != nil {
			return err
		}

		if !a.Days.IsRepeating() {
			// One-shot alarms have no next recurrence to fall back to;
			// the suppressed cycle simply never rings.
			return s.retire(ctx, a)
		}

		_, err = s.scheduleNext(ctx, a, s.cfg.Clock())

		return err
	}

	o.State = domain.Firing
	if err = s.repo.SaveOccurrence(ctx, o); err != nil {
		return fmt.Errorf("save occurrence: %w", err)
	}

	logger.InfoKV(ctx, "Occurrence firing",
		"occurrence_id", o.ID, "alarm_id", a.ID, "label", o.Ring.Label)

	if o.Ring.AutoSilence > 0 {
		s.wake.ScheduleWake(o.ID, s.cfg.Clock().Add(o.Ring.AutoSilence))
	}

	return nil
}

// continueSchedule creates the alarm's next occurrence after a finished
// cycle. One-shot alarms are retired instead.
func (s *Service) continueSchedule(ctx context.Context, o *domain.Occurrence, from time.Time) error {
	a, err := s.repo.LoadAlarm(ctx, o.AlarmID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil
		}

		return fmt.Errorf("load alarm %d: %w", o.AlarmID, err)
	}

	if !a.Days.IsRepeating() {
		return s.retire(ctx, a)
	}

	_, err = s.scheduleNext(ctx, a, from)

	return err
}

// scheduleNext materializes and registers the alarm's next occurrence
// strictly after the given instant.
func (s *Service) scheduleNext(ctx context.Context, a *domain.Alarm, from time.Time) (*domain.Occurrence, error) {
	next, err := s.engine.NextTrigger(a, from)
	if err != nil {
		// Exceeding the search cap means corrupt data, not a holiday;
		// surface it loudly instead of retrying forever.
		logger.ErrorKV(ctx, "No valid occurrence found", "alarm_id", a.ID, "error", err)

		return nil, fmt.Errorf("next trigger for alarm %d: %w", a.ID, err)
	}

	o := domain.NewOccurrence(a, next)
	if err = s.repo.SaveOccurrence(ctx, o); err != nil {
		return nil, fmt.Errorf("save occurrence: %w", err)
	}

	s.wake.ScheduleWake(o.ID, s.firstWakeInstant(o))

	logger.InfoKV(ctx, "Occurrence scheduled",
		"occurrence_id", o.ID, "alarm_id", a.ID, "at", next)

	return o, nil
}

// firstWakeInstant picks the earliest future milestone of a fresh
// occurrence: reminder, urgent notification, then the trigger itself.
func (s *Service) firstWakeInstant(o *domain.Occurrence) time.Time {
	var (
		now     = s.cfg.Clock()
		trigger = o.Time(s.cfg.Location)
	)

	for _, at := range []time.Time{
		trigger.Add(-s.cfg.ReminderOffset),
		trigger.Add(-s.cfg.HighNotificationOffset),
	} {
		if at.After(now) {
			return at
		}
	}

	return trigger
}

// retire disables a one-shot alarm whose cycle is over.
func (s *Service) retire(ctx context.Context, a *domain.Alarm) error {
	a.Enabled = false
	if err := s.repo.SaveAlarm(ctx, a); err != nil {
		return fmt.Errorf("disable alarm %d: %w", a.ID, err)
	}

	logger.InfoKV(ctx, "One-shot alarm retired", "alarm_id", a.ID)

	return nil
}

// discard cancels the pending wake-up and deletes the occurrence record.
func (s *Service) discard(ctx context.Context, o *domain.Occurrence) error {
	s.wake.Cancel(o.ID)

	if err := s.repo.DeleteOccurrence(ctx, o.ID); err != nil {
		return fmt.Errorf("delete occurrence %s: %w", o.ID, err)
	}

	return nil
}

// clearOccurrences cancels and deletes every occurrence of the alarm.
func (s *Service) clearOccurrences(ctx context.Context, alarmID int64) error {
	list, err := s.repo.ListOccurrences(ctx, alarmID)
	if err != nil {
		return fmt.Errorf("list occurrences of alarm %d: %w", alarmID, err)
	}

	for _, o := range list {
		if err = s.discard(ctx, o); err != nil {
			return err
		}
	}

	return nil
}
