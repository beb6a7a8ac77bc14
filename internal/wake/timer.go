package wake

import (
	"sync"
	"time"
)

// Callback is invoked with the occurrence id when its wake-up fires.
type Callback func(occurrenceID string)

// TimerScheduler schedules wake-ups with in-process timers, one per
// occurrence. It satisfies the scheduler service's WakeScheduler interface.
type TimerScheduler struct {
	// callback receives fired occurrence ids.
	callback Callback
	// clock returns the current time; tests substitute a fixed clock.
	clock func() time.Time
	// mu guards timers and stopped.
	mu sync.Mutex
	// timers maps occurrence id to its pending timer.
	timers map[string]*time.Timer
	// stopped blocks new schedules after Stop.
	stopped bool
}

// NewTimerScheduler builds a scheduler delivering wake-ups to the callback.
func NewTimerScheduler(callback Callback) *TimerScheduler {
	return &TimerScheduler{
		callback: callback,
		clock:    time.Now,
		timers:   map[string]*time.Timer{},
	}
}

// ScheduleWake arms a timer for the occurrence at the given instant,
// replacing any pending one. Instants in the past fire immediately.
func (s *TimerScheduler) ScheduleWake(occurrenceID string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}

	if pending, ok := s.timers[occurrenceID]; ok {
		pending.Stop()
	}

	delay := at.Sub(s.clock())
	if delay < 0 {
		delay = 0
	}

	s.timers[occurrenceID] = time.AfterFunc(delay, func() {
		s.fire(occurrenceID)
	})
}

// Cancel drops the occurrence's pending wake-up, if any.
func (s *TimerScheduler) Cancel(occurrenceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pending, ok := s.timers[occurrenceID]; ok {
		pending.Stop()
		delete(s.timers, occurrenceID)
	}
}

// Stop cancels every pending wake-up and rejects new ones. Callbacks
// already in flight still complete.
func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true

	for id, pending := range s.timers {
		pending.Stop()
		delete(s.timers, id)
	}
}

// fire forgets the timer and delivers the callback outside the lock.
func (s *TimerScheduler) fire(occurrenceID string) {
	s.mu.Lock()

	if s.stopped {
		s.mu.Unlock()

		return
	}

	delete(s.timers, occurrenceID)
	s.mu.Unlock()

	s.callback(occurrenceID)
}
