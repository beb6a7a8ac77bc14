// Package wake delivers wall-clock wake-ups for alarm occurrences.
//
// TimerScheduler keeps one timer per occurrence and invokes a callback when
// the timer fires. Rescheduling an occurrence replaces its pending timer.
package wake
