// Package schedule computes concrete trigger instants for alarms.
//
// The Engine combines an alarm's weekday recurrence with the holiday policy:
// starting from "now" it walks forward to the nearest date that is both in
// the alarm's weekday set and allowed by the alarm's holiday option. The
// search is pure and stateless, so it may run on any goroutine.
package schedule
