// Package alarm contains core domain types for the alarm business logic.
//
// It defines the Alarm definition (time of day, weekday recurrence, holiday
// handling option and ring behavior), the Weekdays recurrence bit set and the
// Occurrence type that materializes one concrete firing of an alarm together
// with its lifecycle state.
package alarm
