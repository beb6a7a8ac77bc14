// Package daemon wires the alarm scheduling daemon: storage, the holiday
// calendar with its periodic feed refresh, the schedule engine and the
// occurrence state machine, then runs until the process is signaled.
package daemon
