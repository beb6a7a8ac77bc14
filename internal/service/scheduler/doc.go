// Package scheduler drives alarm occurrences through their lifecycle.
//
// The Service materializes occurrences from the schedule engine, reacts to
// wake-ups and user actions, and owns every state mutation of an
// occurrence. Right before an occurrence starts firing it re-evaluates the
// holiday policy against the current calendar, so a holiday ingested after
// scheduling still suppresses the ring while preserving the recurring
// schedule. Transitions for one occurrence are serialized; different
// occurrences proceed independently.
//
// The Refresher keeps the holiday calendar current: at most one refresh runs
// at a time and requests arriving meanwhile are dropped, never queued.
package scheduler
