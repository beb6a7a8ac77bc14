// Package alarms implements persistence for alarm definitions, their
// materialized occurrences and the ingested holiday records.
//
// The SQLiteRepository stores everything in a single SQLite database and
// exposes a Repository interface that the scheduler service depends on.
// Records are decoded into named, typed entities; the scheduling core never
// sees rows or columns.
package alarms
