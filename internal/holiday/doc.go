// Package holiday indexes holiday records and decides whether an alarm may
// fire on a given calendar date.
//
// A Record describes one contiguous holiday range plus its compensation
// workdays (weekend dates that are officially working days). The Calendar
// answers per-date status lookups from an atomically swapped index, so
// lookups stay safe while a background refresh replaces a year. Policy maps
// a candidate date and an alarm's holiday option to a fire/suppress decision
// and fails open whenever no data is loaded for the relevant year.
package holiday
