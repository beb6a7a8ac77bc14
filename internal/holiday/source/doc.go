// Package source retrieves holiday records from the remote holiday feed.
//
// The feed is a JSON object keyed by four-digit year, each year holding an
// ordered list of holiday entries with "YYYY-MM-DD" dates. Malformed entries
// are skipped individually so one bad record never loses a whole year, and
// fetch failures leave the caller's previously loaded calendar untouched.
package source
