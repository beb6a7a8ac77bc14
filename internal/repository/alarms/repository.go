package alarms

import (
	"context"
	"errors"

	domain "github.com/workclock/alarmsched/internal/domain/alarm"
	"github.com/workclock/alarmsched/internal/holiday"
)

// ErrNotFound is returned when the requested alarm or occurrence does not
// exist.
var ErrNotFound = errors.New("not found")

// Repository defines persistence operations for alarms, occurrences and
// holiday records.
type Repository interface {
	// LoadAlarm returns the alarm with the given id or ErrNotFound.
	LoadAlarm(ctx context.Context, id int64) (*domain.Alarm, error)
	// SaveAlarm inserts or updates the alarm, assigning ID on first save.
	SaveAlarm(ctx context.Context, a *domain.Alarm) error
	// DeleteAlarm removes the alarm and, via cascade, its occurrences.
	DeleteAlarm(ctx context.Context, id int64) error
	// ListAlarms returns all alarms ordered by time of day.
	ListAlarms(ctx context.Context) ([]*domain.Alarm, error)

	// GetOccurrence returns the occurrence with the given id or ErrNotFound.
	GetOccurrence(ctx context.Context, id string) (*domain.Occurrence, error)
	// SaveOccurrence inserts or updates an occurrence. An existing
	// occurrence of the same alarm at the same scheduled instant is
	// adopted instead of duplicated.
	SaveOccurrence(ctx context.Context, o *domain.Occurrence) error
	// DeleteOccurrence removes the occurrence; deleting a missing id is
	// not an error.
	DeleteOccurrence(ctx context.Context, id string) error
	// ListOccurrences returns all occurrences of the alarm.
	ListOccurrences(ctx context.Context, alarmID int64) ([]*domain.Occurrence, error)
	// NextUpcomingOccurrence returns the alarm's earliest occurrence or
	// ErrNotFound when none exists.
	NextUpcomingOccurrence(ctx context.Context, alarmID int64) (*domain.Occurrence, error)

	// SaveHolidayYear replaces the persisted records for one feed year.
	SaveHolidayYear(ctx context.Context, year int, records []holiday.Record) error
	// LoadHolidayYears returns all persisted records grouped by feed year.
	LoadHolidayYears(ctx context.Context) (map[int][]holiday.Record, error)
}
