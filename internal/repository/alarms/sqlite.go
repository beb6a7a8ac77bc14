package alarms

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Pure-Go SQLite driver.
	_ "modernc.org/sqlite"

	domain "github.com/workclock/alarmsched/internal/domain/alarm"
	"github.com/workclock/alarmsched/internal/holiday"
)

// schema creates all tables on first open. Occurrences cascade with their
// alarm so a deleted alarm never leaves dangling occurrences behind.
const schema = `
CREATE TABLE IF NOT EXISTS alarms (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	enabled          INTEGER NOT NULL DEFAULT 0,
	year             INTEGER NOT NULL,
	month            INTEGER NOT NULL,
	day              INTEGER NOT NULL,
	hour             INTEGER NOT NULL,
	minute           INTEGER NOT NULL,
	days_of_week     INTEGER NOT NULL DEFAULT 0,
	holiday_option   INTEGER NOT NULL DEFAULT 0,
	label            TEXT NOT NULL DEFAULT '',
	ringtone         TEXT NOT NULL DEFAULT '',
	vibrate          INTEGER NOT NULL DEFAULT 1,
	flash            INTEGER NOT NULL DEFAULT 1,
	auto_silence_sec INTEGER NOT NULL DEFAULT 600,
	snooze_sec       INTEGER NOT NULL DEFAULT 600,
	crescendo_sec    INTEGER NOT NULL DEFAULT 0,
	volume           INTEGER NOT NULL DEFAULT 11
);

CREATE TABLE IF NOT EXISTS occurrences (
	id               TEXT PRIMARY KEY,
	alarm_id         INTEGER NOT NULL REFERENCES alarms(id) ON DELETE CASCADE,
	year             INTEGER NOT NULL,
	month            INTEGER NOT NULL,
	day              INTEGER NOT NULL,
	hour             INTEGER NOT NULL,
	minute           INTEGER NOT NULL,
	state            INTEGER NOT NULL DEFAULT 0,
	label            TEXT NOT NULL DEFAULT '',
	ringtone         TEXT NOT NULL DEFAULT '',
	vibrate          INTEGER NOT NULL DEFAULT 0,
	flash            INTEGER NOT NULL DEFAULT 0,
	auto_silence_sec INTEGER NOT NULL DEFAULT 600,
	snooze_sec       INTEGER NOT NULL DEFAULT 600,
	crescendo_sec    INTEGER NOT NULL DEFAULT 0,
	volume           INTEGER NOT NULL DEFAULT 11
);

CREATE INDEX IF NOT EXISTS occurrences_alarm_id ON occurrences(alarm_id);

CREATE TABLE IF NOT EXISTS holidays (
	year       INTEGER NOT NULL,
	position   INTEGER NOT NULL,
	name       TEXT NOT NULL,
	start_date TEXT NOT NULL,
	end_date   TEXT NOT NULL,
	comp_days  TEXT NOT NULL DEFAULT '[]',
	PRIMARY KEY (year, position)
);
`

// SQLiteRepository persists alarms, occurrences and holiday records in a
// single SQLite database file.
type SQLiteRepository struct {
	// db is the open database handle.
	db *sql.DB
}

// Open creates the parent directory if needed, opens the database at the
// given path and applies the schema.
func Open(path string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err = db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if _, err = db.Exec(schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Close releases the database handle.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// LoadAlarm returns the alarm with the given id.
func (r *SQLiteRepository) LoadAlarm(ctx context.Context, id int64) (*domain.Alarm, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, enabled, year, month, day, hour, minute, days_of_week,
		       holiday_option, label, ringtone, vibrate, flash,
		       auto_silence_sec, snooze_sec, crescendo_sec, volume
		FROM alarms WHERE id = ?`, id)

	return scanAlarm(row)
}

// SaveAlarm inserts a new alarm or updates an existing one.
func (r *SQLiteRepository) SaveAlarm(ctx context.Context, a *domain.Alarm) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("validate alarm: %w", err)
	}

	if a.ID == domain.InvalidID {
		result, err := r.db.ExecContext(ctx, `
			INSERT INTO alarms (enabled, year, month, day, hour, minute,
				days_of_week, holiday_option, label, ringtone, vibrate, flash,
				auto_silence_sec, snooze_sec, crescendo_sec, volume)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.Enabled, a.Year, a.Month, a.Day, a.Hour, a.Minute,
			a.Days.Bits(), int(a.HolidayOption), a.Ring.Label, a.Ring.Ringtone,
			a.Ring.Vibrate, a.Ring.Flash,
			int(a.Ring.AutoSilence/time.Second), int(a.Ring.Snooze/time.Second),
			int(a.Ring.Crescendo/time.Second), a.Ring.Volume)
		if err != nil {
			return fmt.Errorf("insert alarm: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("alarm id: %w", err)
		}

		a.ID = id

		return nil
	}

	_, err := r.db.ExecContext(ctx, `
		UPDATE alarms SET enabled = ?, year = ?, month = ?, day = ?, hour = ?,
			minute = ?, days_of_week = ?, holiday_option = ?, label = ?,
			ringtone = ?, vibrate = ?, flash = ?, auto_silence_sec = ?,
			snooze_sec = ?, crescendo_sec = ?, volume = ?
		WHERE id = ?`,
		a.Enabled, a.Year, a.Month, a.Day, a.Hour, a.Minute,
		a.Days.Bits(), int(a.HolidayOption), a.Ring.Label, a.Ring.Ringtone,
		a.Ring.Vibrate, a.Ring.Flash,
		int(a.Ring.AutoSilence/time.Second), int(a.Ring.Snooze/time.Second),
		int(a.Ring.Crescendo/time.Second), a.Ring.Volume, a.ID)
	if err != nil {
		return fmt.Errorf("update alarm: %w", err)
	}

	return nil
}

// DeleteAlarm removes the alarm and its occurrences.
func (r *SQLiteRepository) DeleteAlarm(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM alarms WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete alarm: %w", err)
	}

	return nil
}

// ListAlarms returns all alarms ordered by time of day, newest first within
// the same minute.
func (r *SQLiteRepository) ListAlarms(ctx context.Context) ([]*domain.Alarm, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, enabled, year, month, day, hour, minute, days_of_week,
		       holiday_option, label, ringtone, vibrate, flash,
		       auto_silence_sec, snooze_sec, crescendo_sec, volume
		FROM alarms ORDER BY hour, minute ASC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list alarms: %w", err)
	}
	defer rows.Close()

	var result []*domain.Alarm

	for rows.Next() {
		a, err := scanAlarm(rows)
		if err != nil {
			return nil, err
		}

		result = append(result, a)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("list alarms: %w", err)
	}

	return result, nil
}

// GetOccurrence returns the occurrence with the given id.
func (r *SQLiteRepository) GetOccurrence(ctx context.Context, id string) (*domain.Occurrence, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, alarm_id, year, month, day, hour, minute, state, label,
		       ringtone, vibrate, flash, auto_silence_sec, snooze_sec,
		       crescendo_sec, volume
		FROM occurrences WHERE id = ?`, id)

	return scanOccurrence(row)
}

// SaveOccurrence inserts or updates an occurrence. When another occurrence
// of the same alarm already sits at the same scheduled instant, that row is
// adopted (its id replaces o.ID) instead of inserting a duplicate.
func (r *SQLiteRepository) SaveOccurrence(ctx context.Context, o *domain.Occurrence) error {
	var existing string

	err := r.db.QueryRowContext(ctx, `
		SELECT id FROM occurrences
		WHERE alarm_id = ? AND year = ? AND month = ? AND day = ?
		  AND hour = ? AND minute = ? AND id != ?`,
		o.AlarmID, o.Year, o.Month, o.Day, o.Hour, o.Minute, o.ID).Scan(&existing)

	switch {
	case err == nil:
		o.ID = existing
	case errors.Is(err, sql.ErrNoRows):
		// No duplicate; fall through to the upsert.
	default:
		return fmt.Errorf("check duplicate occurrence: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO occurrences (id, alarm_id, year, month, day, hour, minute,
			state, label, ringtone, vibrate, flash, auto_silence_sec,
			snooze_sec, crescendo_sec, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			alarm_id = excluded.alarm_id, year = excluded.year,
			month = excluded.month, day = excluded.day, hour = excluded.hour,
			minute = excluded.minute, state = excluded.state,
			label = excluded.label, ringtone = excluded.ringtone,
			vibrate = excluded.vibrate, flash = excluded.flash,
			auto_silence_sec = excluded.auto_silence_sec,
			snooze_sec = excluded.snooze_sec,
			crescendo_sec = excluded.crescendo_sec, volume = excluded.volume`,
		o.ID, o.AlarmID, o.Year, o.Month, o.Day, o.Hour, o.Minute,
		int(o.State), o.Ring.Label, o.Ring.Ringtone, o.Ring.Vibrate, o.Ring.Flash,
		int(o.Ring.AutoSilence/time.Second), int(o.Ring.Snooze/time.Second),
		int(o.Ring.Crescendo/time.Second), o.Ring.Volume)
	if err != nil {
		return fmt.Errorf("save occurrence: %w", err)
	}

	return nil
}

// DeleteOccurrence removes the occurrence; a missing id is not an error.
func (r *SQLiteRepository) DeleteOccurrence(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM occurrences WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete occurrence: %w", err)
	}

	return nil
}

// ListOccurrences returns all occurrences of the alarm ordered by scheduled
// instant.
func (r *SQLiteRepository) ListOccurrences(ctx context.Context, alarmID int64) ([]*domain.Occurrence, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, alarm_id, year, month, day, hour, minute, state, label,
		       ringtone, vibrate, flash, auto_silence_sec, snooze_sec,
		       crescendo_sec, volume
		FROM occurrences WHERE alarm_id = ?
		ORDER BY year, month, day, hour, minute`, alarmID)
	if err != nil {
		return nil, fmt.Errorf("list occurrences: %w", err)
	}
	defer rows.Close()

	var result []*domain.Occurrence

	for rows.Next() {
		o, err := scanOccurrence(rows)
		if err != nil {
			return nil, err
		}

		result = append(result, o)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("list occurrences: %w", err)
	}

	return result, nil
}

// NextUpcomingOccurrence returns the alarm's earliest occurrence.
func (r *SQLiteRepository) NextUpcomingOccurrence(ctx context.Context, alarmID int64) (*domain.Occurrence, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, alarm_id, year, month, day, hour, minute, state, label,
		       ringtone, vibrate, flash, auto_silence_sec, snooze_sec,
		       crescendo_sec, volume
		FROM occurrences WHERE alarm_id = ?
		ORDER BY year, month, day, hour, minute LIMIT 1`, alarmID)

	return scanOccurrence(row)
}

// SaveHolidayYear replaces the persisted records for one feed year inside a
// transaction, so readers never observe a half-written year after a crash.
func (r *SQLiteRepository) SaveHolidayYear(ctx context.Context, year int, records []holiday.Record) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin holiday save: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op.

	if _, err = tx.ExecContext(ctx, "DELETE FROM holidays WHERE year = ?", year); err != nil {
		return fmt.Errorf("clear holiday year: %w", err)
	}

	for position, record := range records {
		compDays := make([]string, 0, len(record.CompDays))
		for _, d := range record.CompDays {
			compDays = append(compDays, d.String())
		}

		encoded, err := json.Marshal(compDays)
		if err != nil {
			return fmt.Errorf("encode compensation days: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO holidays (year, position, name, start_date, end_date, comp_days)
			VALUES (?, ?, ?, ?, ?, ?)`,
			year, position, record.Name, record.Start.String(), record.End.String(), string(encoded))
		if err != nil {
			return fmt.Errorf("insert holiday record: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit holiday save: %w", err)
	}

	return nil
}

// LoadHolidayYears returns all persisted records grouped by feed year,
// dropping rows that no longer parse.
func (r *SQLiteRepository) LoadHolidayYears(ctx context.Context) (map[int][]holiday.Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT year, name, start_date, end_date, comp_days
		FROM holidays ORDER BY year, position`)
	if err != nil {
		return nil, fmt.Errorf("load holidays: %w", err)
	}
	defer rows.Close()

	result := map[int][]holiday.Record{}

	for rows.Next() {
		var (
			year                      int
			name, start, end, rawComp string
		)

		if err = rows.Scan(&year, &name, &start, &end, &rawComp); err != nil {
			return nil, fmt.Errorf("scan holiday row: %w", err)
		}

		record, err := decodeHolidayRow(name, start, end, rawComp)
		if err != nil {
			continue
		}

		result[year] = append(result[year], record)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("load holidays: %w", err)
	}

	return result, nil
}

// decodeHolidayRow rebuilds one record from its persisted representation.
func decodeHolidayRow(name, start, end, rawComp string) (holiday.Record, error) {
	startDate, err := holiday.ParseDate(start)
	if err != nil {
		return holiday.Record{}, err
	}

	endDate, err := holiday.ParseDate(end)
	if err != nil {
		return holiday.Record{}, err
	}

	var compStrings []string
	if err = json.Unmarshal([]byte(rawComp), &compStrings); err != nil {
		return holiday.Record{}, fmt.Errorf("decode compensation days: %w", err)
	}

	compDays := make([]holiday.Date, 0, len(compStrings))

	for _, s := range compStrings {
		d, err := holiday.ParseDate(s)
		if err != nil {
			return holiday.Record{}, err
		}

		compDays = append(compDays, d)
	}

	return holiday.Record{
		Name:     name,
		Start:    startDate,
		End:      endDate,
		CompDays: compDays,
	}, nil
}

// rowScanner lets scan helpers accept both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanAlarm decodes one alarms row into a typed entity.
func scanAlarm(row rowScanner) (*domain.Alarm, error) {
	var (
		a                                  domain.Alarm
		days, option                       int
		autoSilence, snooze, crescendoSecs int
	)

	err := row.Scan(&a.ID, &a.Enabled, &a.Year, &a.Month, &a.Day, &a.Hour,
		&a.Minute, &days, &option, &a.Ring.Label, &a.Ring.Ringtone,
		&a.Ring.Vibrate, &a.Ring.Flash, &autoSilence, &snooze,
		&crescendoSecs, &a.Ring.Volume)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("scan alarm: %w", err)
	}

	a.Days = domain.WeekdaysFromBits(days)

	a.HolidayOption, err = domain.ParseHolidayOption(option)
	if err != nil {
		return nil, fmt.Errorf("scan alarm: %w", err)
	}

	a.Ring.AutoSilence = time.Duration(autoSilence) * time.Second
	a.Ring.Snooze = time.Duration(snooze) * time.Second
	a.Ring.Crescendo = time.Duration(crescendoSecs) * time.Second

	return &a, nil
}

// scanOccurrence decodes one occurrences row into a typed entity.
func scanOccurrence(row rowScanner) (*domain.Occurrence, error) {
	var (
		o                                  domain.Occurrence
		state                              int
		autoSilence, snooze, crescendoSecs int
	)

	err := row.Scan(&o.ID, &o.AlarmID, &o.Year, &o.Month, &o.Day, &o.Hour,
		&o.Minute, &state, &o.Ring.Label, &o.Ring.Ringtone, &o.Ring.Vibrate,
		&o.Ring.Flash, &autoSilence, &snooze, &crescendoSecs, &o.Ring.Volume)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("scan occurrence: %w", err)
	}

	o.State = domain.OccurrenceState(state)
	o.Ring.AutoSilence = time.Duration(autoSilence) * time.Second
	o.Ring.Snooze = time.Duration(snooze) * time.Second
	o.Ring.Crescendo = time.Duration(crescendoSecs) * time.Second

	return &o, nil
}
