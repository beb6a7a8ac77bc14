package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/workclock/alarmsched/internal/holiday"
)

// Config holds the settings of the alarm daemon.
type Config struct {
	// DatabasePath is the SQLite database file holding alarms, occurrences
	// and cached holiday records.
	DatabasePath string `yaml:"database_path"`
	// HolidayFeedURL is the HTTP endpoint serving year-keyed holiday data.
	// Empty disables network refreshes; the calendar then runs on whatever
	// the database already holds.
	HolidayFeedURL string `yaml:"holiday_feed_url"`
	// RefreshSchedule is a cron expression for periodic holiday refreshes.
	RefreshSchedule string `yaml:"refresh_schedule"`
	// FetchTimeout bounds one holiday feed request.
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	// BigWeekParity anchors the alternating-week rotation: "odd" marks odd
	// ISO weeks as big, "even" the inverse.
	BigWeekParity string `yaml:"big_week_parity"`
	// ReminderOffset positions the early reminder notification before the
	// trigger instant.
	ReminderOffset time.Duration `yaml:"reminder_offset"`
	// HighNotificationOffset positions the urgent notification before the
	// trigger instant.
	HighNotificationOffset time.Duration `yaml:"high_notification_offset"`
	// LogLevel selects the logging verbosity (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`
}

const (
	// DefaultConfigFilename is the default filename for daemon settings.
	DefaultConfigFilename = "alarmsched-settings.yaml"

	// DefaultDatabaseFilename is the default SQLite database filename.
	DefaultDatabaseFilename = "alarmsched.db"

	// DefaultRefreshSchedule refreshes holiday data daily at 03:00.
	DefaultRefreshSchedule = "0 3 * * *"

	// DefaultFetchTimeout bounds one holiday feed request.
	DefaultFetchTimeout = 15 * time.Second

	// DefaultLogLevel is the logging verbosity used when none is set.
	DefaultLogLevel = "info"

	// DefaultFilePermissions is the file permission for written settings.
	DefaultFilePermissions = 0o600
)

// Week parity values accepted in BigWeekParity.
const (
	ParityOdd  = "odd"
	ParityEven = "even"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errUnknownParity is returned for a BigWeekParity outside odd/even.
	errUnknownParity = errors.New("big_week_parity must be \"odd\" or \"even\"")
)

// Load reads configuration from the provided path and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks required fields and fills defaults in place.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.DatabasePath == "" {
		cfg.DatabasePath = DefaultDatabaseFilename
	}

	if cfg.HolidayFeedURL != "" {
		parsed, err := url.Parse(cfg.HolidayFeedURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("invalid holiday feed URL %q", cfg.HolidayFeedURL)
		}
	}

	if cfg.RefreshSchedule == "" {
		cfg.RefreshSchedule = DefaultRefreshSchedule
	}

	if _, err := cron.ParseStandard(cfg.RefreshSchedule); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", cfg.RefreshSchedule, err)
	}

	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}

	if cfg.BigWeekParity == "" {
		cfg.BigWeekParity = ParityOdd
	}

	if _, err := ParseWeekParity(cfg.BigWeekParity); err != nil {
		return err
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	return nil
}

// ParseWeekParity converts the textual parity setting into the policy value.
func ParseWeekParity(v string) (holiday.WeekParity, error) {
	switch v {
	case ParityOdd:
		return holiday.OddWeeksBig, nil
	case ParityEven:
		return holiday.EvenWeeksBig, nil
	default:
		return holiday.OddWeeksBig, fmt.Errorf("%w, got %q", errUnknownParity, v)
	}
}
