package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/workclock/alarmsched/internal/config"
	"github.com/workclock/alarmsched/internal/holiday"
	"github.com/workclock/alarmsched/internal/holiday/source"
	"github.com/workclock/alarmsched/internal/logger"
	repository "github.com/workclock/alarmsched/internal/repository/alarms"
	"github.com/workclock/alarmsched/internal/schedule"
	"github.com/workclock/alarmsched/internal/service/scheduler"
	"github.com/workclock/alarmsched/internal/wake"
)

// Options controls the alarmsched process and configuration.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// DatabasePath provides an optional database path override.
	DatabasePath string
}

// Run starts the daemon and blocks until the context is canceled.
// Configuration is loaded first, then persisted state is restored before
// any scheduling happens.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "alarmsched")

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if level, ok := logger.ParseLogLevel(settings.LogLevel); ok {
		logger.SetLevel(level)
	}

	// Use DatabasePath from config unless overridden by command line option.
	databasePath := settings.DatabasePath
	if opts.DatabasePath != "" {
		databasePath = opts.DatabasePath
	}

	repo, err := repository.Open(databasePath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = repo.Close() }()

	parity, err := config.ParseWeekParity(settings.BigWeekParity)
	if err != nil {
		return err
	}

	calendar := holiday.NewCalendar()
	engine := schedule.NewEngine(calendar, holiday.Policy{BigWeekParity: parity})

	// Wake-ups call back into the service; the indirection lets the timer
	// scheduler be constructed before the service that consumes it.
	var svc *scheduler.Service

	timers := wake.NewTimerScheduler(func(occurrenceID string) {
		if err := svc.HandleWake(ctx, occurrenceID); err != nil {
			logger.ErrorKV(ctx, "Wake-up handling failed", "occurrence_id", occurrenceID, "error", err)
		}
	})
	defer timers.Stop()

	svc = scheduler.NewService(repo, engine, timers, scheduler.Config{
		ReminderOffset:         settings.ReminderOffset,
		HighNotificationOffset: settings.HighNotificationOffset,
	})

	// Previously fetched holiday years keep the calendar meaningful before
	// the first network refresh (and when no feed is configured at all).
	years, err := repo.LoadHolidayYears(ctx)
	if err != nil {
		return fmt.Errorf("restore holiday years: %w", err)
	}

	for year, records := range years {
		calendar.ReplaceYear(year, records)
	}

	if err = svc.RescheduleAll(ctx); err != nil {
		return fmt.Errorf("reschedule alarms: %w", err)
	}

	logger.InfoKV(ctx, "Alarm daemon started",
		"database", databasePath, "restored_years", len(years))

	if settings.HolidayFeedURL != "" {
		refresher := scheduler.NewRefresher(
			source.NewHTTPSource(settings.HolidayFeedURL, settings.FetchTimeout),
			calendar, repo)

		requestRefresh := func() {
			year := time.Now().Year()
			refresher.Request(ctx, year, year+1)
		}

		refreshCron := cron.New()
		if _, err = refreshCron.AddFunc(settings.RefreshSchedule, requestRefresh); err != nil {
			return fmt.Errorf("invalid refresh schedule %q: %w", settings.RefreshSchedule, err)
		}

		refreshCron.Start()
		defer refreshCron.Stop()

		requestRefresh()
	}

	<-ctx.Done()
	logger.Info(ctx, "Alarm daemon stopped")

	return nil
}
