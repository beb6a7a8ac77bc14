package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/workclock/alarmsched/internal/holiday"
	"github.com/workclock/alarmsched/internal/holiday/source"
	"github.com/workclock/alarmsched/internal/logger"
	repo "github.com/workclock/alarmsched/internal/repository/alarms"
)

// Refresher pulls holiday data from a feed into the calendar and the
// repository. At most one refresh runs at a time; requests arriving while
// one is in flight are dropped rather than queued, since the running
// refresh already fetches the freshest data.
type Refresher struct {
	// source fetches year batches from the feed.
	source source.Source
	// calendar receives the refreshed index.
	calendar *holiday.Calendar
	// repo persists fetched years across restarts.
	repo repo.Repository
	// busy is set while a refresh is in flight.
	busy atomic.Bool
}

// NewRefresher wires a refresher over the given feed, calendar and store.
func NewRefresher(src source.Source, calendar *holiday.Calendar, repository repo.Repository) *Refresher {
	return &Refresher{
		source:   src,
		calendar: calendar,
		repo:     repository,
	}
}

// Request triggers an asynchronous refresh of the given years. It returns
// immediately; if a refresh is already running the request is coalesced
// into it by being dropped.
func (r *Refresher) Request(ctx context.Context, years ...int) {
	if !r.busy.CompareAndSwap(false, true) {
		logger.DebugKV(ctx, "Holiday refresh already in flight, request dropped", "years", years)

		return
	}

	go func() {
		defer r.busy.Store(false)

		for _, year := range years {
			if err := r.refreshYear(ctx, year); err != nil {
				logger.WarnKV(ctx, "Holiday refresh failed, keeping previous data",
					"year", year, "error", err)
			}
		}
	}()
}

// RefreshYear synchronously refreshes a single year, respecting the
// single-flight guard. Returns without doing anything when a refresh is
// already running.
func (r *Refresher) RefreshYear(ctx context.Context, year int) error {
	if !r.busy.CompareAndSwap(false, true) {
		return nil
	}
	defer r.busy.Store(false)

	return r.refreshYear(ctx, year)
}

// refreshYear fetches, persists and installs one year. The previous
// calendar stays visible until the new index is swapped in, and survives
// untouched when the fetch fails.
func (r *Refresher) refreshYear(ctx context.Context, year int) error {
	records, err := r.source.FetchYear(ctx, year)
	if err != nil {
		if errors.Is(err, source.ErrYearNotFound) {
			logger.InfoKV(ctx, "Holiday feed has no data for year", "year", year)

			return nil
		}

		return fmt.Errorf("fetch year %d: %w", year, err)
	}

	if err = r.repo.SaveHolidayYear(ctx, year, records); err != nil {
		return fmt.Errorf("persist year %d: %w", year, err)
	}

	kept := r.calendar.ReplaceYear(year, records)

	logger.InfoKV(ctx, "Holiday calendar refreshed", "year", year, "records", kept)

	return nil
}

// Restore installs previously persisted holiday years into the calendar,
// used at startup before any network refresh has happened.
func (r *Refresher) Restore(ctx context.Context) error {
	years, err := r.repo.LoadHolidayYears(ctx)
	if err != nil {
		return fmt.Errorf("load persisted holiday years: %w", err)
	}

	for year, records := range years {
		r.calendar.ReplaceYear(year, records)
	}

	if len(years) > 0 {
		logger.InfoKV(ctx, "Holiday calendar restored from store", "years", len(years))
	}

	return nil
}
