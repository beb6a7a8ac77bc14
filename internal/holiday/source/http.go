package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/workclock/alarmsched/internal/holiday"
	"github.com/workclock/alarmsched/internal/logger"
)

// Source fetches the holiday records published for one year.
type Source interface {
	FetchYear(ctx context.Context, year int) ([]holiday.Record, error)
}

// ErrYearNotFound is returned when the feed carries no entry for the year.
var ErrYearNotFound = errors.New("year not present in holiday feed")

// DefaultTimeout bounds one feed request.
const DefaultTimeout = 15 * time.Second

// feedEntry is the wire shape of one holiday record.
type feedEntry struct {
	// Name is the official holiday name.
	Name string `json:"name"`
	// StartDate and EndDate bound the holiday range, inclusive.
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	// CompensationDates lists weekend dates that are working days.
	CompensationDates []string `json:"compensation_dates"`
}

// HTTPSource fetches the year-keyed JSON feed over HTTP.
type HTTPSource struct {
	// url is the feed endpoint.
	url string
	// client executes feed requests with a bounded timeout.
	client *http.Client
}

// NewHTTPSource builds a source for the given feed URL.
func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &HTTPSource{
		url: url,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchYear downloads the feed and returns the records for the requested
// year. Entries that fail to parse are skipped individually and logged; the
// rest of the year is still returned.
func (s *HTTPSource) FetchYear(ctx context.Context, year int) ([]holiday.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch holiday feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("holiday feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read holiday feed: %w", err)
	}

	var feed map[string][]feedEntry
	if err = json.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("decode holiday feed: %w", err)
	}

	entries, ok := feed[fmt.Sprintf("%04d", year)]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrYearNotFound, year)
	}

	return decodeEntries(ctx, year, entries), nil
}

// decodeEntries converts wire entries to records, dropping malformed ones
// individually.
func decodeEntries(ctx context.Context, year int, entries []feedEntry) []holiday.Record {
	records := make([]holiday.Record, 0, len(entries))

	for _, entry := range entries {
		record, err := entry.toRecord()
		if err != nil {
			logger.WarnKV(ctx, "Skipping malformed holiday entry",
				"year", year, "name", entry.Name, "error", err)

			continue
		}

		records = append(records, record)
	}

	return records
}

// toRecord parses the wire entry into a validated record.
func (e feedEntry) toRecord() (holiday.Record, error) {
	start, err := holiday.ParseDate(e.StartDate)
	if err != nil {
		return holiday.Record{}, fmt.Errorf("start date: %w", err)
	}

	end, err := holiday.ParseDate(e.EndDate)
	if err != nil {
		return holiday.Record{}, fmt.Errorf("end date: %w", err)
	}

	compDays := make([]holiday.Date, 0, len(e.CompensationDates))

	for _, raw := range e.CompensationDates {
		day, err := holiday.ParseDate(raw)
		if err != nil {
			return holiday.Record{}, fmt.Errorf("compensation date: %w", err)
		}

		compDays = append(compDays, day)
	}

	record := holiday.Record{
		Name:     e.Name,
		Start:    start,
		End:      end,
		CompDays: compDays,
	}
	if err = record.Validate(); err != nil {
		return holiday.Record{}, err
	}

	return record, nil
}
