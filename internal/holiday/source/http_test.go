package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/workclock/alarmsched/internal/holiday"
)

// feedBody is a two-year feed with one malformed 2023 entry in the middle.
const feedBody = `{
  "2023": [
    {
      "name": "National Day",
      "start_date": "2023-10-01",
      "end_date": "2023-10-03",
      "compensation_dates": ["2023-10-07"]
    },
    {
      "name": "Broken",
      "start_date": "2023-10-40",
      "end_date": "2023-10-41",
      "compensation_dates": []
    },
    {
      "name": "New Year",
      "start_date": "2023-12-30",
      "end_date": "2024-01-01",
      "compensation_dates": []
    }
  ],
  "2024": [
    {
      "name": "Spring Festival",
      "start_date": "2024-02-10",
      "end_date": "2024-02-17",
      "compensation_dates": ["2024-02-04", "2024-02-18"]
    }
  ]
}`

// TestFetchYear verifies decoding, year selection and per-entry drop of
// malformed records.
func TestFetchYear(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(feedBody))
	}))
	t.Cleanup(srv.Close)

	s := NewHTTPSource(srv.URL, time.Second)

	records, err := s.FetchYear(context.Background(), 2023)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "National Day", records[0].Name)
	require.Equal(t, "New Year", records[1].Name)
	require.Equal(t, []holiday.Date{{Year: 2023, Month: time.October, Day: 7}}, records[0].CompDays)

	records, err = s.FetchYear(context.Background(), 2024)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Len(t, records[0].CompDays, 2)
}

// TestFetchYear_MissingYear verifies the sentinel for absent years.
func TestFetchYear_MissingYear(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	s := NewHTTPSource(srv.URL, time.Second)

	_, err := s.FetchYear(context.Background(), 2023)
	require.ErrorIs(t, err, ErrYearNotFound)
}

// TestFetchYear_ServerError verifies non-200 responses surface as errors.
func TestFetchYear_ServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	s := NewHTTPSource(srv.URL, time.Second)

	_, err := s.FetchYear(context.Background(), 2023)
	require.Error(t, err)
}

// TestFetchYear_BadJSON verifies decode failures surface as errors.
func TestFetchYear_BadJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"2023": "not a list"}`))
	}))
	t.Cleanup(srv.Close)

	s := NewHTTPSource(srv.URL, time.Second)

	_, err := s.FetchYear(context.Background(), 2023)
	require.Error(t, err)
}
