package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/workclock/alarmsched/internal/domain/alarm"
	"github.com/workclock/alarmsched/internal/holiday"
	repo "github.com/workclock/alarmsched/internal/repository/alarms"
	"github.com/workclock/alarmsched/internal/schedule"
)

// fakeRepo is an in-memory Repository for service tests.
type fakeRepo struct {
	mu          sync.Mutex
	nextAlarmID int64
	alarms      map[int64]*domain.Alarm
	occurrences map[string]*domain.Occurrence
	holidays    map[int][]holiday.Record
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		nextAlarmID: 1,
		alarms:      map[int64]*domain.Alarm{},
		occurrences: map[string]*domain.Occurrence{},
		holidays:    map[int][]holiday.Record{},
	}
}

func (r *fakeRepo) LoadAlarm(_ context.Context, id int64) (*domain.Alarm, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.alarms[id]
	if !ok {
		return nil, repo.ErrNotFound
	}

	return a.Clone(), nil
}

func (r *fakeRepo) SaveAlarm(_ context.Context, a *domain.Alarm) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a.ID == domain.InvalidID {
		a.ID = r.nextAlarmID
		r.nextAlarmID++
	}

	r.alarms[a.ID] = a.Clone()

	return nil
}

func (r *fakeRepo) DeleteAlarm(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.alarms, id)

	for oid, o := range r.occurrences {
		if o.AlarmID == id {
			delete(r.occurrences, oid)
		}
	}

	return nil
}

func (r *fakeRepo) ListAlarms(_ context.Context) ([]*domain.Alarm, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := make([]*domain.Alarm, 0, len(r.alarms))
	for _, a := range r.alarms {
		list = append(list, a.Clone())
	}

	return list, nil
}

func (r *fakeRepo) GetOccurrence(_ context.Context, id string) (*domain.Occurrence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.occurrences[id]
	if !ok {
		return nil, repo.ErrNotFound
	}

	return o.Clone(), nil
}

func (r *fakeRepo) SaveOccurrence(_ context.Context, o *domain.Occurrence) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.occurrences {
		if existing.ID != o.ID && existing.AlarmID == o.AlarmID &&
			existing.Year == o.Year && existing.Month == o.Month && existing.Day == o.Day &&
			existing.Hour == o.Hour && existing.Minute == o.Minute {
			o.ID = existing.ID

			break
		}
	}

	r.occurrences[o.ID] = o.Clone()

	return nil
}

func (r *fakeRepo) DeleteOccurrence(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.occurrences, id)

	return nil
}

func (r *fakeRepo) ListOccurrences(_ context.Context, alarmID int64) ([]*domain.Occurrence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var list []*domain.Occurrence

	for _, o := range r.occurrences {
		if o.AlarmID == alarmID {
			list = append(list, o.Clone())
		}
	}

	return list, nil
}

func (r *fakeRepo) NextUpcomingOccurrence(_ context.Context, alarmID int64) (*domain.Occurrence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var next *domain.Occurrence

	for _, o := range r.occurrences {
		if o.AlarmID != alarmID {
			continue
		}

		if next == nil || o.Time(time.UTC).Before(next.Time(time.UTC)) {
			next = o
		}
	}

	if next == nil {
		return nil, repo.ErrNotFound
	}

	return next.Clone(), nil
}

func (r *fakeRepo) SaveHolidayYear(_ context.Context, year int, records []holiday.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.holidays[year] = append([]holiday.Record(nil), records...)

	return nil
}

func (r *fakeRepo) LoadHolidayYears(_ context.Context) (map[int][]holiday.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[int][]holiday.Record, len(r.holidays))
	for year, records := range r.holidays {
		out[year] = append([]holiday.Record(nil), records...)
	}

	return out, nil
}

// fakeWake records scheduled and canceled wake-ups.
type fakeWake struct {
	mu        sync.Mutex
	scheduled map[string]time.Time
	canceled  []string
}

func newFakeWake() *fakeWake {
	return &fakeWake{scheduled: map[string]time.Time{}}
}

func (w *fakeWake) ScheduleWake(id string, at time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.scheduled[id] = at
}

func (w *fakeWake) Cancel(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	delete(w.scheduled, id)
	w.canceled = append(w.canceled, id)
}

func (w *fakeWake) wakeAt(id string) (time.Time, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	at, ok := w.scheduled[id]

	return at, ok
}

// testClock is a settable clock for driving the service through time.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *testClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = now
}

// testFixture bundles the service with its collaborators.
type testFixture struct {
	service  *Service
	repo     *fakeRepo
	wake     *fakeWake
	clock    *testClock
	calendar *holiday.Calendar
}

func newFixture(t *testing.T, now time.Time) *testFixture {
	t.Helper()

	f := &testFixture{
		repo:     newFakeRepo(),
		wake:     newFakeWake(),
		clock:    &testClock{now: now},
		calendar: holiday.NewCalendar(),
	}

	engine := schedule.NewEngine(f.calendar, holiday.Policy{})
	f.service = NewService(f.repo, engine, f.wake, Config{
		Location: time.UTC,
		Clock:    f.clock.Now,
	})

	return f
}

// nationalDayRecords is the 2023-10-01..03 holiday with a compensation
// workday on Saturday 2023-10-07.
func nationalDayRecords() []holiday.Record {
	return []holiday.Record{{
		Name:     "National Day",
		Start:    holiday.Date{Year: 2023, Month: time.October, Day: 1},
		End:      holiday.Date{Year: 2023, Month: time.October, Day: 3},
		CompDays: []holiday.Date{{Year: 2023, Month: time.October, Day: 7}},
	}}
}

// newDailyAlarm persists an enabled every-day 08:30 alarm.
func newDailyAlarm(t *testing.T, f *testFixture) *domain.Alarm {
	t.Helper()

	a := domain.New(2023, time.October, 1, 8, 30)
	a.Enabled = true
	a.Days = domain.AllDays
	a.HolidayOption = domain.SkipOnHoliday

	require.NoError(t, f.repo.SaveAlarm(context.Background(), a))

	return a
}

// TestScheduleAlarm_SkipsHolidayRange verifies that scheduling just before a
// holiday block lands the occurrence on the first day after it.
func TestScheduleAlarm_SkipsHolidayRange(t *testing.T) {
	t.Parallel()

	f := newFixture(t, time.Date(2023, time.September, 30, 23, 59, 0, 0, time.UTC))
	f.calendar.ReplaceYear(2023, nationalDayRecords())

	a := newDailyAlarm(t, f)

	o, err := f.service.ScheduleAlarm(context.Background(), a.ID)
	require.NoError(t, err)
	require.NotNil(t, o)
	require.Equal(t, domain.Scheduled, o.State)
	require.Equal(t, time.Date(2023, time.October, 4, 8, 30, 0, 0, time.UTC), o.Time(time.UTC))

	// The first wake-up is the reminder notification half an hour early.
	at, ok := f.wake.wakeAt(o.ID)
	require.True(t, ok)
	require.Equal(t, time.Date(2023, time.October, 4, 8, 0, 0, 0, time.UTC), at)
}

// TestScheduleAlarm_DisabledClearsOccurrences verifies a disabled alarm ends
// up with no occurrences and no pending wake-ups.
func TestScheduleAlarm_DisabledClearsOccurrences(t *testing.T) {
	t.Parallel()

	f := newFixture(t, time.Date(2023, time.October, 9, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	a := newDailyAlarm(t, f)

	o, err := f.service.ScheduleAlarm(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, o)

	a.Enabled = false
	replacement, err := f.service.UpdateAlarm(ctx, a)
	require.NoError(t, err)
	require.Nil(t, replacement)

	list, err := f.repo.ListOccurrences(ctx, a.ID)
	require.NoError(t, err)
	require.Empty(t, list)

	_, pending := f.wake.wakeAt(o.ID)
	require.False(t, pending)
}

// TestDisableAlarm_ClearsOccurrences verifies disabling turns the alarm off
// and drops its pending occurrence.
func TestDisableAlarm_ClearsOccurrences(t *testing.T) {
	t.Parallel()

	f := newFixture(t, time.Date(2023, time.October, 9, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	a := newDailyAlarm(t, f)

	o, err := f.service.ScheduleAlarm(ctx, a.ID)
	require.NoError(t, err)

	require.NoError(t, f.service.DisableAlarm(ctx, a.ID))

	loaded, err := f.repo.LoadAlarm(ctx, a.ID)
	require.NoError(t, err)
	require.False(t, loaded.Enabled)

	_, err = f.repo.GetOccurrence(ctx, o.ID)
	require.ErrorIs(t, err, repo.ErrNotFound)
}

// TestHandleWake_NotificationProgression walks one occurrence from Scheduled
// through both notification stages into Firing.
func TestHandleWake_NotificationProgression(t *testing.T) {
	t.Parallel()

	f := newFixture(t, time.Date(2023, time.October, 9, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	a := newDailyAlarm(t, f)

	o, err := f.service.ScheduleAlarm(ctx, a.ID)
	require.NoError(t, err)

	trigger := o.Time(time.UTC)

	// Reminder wake-up.
	f.clock.Set(trigger.Add(-DefaultReminderOffset))
	require.NoError(t, f.service.HandleWake(ctx, o.ID))

	loaded, err := f.repo.GetOccurrence(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, domain.LowNotification, loaded.State)

	at, ok := f.wake.wakeAt(o.ID)
	require.True(t, ok)
	require.Equal(t, trigger.Add(-DefaultHighNotificationOffset), at)

	// Urgent wake-up.
	f.clock.Set(trigger.Add(-DefaultHighNotificationOffset))
	require.NoError(t, f.service.HandleWake(ctx, o.ID))

	loaded, err = f.repo.GetOccurrence(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, domain.HighNotification, loaded.State)

	// Trigger wake-up rings the alarm and arms the auto-silence timeout.
	f.clock.Set(trigger)
	require.NoError(t, f.service.HandleWake(ctx, o.ID))

	loaded, err = f.repo.GetOccurrence(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, domain.Firing, loaded.State)

	at, ok = f.wake.wakeAt(o.ID)
	require.True(t, ok)
	require.Equal(t, trigger.Add(domain.DefaultAutoSilence), at)
}

// TestHandleWake_HolidayIngestedAfterScheduling verifies that a holiday
// loaded after the occurrence was scheduled still suppresses the ring at
// fire time and rolls the schedule forward.
func TestHandleWake_HolidayIngestedAfterScheduling(t *testing.T) {
	t.Parallel()

	f := newFixture(t, time.Date(2023, time.October, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	a := newDailyAlarm(t, f)

	o, err := f.service.ScheduleAlarm(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, time.Date(2023, time.October, 2, 8, 30, 0, 0, time.UTC), o.Time(time.UTC))

	// Holiday data arrives after scheduling.
	f.calendar.ReplaceYear(2023, nationalDayRecords())

	f.clock.Set(o.Time(time.UTC))
	require.NoError(t, f.service.HandleWake(ctx, o.ID))

	// The suppressed occurrence is gone and a replacement sits past the
	// holiday block.
	_, err = f.repo.GetOccurrence(ctx, o.ID)
	require.ErrorIs(t, err, repo.ErrNotFound)

	next, err := f.repo.NextUpcomingOccurrence(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, domain.Scheduled, next.State)
	require.Equal(t, time.Date(2023, time.October, 4, 8, 30, 0, 0, time.UTC), next.Time(time.UTC))
}

// TestHandleWake_MissingAlarmDismissesOccurrence verifies an occurrence
// whose alarm no longer exists is removed instead of firing.
func TestHandleWake_MissingAlarmDismissesOccurrence(t *testing.T) {
	t.Parallel()

	f := newFixture(t, time.Date(2023, time.October, 9, 8, 30, 0, 0, time.UTC))
	ctx := context.Background()

	a := domain.New(2023, time.October, 9, 8, 30)
	a.ID = 42
	a.Days = domain.AllDays

	orphan := domain.NewOccurrence(a, time.Date(2023, time.October, 9, 8, 30, 0, 0, time.UTC))
	require.NoError(t, f.repo.SaveOccurrence(ctx, orphan))

	require.NoError(t, f.service.HandleWake(ctx, orphan.ID))

	_, err := f.repo.GetOccurrence(ctx, orphan.ID)
	require.ErrorIs(t, err, repo.ErrNotFound)
}

// TestRequestStateChange_SnoozeAndRefire verifies the snooze round trip.
func TestRequestStateChange_SnoozeAndRefire(t *testing.T) {
	t.Parallel()

	f := newFixture(t, time.Date(2023, time.October, 9, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	a := newDailyAlarm(t, f)

	o, err := f.service.ScheduleAlarm(ctx, a.ID)
	require.NoError(t, err)

	trigger := o.Time(time.UTC)
	f.clock.Set(trigger)
	require.NoError(t, f.service.HandleWake(ctx, o.ID))

	require.NoError(t, f.service.RequestStateChange(ctx, o.ID, domain.Snoozed))

	loaded, err := f.repo.GetOccurrence(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, domain.Snoozed, loaded.State)

	at, ok := f.wake.wakeAt(o.ID)
	require.True(t, ok)
	require.Equal(t, trigger.Add(domain.DefaultSnooze), at)

	// The snooze wake-up rings again.
	f.clock.Set(at)
	require.NoError(t, f.service.HandleWake(ctx, o.ID))

	loaded, err = f.repo.GetOccurrence(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, domain.Firing, loaded.State)
}

// TestRequestStateChange_DismissSchedulesNext verifies dismissing a ringing
// repeating alarm removes the occurrence and lines up the next day.
func TestRequestStateChange_DismissSchedulesNext(t *testing.T) {
	t.Parallel()

	f := newFixture(t, time.Date(2023, time.October, 9, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	a := newDailyAlarm(t, f)

	o, err := f.service.ScheduleAlarm(ctx, a.ID)
	require.NoError(t, err)

	f.clock.Set(o.Time(time.UTC))
	require.NoError(t, f.service.HandleWake(ctx, o.ID))
	require.NoError(t, f.service.RequestStateChange(ctx, o.ID, domain.Dismissed))

	_, err = f.repo.GetOccurrence(ctx, o.ID)
	require.ErrorIs(t, err, repo.ErrNotFound)

	next, err := f.repo.NextUpcomingOccurrence(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, o.Time(time.UTC).AddDate(0, 0, 1), next.Time(time.UTC))
}

// TestRequestStateChange_PreDismissSkipsInstant verifies canceling an
// upcoming occurrence searches for the next one after its own instant.
func TestRequestStateChange_PreDismissSkipsInstant(t *testing.T) {
	t.Parallel()

	f := newFixture(t, time.Date(2023, time.October, 9, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	a := newDailyAlarm(t, f)

	o, err := f.service.ScheduleAlarm(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, time.Date(2023, time.October, 10, 8, 30, 0, 0, time.UTC), o.Time(time.UTC))

	require.NoError(t, f.service.RequestStateChange(ctx, o.ID, domain.PreDismissed))

	_, err = f.repo.GetOccurrence(ctx, o.ID)
	require.ErrorIs(t, err, repo.ErrNotFound)

	next, err := f.repo.NextUpcomingOccurrence(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, time.Date(2023, time.October, 11, 8, 30, 0, 0, time.UTC), next.Time(time.UTC))
}

// TestHandleWake_MissedKeepsRecordUntilDeadline verifies the unattended ring
// path: the record turns Missed, the schedule moves on, and the missed
// record is cleaned up by its deadline wake-up.
func TestHandleWake_MissedKeepsRecordUntilDeadline(t *testing.T) {
	t.Parallel()

	f := newFixture(t, time.Date(2023, time.October, 9, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	a := newDailyAlarm(t, f)

	o, err := f.service.ScheduleAlarm(ctx, a.ID)
	require.NoError(t, err)

	trigger := o.Time(time.UTC)
	f.clock.Set(trigger)
	require.NoError(t, f.service.HandleWake(ctx, o.ID))

	// Auto-silence wake-up arrives with nobody around.
	f.clock.Set(trigger.Add(domain.DefaultAutoSilence))
	require.NoError(t, f.service.HandleWake(ctx, o.ID))

	loaded, err := f.repo.GetOccurrence(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, domain.Missed, loaded.State)

	at, ok := f.wake.wakeAt(o.ID)
	require.True(t, ok)
	require.Equal(t, trigger.Add(domain.MissedTimeToLive), at)

	// The recurring schedule already moved on to the next day.
	list, err := f.repo.ListOccurrences(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)

	// Deadline wake-up discards the missed record.
	f.clock.Set(at)
	require.NoError(t, f.service.HandleWake(ctx, o.ID))

	_, err = f.repo.GetOccurrence(ctx, o.ID)
	require.ErrorIs(t, err, repo.ErrNotFound)
}

// TestHandleWake_SuppressedOneShotRetiresAlarm verifies a non-repeating
// alarm whose only firing lands on a holiday is disabled instead of
// rescheduled.
func TestHandleWake_SuppressedOneShotRetiresAlarm(t *testing.T) {
	t.Parallel()

	f := newFixture(t, time.Date(2023, time.October, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	a := domain.New(2023, time.October, 2, 8, 30)
	a.Enabled = true
	a.HolidayOption = domain.SkipOnHoliday
	require.NoError(t, f.repo.SaveAlarm(ctx, a))

	o, err := f.service.ScheduleAlarm(ctx, a.ID)
	require.NoError(t, err)

	f.calendar.ReplaceYear(2023, nationalDayRecords())

	f.clock.Set(o.Time(time.UTC))
	require.NoError(t, f.service.HandleWake(ctx, o.ID))

	_, err = f.repo.GetOccurrence(ctx, o.ID)
	require.ErrorIs(t, err, repo.ErrNotFound)

	list, err := f.repo.ListOccurrences(ctx, a.ID)
	require.NoError(t, err)
	require.Empty(t, list)

	loaded, err := f.repo.LoadAlarm(ctx, a.ID)
	require.NoError(t, err)
	require.False(t, loaded.Enabled)
}

// TestRequestStateChange_RejectsIllegalTransition verifies the state machine
// guards explicit requests.
func TestRequestStateChange_RejectsIllegalTransition(t *testing.T) {
	t.Parallel()

	f := newFixture(t, time.Date(2023, time.October, 9, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	a := newDailyAlarm(t, f)

	o, err := f.service.ScheduleAlarm(ctx, a.ID)
	require.NoError(t, err)

	err = f.service.RequestStateChange(ctx, o.ID, domain.Dismissed)
	require.ErrorIs(t, err, errIllegalTransition)

	// The occurrence is untouched.
	loaded, err := f.repo.GetOccurrence(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, domain.Scheduled, loaded.State)
}

// TestRequestStateChange_MissingOccurrenceIsNoop verifies a request for a
// vanished occurrence cancels its wake-up and succeeds.
func TestRequestStateChange_MissingOccurrenceIsNoop(t *testing.T) {
	t.Parallel()

	f := newFixture(t, time.Date(2023, time.October, 9, 12, 0, 0, 0, time.UTC))

	require.NoError(t, f.service.RequestStateChange(context.Background(), "gone", domain.PreDismissed))
	require.Contains(t, f.wake.canceled, "gone")
}

// TestRescheduleAll recomputes occurrences for every stored alarm.
func TestRescheduleAll(t *testing.T) {
	t.Parallel()

	f := newFixture(t, time.Date(2023, time.October, 9, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	first := newDailyAlarm(t, f)
	second := newDailyAlarm(t, f)

	require.NoError(t, f.service.RescheduleAll(ctx))

	for _, a := range []*domain.Alarm{first, second} {
		next, err := f.repo.NextUpcomingOccurrence(ctx, a.ID)
		require.NoError(t, err)
		require.Equal(t, domain.Scheduled, next.State)
	}
}
