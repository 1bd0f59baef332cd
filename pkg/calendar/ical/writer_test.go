package ical

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venkytv/event-creator/internal/models"
	"github.com/venkytv/event-creator/pkg/calendar"
)

var stamp = time.Date(2025, 10, 6, 8, 0, 0, 0, time.UTC)

func reminder(r models.Reminder) *models.Reminder {
	return &r
}

func teamSync() *models.Event {
	return &models.Event{
		Title:       "Team Sync",
		Description: "Weekly sync",
		Location:    "Room 4",
		StartTime:   models.WallClock(2025, 10, 7, 14, 0, 0),
		EndTime:     models.WallClock(2025, 10, 7, 15, 0, 0),
		Reminder:    reminder(models.ReminderFifteenMinutes),
	}
}

func newTestWriter(t *testing.T, loc *time.Location) *FileWriter {
	t.Helper()
	w := NewFileWriter(filepath.Join(t.TempDir(), "events.ics"), loc, nil)
	w.now = func() time.Time { return stamp }
	return w
}

func readCalendar(t *testing.T, path string) *ics.Calendar {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	cal, err := ics.ParseCalendar(f)
	require.NoError(t, err)
	return cal
}

func TestFileWriter_AddEvent(t *testing.T) {
	w := newTestWriter(t, nil)
	ctx := context.Background()

	require.True(t, w.HasPermission(ctx))
	require.NoError(t, w.AddEvent(ctx, teamSync()))

	cal := readCalendar(t, w.Path())
	events := cal.Events()
	require.Len(t, events, 1)

	vevent := events[0]
	assert.True(t, strings.HasSuffix(vevent.Id(), "@event-creator"))
	assert.Equal(t, "Team Sync", vevent.GetProperty(ics.ComponentPropertySummary).Value)
	assert.Equal(t, "Weekly sync", vevent.GetProperty(ics.ComponentPropertyDescription).Value)
	assert.Equal(t, "Room 4", vevent.GetProperty(ics.ComponentPropertyLocation).Value)
	assert.Equal(t, "20251007T140000", vevent.GetProperty(ics.ComponentPropertyDtStart).Value)
	assert.Equal(t, "20251007T150000", vevent.GetProperty(ics.ComponentPropertyDtEnd).Value)

	alarms := vevent.Alarms()
	require.Len(t, alarms, 1)
	assert.Equal(t, "DISPLAY", alarms[0].GetProperty(ics.ComponentPropertyAction).Value)
	assert.Equal(t, "-PT15M", alarms[0].GetProperty(ics.ComponentPropertyTrigger).Value)

	info, err := os.Stat(w.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileWriter_AppendsToExistingCalendar(t *testing.T) {
	w := newTestWriter(t, nil)
	ctx := context.Background()

	require.NoError(t, w.AddEvent(ctx, teamSync()))

	second := teamSync()
	second.Title = "Retro"
	second.Reminder = nil
	require.NoError(t, w.AddEvent(ctx, second))

	events := readCalendar(t, w.Path()).Events()
	require.Len(t, events, 2)
	assert.NotEqual(t, events[0].Id(), events[1].Id())
	assert.Equal(t, "Retro", events[1].GetProperty(ics.ComponentPropertySummary).Value)
	assert.Empty(t, events[1].Alarms())
}

func TestFileWriter_ZonedTimesAreUTC(t *testing.T) {
	berlin := time.FixedZone("CEST", 2*60*60)
	w := newTestWriter(t, berlin)

	require.NoError(t, w.AddEvent(context.Background(), teamSync()))

	vevent := readCalendar(t, w.Path()).Events()[0]
	assert.Equal(t, "20251007T120000Z", vevent.GetProperty(ics.ComponentPropertyDtStart).Value)
	assert.Equal(t, "20251007T130000Z", vevent.GetProperty(ics.ComponentPropertyDtEnd).Value)
}

func TestFileWriter_AllDayEvent(t *testing.T) {
	w := newTestWriter(t, nil)

	event := &models.Event{
		Title:     "Holiday",
		StartTime: models.WallClock(2025, 12, 25, 0, 0, 0),
		EndTime:   models.WallClock(2025, 12, 26, 23, 59, 0),
		AllDay:    true,
	}
	require.NoError(t, w.AddEvent(context.Background(), event))

	vevent := readCalendar(t, w.Path()).Events()[0]
	start := vevent.GetProperty(ics.ComponentPropertyDtStart)
	end := vevent.GetProperty(ics.ComponentPropertyDtEnd)
	assert.Equal(t, "20251225", start.Value)
	assert.Equal(t, "20251227", end.Value)
	assert.Equal(t, []string{"DATE"}, start.ICalParameters["VALUE"])
}

func TestFileWriter_CorruptCalendar(t *testing.T) {
	w := newTestWriter(t, nil)
	require.NoError(t, os.WriteFile(w.Path(), []byte("this is not a calendar"), 0o600))

	err := w.AddEvent(context.Background(), teamSync())
	assert.True(t, errors.Is(err, calendar.ErrWriteFailed), "got %v", err)

	data, readErr := os.ReadFile(w.Path())
	require.NoError(t, readErr)
	assert.Equal(t, "this is not a calendar", string(data))
}

func TestFileWriter_Permission(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "calendars")
	w := NewFileWriter(filepath.Join(dir, "events.ics"), nil, nil)
	ctx := context.Background()

	assert.False(t, w.HasPermission(ctx))

	err := w.AddEvent(ctx, teamSync())
	assert.Error(t, err)

	assert.True(t, w.RequestPermission(ctx))
	assert.True(t, w.HasPermission(ctx))
	assert.NoError(t, w.AddEvent(ctx, teamSync()))
}

func TestFileWriter_CancelledContext(t *testing.T) {
	w := newTestWriter(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := w.AddEvent(ctx, teamSync())
	assert.True(t, errors.Is(err, calendar.ErrWriteFailed))

	_, statErr := os.Stat(w.Path())
	assert.True(t, os.IsNotExist(statErr))
}

func TestFileWriter_Metadata(t *testing.T) {
	w := NewFileWriter("/tmp/cal/personal.ics", nil, nil)
	assert.Equal(t, "ics", w.Type())
	assert.Equal(t, "iCalendar file personal.ics", w.Name())
	assert.NoError(t, w.Close())
}

func TestTrigger(t *testing.T) {
	tests := map[models.Reminder]string{
		models.ReminderAtTime:         "PT0M",
		models.ReminderFiveMinutes:    "-PT5M",
		models.ReminderFifteenMinutes: "-PT15M",
		models.ReminderThirtyMinutes:  "-PT30M",
		models.ReminderOneHour:        "-PT1H",
		models.ReminderOneDay:         "-P1D",
	}

	for r, want := range tests {
		assert.Equal(t, want, Trigger(r), "reminder %s", r)
	}
}

func TestAllDayRange_EndBeforeStart(t *testing.T) {
	event := &models.Event{
		StartTime: models.WallClock(2025, 12, 25, 0, 0, 0),
		EndTime:   models.WallClock(2025, 12, 24, 23, 59, 0),
		AllDay:    true,
	}

	start, end := allDayRange(event)
	assert.Equal(t, models.WallClock(2025, 12, 25, 0, 0, 0), start)
	assert.Equal(t, models.WallClock(2025, 12, 26, 0, 0, 0), end)
}
