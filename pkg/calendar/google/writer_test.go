package google

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"

	"github.com/venkytv/event-creator/internal/models"
	calendarPkg "github.com/venkytv/event-creator/pkg/calendar"
)

type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) InsertEvent(ctx context.Context, calendarID string, event *calendar.Event) (*calendar.Event, error) {
	args := m.Called(ctx, calendarID, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*calendar.Event), args.Error(1)
}

func (m *MockAPI) GetCalendar(ctx context.Context, calendarID string) (*calendar.CalendarListEntry, error) {
	args := m.Called(ctx, calendarID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*calendar.CalendarListEntry), args.Error(1)
}

func (m *MockAPI) ListCalendars(ctx context.Context) ([]*calendar.CalendarListEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*calendar.CalendarListEntry), args.Error(1)
}

func meeting() *models.Event {
	return &models.Event{
		Title:     "Planning",
		StartTime: models.WallClock(2025, 10, 10, 10, 0, 0),
		EndTime:   models.WallClock(2025, 10, 10, 11, 0, 0),
	}
}

func TestWriter_Metadata(t *testing.T) {
	w := NewWriterWithAPI(new(MockAPI), "", time.UTC, nil)
	assert.Equal(t, "Google Calendar", w.Name())
	assert.Equal(t, "google", w.Type())
	assert.Equal(t, "primary", w.calendarID)
	assert.NoError(t, w.Close())
}

func TestWriter_AddEvent(t *testing.T) {
	api := new(MockAPI)
	ctx := context.Background()

	api.On("InsertEvent", ctx, "work@example.com", mock.MatchedBy(func(e *calendar.Event) bool {
		return e.Summary == "Planning" && e.Start.DateTime == "2025-10-10T10:00:00" && e.Start.TimeZone == "UTC"
	})).Return(&calendar.Event{Id: "evt1", HtmlLink: "https://calendar.google.com/evt1"}, nil)

	w := NewWriterWithAPI(api, "work@example.com", time.UTC, nil)
	require.NoError(t, w.AddEvent(ctx, meeting()))
	api.AssertExpectations(t)
}

func TestWriter_AddEvent_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unauthorized", &googleapi.Error{Code: http.StatusUnauthorized}, calendarPkg.ErrPermissionDenied},
		{"forbidden", &googleapi.Error{Code: http.StatusForbidden, Message: "insufficient scopes"}, calendarPkg.ErrPermissionDenied},
		{"bad request", &googleapi.Error{Code: http.StatusBadRequest}, calendarPkg.ErrWriteFailed},
		{"transport", errors.New("connection reset"), calendarPkg.ErrWriteFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := new(MockAPI)
			api.On("InsertEvent", mock.Anything, "primary", mock.Anything).Return(nil, tt.err)

			w := NewWriterWithAPI(api, "primary", time.UTC, nil)
			err := w.AddEvent(context.Background(), meeting())
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestWriter_HasPermission(t *testing.T) {
	tests := []struct {
		name  string
		entry *calendar.CalendarListEntry
		err   error
		want  bool
	}{
		{"owner", &calendar.CalendarListEntry{Id: "primary", AccessRole: "owner"}, nil, true},
		{"writer", &calendar.CalendarListEntry{Id: "primary", AccessRole: "writer"}, nil, true},
		{"reader", &calendar.CalendarListEntry{Id: "primary", AccessRole: "reader"}, nil, false},
		{"lookup fails", nil, errors.New("not found"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := new(MockAPI)
			api.On("GetCalendar", mock.Anything, "primary").Return(tt.entry, tt.err)

			w := NewWriterWithAPI(api, "primary", time.UTC, nil)
			assert.Equal(t, tt.want, w.HasPermission(context.Background()))
			assert.Equal(t, tt.want, w.RequestPermission(context.Background()))
		})
	}
}

func TestWriter_ListCalendars(t *testing.T) {
	api := new(MockAPI)
	api.On("ListCalendars", mock.Anything).Return([]*calendar.CalendarListEntry{
		{Id: "primary", Summary: "Me", Primary: true, AccessRole: "owner", TimeZone: "Europe/Berlin"},
		{Id: "holidays", Summary: "Holidays", AccessRole: "reader"},
	}, nil)

	w := NewWriterWithAPI(api, "primary", time.UTC, nil)
	cals, err := w.ListCalendars(context.Background())
	require.NoError(t, err)
	require.Len(t, cals, 2)

	assert.Equal(t, "Me", cals[0].Name)
	assert.Equal(t, "Europe/Berlin", cals[0].TimeZone)
	assert.True(t, cals[0].CanWrite())
	assert.False(t, cals[1].CanWrite())
}

func TestWriter_ListCalendars_Error(t *testing.T) {
	api := new(MockAPI)
	api.On("ListCalendars", mock.Anything).Return(nil, errors.New("boom"))

	w := NewWriterWithAPI(api, "primary", time.UTC, nil)
	_, err := w.ListCalendars(context.Background())
	assert.ErrorContains(t, err, "unable to retrieve calendar list")
}
