package google

import (
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/venkytv/event-creator/internal/models"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02T15:04:05"
)

// toGoogleEvent converts an extracted event into a Google Calendar insert payload.
// Timed events carry the wall clock plus an IANA zone so Google resolves the instant.
func toGoogleEvent(event *models.Event, loc *time.Location) *calendar.Event {
	item := &calendar.Event{
		Summary:     event.Title,
		Description: event.Description,
		Location:    event.Location,
	}

	if event.AllDay {
		start, end := allDayDates(event)
		item.Start = &calendar.EventDateTime{Date: start.Format(dateLayout)}
		item.End = &calendar.EventDateTime{Date: end.Format(dateLayout)}
	} else {
		item.Start = eventDateTime(event.StartTime, event.StartIn(loc), loc)
		item.End = eventDateTime(event.EndTime, event.EndIn(loc), loc)
	}

	item.Reminders = toReminders(event)

	return item
}

// allDayDates returns the first day and the exclusive end day
func allDayDates(event *models.Event) (time.Time, time.Time) {
	start := truncateDay(event.StartTime)
	end := truncateDay(event.EndTime).AddDate(0, 0, 1)
	if !end.After(start) {
		end = start.AddDate(0, 0, 1)
	}
	return start, end
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// eventDateTime sends the wall clock with an IANA zone when one is known.
// time.Local has no IANA name, so the absolute instant with its offset is sent instead.
func eventDateTime(wall, instant time.Time, loc *time.Location) *calendar.EventDateTime {
	if loc == nil || loc.String() == "Local" {
		return &calendar.EventDateTime{DateTime: instant.Format(time.RFC3339)}
	}
	return &calendar.EventDateTime{
		DateTime: wall.Format(dateTimeLayout),
		TimeZone: loc.String(),
	}
}

// toReminders maps the event reminder to a single popup override. An
// unspecified reminder leaves the calendar defaults in place; ReminderNone
// disables them.
func toReminders(event *models.Event) *calendar.EventReminders {
	if event.Reminder == nil {
		return nil
	}
	if !event.HasReminder() {
		return &calendar.EventReminders{
			UseDefault:      false,
			ForceSendFields: []string{"UseDefault"},
		}
	}

	return &calendar.EventReminders{
		UseDefault: false,
		Overrides: []*calendar.EventReminder{{
			Method:          "popup",
			Minutes:         int64(event.Reminder.Minutes()),
			ForceSendFields: []string{"Minutes"},
		}},
		ForceSendFields: []string{"UseDefault"},
	}
}
