package models

import (
	"time"
)

// Event is a calendar event extracted from free-form text.
//
// StartTime and EndTime hold wall-clock values: their Location is UTC and
// carries no meaning. Use StartIn/EndIn to place them in a real time zone.
// An Event is built once by the decoder and treated as read-only afterwards.
type Event struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	AllDay      bool      `json:"all_day"`
	Reminder    *Reminder `json:"reminder,omitempty"`
}

// Reminder is the lead time of a notification before an event starts
type Reminder int

const (
	ReminderNone Reminder = iota
	ReminderAtTime
	ReminderFiveMinutes
	ReminderFifteenMinutes
	ReminderThirtyMinutes
	ReminderOneHour
	ReminderOneDay
)

var reminderMinutes = map[Reminder]int{
	ReminderNone:           0,
	ReminderAtTime:         0,
	ReminderFiveMinutes:    5,
	ReminderFifteenMinutes: 15,
	ReminderThirtyMinutes:  30,
	ReminderOneHour:        60,
	ReminderOneDay:         1440,
}

var reminderNames = map[Reminder]string{
	ReminderNone:           "none",
	ReminderAtTime:         "at-time",
	ReminderFiveMinutes:    "5m",
	ReminderFifteenMinutes: "15m",
	ReminderThirtyMinutes:  "30m",
	ReminderOneHour:        "1h",
	ReminderOneDay:         "1d",
}

// Minutes returns the lead time in minutes
func (r Reminder) Minutes() int {
	return reminderMinutes[r]
}

// String returns the short name of the reminder
func (r Reminder) String() string {
	if name, ok := reminderNames[r]; ok {
		return name
	}
	return "unknown"
}

// MarshalText encodes the reminder by its short name
func (r Reminder) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// ReminderFromMinutes maps an exact lead time onto a reminder bucket.
// Zero maps to ReminderAtTime; values without a bucket report false.
func ReminderFromMinutes(minutes int) (Reminder, bool) {
	switch minutes {
	case 0:
		return ReminderAtTime, true
	case 5:
		return ReminderFiveMinutes, true
	case 15:
		return ReminderFifteenMinutes, true
	case 30:
		return ReminderThirtyMinutes, true
	case 60:
		return ReminderOneHour, true
	case 1440:
		return ReminderOneDay, true
	default:
		return ReminderNone, false
	}
}

// WallClock builds a wall-clock value as stored in Event
func WallClock(year int, month time.Month, day, hour, minute, second int) time.Time {
	return time.Date(year, month, day, hour, minute, second, 0, time.UTC)
}

// StartIn returns the start wall clock placed in loc
func (e *Event) StartIn(loc *time.Location) time.Time {
	return inLocation(e.StartTime, loc)
}

// EndIn returns the end wall clock placed in loc
func (e *Event) EndIn(loc *time.Location) time.Time {
	return inLocation(e.EndTime, loc)
}

func inLocation(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
}

// HasReminder returns true if the event asks for a notification before it starts
func (e *Event) HasReminder() bool {
	return e.Reminder != nil && *e.Reminder != ReminderNone
}

// EndsBeforeStart reports the model anomaly of an end preceding the start
func (e *Event) EndsBeforeStart() bool {
	return e.EndTime.Before(e.StartTime)
}

// Notification is the reminder message published when an event's reminder fires
type Notification struct {
	Title    string    `json:"title"`
	When     time.Time `json:"when"`
	Lead     int       `json:"lead"`
	Location string    `json:"location,omitempty"`
	Severity string    `json:"severity,omitempty"`
}

// NewNotification creates a Notification for an event starting at when
func NewNotification(event *Event, when time.Time) *Notification {
	lead := 0
	if event.Reminder != nil {
		lead = event.Reminder.Minutes()
	}

	return &Notification{
		Title:    event.Title,
		When:     when,
		Lead:     lead,
		Location: event.Location,
		Severity: "normal",
	}
}

// IsUpcoming returns true if the event starts after now when placed in loc
func (e *Event) IsUpcoming(now time.Time, loc *time.Location) bool {
	return e.StartIn(loc).After(now)
}

// ShouldNotify determines if the event's reminder is due at now
func (e *Event) ShouldNotify(now time.Time, loc *time.Location) bool {
	if !e.HasReminder() || !e.IsUpcoming(now, loc) {
		return false
	}

	notificationTime := e.NotifyAt(loc)
	return now.After(notificationTime) || now.Equal(notificationTime)
}

// NotifyAt returns the moment the reminder should fire
func (e *Event) NotifyAt(loc *time.Location) time.Time {
	lead := 0
	if e.Reminder != nil {
		lead = e.Reminder.Minutes()
	}
	return e.StartIn(loc).Add(-time.Duration(lead) * time.Minute)
}
