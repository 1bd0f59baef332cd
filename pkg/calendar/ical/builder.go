package ical

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/venkytv/event-creator/internal/models"
)

// ProductID identifies this program in generated calendars
const ProductID = "-//venkytv//event-creator//EN"

const floatingLayout = "20060102T150405"

// NewUID returns a globally unique identifier for a VEVENT
func NewUID() string {
	return uuid.NewString() + "@event-creator"
}

// NewCalendar creates an empty calendar carrying our product id
func NewCalendar() *ics.Calendar {
	cal := ics.NewCalendar()
	cal.SetProductId(ProductID)
	cal.SetMethod(ics.MethodPublish)
	return cal
}

// AddEvent appends event to cal as a VEVENT with the given UID.
// A nil loc writes floating local times; otherwise the wall clock is placed
// in loc and written as UTC.
func AddEvent(cal *ics.Calendar, uid string, event *models.Event, loc *time.Location, stamp time.Time) *ics.VEvent {
	vevent := cal.AddEvent(uid)
	vevent.SetDtStampTime(stamp.UTC())
	vevent.SetCreatedTime(stamp.UTC())
	vevent.SetSummary(event.Title)

	if event.Description != "" {
		vevent.SetDescription(event.Description)
	}
	if event.Location != "" {
		vevent.SetLocation(event.Location)
	}

	switch {
	case event.AllDay:
		start, end := allDayRange(event)
		vevent.SetAllDayStartAt(start)
		vevent.SetAllDayEndAt(end)
	case loc == nil:
		vevent.SetProperty(ics.ComponentPropertyDtStart, event.StartTime.Format(floatingLayout))
		vevent.SetProperty(ics.ComponentPropertyDtEnd, event.EndTime.Format(floatingLayout))
	default:
		vevent.SetStartAt(event.StartIn(loc))
		vevent.SetEndAt(event.EndIn(loc))
	}

	if event.HasReminder() {
		alarm := vevent.AddAlarm()
		alarm.SetProperty(ics.ComponentPropertyAction, "DISPLAY")
		alarm.SetProperty(ics.ComponentPropertyTrigger, Trigger(*event.Reminder))
		alarm.SetProperty(ics.ComponentPropertyDescription, event.Title)
	}

	return vevent
}

// allDayRange returns the first day and the exclusive end day of an all-day event
func allDayRange(event *models.Event) (time.Time, time.Time) {
	start := dateOnly(event.StartTime)
	end := dateOnly(event.EndTime).AddDate(0, 0, 1)
	if !end.After(start) {
		end = start.AddDate(0, 0, 1)
	}
	return start, end
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Trigger renders a reminder as a VALARM trigger duration relative to the start
func Trigger(r models.Reminder) string {
	minutes := r.Minutes()
	if minutes == 0 {
		return "PT0M"
	}
	if minutes%1440 == 0 {
		return fmt.Sprintf("-P%dD", minutes/1440)
	}
	if minutes%60 == 0 {
		return fmt.Sprintf("-PT%dH", minutes/60)
	}
	return fmt.Sprintf("-PT%dM", minutes)
}

// Serialize renders the calendar as iCalendar text
func Serialize(cal *ics.Calendar) []byte {
	return []byte(cal.Serialize())
}
