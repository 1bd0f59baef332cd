package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/venkytv/event-creator/internal/models"
)

// wireLayout is the date-time format models are asked to produce
const wireLayout = "2006-01-02T15:04"

// dateTimeLayouts are tried in order. A zone designator, when a model adds
// one anyway, is dropped and the wall clock kept.
var dateTimeLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02",
}

// eventJSON is the wire shape produced by the model. Pointers distinguish
// missing fields from zero values.
type eventJSON struct {
	Title           *string         `json:"title"`
	Description     *string         `json:"description"`
	Location        *string         `json:"location"`
	StartDateTime   *string         `json:"startDateTime"`
	EndDateTime     *string         `json:"endDateTime"`
	AllDay          *bool           `json:"allDay"`
	ReminderMinutes json.RawMessage `json:"reminderMinutes"`
}

// Decoder turns the model's JSON payload into an event
type Decoder struct {
	reminders bool
}

// DecoderOption configures a Decoder
type DecoderOption func(*Decoder)

// WithReminders maps reminderMinutes onto the event's reminder. Values
// outside the fixed reminder buckets are ignored.
func WithReminders() DecoderOption {
	return func(d *Decoder) {
		d.reminders = true
	}
}

// NewDecoder creates a decoder. By default reminderMinutes is ignored.
func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode parses jsonText. Every failure is a *DecodeError; required fields
// are never filled with defaults. Unknown fields are ignored.
func (d *Decoder) Decode(jsonText string) (*models.Event, error) {
	var wire eventJSON
	if err := json.Unmarshal([]byte(jsonText), &wire); err != nil {
		return nil, &DecodeError{Err: err}
	}

	if wire.Title == nil {
		return nil, &DecodeError{Err: missingField("title")}
	}
	if strings.TrimSpace(*wire.Title) == "" {
		return nil, &DecodeError{Err: fmt.Errorf("field title is blank")}
	}
	if wire.StartDateTime == nil {
		return nil, &DecodeError{Err: missingField("startDateTime")}
	}
	if wire.EndDateTime == nil {
		return nil, &DecodeError{Err: missingField("endDateTime")}
	}
	if wire.AllDay == nil {
		return nil, &DecodeError{Err: missingField("allDay")}
	}

	start, err := ParseDateTime(*wire.StartDateTime)
	if err != nil {
		return nil, &DecodeError{Err: fmt.Errorf("startDateTime: %w", err)}
	}
	end, err := ParseDateTime(*wire.EndDateTime)
	if err != nil {
		return nil, &DecodeError{Err: fmt.Errorf("endDateTime: %w", err)}
	}

	event := &models.Event{
		Title:     *wire.Title,
		StartTime: start,
		EndTime:   end,
		AllDay:    *wire.AllDay,
	}
	if wire.Description != nil {
		event.Description = *wire.Description
	}
	if wire.Location != nil {
		event.Location = *wire.Location
	}

	if d.reminders {
		if minutes, ok := reminderMinutes(wire.ReminderMinutes); ok {
			if reminder, ok := models.ReminderFromMinutes(minutes); ok {
				event.Reminder = &reminder
			}
		}
	}

	return event, nil
}

func missingField(name string) error {
	return fmt.Errorf("missing required field %s", name)
}

// reminderMinutes reads a number, or a numeric string, and treats anything else as absent
func reminderMinutes(raw json.RawMessage) (int, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}

	var number json.Number
	if err := json.Unmarshal(raw, &number); err == nil {
		if n, err := strconv.Atoi(number.String()); err == nil {
			return n, true
		}
		if f, err := number.Float64(); err == nil && f == float64(int(f)) {
			return int(f), true
		}
		return 0, false
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(text)); err == nil {
			return n, true
		}
	}
	return 0, false
}

// ParseDateTime parses YYYY-MM-DD optionally followed by T (or a space) and
// HH:MM with optional seconds. A missing time means midnight. The result is a
// wall-clock value as stored in models.Event.
func ParseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateTimeLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		return models.WallClock(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second()), nil
	}
	return time.Time{}, fmt.Errorf("invalid date-time %q, expected YYYY-MM-DDTHH:MM", s)
}

// FormatDateTime renders a wall-clock value in the wire format (minute precision)
func FormatDateTime(t time.Time) string {
	return t.Format(wireLayout)
}

type encodedEvent struct {
	Title           string `json:"title"`
	Description     string `json:"description,omitempty"`
	Location        string `json:"location,omitempty"`
	StartDateTime   string `json:"startDateTime"`
	EndDateTime     string `json:"endDateTime"`
	AllDay          bool   `json:"allDay"`
	ReminderMinutes *int   `json:"reminderMinutes,omitempty"`
}

// EncodeEvent renders an event in the wire shape the decoder accepts
func EncodeEvent(e *models.Event) ([]byte, error) {
	wire := encodedEvent{
		Title:         e.Title,
		Description:   e.Description,
		Location:      e.Location,
		StartDateTime: FormatDateTime(e.StartTime),
		EndDateTime:   FormatDateTime(e.EndTime),
		AllDay:        e.AllDay,
	}
	if e.HasReminder() {
		minutes := e.Reminder.Minutes()
		wire.ReminderMinutes = &minutes
	}
	return json.Marshal(wire)
}
