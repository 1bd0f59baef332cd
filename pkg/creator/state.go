package creator

import "github.com/venkytv/event-creator/internal/models"

// State is one of the seven screen states. The set is closed: only the
// types in this file implement it.
type State interface {
	// Name returns a short identifier used in logs
	Name() string
	isState()
}

// Idle waits for input
type Idle struct{}

// Loading means the text is being sent to the model
type Loading struct{}

// Loaded holds an extracted event awaiting confirmation
type Loaded struct {
	Event *models.Event
}

// ParseError reports why the text could not be turned into an event
type ParseError struct {
	Message string
	Err     error
}

// AddingToCalendar means the event is being written
type AddingToCalendar struct {
	Event *models.Event
}

// CalendarError keeps the event so the write can be retried
type CalendarError struct {
	Event   *models.Event
	Message string
	Err     error
}

// CalendarSuccess is shown briefly before the machine returns to Idle
type CalendarSuccess struct {
	Message string
}

func (Idle) Name() string             { return "idle" }
func (Loading) Name() string          { return "loading" }
func (Loaded) Name() string           { return "loaded" }
func (ParseError) Name() string       { return "parse_error" }
func (AddingToCalendar) Name() string { return "adding_to_calendar" }
func (CalendarError) Name() string    { return "calendar_error" }
func (CalendarSuccess) Name() string  { return "calendar_success" }

func (Idle) isState()             {}
func (Loading) isState()          {}
func (Loaded) isState()           {}
func (ParseError) isState()       {}
func (AddingToCalendar) isState() {}
func (CalendarError) isState()    {}
func (CalendarSuccess) isState()  {}

// IsBusy reports whether s has an operation in flight
func IsBusy(s State) bool {
	switch s.(type) {
	case Loading, AddingToCalendar:
		return true
	default:
		return false
	}
}
