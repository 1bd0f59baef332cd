package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venkytv/event-creator/pkg/config"
	"github.com/venkytv/event-creator/pkg/creator"
	"github.com/venkytv/event-creator/pkg/parser"
)

const canned = `{"title":"Board meeting","startDateTime":"2025-11-03","endDateTime":"2025-11-03","allDay":true}`

func newHandler(t *testing.T, calendarYAML string, withModel bool) *Handler {
	t.Helper()

	models := ""
	if withModel {
		models = fmt.Sprintf("models:\n  - id: canned\n    type: static\n    response: %q\n", canned)
	}
	cfg, err := config.Parse([]byte(models + "calendar:\n" + calendarYAML))
	require.NoError(t, err)

	h, err := NewHandler(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return h
}

func TestHandle_ParseOnly(t *testing.T) {
	h := newHandler(t, "  type: dry-run\n", true)

	resp, err := h.Handle(context.Background(), Request{Text: "board meeting on nov 3"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var event map[string]any
	require.NoError(t, json.Unmarshal(resp.Event, &event))
	assert.Equal(t, "Board meeting", event["title"])
	assert.Equal(t, true, event["allDay"])
	assert.Equal(t, "2025-11-03T00:00", event["startDateTime"])
	assert.Equal(t, []string{"loading", "loaded"}, resp.Trace)
}

func TestHandle_AddToICS(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.ics")
	h := newHandler(t, "  type: ics\n  path: "+path+"\n", true)

	resp, err := h.Handle(context.Background(), Request{Text: "board meeting on nov 3", Add: true})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, creator.MsgEventAdded, resp.Message)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "DTSTART;VALUE=DATE:20251103")
	assert.Equal(t, []string{"loading", "loaded", "adding_to_calendar", "calendar_success"}, resp.Trace)
}

func TestHandle_AddWithDryRun(t *testing.T) {
	h := newHandler(t, "  type: dry-run\n", true)

	resp, err := h.Handle(context.Background(), Request{Text: "board meeting", Add: true})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Message, "disabled")
}

func TestHandle_Errors(t *testing.T) {
	h := newHandler(t, "  type: dry-run\n", true)
	resp, err := h.Handle(context.Background(), Request{Text: "  "})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, creator.MsgEmptyText, resp.Message)
	assert.Equal(t, []string{"parse_error"}, resp.Trace)

	h = newHandler(t, "  type: dry-run\n", false)
	resp, err = h.Handle(context.Background(), Request{Text: "lunch"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestParseStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, parseStatus(nil))
	assert.Equal(t, http.StatusServiceUnavailable, parseStatus(parser.ErrNoModelAvailable))
	assert.Equal(t, http.StatusBadGateway, parseStatus(&parser.ModelError{ModelID: "m", Err: io.EOF}))
	assert.Equal(t, http.StatusUnprocessableEntity, parseStatus(&parser.DecodeError{Err: io.EOF}))
}
