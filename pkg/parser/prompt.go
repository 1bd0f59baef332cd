package parser

import (
	"strings"
	"time"
)

// EventExtractionInstructions asks the model for a strict JSON object describing one event
const EventExtractionInstructions = `You are an intelligent event creation assistant. Extract event information from natural language text and be creative with the title and description.

Guidelines:
- Create a concise, engaging title that captures the essence of the event (2-6 words)
- Write a helpful description that provides context and relevant details
- If the input is casual or informal, make the title more professional but friendly
- Infer reasonable defaults for missing information (e.g., 1 hour duration, no reminder)
- For all-day events, set start time to 00:00 and end time to 23:59

Return a JSON object with these exact fields:
{
  "title": "Event title (required, creative and concise)",
  "description": "Detailed description with context (optional but encouraged)",
  "location": "Event location (optional)",
  "startDateTime": "YYYY-MM-DDTHH:MM format (required)",
  "endDateTime": "YYYY-MM-DDTHH:MM format (required)",
  "allDay": true or false (required),
  "reminderMinutes": number or null (optional, common values: 0, 5, 15, 30, 60, 1440)
}

Return ONLY the JSON object, no markdown formatting or additional text.`

const relativeDateHint = `Use this as reference when interpreting relative dates like "today", "tomorrow", "tonight", etc.`

// BuildPrompt combines the instructions, the reference instant and the user's text.
// now is rendered in its own location, so callers pass it in the user's zone.
func BuildPrompt(instructions string, now time.Time, text string) string {
	var b strings.Builder

	b.WriteString(strings.TrimSpace(instructions))
	b.WriteString("\n\n")
	b.WriteString("Current date and time: ")
	b.WriteString(now.Format(time.RFC3339))
	b.WriteString(" (")
	b.WriteString(now.Weekday().String())
	b.WriteString(")\n")
	b.WriteString(relativeDateHint)
	b.WriteString("\n\n")
	b.WriteString("Text to parse: ")
	b.WriteString(text)

	return b.String()
}
