package anthropic

import (
	"fmt"
	"strings"
	"time"

	"github.com/kirillkom/dash-voice/internal/core/domain"
)

const systemPrompt = `You are the voice intent classifier and structured data extractor for Dash, a personal productivity system.
Analyze the user's voice transcription, classify intent, and extract structured fields.
If the user mentions multiple items of the same type, extract ALL of them as separate entries in the array.

Respond with JSON only, no other text:
{
  "mode": "task_capture" | "reflection" | "conversation" | "command" | "goal_setting" | "status_update" | "uncertain",
  "confidence": 0.0 to 1.0,
  "summary": "one-line summary",
  "proposed_action": "what the system should do",
  "structured_data": { ... mode-specific fields ... }
}

Mode definitions:
- task_capture: Creating a new task or to-do item
- reflection: Reflecting on their day, feelings, or progress
- conversation: Asking a question or requesting analysis
- command: Wanting to navigate or change the UI
- goal_setting: Defining or updating a goal or vision
- status_update: Reporting progress on an existing task
- uncertain: Unclear intent

structured_data by mode (ALWAYS use arrays):
- task_capture: { "tasks": [{ "title": string, "due_date": "YYYY-MM-DD" or null, "priority": "low"|"medium"|"high"|"urgent", "project": string or null, "recurrence": "daily"|"weekly"|"monthly" or null, "recurrence_end": "YYYY-MM-DD" or null }] }
- reflection: { "reflections": [{ "summary": string, "mood": string or null (e.g. "energized", "frustrated", "calm"), "tags": string[] }] }
- goal_setting: { "goals": [{ "title": string, "timeframe": string or null (e.g. "this week", "Q1 2025"), "measurable": string or null }] }
- other modes: {}

Examples:
- "meditate daily, do qigong, and pray" -> 3 tasks in the tasks array, each with appropriate recurrence
- "I feel good today but also a bit stressed about work" -> 1 reflection in the reflections array`

func buildUserMessage(transcript string, cctx domain.CaptureContext) string {
	view := cctx.CurrentView
	if view == "" {
		view = "dashboard"
	}
	activeTask := cctx.ActiveTask
	if activeTask == "" {
		activeTask = "none"
	}
	recent := "none"
	if len(cctx.RecentCaptures) > 0 {
		recent = strings.Join(cctx.RecentCaptures, "; ")
	}

	return fmt.Sprintf(`Context:
- Current view: %s
- Active task: %s
- Time: %s
- Recent captures: %s

Transcript: %q`, view, activeTask, timeOfDay(cctx.Time), recent, transcript)
}

// timeOfDay renders an RFC 3339 timestamp as a local-style clock reading so
// the model can reason about morning versus evening captures.
func timeOfDay(raw string) string {
	if raw == "" {
		return "unknown"
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return "unknown"
	}
	return t.Format("3:04 PM")
}
