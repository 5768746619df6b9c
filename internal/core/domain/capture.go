package domain

import "time"

// Mode is the inferred intent category of a capture.
type Mode string

const (
	ModeTaskCapture  Mode = "task_capture"
	ModeReflection   Mode = "reflection"
	ModeConversation Mode = "conversation"
	ModeCommand      Mode = "command"
	ModeGoalSetting  Mode = "goal_setting"
	ModeStatusUpdate Mode = "status_update"
	ModeUncertain    Mode = "uncertain"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeTaskCapture, ModeReflection, ModeConversation, ModeCommand,
		ModeGoalSetting, ModeStatusUpdate, ModeUncertain:
		return true
	default:
		return false
	}
}

// ItemKey names the array key holding structured items for multiplicity-bearing
// modes, and is empty for modes that carry no structured data.
func (m Mode) ItemKey() string {
	switch m {
	case ModeTaskCapture:
		return "tasks"
	case ModeReflection:
		return "reflections"
	case ModeGoalSetting:
		return "goals"
	default:
		return ""
	}
}

type CaptureStatus string

const (
	CaptureStatusPending  CaptureStatus = "pending"
	CaptureStatusAccepted CaptureStatus = "accepted"
	CaptureStatusRejected CaptureStatus = "rejected"
)

func (s CaptureStatus) Valid() bool {
	switch s {
	case CaptureStatusPending, CaptureStatusAccepted, CaptureStatusRejected:
		return true
	default:
		return false
	}
}

// Capture is one classified voice utterance awaiting or having received a
// user decision. Status moves pending->accepted or pending->rejected, once.
type Capture struct {
	ID             string         `json:"id"`
	Transcript     string         `json:"transcript"`
	Mode           Mode           `json:"mode"`
	Confidence     float64        `json:"confidence"`
	Summary        string         `json:"summary"`
	ProposedAction string         `json:"proposed_action"`
	StructuredData map[string]any `json:"structured_data"`
	Status         CaptureStatus  `json:"status"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      *time.Time     `json:"deleted_at,omitempty"`
}

// Extraction is the classification result produced for a transcript.
type Extraction struct {
	Mode           Mode           `json:"mode"`
	Confidence     float64        `json:"confidence"`
	Summary        string         `json:"summary"`
	ProposedAction string         `json:"proposed_action"`
	StructuredData map[string]any `json:"structured_data"`
}

// UncertainExtraction is the guaranteed fallback result when the model reply
// cannot be turned into a valid extraction. The transcript is preserved as the
// summary so no captured speech is lost.
func UncertainExtraction(transcript, reason string) Extraction {
	return Extraction{
		Mode:           ModeUncertain,
		Confidence:     0,
		Summary:        transcript,
		ProposedAction: reason,
		StructuredData: map[string]any{},
	}
}

// CaptureContext carries the situational fields embedded in the model prompt.
// All fields are optional.
type CaptureContext struct {
	CurrentView    string   `json:"current_view,omitempty"`
	ActiveTask     string   `json:"active_task,omitempty"`
	Time           string   `json:"time,omitempty"`
	RecentCaptures []string `json:"recent_captures,omitempty"`
}

// CaptureEvent is published on capture lifecycle transitions.
type CaptureEvent struct {
	Event     string    `json:"event"`
	CaptureID string    `json:"capture_id"`
	Mode      Mode      `json:"mode"`
	At        time.Time `json:"at"`
}

const (
	CaptureEventCreated  = "created"
	CaptureEventAccepted = "accepted"
	CaptureEventRejected = "rejected"
)

// EntityBatch holds the derived entities materialized from one accepted
// capture. At most one of the slices is non-empty.
type EntityBatch struct {
	Tasks       []Task
	Reflections []Reflection
	Goals       []Goal
}

func (b EntityBatch) Len() int {
	return len(b.Tasks) + len(b.Reflections) + len(b.Goals)
}

// AcceptResult is the outcome of accepting a capture: the updated capture and
// every entity created from its structured items.
type AcceptResult struct {
	Capture     *Capture     `json:"capture"`
	Tasks       []Task       `json:"tasks"`
	Reflections []Reflection `json:"reflections"`
	Goals       []Goal       `json:"goals"`
}
