package domain

import "time"

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	default:
		return false
	}
}

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityUrgent TaskPriority = "urgent"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh, TaskPriorityUrgent:
		return true
	default:
		return false
	}
}

type Recurrence string

const (
	RecurrenceDaily   Recurrence = "daily"
	RecurrenceWeekly  Recurrence = "weekly"
	RecurrenceMonthly Recurrence = "monthly"
)

func (r Recurrence) Valid() bool {
	switch r {
	case RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
		return true
	default:
		return false
	}
}

// Task is a derived entity created from an accepted task_capture item.
type Task struct {
	ID            string       `json:"id"`
	CaptureID     string       `json:"capture_id"`
	Title         string       `json:"title"`
	DueDate       *string      `json:"due_date,omitempty"`
	Priority      TaskPriority `json:"priority"`
	Project       *string      `json:"project,omitempty"`
	Status        TaskStatus   `json:"status"`
	Recurrence    *Recurrence  `json:"recurrence,omitempty"`
	RecurrenceEnd *string      `json:"recurrence_end,omitempty"`
	SortOrder     int          `json:"sort_order"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
	DeletedAt     *time.Time   `json:"deleted_at,omitempty"`
}

// Reflection is immutable once created.
type Reflection struct {
	ID        string     `json:"id"`
	CaptureID string     `json:"capture_id"`
	Summary   string     `json:"summary"`
	Mood      *string    `json:"mood,omitempty"`
	Tags      []string   `json:"tags"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

type GoalStatus string

const (
	GoalStatusActive    GoalStatus = "active"
	GoalStatusCompleted GoalStatus = "completed"
	GoalStatusAbandoned GoalStatus = "abandoned"
)

func (s GoalStatus) Valid() bool {
	switch s {
	case GoalStatusActive, GoalStatusCompleted, GoalStatusAbandoned:
		return true
	default:
		return false
	}
}

type Goal struct {
	ID         string     `json:"id"`
	CaptureID  string     `json:"capture_id"`
	Title      string     `json:"title"`
	Timeframe  *string    `json:"timeframe,omitempty"`
	Measurable *string    `json:"measurable,omitempty"`
	Status     GoalStatus `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
}

// TaskPatch is a partial update; nil fields are left untouched.
type TaskPatch struct {
	Title     *string       `json:"title,omitempty"`
	Status    *TaskStatus   `json:"status,omitempty"`
	Priority  *TaskPriority `json:"priority,omitempty"`
	DueDate   *string       `json:"due_date,omitempty"`
	Project   *string       `json:"project,omitempty"`
	SortOrder *int          `json:"sort_order,omitempty"`
}

func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Status == nil && p.Priority == nil &&
		p.DueDate == nil && p.Project == nil && p.SortOrder == nil
}

// GoalPatch is a partial update; nil fields are left untouched.
type GoalPatch struct {
	Title      *string     `json:"title,omitempty"`
	Status     *GoalStatus `json:"status,omitempty"`
	Timeframe  *string     `json:"timeframe,omitempty"`
	Measurable *string     `json:"measurable,omitempty"`
}

func (p GoalPatch) Empty() bool {
	return p.Title == nil && p.Status == nil && p.Timeframe == nil && p.Measurable == nil
}
