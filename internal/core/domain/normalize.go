package domain

import (
	"encoding/json"
	"fmt"
)

// NormalizeStructuredData returns the canonical array-keyed shape for the
// given mode. The model (and older persisted captures, and edited payloads
// from the UI) may still produce a single flat item object; that legacy shape
// is detected by the presence of the mode-defining required field and wrapped
// as a one-element array. Anything else becomes an empty array. Modes without
// structured data pass through unchanged. Idempotent.
func NormalizeStructuredData(mode Mode, data map[string]any) map[string]any {
	key := mode.ItemKey()
	if key == "" {
		return data
	}
	if data == nil {
		return map[string]any{key: []any{}}
	}
	if _, ok := data[key].([]any); ok {
		return data
	}

	required := "title"
	if mode == ModeReflection {
		required = "summary"
	}
	if _, ok := data[required].(string); ok {
		return map[string]any{key: []any{data}}
	}
	return map[string]any{key: []any{}}
}

// TaskItem is one extracted task prior to materialization.
type TaskItem struct {
	Title         string  `json:"title"`
	DueDate       *string `json:"due_date,omitempty"`
	Priority      string  `json:"priority,omitempty"`
	Project       *string `json:"project,omitempty"`
	Recurrence    *string `json:"recurrence,omitempty"`
	RecurrenceEnd *string `json:"recurrence_end,omitempty"`
}

// ReflectionItem is one extracted reflection prior to materialization.
type ReflectionItem struct {
	Summary string   `json:"summary"`
	Mood    *string  `json:"mood,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// GoalItem is one extracted goal prior to materialization.
type GoalItem struct {
	Title      string  `json:"title"`
	Timeframe  *string `json:"timeframe,omitempty"`
	Measurable *string `json:"measurable,omitempty"`
}

// TaskItemsFrom decodes the tasks array of canonical structured data.
func TaskItemsFrom(data map[string]any) ([]TaskItem, error) {
	return decodeItems[TaskItem](data, "tasks")
}

// ReflectionItemsFrom decodes the reflections array of canonical structured data.
func ReflectionItemsFrom(data map[string]any) ([]ReflectionItem, error) {
	return decodeItems[ReflectionItem](data, "reflections")
}

// GoalItemsFrom decodes the goals array of canonical structured data.
func GoalItemsFrom(data map[string]any) ([]GoalItem, error) {
	return decodeItems[GoalItem](data, "goals")
}

// decodeItems round-trips the untyped item array through JSON into typed
// items, skipping entries that are not objects. The data is untrusted model
// output even after normalization, so a malformed entry must not fail the
// whole batch.
func decodeItems[T any](data map[string]any, key string) ([]T, error) {
	raw, ok := data[key].([]any)
	if !ok {
		return []T{}, nil
	}

	out := make([]T, 0, len(raw))
	for _, entry := range raw {
		if _, ok := entry.(map[string]any); !ok {
			continue
		}
		encoded, err := json.Marshal(entry)
		if err != nil {
			return nil, fmt.Errorf("marshal %s item: %w", key, err)
		}
		var item T
		if err := json.Unmarshal(encoded, &item); err != nil {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}
