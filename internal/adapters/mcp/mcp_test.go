package mcpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kirillkom/dash-voice/internal/core/domain"
)

type lifecycleFake struct {
	captures  []domain.Capture
	accept    *domain.AcceptResult
	reject    *domain.Capture
	acceptErr error

	gotStatus domain.CaptureStatus
	gotEdited map[string]any
}

func (f *lifecycleFake) List(_ context.Context, status domain.CaptureStatus) ([]domain.Capture, error) {
	f.gotStatus = status
	return f.captures, nil
}

func (f *lifecycleFake) Accept(_ context.Context, _ string, edited map[string]any) (*domain.AcceptResult, error) {
	f.gotEdited = edited
	return f.accept, f.acceptErr
}

func (f *lifecycleFake) Reject(context.Context, string) (*domain.Capture, error) {
	return f.reject, nil
}

type taskStoreFake struct {
	updated  *domain.Task
	gotPatch domain.TaskPatch
}

func (f *taskStoreFake) ListTasks(context.Context) ([]domain.Task, error) { return nil, nil }

func (f *taskStoreFake) UpdateTask(_ context.Context, _ string, patch domain.TaskPatch) (*domain.Task, error) {
	f.gotPatch = patch
	return f.updated, nil
}

type reflectionStoreFake struct{}

func (reflectionStoreFake) ListReflections(context.Context) ([]domain.Reflection, error) {
	return nil, nil
}

type goalStoreFake struct{}

func (goalStoreFake) ListGoals(context.Context) ([]domain.Goal, error) { return nil, nil }

func (goalStoreFake) UpdateGoal(context.Context, string, domain.GoalPatch) (*domain.Goal, error) {
	return nil, nil
}

func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("empty result content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content type %T", result.Content[0])
	}
	return text.Text
}

func newTestHandlers(lifecycle *lifecycleFake, tasks *taskStoreFake) *Handlers {
	if lifecycle == nil {
		lifecycle = &lifecycleFake{}
	}
	if tasks == nil {
		tasks = &taskStoreFake{}
	}
	return NewHandlers(lifecycle, tasks, reflectionStoreFake{}, goalStoreFake{})
}

func TestCaptureListPassesStatus(t *testing.T) {
	lifecycle := &lifecycleFake{captures: []domain.Capture{{ID: "c-1"}}}
	h := newTestHandlers(lifecycle, nil)

	result, err := h.HandleCaptureList(context.Background(), makeRequest(map[string]any{"status": "pending"}))
	if err != nil {
		t.Fatalf("HandleCaptureList() error = %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, result))
	}
	if lifecycle.gotStatus != domain.CaptureStatusPending {
		t.Fatalf("status not passed: %q", lifecycle.gotStatus)
	}

	var payload struct {
		Captures []domain.Capture `json:"captures"`
	}
	if err := json.Unmarshal([]byte(resultText(t, result)), &payload); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(payload.Captures) != 1 {
		t.Fatalf("expected 1 capture, got %+v", payload)
	}
}

func TestCaptureAcceptRequiresID(t *testing.T) {
	h := newTestHandlers(nil, nil)

	result, err := h.HandleCaptureAccept(context.Background(), makeRequest(map[string]any{}))
	if err != nil {
		t.Fatalf("HandleCaptureAccept() error = %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result for missing id")
	}
}

func TestCaptureAcceptPassesEditedData(t *testing.T) {
	lifecycle := &lifecycleFake{accept: &domain.AcceptResult{
		Capture: &domain.Capture{ID: "c-1", Status: domain.CaptureStatusAccepted},
	}}
	h := newTestHandlers(lifecycle, nil)

	result, err := h.HandleCaptureAccept(context.Background(), makeRequest(map[string]any{
		"id":              "c-1",
		"structured_data": map[string]any{"tasks": []any{map[string]any{"title": "edited"}}},
	}))
	if err != nil {
		t.Fatalf("HandleCaptureAccept() error = %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, result))
	}
	if lifecycle.gotEdited == nil {
		t.Fatal("edited data not passed")
	}
}

func TestCaptureAcceptConflictIsErrorResult(t *testing.T) {
	lifecycle := &lifecycleFake{acceptErr: domain.WrapError(domain.ErrConflict, "accept capture", errors.New("already accepted"))}
	h := newTestHandlers(lifecycle, nil)

	result, err := h.HandleCaptureAccept(context.Background(), makeRequest(map[string]any{"id": "c-1"}))
	if err != nil {
		t.Fatalf("HandleCaptureAccept() error = %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result")
	}
	if !strings.Contains(resultText(t, result), "409") {
		t.Fatalf("expected conflict status in payload: %s", resultText(t, result))
	}
}

func TestTaskUpdateValidatesEnums(t *testing.T) {
	tasks := &taskStoreFake{updated: &domain.Task{ID: "t-1", Status: domain.TaskStatusDone}}
	h := newTestHandlers(nil, tasks)

	result, err := h.HandleTaskUpdate(context.Background(), makeRequest(map[string]any{
		"id":     "t-1",
		"status": "bogus",
	}))
	if err != nil {
		t.Fatalf("HandleTaskUpdate() error = %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result for unknown status")
	}

	result, err = h.HandleTaskUpdate(context.Background(), makeRequest(map[string]any{
		"id":     "t-1",
		"status": "done",
	}))
	if err != nil {
		t.Fatalf("HandleTaskUpdate() error = %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, result))
	}
	if tasks.gotPatch.Status == nil || *tasks.gotPatch.Status != domain.TaskStatusDone {
		t.Fatalf("patch not passed: %+v", tasks.gotPatch)
	}
}

func TestAllToolNamesMatchesRegistry(t *testing.T) {
	names := AllToolNames()
	if len(names) != len(toolRegistry) {
		t.Fatalf("expected %d names, got %d", len(toolRegistry), len(names))
	}
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			t.Fatalf("unknown tool name %q", name)
		}
	}
}
