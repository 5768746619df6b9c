package mcpadapter

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kirillkom/dash-voice/internal/core/domain"
	"github.com/kirillkom/dash-voice/internal/core/ports"
)

var captureListToolDef = mcp.NewTool("capture_list",
	mcp.WithDescription("List captures, optionally filtered by status (pending, accepted, rejected)."),
	mcp.WithString("status", mcp.Description("Filter by capture status; omit for all.")),
)

var captureAcceptToolDef = mcp.NewTool("capture_accept",
	mcp.WithDescription("Accept a pending capture, optionally with edited structured data, and materialize its entities."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Capture id.")),
	mcp.WithObject("structured_data", mcp.Description("Edited structured data; omit to use the stored proposal.")),
)

var captureRejectToolDef = mcp.NewTool("capture_reject",
	mcp.WithDescription("Reject a pending capture. The transcript is kept, no entities are created."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Capture id.")),
)

var taskListToolDef = mcp.NewTool("task_list",
	mcp.WithDescription("List tasks ordered by sort order, newest first within an order."),
)

var taskUpdateToolDef = mcp.NewTool("task_update",
	mcp.WithDescription("Partially update a task. Only supplied fields change."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Task id.")),
	mcp.WithString("title", mcp.Description("New title.")),
	mcp.WithString("status", mcp.Description("todo, in_progress or done.")),
	mcp.WithString("priority", mcp.Description("low, medium, high or urgent.")),
	mcp.WithString("due_date", mcp.Description("Due date, YYYY-MM-DD.")),
	mcp.WithString("project", mcp.Description("Project label.")),
)

var reflectionListToolDef = mcp.NewTool("reflection_list",
	mcp.WithDescription("List reflections, newest first."),
)

var goalListToolDef = mcp.NewTool("goal_list",
	mcp.WithDescription("List goals, newest first."),
)

var goalUpdateToolDef = mcp.NewTool("goal_update",
	mcp.WithDescription("Partially update a goal. Only supplied fields change."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Goal id.")),
	mcp.WithString("title", mcp.Description("New title.")),
	mcp.WithString("status", mcp.Description("active, completed or abandoned.")),
	mcp.WithString("timeframe", mcp.Description("Timeframe, e.g. 'this week'.")),
	mcp.WithString("measurable", mcp.Description("Measurable outcome.")),
)

// Handlers holds the ports the MCP tools operate on.
type Handlers struct {
	lifecycle   ports.CaptureLifecycle
	tasks       ports.TaskStore
	reflections ports.ReflectionStore
	goals       ports.GoalStore
}

func NewHandlers(
	lifecycle ports.CaptureLifecycle,
	tasks ports.TaskStore,
	reflections ports.ReflectionStore,
	goals ports.GoalStore,
) *Handlers {
	return &Handlers{
		lifecycle:   lifecycle,
		tasks:       tasks,
		reflections: reflections,
		goals:       goals,
	}
}

type captureListRequest struct {
	Status string `json:"status,omitempty"`
}

type captureAcceptRequest struct {
	ID             string         `json:"id"`
	StructuredData map[string]any `json:"structured_data,omitempty"`
}

type captureRejectRequest struct {
	ID string `json:"id"`
}

type taskUpdateRequest struct {
	ID       string  `json:"id"`
	Title    *string `json:"title,omitempty"`
	Status   *string `json:"status,omitempty"`
	Priority *string `json:"priority,omitempty"`
	DueDate  *string `json:"due_date,omitempty"`
	Project  *string `json:"project,omitempty"`
}

type goalUpdateRequest struct {
	ID         string  `json:"id"`
	Title      *string `json:"title,omitempty"`
	Status     *string `json:"status,omitempty"`
	Timeframe  *string `json:"timeframe,omitempty"`
	Measurable *string `json:"measurable,omitempty"`
}

func (h *Handlers) HandleCaptureList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[captureListRequest](req)
	if err != nil {
		return invalidRequestResult(err), nil
	}

	captures, err := h.lifecycle.List(ctx, domain.CaptureStatus(input.Status))
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"captures": captures})
}

func (h *Handlers) HandleCaptureAccept(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[captureAcceptRequest](req)
	if err != nil {
		return invalidRequestResult(err), nil
	}
	if input.ID == "" {
		return invalidRequestResult(errMissingID), nil
	}

	result, err := h.lifecycle.Accept(ctx, input.ID, input.StructuredData)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

func (h *Handlers) HandleCaptureReject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[captureRejectRequest](req)
	if err != nil {
		return invalidRequestResult(err), nil
	}
	if input.ID == "" {
		return invalidRequestResult(errMissingID), nil
	}

	capture, err := h.lifecycle.Reject(ctx, input.ID)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(capture)
}

func (h *Handlers) HandleTaskList(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tasks, err := h.tasks.ListTasks(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"tasks": tasks})
}

func (h *Handlers) HandleTaskUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[taskUpdateRequest](req)
	if err != nil {
		return invalidRequestResult(err), nil
	}
	if input.ID == "" {
		return invalidRequestResult(errMissingID), nil
	}

	patch := domain.TaskPatch{
		Title:   input.Title,
		DueDate: input.DueDate,
		Project: input.Project,
	}
	if input.Status != nil {
		status := domain.TaskStatus(*input.Status)
		if !status.Valid() {
			return invalidRequestResult(errUnknownEnum), nil
		}
		patch.Status = &status
	}
	if input.Priority != nil {
		priority := domain.TaskPriority(*input.Priority)
		if !priority.Valid() {
			return invalidRequestResult(errUnknownEnum), nil
		}
		patch.Priority = &priority
	}

	task, err := h.tasks.UpdateTask(ctx, input.ID, patch)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(task)
}

func (h *Handlers) HandleReflectionList(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reflections, err := h.reflections.ListReflections(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"reflections": reflections})
}

func (h *Handlers) HandleGoalList(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	goals, err := h.goals.ListGoals(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"goals": goals})
}

func (h *Handlers) HandleGoalUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[goalUpdateRequest](req)
	if err != nil {
		return invalidRequestResult(err), nil
	}
	if input.ID == "" {
		return invalidRequestResult(errMissingID), nil
	}

	patch := domain.GoalPatch{
		Title:      input.Title,
		Timeframe:  input.Timeframe,
		Measurable: input.Measurable,
	}
	if input.Status != nil {
		status := domain.GoalStatus(*input.Status)
		if !status.Valid() {
			return invalidRequestResult(errUnknownEnum), nil
		}
		patch.Status = &status
	}

	goal, err := h.goals.UpdateGoal(ctx, input.ID, patch)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(goal)
}

// errorResult maps domain error kinds onto the same status codes the REST
// surface uses, rendered as a JSON error payload.
func errorResult(err error) *mcp.CallToolResult {
	status := http.StatusInternalServerError
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case domain.IsKind(err, domain.ErrCaptureNotFound), domain.IsKind(err, domain.ErrEntityNotFound):
		status = http.StatusNotFound
	case domain.IsKind(err, domain.ErrConflict):
		status = http.StatusConflict
	case domain.IsKind(err, domain.ErrProviderUnavailable), domain.IsKind(err, domain.ErrTemporary):
		status = http.StatusServiceUnavailable
	}

	content, _ := json.Marshal(map[string]any{
		"error": map[string]any{
			"message": err.Error(),
			"status":  status,
		},
	})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
