package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/dash-voice/internal/core/domain"
	"github.com/kirillkom/dash-voice/internal/core/ports"
)

// CaptureLifecycleUseCase owns the pending->accepted/rejected transition and
// the materialization of derived entities from accepted structured items.
type CaptureLifecycleUseCase struct {
	repo   ports.CaptureRepository
	events ports.CaptureEventPublisher

	now   func() time.Time
	newID func() string
}

func NewCaptureLifecycleUseCase(repo ports.CaptureRepository, events ports.CaptureEventPublisher) *CaptureLifecycleUseCase {
	return &CaptureLifecycleUseCase{
		repo:   repo,
		events: events,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

func (uc *CaptureLifecycleUseCase) List(ctx context.Context, status domain.CaptureStatus) ([]domain.Capture, error) {
	if status != "" && !status.Valid() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "list captures", fmt.Errorf("unknown status %q", status))
	}
	captures, err := uc.repo.ListCaptures(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("list captures: %w", err)
	}
	return captures, nil
}

// Accept resolves the data to persist (edited payload if supplied, else the
// stored data, else empty), normalizes it regardless of source, marks the
// capture accepted and creates one derived entity per structured item, all in
// one repository transaction. Zero items is legal: the capture is accepted
// and nothing is created.
func (uc *CaptureLifecycleUseCase) Accept(ctx context.Context, id string, edited map[string]any) (*domain.AcceptResult, error) {
	capture, err := uc.repo.GetCaptureByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load capture: %w", err)
	}

	data := edited
	if data == nil {
		data = capture.StructuredData
	}
	if data == nil {
		data = map[string]any{}
	}
	data = domain.NormalizeStructuredData(capture.Mode, data)

	now := uc.now()
	batch, err := uc.materialize(capture, data, now)
	if err != nil {
		return nil, err
	}

	capture.Status = domain.CaptureStatusAccepted
	capture.StructuredData = data
	capture.UpdatedAt = now

	if err := uc.repo.AcceptCapture(ctx, capture, batch); err != nil {
		return nil, fmt.Errorf("accept capture: %w", err)
	}

	publishCaptureEvent(ctx, uc.events, domain.CaptureEvent{
		Event:     domain.CaptureEventAccepted,
		CaptureID: capture.ID,
		Mode:      capture.Mode,
		At:        now,
	})

	return &domain.AcceptResult{
		Capture:     capture,
		Tasks:       batch.Tasks,
		Reflections: batch.Reflections,
		Goals:       batch.Goals,
	}, nil
}

func (uc *CaptureLifecycleUseCase) Reject(ctx context.Context, id string) (*domain.Capture, error) {
	capture, err := uc.repo.GetCaptureByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load capture: %w", err)
	}

	now := uc.now()
	if err := uc.repo.RejectCapture(ctx, id, now); err != nil {
		return nil, fmt.Errorf("reject capture: %w", err)
	}
	capture.Status = domain.CaptureStatusRejected
	capture.UpdatedAt = now

	publishCaptureEvent(ctx, uc.events, domain.CaptureEvent{
		Event:     domain.CaptureEventRejected,
		CaptureID: capture.ID,
		Mode:      capture.Mode,
		At:        now,
	})

	return capture, nil
}

func (uc *CaptureLifecycleUseCase) materialize(capture *domain.Capture, data map[string]any, now time.Time) (domain.EntityBatch, error) {
	var batch domain.EntityBatch

	switch capture.Mode {
	case domain.ModeTaskCapture:
		items, err := domain.TaskItemsFrom(data)
		if err != nil {
			return batch, domain.WrapError(domain.ErrInvalidInput, "materialize tasks", err)
		}
		for i, item := range items {
			batch.Tasks = append(batch.Tasks, uc.buildTask(capture, item, i, now))
		}
	case domain.ModeReflection:
		items, err := domain.ReflectionItemsFrom(data)
		if err != nil {
			return batch, domain.WrapError(domain.ErrInvalidInput, "materialize reflections", err)
		}
		for _, item := range items {
			batch.Reflections = append(batch.Reflections, uc.buildReflection(capture, item, now))
		}
	case domain.ModeGoalSetting:
		items, err := domain.GoalItemsFrom(data)
		if err != nil {
			return batch, domain.WrapError(domain.ErrInvalidInput, "materialize goals", err)
		}
		for _, item := range items {
			batch.Goals = append(batch.Goals, uc.buildGoal(capture, item, now))
		}
	}

	return batch, nil
}

func (uc *CaptureLifecycleUseCase) buildTask(capture *domain.Capture, item domain.TaskItem, index int, now time.Time) domain.Task {
	task := domain.Task{
		ID:            uc.newID(),
		CaptureID:     capture.ID,
		Title:         fallbackTitle(item.Title, capture.Summary, "Untitled task"),
		DueDate:       item.DueDate,
		Priority:      domain.TaskPriorityMedium,
		Project:       item.Project,
		Status:        domain.TaskStatusTodo,
		RecurrenceEnd: item.RecurrenceEnd,
		SortOrder:     index,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if p := domain.TaskPriority(strings.ToLower(item.Priority)); p.Valid() {
		task.Priority = p
	}
	if item.Recurrence != nil {
		if r := domain.Recurrence(strings.ToLower(*item.Recurrence)); r.Valid() {
			task.Recurrence = &r
		}
	}
	if task.Recurrence == nil {
		// recurrence_end is only meaningful with a recurrence
		task.RecurrenceEnd = nil
	}
	return task
}

func (uc *CaptureLifecycleUseCase) buildReflection(capture *domain.Capture, item domain.ReflectionItem, now time.Time) domain.Reflection {
	tags := item.Tags
	if tags == nil {
		tags = []string{}
	}
	return domain.Reflection{
		ID:        uc.newID(),
		CaptureID: capture.ID,
		Summary:   fallbackTitle(item.Summary, capture.Summary, "Untitled reflection"),
		Mood:      item.Mood,
		Tags:      tags,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (uc *CaptureLifecycleUseCase) buildGoal(capture *domain.Capture, item domain.GoalItem, now time.Time) domain.Goal {
	return domain.Goal{
		ID:         uc.newID(),
		CaptureID:  capture.ID,
		Title:      fallbackTitle(item.Title, capture.Summary, "Untitled goal"),
		Timeframe:  item.Timeframe,
		Measurable: item.Measurable,
		Status:     domain.GoalStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func fallbackTitle(title, summary, last string) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	if s := strings.TrimSpace(summary); s != "" {
		return s
	}
	return last
}
