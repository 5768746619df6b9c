package ports

import (
	"context"
	"time"

	"github.com/kirillkom/dash-voice/internal/core/domain"
)

// CaptureRepository persists capture state and materialized entities.
type CaptureRepository interface {
	CreateCapture(ctx context.Context, c *domain.Capture) error
	// ListCaptures returns captures newest-first; empty status means all.
	ListCaptures(ctx context.Context, status domain.CaptureStatus) ([]domain.Capture, error)
	GetCaptureByID(ctx context.Context, id string) (*domain.Capture, error)
	// AcceptCapture moves a pending capture to accepted and inserts the batch
	// in one transaction. A capture that is missing yields ErrCaptureNotFound,
	// one already decided yields ErrConflict.
	AcceptCapture(ctx context.Context, c *domain.Capture, batch domain.EntityBatch) error
	// RejectCapture moves a pending capture to rejected under the same guard.
	RejectCapture(ctx context.Context, id string, updatedAt time.Time) error
}

// TaskStore reads and updates materialized tasks.
type TaskStore interface {
	ListTasks(ctx context.Context) ([]domain.Task, error)
	UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (*domain.Task, error)
}

// ReflectionStore reads materialized reflections.
type ReflectionStore interface {
	ListReflections(ctx context.Context) ([]domain.Reflection, error)
}

// GoalStore reads and updates materialized goals.
type GoalStore interface {
	ListGoals(ctx context.Context) ([]domain.Goal, error)
	UpdateGoal(ctx context.Context, id string, patch domain.GoalPatch) (*domain.Goal, error)
}

// IntentExtractor classifies a transcript and extracts structured items.
// Implementations must degrade transport and response-shape failures to the
// uncertain stub; only unconfigured-provider and context errors propagate.
type IntentExtractor interface {
	Extract(ctx context.Context, transcript string, cctx domain.CaptureContext) (domain.Extraction, error)
}

// CaptureEventPublisher emits capture lifecycle events. Publishing is
// best-effort at the call sites; failures are logged, never fatal.
type CaptureEventPublisher interface {
	PublishCaptureEvent(ctx context.Context, event domain.CaptureEvent) error
}

// TranscriptionToken is a short-lived client credential for the cloud
// transcription provider.
type TranscriptionToken struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

// TranscriptionTokenIssuer exchanges the server-side provider credential for
// a short-lived client token. Unconfigured yields ErrProviderUnavailable.
type TranscriptionTokenIssuer interface {
	IssueToken(ctx context.Context) (TranscriptionToken, error)
}
