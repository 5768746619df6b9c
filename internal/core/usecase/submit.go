package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/dash-voice/internal/core/domain"
	"github.com/kirillkom/dash-voice/internal/core/ports"
)

// SubmitCaptureUseCase turns a finalized transcript into a pending capture:
// it runs intent extraction and persists the proposal for the user to decide
// on. Extraction degradation is handled inside the extractor, so every
// submitted transcript ends up stored unless the provider is unconfigured.
type SubmitCaptureUseCase struct {
	repo      ports.CaptureRepository
	extractor ports.IntentExtractor
	events    ports.CaptureEventPublisher

	now   func() time.Time
	newID func() string
}

func NewSubmitCaptureUseCase(
	repo ports.CaptureRepository,
	extractor ports.IntentExtractor,
	events ports.CaptureEventPublisher,
) *SubmitCaptureUseCase {
	return &SubmitCaptureUseCase{
		repo:      repo,
		extractor: extractor,
		events:    events,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

func (uc *SubmitCaptureUseCase) Submit(ctx context.Context, transcript string, cctx domain.CaptureContext) (*domain.Capture, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit capture", errors.New("empty transcript"))
	}

	extraction, err := uc.extractor.Extract(ctx, transcript, cctx)
	if err != nil {
		return nil, fmt.Errorf("extract intent: %w", err)
	}

	now := uc.now()
	capture := &domain.Capture{
		ID:             uc.newID(),
		Transcript:     transcript,
		Mode:           extraction.Mode,
		Confidence:     extraction.Confidence,
		Summary:        extraction.Summary,
		ProposedAction: extraction.ProposedAction,
		StructuredData: domain.NormalizeStructuredData(extraction.Mode, extraction.StructuredData),
		Status:         domain.CaptureStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := uc.repo.CreateCapture(ctx, capture); err != nil {
		return nil, fmt.Errorf("persist capture: %w", err)
	}

	publishCaptureEvent(ctx, uc.events, domain.CaptureEvent{
		Event:     domain.CaptureEventCreated,
		CaptureID: capture.ID,
		Mode:      capture.Mode,
		At:        now,
	})

	return capture, nil
}

// publishCaptureEvent is best-effort: lifecycle events feed metrics and audit
// only, so a broken bus must never fail the user-facing operation.
func publishCaptureEvent(ctx context.Context, events ports.CaptureEventPublisher, event domain.CaptureEvent) {
	if events == nil {
		return
	}
	if err := events.PublishCaptureEvent(ctx, event); err != nil {
		slog.Warn("capture_event_publish_failed",
			"event", event.Event,
			"capture_id", event.CaptureID,
			"error", err,
		)
	}
}
