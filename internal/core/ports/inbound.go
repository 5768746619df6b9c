package ports

import (
	"context"

	"github.com/kirillkom/dash-voice/internal/core/domain"
)

// CaptureSubmitter is the inbound contract for transcript submission.
type CaptureSubmitter interface {
	Submit(ctx context.Context, transcript string, cctx domain.CaptureContext) (*domain.Capture, error)
}

// CaptureLifecycle is the inbound contract for the confirm/reject flow.
type CaptureLifecycle interface {
	List(ctx context.Context, status domain.CaptureStatus) ([]domain.Capture, error)
	Accept(ctx context.Context, id string, edited map[string]any) (*domain.AcceptResult, error)
	Reject(ctx context.Context, id string) (*domain.Capture, error)
}
