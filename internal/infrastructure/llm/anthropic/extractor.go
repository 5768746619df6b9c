package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/kirillkom/dash-voice/internal/core/domain"
)

const (
	extractionMaxTokens = 1024

	reasonRequestFailed = "LLM request failed"
	reasonUnparseable   = "Could not parse LLM response"
)

// Extractor classifies a transcript and pulls out mode-specific items. Every
// degradation after the transcript exists resolves to the uncertain stub so
// the spoken words are never lost; only a missing credential or a cancelled
// context surfaces as an error.
type Extractor struct {
	client *Client
}

func NewExtractor(client *Client) *Extractor {
	return &Extractor{client: client}
}

func (e *Extractor) Extract(ctx context.Context, transcript string, cctx domain.CaptureContext) (domain.Extraction, error) {
	if !e.client.Configured() {
		return domain.Extraction{}, domain.WrapError(domain.ErrProviderUnavailable, "extract intent", errors.New("anthropic api key not configured"))
	}

	text, err := e.client.CreateMessage(ctx, systemPrompt, buildUserMessage(transcript, cctx), extractionMaxTokens)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return domain.Extraction{}, err
		}
		slog.Warn("extraction_degraded", "reason", "request_failed", "error", err)
		return domain.UncertainExtraction(transcript, reasonRequestFailed), nil
	}

	region, ok := jsonRegion(text)
	if !ok {
		slog.Warn("extraction_degraded", "reason", "no_json_region")
		return domain.UncertainExtraction(transcript, reasonUnparseable), nil
	}

	var parsed struct {
		Mode           string         `json:"mode"`
		Confidence     float64        `json:"confidence"`
		Summary        string         `json:"summary"`
		ProposedAction string         `json:"proposed_action"`
		StructuredData map[string]any `json:"structured_data"`
	}
	if err := json.Unmarshal([]byte(region), &parsed); err != nil {
		slog.Warn("extraction_degraded", "reason", "invalid_json", "error", err)
		return domain.UncertainExtraction(transcript, reasonUnparseable), nil
	}

	mode := domain.Mode(parsed.Mode)
	if !mode.Valid() {
		mode = domain.ModeUncertain
	}

	extraction := domain.Extraction{
		Mode:           mode,
		Confidence:     clampConfidence(parsed.Confidence),
		Summary:        parsed.Summary,
		ProposedAction: parsed.ProposedAction,
		StructuredData: parsed.StructuredData,
	}
	if extraction.Summary == "" {
		extraction.Summary = transcript
	}
	extraction.StructuredData = domain.NormalizeStructuredData(extraction.Mode, extraction.StructuredData)
	return extraction, nil
}

// jsonRegion slices out the outermost braced region, which survives markdown
// fencing and conversational preambles around the JSON body.
func jsonRegion(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
