package httpadapter

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/dash-voice/internal/core/domain"
	"github.com/kirillkom/dash-voice/internal/core/ports"
	"github.com/kirillkom/dash-voice/internal/observability/metrics"
)

func newMeteredRouter(submit *submitterFake) http.Handler {
	return NewRouter(
		submit,
		&lifecycleFake{},
		&taskStoreFake{},
		&reflectionStoreFake{},
		&goalStoreFake{},
		&issuerFake{token: ports.TranscriptionToken{Token: "dg", ExpiresIn: 3600}},
		metrics.NewHTTPServerMetrics("api"),
		"api",
		TrafficConfig{},
	).Handler()
}

func scrapeMetrics(t *testing.T, handler http.Handler) string {
	t.Helper()
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("metrics scrape expected 200, got %d", res.Code)
	}
	return res.Body.String()
}

func submitTranscript(t *testing.T, handler http.Handler, transcript string) {
	t.Helper()
	body := `{"transcript":"` + transcript + `"}`
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/captures", strings.NewReader(body)))
	if res.Code != http.StatusCreated {
		t.Fatalf("submit expected 201, got %d: %s", res.Code, res.Body.String())
	}
}

func TestSubmitCaptureRecordsDegradedExtraction(t *testing.T) {
	submit := &submitterFake{capture: &domain.Capture{
		ID:         "c-1",
		Mode:       domain.ModeUncertain,
		Confidence: 0,
		Status:     domain.CaptureStatusPending,
	}}
	handler := newMeteredRouter(submit)

	submitTranscript(t, handler, "mumbled something")

	scrape := scrapeMetrics(t, handler)
	if !strings.Contains(scrape, `dash_extraction_degraded_total{service="api"} 1`) {
		t.Fatalf("expected degraded extraction counted, got:\n%s", scrape)
	}
	if !strings.Contains(scrape, `dash_extraction_duration_seconds_count{service="api"} 1`) {
		t.Fatalf("expected extraction duration observed, got:\n%s", scrape)
	}
}

func TestSubmitCaptureDoesNotCountHealthyExtractionAsDegraded(t *testing.T) {
	submit := &submitterFake{capture: &domain.Capture{
		ID:         "c-2",
		Mode:       domain.ModeTaskCapture,
		Confidence: 0.9,
		Status:     domain.CaptureStatusPending,
	}}
	handler := newMeteredRouter(submit)

	submitTranscript(t, handler, "pay rent tomorrow")

	scrape := scrapeMetrics(t, handler)
	if strings.Contains(scrape, `dash_extraction_degraded_total{service="api"} 1`) {
		t.Fatalf("healthy extraction must not count as degraded, got:\n%s", scrape)
	}
	if !strings.Contains(scrape, `dash_extraction_duration_seconds_count{service="api"} 1`) {
		t.Fatalf("expected extraction duration observed, got:\n%s", scrape)
	}
	if !strings.Contains(scrape, `dash_capture_submitted_total{mode="task_capture",service="api"} 1`) {
		t.Fatalf("expected submitted capture counted by mode, got:\n%s", scrape)
	}
}
