package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/dash-voice/internal/core/domain"
)

func messagesResponse(text string) string {
	payload := map[string]any{
		"content": []map[string]any{{"type": "text", "text": text}},
	}
	raw, _ := json.Marshal(payload)
	return string(raw)
}

func newTestServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(handler))
	t.Cleanup(server.Close)
	return server
}

func TestExtractUnconfiguredFailsFast(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("unconfigured extractor must not reach the network")
	})
	extractor := NewExtractor(New("", server.URL, "", nil))

	_, err := extractor.Extract(context.Background(), "buy milk", domain.CaptureContext{})
	if !domain.IsKind(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected provider unavailable, got %v", err)
	}
}

func TestExtractParsesFencedResponse(t *testing.T) {
	var gotPath, gotKey, gotVersion string
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		w.Write([]byte(messagesResponse("```json\n{\"mode\":\"task_capture\",\"confidence\":0.9,\"summary\":\"Pay rent\",\"proposed_action\":\"Create 1 task\",\"structured_data\":{\"tasks\":[{\"title\":\"pay rent\",\"due_date\":\"2026-08-29\"}]}}\n```")))
	})
	extractor := NewExtractor(New("test-key", server.URL, "", nil))

	extraction, err := extractor.Extract(context.Background(), "pay rent tomorrow", domain.CaptureContext{})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if gotPath != "/v1/messages" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotKey != "test-key" || gotVersion != "2023-06-01" {
		t.Fatalf("missing auth headers: key=%q version=%q", gotKey, gotVersion)
	}
	if extraction.Mode != domain.ModeTaskCapture {
		t.Fatalf("expected task_capture, got %s", extraction.Mode)
	}
	tasks, ok := extraction.StructuredData["tasks"].([]any)
	if !ok || len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %#v", extraction.StructuredData)
	}
}

func TestExtractNormalizesLegacyShape(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(messagesResponse(`{"mode":"goal_setting","confidence":0.8,"summary":"Run a 10k","proposed_action":"Create 1 goal","structured_data":{"title":"run a 10k"}}`)))
	})
	extractor := NewExtractor(New("test-key", server.URL, "", nil))

	extraction, err := extractor.Extract(context.Background(), "I want to run a 10k", domain.CaptureContext{})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	goals, ok := extraction.StructuredData["goals"].([]any)
	if !ok || len(goals) != 1 {
		t.Fatalf("legacy shape not normalized: %#v", extraction.StructuredData)
	}
}

func TestExtractServerErrorDegradesToStub(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	})
	extractor := NewExtractor(New("test-key", server.URL, "", nil))

	extraction, err := extractor.Extract(context.Background(), "mumble", domain.CaptureContext{})
	if err != nil {
		t.Fatalf("transport failures must degrade, got error %v", err)
	}
	if extraction.Mode != domain.ModeUncertain || extraction.Confidence != 0 {
		t.Fatalf("expected uncertain stub, got %+v", extraction)
	}
	if extraction.Summary != "mumble" {
		t.Fatalf("transcript must survive as summary, got %q", extraction.Summary)
	}
	if extraction.ProposedAction != reasonRequestFailed {
		t.Fatalf("unexpected proposed action %q", extraction.ProposedAction)
	}
}

func TestExtractUnparseableBodyDegradesToStub(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(messagesResponse("I could not classify that, sorry.")))
	})
	extractor := NewExtractor(New("test-key", server.URL, "", nil))

	extraction, err := extractor.Extract(context.Background(), "static noise", domain.CaptureContext{})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if extraction.Mode != domain.ModeUncertain {
		t.Fatalf("expected uncertain, got %s", extraction.Mode)
	}
	if extraction.ProposedAction != reasonUnparseable {
		t.Fatalf("unexpected proposed action %q", extraction.ProposedAction)
	}
}

func TestExtractUnknownModeBecomesUncertain(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(messagesResponse(`{"mode":"party_planning","confidence":2.5,"summary":"","proposed_action":"","structured_data":{}}`)))
	})
	extractor := NewExtractor(New("test-key", server.URL, "", nil))

	extraction, err := extractor.Extract(context.Background(), "plan a party", domain.CaptureContext{})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if extraction.Mode != domain.ModeUncertain {
		t.Fatalf("expected uncertain, got %s", extraction.Mode)
	}
	if extraction.Confidence != 1 {
		t.Fatalf("confidence must clamp to 1, got %v", extraction.Confidence)
	}
	if extraction.Summary != "plan a party" {
		t.Fatalf("empty summary must fall back to transcript, got %q", extraction.Summary)
	}
}

func TestBuildUserMessageDefaults(t *testing.T) {
	msg := buildUserMessage("hello", domain.CaptureContext{})
	for _, want := range []string{"Current view: dashboard", "Active task: none", "Time: unknown", "Recent captures: none", `Transcript: "hello"`} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message missing %q:\n%s", want, msg)
		}
	}

	msg = buildUserMessage("hello", domain.CaptureContext{
		CurrentView:    "voice_capture",
		ActiveTask:     "write report",
		Time:           "2026-08-28T15:04:00Z",
		RecentCaptures: []string{"pay rent", "call mom"},
	})
	for _, want := range []string{"Current view: voice_capture", "Active task: write report", "Time: 3:04 PM", "Recent captures: pay rent; call mom"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message missing %q:\n%s", want, msg)
		}
	}
}
