package deepgram

import (
	"context"
	"encoding/binary"
	"net/url"
	"strings"
	"testing"

	"github.com/kirillkom/dash-voice/internal/core/domain"
	"github.com/kirillkom/dash-voice/internal/transcription"
)

func TestPCM16LEConversion(t *testing.T) {
	out := pcm16le([]float32{0, 1, -1, 0.5, 2, -2})
	if len(out) != 12 {
		t.Fatalf("expected 12 bytes, got %d", len(out))
	}

	samples := make([]int16, 6)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(out[i*2:]))
	}

	if samples[0] != 0 {
		t.Fatalf("zero sample: %d", samples[0])
	}
	if samples[1] != 0x7fff {
		t.Fatalf("full positive sample: %d", samples[1])
	}
	if samples[2] != -0x8000 {
		t.Fatalf("full negative sample: %d", samples[2])
	}
	if samples[3] != 0x3fff {
		t.Fatalf("half positive sample: %d", samples[3])
	}
	if samples[4] != 0x7fff || samples[5] != -0x8000 {
		t.Fatalf("out-of-range samples must clamp: %d %d", samples[4], samples[5])
	}
}

func TestListenURLParameters(t *testing.T) {
	raw := listenURL(Config{Keywords: []string{"Dash", "task"}}.withDefaults())
	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("url.Parse() error = %v", err)
	}
	if !strings.HasPrefix(raw, "wss://api.deepgram.com/v1/listen?") {
		t.Fatalf("unexpected endpoint: %s", raw)
	}

	params := parsed.Query()
	for key, want := range map[string]string{
		"model":            "nova-2",
		"punctuate":        "true",
		"smart_format":     "true",
		"interim_results":  "true",
		"endpointing":      "300",
		"utterance_end_ms": "1500",
		"encoding":         "linear16",
		"sample_rate":      "16000",
		"channels":         "1",
	} {
		if got := params.Get(key); got != want {
			t.Fatalf("param %s = %q, want %q", key, got, want)
		}
	}

	keywords := params["keywords"]
	if len(keywords) != 2 || keywords[0] != "Dash:2" || keywords[1] != "task:2" {
		t.Fatalf("unexpected keyword boosts: %v", keywords)
	}
}

type tokenSourceFake struct {
	token string
	err   error
}

func (f *tokenSourceFake) Token(context.Context) (string, error) {
	return f.token, f.err
}

type audioSourceFake struct {
	frames  chan []float32
	started bool
	stopped bool
}

func (f *audioSourceFake) Start(context.Context) (<-chan []float32, error) {
	f.started = true
	return f.frames, nil
}

func (f *audioSourceFake) Stop() { f.stopped = true }

func TestStartFailsFastWhenTokenUnavailable(t *testing.T) {
	audio := &audioSourceFake{frames: make(chan []float32)}
	client := NewClient(Config{}, &tokenSourceFake{err: domainUnavailable("issue transcription token")}, audio, transcription.Handlers{})

	err := client.Start(context.Background())
	if !domain.IsKind(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected provider unavailable, got %v", err)
	}
	if audio.started {
		t.Fatal("audio source must not start before the token is issued")
	}
}

func TestDispatchEmitsResultsOnly(t *testing.T) {
	var results []transcription.Result
	client := NewClient(Config{}, &tokenSourceFake{}, &audioSourceFake{}, transcription.Handlers{
		OnResult: func(r transcription.Result) { results = append(results, r) },
	})

	client.dispatch([]byte(`{"type":"Metadata"}`))
	client.dispatch([]byte(`{"type":"Results","is_final":false,"channel":{"alternatives":[{"transcript":"pay rent","confidence":0.8}]}}`))
	client.dispatch([]byte(`{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":"pay rent tomorrow.","confidence":0.95}]}}`))
	client.dispatch([]byte(`{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":"","confidence":0}]}}`))
	client.dispatch([]byte(`not json`))

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Final || results[0].Text != "pay rent" {
		t.Fatalf("unexpected interim result: %+v", results[0])
	}
	if !results[1].Final || results[1].Confidence != 0.95 {
		t.Fatalf("unexpected final result: %+v", results[1])
	}
}

func TestIssuerRequiresCredential(t *testing.T) {
	_, err := NewIssuer("  ").IssueToken(context.Background())
	if !domain.IsKind(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected provider unavailable, got %v", err)
	}

	token, err := NewIssuer("dg-key").IssueToken(context.Background())
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	if token.Token != "dg-key" || token.ExpiresIn != 3600 {
		t.Fatalf("unexpected token: %+v", token)
	}
}
