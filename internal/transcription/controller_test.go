package transcription

import (
	"context"
	"errors"
	"testing"
)

type sourceFake struct {
	handlers Handlers
	startErr error
	started  bool
	stopped  bool
}

func (f *sourceFake) Start(context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.started = true
	return nil
}

func (f *sourceFake) Stop() {
	f.stopped = true
	f.handlers.end()
}

func factoryFor(fake *sourceFake) SourceFactory {
	return func(h Handlers) Source {
		fake.handlers = h
		return fake
	}
}

func TestAccumulatorFinalAndInterim(t *testing.T) {
	acc := NewAccumulator()

	acc.ReplaceInterim("remind me")
	if acc.Current() != "remind me" {
		t.Fatalf("interim not visible: %q", acc.Current())
	}

	acc.ReplaceInterim("remind me to pay")
	acc.AppendFinal("remind me to pay rent.")
	if acc.Current() != "remind me to pay rent." {
		t.Fatalf("final must clear interim: %q", acc.Current())
	}

	acc.ReplaceInterim("and call")
	if acc.Current() != "remind me to pay rent. and call" {
		t.Fatalf("unexpected transcript: %q", acc.Current())
	}

	acc.AppendFinal("and call mom.")
	if acc.Finalized() != "remind me to pay rent. and call mom." {
		t.Fatalf("unexpected finalized: %q", acc.Finalized())
	}

	acc.Reset()
	if acc.Current() != "" {
		t.Fatalf("reset left text: %q", acc.Current())
	}
}

func TestStartRecordingPrefersCloud(t *testing.T) {
	cloud := &sourceFake{}
	local := &sourceFake{}
	ctl := NewController(Config{
		Cloud:          factoryFor(cloud),
		Local:          factoryFor(local),
		LocalSupported: func() bool { return true },
	})

	if err := ctl.StartRecording(context.Background()); err != nil {
		t.Fatalf("StartRecording() error = %v", err)
	}
	if !cloud.started || local.started {
		t.Fatalf("expected cloud session, cloud=%v local=%v", cloud.started, local.started)
	}
	if !ctl.Recording() || ctl.SourceLabel() != SourceCloud {
		t.Fatalf("bad state: recording=%v source=%s", ctl.Recording(), ctl.SourceLabel())
	}
	if _, ok := ctl.StartedAt(); !ok {
		t.Fatal("expected start timestamp")
	}
}

func TestStartRecordingFallsBackToLocalWithNotice(t *testing.T) {
	cloud := &sourceFake{startErr: errors.New("token endpoint down")}
	local := &sourceFake{}
	var notices []string
	ctl := NewController(Config{
		Cloud:          factoryFor(cloud),
		Local:          factoryFor(local),
		LocalSupported: func() bool { return true },
		OnNotice:       func(msg string) { notices = append(notices, msg) },
	})

	if err := ctl.StartRecording(context.Background()); err != nil {
		t.Fatalf("StartRecording() error = %v", err)
	}
	if !local.started {
		t.Fatal("expected local fallback session")
	}
	if ctl.SourceLabel() != SourceLocal {
		t.Fatalf("expected local source, got %s", ctl.SourceLabel())
	}
	if len(notices) != 1 {
		t.Fatalf("expected 1 advisory notice, got %v", notices)
	}
}

func TestStartRecordingFatalWhenNothingAvailable(t *testing.T) {
	cloud := &sourceFake{startErr: errors.New("token endpoint down")}
	ctl := NewController(Config{
		Cloud:          factoryFor(cloud),
		Local:          factoryFor(&sourceFake{}),
		LocalSupported: func() bool { return false },
	})

	err := ctl.StartRecording(context.Background())
	if !errors.Is(err, ErrNoRecognition) {
		t.Fatalf("expected ErrNoRecognition, got %v", err)
	}
	if ctl.Recording() {
		t.Fatal("controller must stay idle")
	}
}

type blockingSource struct {
	handlers Handlers
	entered  chan struct{}
	release  chan struct{}
}

func (s *blockingSource) Start(context.Context) error {
	close(s.entered)
	<-s.release
	return nil
}

func (s *blockingSource) Stop() { s.handlers.end() }

func TestStartRecordingWhileStartInFlightIsNoOp(t *testing.T) {
	source := &blockingSource{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	starts := 0
	ctl := NewController(Config{
		Cloud: func(h Handlers) Source {
			starts++
			source.handlers = h
			return source
		},
	})

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- ctl.StartRecording(context.Background())
	}()
	<-source.entered

	if err := ctl.StartRecording(context.Background()); err != nil {
		t.Fatalf("second StartRecording() error = %v", err)
	}
	if starts != 1 {
		t.Fatalf("expected a single session, got %d", starts)
	}

	close(source.release)
	if err := <-firstDone; err != nil {
		t.Fatalf("first StartRecording() error = %v", err)
	}
	if !ctl.Recording() || ctl.SourceLabel() != SourceCloud {
		t.Fatalf("bad state: recording=%v source=%s", ctl.Recording(), ctl.SourceLabel())
	}
}

func TestStopRecordingIsIdempotentAndReportsTranscript(t *testing.T) {
	cloud := &sourceFake{}
	var finals []string
	ctl := NewController(Config{
		Cloud:             factoryFor(cloud),
		OnFinalTranscript: func(text string) { finals = append(finals, text) },
	})

	if err := ctl.StartRecording(context.Background()); err != nil {
		t.Fatalf("StartRecording() error = %v", err)
	}
	cloud.handlers.result(Result{Text: "pay rent", Final: false})
	cloud.handlers.result(Result{Text: "pay rent tomorrow.", Final: true})

	ctl.StopRecording()
	ctl.StopRecording()

	if ctl.Recording() {
		t.Fatal("expected idle after stop")
	}
	if len(finals) != 1 || finals[0] != "pay rent tomorrow." {
		t.Fatalf("expected one final transcript, got %v", finals)
	}
}

func TestSessionEndWithoutFinalTextReportsNothing(t *testing.T) {
	cloud := &sourceFake{}
	var finals []string
	ctl := NewController(Config{
		Cloud:             factoryFor(cloud),
		OnFinalTranscript: func(text string) { finals = append(finals, text) },
	})

	if err := ctl.StartRecording(context.Background()); err != nil {
		t.Fatalf("StartRecording() error = %v", err)
	}
	cloud.handlers.result(Result{Text: "half a tho", Final: false})
	cloud.handlers.end()

	if len(finals) != 0 {
		t.Fatalf("interim-only session must not report a transcript: %v", finals)
	}
}

func TestClearTranscriptKeepsRecordingState(t *testing.T) {
	cloud := &sourceFake{}
	ctl := NewController(Config{Cloud: factoryFor(cloud)})

	if err := ctl.StartRecording(context.Background()); err != nil {
		t.Fatalf("StartRecording() error = %v", err)
	}
	cloud.handlers.result(Result{Text: "first utterance.", Final: true})

	ctl.ClearTranscript()
	if ctl.Transcript() != "" {
		t.Fatalf("transcript not cleared: %q", ctl.Transcript())
	}
	if !ctl.Recording() {
		t.Fatal("clear must not stop the session")
	}
}
