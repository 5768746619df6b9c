package transcription

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

const (
	SourceCloud = "cloud"
	SourceLocal = "local"
)

// ErrNoRecognition means neither the cloud nor the local backend could start
// a session. The controller stays idle.
var ErrNoRecognition = errors.New("no speech recognition available")

// Config wires the controller to its backends and listeners. Cloud is tried
// first; Local is the fallback when LocalSupported reports capability.
type Config struct {
	Cloud          SourceFactory
	Local          SourceFactory
	LocalSupported func() bool

	// OnFinalTranscript receives the finalized transcript when a session
	// ends with non-empty finalized text.
	OnFinalTranscript func(string)
	// OnNotice receives advisory, non-fatal messages such as the
	// cloud-to-local fallback note.
	OnNotice func(string)
}

// Controller owns the idle/recording state machine of a capture session.
type Controller struct {
	cfg Config
	acc *Accumulator

	mu        sync.Mutex
	recording bool
	starting  bool
	active    Source
	source    string
	startedAt time.Time
}

func NewController(cfg Config) *Controller {
	return &Controller{
		cfg: cfg,
		acc: NewAccumulator(),
	}
}

// StartRecording resets the accumulators and starts a session, cloud first.
// A cloud start failure falls back to the local backend with an advisory
// notice. Starting while already recording or while another start is in
// flight is a no-op, so at most one source is ever active.
func (c *Controller) StartRecording(ctx context.Context) error {
	c.mu.Lock()
	if c.recording || c.starting {
		c.mu.Unlock()
		return nil
	}
	c.starting = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.starting = false
		c.mu.Unlock()
	}()

	c.acc.Reset()
	handlers := c.sessionHandlers()

	if c.cfg.Cloud != nil {
		source := c.cfg.Cloud(handlers)
		if err := source.Start(ctx); err == nil {
			c.begin(source, SourceCloud)
			return nil
		} else {
			slog.Warn("cloud_transcription_start_failed", "error", err)
		}
	}

	if c.cfg.Local != nil && c.cfg.LocalSupported != nil && c.cfg.LocalSupported() {
		source := c.cfg.Local(handlers)
		if err := source.Start(ctx); err == nil {
			c.notice("using local speech recognition (cloud transcription unavailable)")
			c.begin(source, SourceLocal)
			return nil
		} else {
			slog.Warn("local_transcription_start_failed", "error", err)
		}
	}

	return ErrNoRecognition
}

// StopRecording stops the active source. Idempotent; the idle transition
// itself happens when the source signals end.
func (c *Controller) StopRecording() {
	c.mu.Lock()
	active := c.active
	c.mu.Unlock()
	if active != nil {
		active.Stop()
	}
}

// ClearTranscript resets both buffers without touching recording state, so a
// new utterance starts clean while the previous one is still being
// classified.
func (c *Controller) ClearTranscript() {
	c.acc.Reset()
}

func (c *Controller) Transcript() string {
	return c.acc.Current()
}

func (c *Controller) Recording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recording
}

// SourceLabel is the backend of the current or last session.
func (c *Controller) SourceLabel() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.source
}

func (c *Controller) StartedAt() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startedAt, c.recording
}

func (c *Controller) begin(source Source, label string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recording = true
	c.active = source
	c.source = label
	c.startedAt = time.Now().UTC()
}

func (c *Controller) sessionHandlers() Handlers {
	return Handlers{
		OnResult: func(r Result) {
			if r.Final {
				c.acc.AppendFinal(r.Text)
			} else {
				c.acc.ReplaceInterim(r.Text)
			}
		},
		OnError: func(err error) {
			slog.Warn("transcription_error", "source", c.SourceLabel(), "error", err)
		},
		OnEnd: c.handleEnd,
	}
}

func (c *Controller) handleEnd() {
	c.mu.Lock()
	wasRecording := c.recording
	c.recording = false
	c.active = nil
	c.startedAt = time.Time{}
	c.mu.Unlock()

	if !wasRecording {
		return
	}
	if final := c.acc.Finalized(); final != "" && c.cfg.OnFinalTranscript != nil {
		c.cfg.OnFinalTranscript(final)
	}
}

func (c *Controller) notice(msg string) {
	if c.cfg.OnNotice != nil {
		c.cfg.OnNotice(msg)
	}
}
