// Package local adapts an on-device recognition engine to the transcription
// Source contract. No network credential is needed; availability is a
// capability probe on the host platform.
package local

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kirillkom/dash-voice/internal/transcription"
)

const defaultLanguage = "en-US"

// ErrAborted is reported by engines when a session is cancelled on purpose.
// It marks an intentional stop and is never surfaced to the user.
var ErrAborted = errors.New("recognition aborted")

// Options configures a recognition session.
type Options struct {
	Language       string
	Continuous     bool
	InterimResults bool
}

// Session is one in-flight recognition run. Abort cancels it without
// delivering further results; Stop lets buffered results flush first.
type Session interface {
	Stop()
	Abort()
}

// Engine is the platform recognition backend.
type Engine interface {
	Available() bool
	Open(opts Options, handlers transcription.Handlers) (Session, error)
}

// Recognizer is the local transcription.Source.
type Recognizer struct {
	engine   Engine
	language string
	handlers transcription.Handlers

	mu      sync.Mutex
	session Session
}

func NewRecognizer(engine Engine, language string, handlers transcription.Handlers) *Recognizer {
	if language == "" {
		language = defaultLanguage
	}
	return &Recognizer{
		engine:   engine,
		language: language,
		handlers: handlers,
	}
}

// Supported probes platform capability without opening a session.
func (r *Recognizer) Supported() bool {
	return r.engine != nil && r.engine.Available()
}

// Start aborts any prior in-flight session, then opens a continuous session
// with interim results.
func (r *Recognizer) Start(_ context.Context) error {
	if !r.Supported() {
		return errors.New("local recognition not available")
	}

	r.mu.Lock()
	if r.session != nil {
		r.session.Abort()
		r.session = nil
	}
	r.mu.Unlock()

	session, err := r.engine.Open(Options{
		Language:       r.language,
		Continuous:     true,
		InterimResults: true,
	}, r.filteredHandlers())
	if err != nil {
		return fmt.Errorf("open recognition session: %w", err)
	}

	r.mu.Lock()
	r.session = session
	r.mu.Unlock()
	return nil
}

func (r *Recognizer) Stop() {
	r.mu.Lock()
	session := r.session
	r.session = nil
	r.mu.Unlock()
	if session != nil {
		session.Stop()
	}
}

// filteredHandlers suppresses the abort error that our own Start/Stop paths
// trigger; every other engine error passes through.
func (r *Recognizer) filteredHandlers() transcription.Handlers {
	h := r.handlers
	wrapped := h
	wrapped.OnError = func(err error) {
		if errors.Is(err, ErrAborted) {
			return
		}
		if h.OnError != nil {
			h.OnError(err)
		}
	}
	return wrapped
}
