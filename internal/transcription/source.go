// Package transcription turns live audio into transcripts. A recording
// session runs one Source at a time, preferring the cloud backend and falling
// back to on-device recognition.
package transcription

import "context"

// Result is one recognized fragment. Interim fragments replace each other
// until a final fragment closes the utterance. Confidence is only populated
// by the cloud backend.
type Result struct {
	Text       string
	Final      bool
	Confidence float64
}

// Handlers receives session events. Callbacks may be invoked from the
// source's internal goroutines; nil callbacks are skipped.
type Handlers struct {
	OnResult func(Result)
	OnError  func(error)
	OnEnd    func()
}

func (h Handlers) result(r Result) {
	if h.OnResult != nil {
		h.OnResult(r)
	}
}

func (h Handlers) fail(err error) {
	if h.OnError != nil {
		h.OnError(err)
	}
}

func (h Handlers) end() {
	if h.OnEnd != nil {
		h.OnEnd()
	}
}

// Source is a live transcription session. Start returns once the session is
// established; results arrive through Handlers until OnEnd fires. Stop is
// safe to call more than once.
type Source interface {
	Start(ctx context.Context) error
	Stop()
}

// SourceFactory binds a Source to the session's event handlers.
type SourceFactory func(Handlers) Source
