package transcription

import (
	"strings"
	"sync"
)

// Accumulator holds the two transcript buffers of a recording session:
// finalized text grows on every final fragment, interim text is replaced
// wholesale by every non-final fragment and cleared by every final one.
type Accumulator struct {
	mu        sync.Mutex
	finalized strings.Builder
	interim   string
}

func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

func (a *Accumulator) AppendFinal(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.finalized.Len() > 0 {
		a.finalized.WriteByte(' ')
	}
	a.finalized.WriteString(text)
	a.interim = ""
}

func (a *Accumulator) ReplaceInterim(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.interim = strings.TrimSpace(text)
}

// Current is the externally visible transcript: finalized plus interim.
func (a *Accumulator) Current() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.interim == "" {
		return a.finalized.String()
	}
	if a.finalized.Len() == 0 {
		return a.interim
	}
	return a.finalized.String() + " " + a.interim
}

func (a *Accumulator) Finalized() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.finalized.String()
}

func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.finalized.Reset()
	a.interim = ""
}
