// Package transcripts provides derived transcript state built from session
// events. Nothing here is persisted.
package transcripts

import (
	"strings"
	"sync"

	"github.com/lumenvoice/lumen-core/core/events"
)

// Accumulator concatenates partial transcripts for the current utterance.
// It resets when the utterance completes or a new one begins, mirroring the
// event stream's voice activity boundaries.
type Accumulator struct {
	mu      sync.Mutex
	current string
}

// Observe folds one session event into the accumulator. It returns the
// completed utterance text and true when event closes an utterance.
func (a *Accumulator) Observe(event events.Event) (utterance string, completed bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch typedEvent := event.(type) {
	case events.SpeechStarted:
		a.current = ""
	case events.TranscriptPartial:
		// Partials arrive as deltas extending the current utterance.
		a.current += typedEvent.Text
	case events.TranscriptFinal:
		utterance = typedEvent.Text
		if strings.TrimSpace(utterance) == "" {
			utterance = strings.TrimSpace(a.current)
		}
		a.current = ""
		return utterance, true
	}

	return "", false
}

// Current is the in-progress utterance text observed so far.
func (a *Accumulator) Current() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// Reset clears any in-progress utterance.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	a.current = ""
	a.mu.Unlock()
}
