package realtime

import (
	"strings"
	"time"

	"github.com/lumenvoice/lumen-core/core/audio"
)

// Modality is the output surface a session negotiates.
type Modality string

const (
	// ModalityText yields transcripts only.
	ModalityText Modality = "text"
	// ModalityAudio yields transcripts and synthesized response audio.
	ModalityAudio Modality = "audio"
)

const (
	defaultEventBufferCapacity = 256
	defaultAckTimeout          = 10 * time.Second
	defaultIdleWarnAfter       = 30 * time.Second
)

// SessionConfig is the full parameter surface negotiated for one session.
// It is validated by the client before any dial and is immutable for the
// session's lifetime.
type SessionConfig struct {
	Model    string
	Voice    string
	Modality Modality
	// Language is a hint forwarded to the remote recognizer, e.g. "en".
	Language string

	PartialResults         bool
	VoiceActivityDetection bool

	// Strict fails the session on unknown or schema-invalid inbound
	// messages instead of forwarding them as unclassified events.
	Strict bool

	Encoding audio.EncodingInfo

	// EventBufferCapacity bounds undelivered events before the session
	// fails with a BackpressureError.
	EventBufferCapacity int
	// AckTimeout bounds the wait for the server acknowledgment after the
	// transport opens.
	AckTimeout time.Duration
	// IdleWarnAfter is how long a streaming session may stay silent before
	// a recoverable warning is logged.
	IdleWarnAfter time.Duration
}

func defaultSessionConfig(model string, modality Modality) SessionConfig {
	return SessionConfig{
		Model:                  model,
		Modality:               modality,
		PartialResults:         true,
		VoiceActivityDetection: true,
		Encoding:               audio.GetDefaultEncodingInfo(),
		EventBufferCapacity:    defaultEventBufferCapacity,
		AckTimeout:             defaultAckTimeout,
		IdleWarnAfter:          defaultIdleWarnAfter,
	}
}

func (c *SessionConfig) validate() error {
	if strings.TrimSpace(c.Model) == "" {
		return &ConfigurationError{Field: "model", Reason: "model identifier is required"}
	}
	if c.Modality != ModalityText && c.Modality != ModalityAudio {
		return &ConfigurationError{Field: "modality", Reason: "must be text or audio"}
	}
	if c.Modality == ModalityAudio && strings.TrimSpace(c.Voice) == "" {
		return &ConfigurationError{Field: "voice", Reason: "voice identifier is required for audio sessions"}
	}
	if c.Modality == ModalityText && c.Voice != "" {
		return &ConfigurationError{Field: "voice", Reason: "transcription sessions do not take a voice"}
	}
	if c.Encoding.IsZero() {
		return &ConfigurationError{Field: "encoding", Reason: "audio encoding is required"}
	}
	if c.Encoding.Format.ByteSize() <= 0 {
		return &ConfigurationError{Field: "encoding", Reason: "unsupported audio format " + c.Encoding.Format.Name()}
	}
	if c.EventBufferCapacity <= 0 {
		return &ConfigurationError{Field: "event buffer capacity", Reason: "must be positive"}
	}
	if c.AckTimeout <= 0 {
		return &ConfigurationError{Field: "ack timeout", Reason: "must be positive"}
	}
	return nil
}

// SessionOption tunes a session before it connects.
type SessionOption func(*SessionConfig)

// WithLanguage sets the language hint forwarded at negotiation.
func WithLanguage(language string) SessionOption {
	return func(c *SessionConfig) { c.Language = language }
}

// WithEncoding overrides the default input audio encoding.
func WithEncoding(encoding audio.EncodingInfo) SessionOption {
	return func(c *SessionConfig) { c.Encoding = encoding }
}

// WithoutPartialResults suppresses revisable transcript hypotheses; only
// final transcripts are delivered.
func WithoutPartialResults() SessionOption {
	return func(c *SessionConfig) { c.PartialResults = false }
}

// WithoutVoiceActivityDetection disables server-side speech boundary
// detection.
func WithoutVoiceActivityDetection() SessionOption {
	return func(c *SessionConfig) { c.VoiceActivityDetection = false }
}

// WithStrictMode fails the session on unknown or malformed inbound
// messages instead of tolerating them.
func WithStrictMode() SessionOption {
	return func(c *SessionConfig) { c.Strict = true }
}

// WithEventBufferCapacity bounds how many undelivered events the session
// holds before failing with a BackpressureError.
func WithEventBufferCapacity(capacity int) SessionOption {
	return func(c *SessionConfig) { c.EventBufferCapacity = capacity }
}

// WithAckTimeout bounds the post-dial wait for the server acknowledgment.
func WithAckTimeout(timeout time.Duration) SessionOption {
	return func(c *SessionConfig) { c.AckTimeout = timeout }
}
