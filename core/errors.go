package realtime

import (
	"fmt"

	"github.com/lumenvoice/lumen-core/core/audio"
)

// ConfigurationError reports invalid session or client parameters. It is
// raised before any connection attempt and is never retried automatically.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// ConnectionError reports a transport-level failure. Callers may retry;
// the engine never retries internally.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("connection failed during %s", e.Op)
	}
	return fmt.Sprintf("connection failed during %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// FormatError reports an audio chunk whose encoding does not match the
// session's negotiated format. It is fatal to the offending send only.
type FormatError struct {
	Want audio.EncodingInfo
	Got  audio.EncodingInfo
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("chunk format %s/%dHz/%dch does not match negotiated %s/%dHz/%dch",
		e.Got.Format.Name(), e.Got.SampleRate, e.Got.Channels,
		e.Want.Format.Name(), e.Want.SampleRate, e.Want.Channels)
}

// ProtocolError reports a malformed or, in strict mode, unknown inbound
// message. Fatal to the session.
type ProtocolError struct {
	WireType string
	Reason   string
}

func (e *ProtocolError) Error() string {
	if e.WireType == "" {
		return "protocol violation: " + e.Reason
	}
	return fmt.Sprintf("protocol violation in %q message: %s", e.WireType, e.Reason)
}

// BackpressureError reports that the caller fell too far behind the event
// stream. The session fails closed instead of buffering without bound.
type BackpressureError struct {
	Capacity int
}

func (e *BackpressureError) Error() string {
	return fmt.Sprintf("event consumer too slow: buffer of %d events exhausted", e.Capacity)
}

// InvalidStateError reports an operation attempted in a lifecycle state
// that does not permit it.
type InvalidStateError struct {
	Op    string
	State State
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s in state %s", e.Op, e.State)
}

// SessionError reports an error the remote side raised that terminated the
// session. Recoverable remote errors surface as events only and never
// produce this error.
type SessionError struct {
	Code    string
	Message string
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session failed: %s: %s", e.Code, e.Message)
}
