package events

import "fmt"

const (
	// KindAudioOutput identifies synthesized response audio frames.
	KindAudioOutput Kind = "audio.output"
	// KindSessionError identifies remote-reported session errors.
	KindSessionError Kind = "session.error"
	// KindSessionClosed identifies remote-initiated session termination.
	KindSessionClosed Kind = "session.closed"
	// KindUnclassified identifies inbound kinds the engine does not know.
	KindUnclassified Kind = "unclassified"
)

// AudioOutput carries a synthesized response audio frame. Emitted only by
// speech-to-speech sessions.
type AudioOutput struct {
	Base
	Audio []byte
}

func (e AudioOutput) String() string { return fmt.Sprintf("Audio Output (%d bytes)", len(e.Audio)) }

// NewAudioOutput creates a response audio event.
func NewAudioOutput(audio []byte, sequence uint64) AudioOutput {
	return AudioOutput{Base: NewBase(KindAudioOutput, sequence), Audio: audio}
}

// SessionError carries an error the remote side reported mid-session.
// Non-recoverable errors force the session into its failed state.
type SessionError struct {
	Base
	Code        string
	Message     string
	Recoverable bool
}

func (e SessionError) String() string {
	return fmt.Sprintf("Session Error [%s]: %s", e.Code, e.Message)
}

// NewSessionError creates a remote error event.
func NewSessionError(code, message string, recoverable bool, sequence uint64) SessionError {
	return SessionError{
		Base:        NewBase(KindSessionError, sequence),
		Code:        code,
		Message:     message,
		Recoverable: recoverable,
	}
}

// SessionClosed marks a remote-initiated end of the session.
type SessionClosed struct {
	Base
	Reason string
}

func (e SessionClosed) String() string { return "Session Closed: " + e.Reason }

// NewSessionClosed creates a session closed event.
func NewSessionClosed(reason string, sequence uint64) SessionClosed {
	return SessionClosed{Base: NewBase(KindSessionClosed, sequence), Reason: reason}
}

// Unclassified forwards an inbound message kind the engine does not
// recognize, keeping the session forward compatible in lenient mode.
type Unclassified struct {
	Base
	WireType string
	Payload  []byte
}

func (e Unclassified) String() string { return "Unclassified: " + e.WireType }

// NewUnclassified creates an unclassified event around a raw payload.
func NewUnclassified(wireType string, payload []byte, sequence uint64) Unclassified {
	return Unclassified{Base: NewBase(KindUnclassified, sequence), WireType: wireType, Payload: payload}
}
