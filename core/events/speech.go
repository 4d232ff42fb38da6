package events

const (
	// KindSpeechStarted identifies the start of detected voice activity.
	KindSpeechStarted Kind = "speech.started"
	// KindSpeechStopped identifies the end of detected voice activity.
	KindSpeechStopped Kind = "speech.stopped"
)

// SpeechStarted marks a voice activity boundary: speech began.
type SpeechStarted struct{ Base }

func (e SpeechStarted) String() string { return "Speech Started" }

// NewSpeechStarted creates a speech started event.
func NewSpeechStarted(sequence uint64) SpeechStarted {
	return SpeechStarted{Base: NewBase(KindSpeechStarted, sequence)}
}

// SpeechStopped marks a voice activity boundary: speech ended.
type SpeechStopped struct{ Base }

func (e SpeechStopped) String() string { return "Speech Stopped" }

// NewSpeechStopped creates a speech stopped event.
func NewSpeechStopped(sequence uint64) SpeechStopped {
	return SpeechStopped{Base: NewBase(KindSpeechStopped, sequence)}
}
