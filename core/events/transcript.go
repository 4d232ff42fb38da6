package events

const (
	// KindTranscriptPartial identifies revisable in-progress utterance text.
	KindTranscriptPartial Kind = "transcript.partial"
	// KindTranscriptFinal identifies terminal text for a completed utterance.
	KindTranscriptFinal Kind = "transcript.final"
)

// TranscriptPartial carries an in-progress, revisable text hypothesis.
type TranscriptPartial struct {
	Base
	Text string
}

func (e TranscriptPartial) String() string { return e.Text + "..." }

// IsFinal reports whether the transcript can still be revised.
func (e TranscriptPartial) IsFinal() bool { return false }

// NewTranscriptPartial creates a partial transcript event.
func NewTranscriptPartial(text string, sequence uint64) TranscriptPartial {
	return TranscriptPartial{Base: NewBase(KindTranscriptPartial, sequence), Text: text}
}

// TranscriptFinal carries the closed text for a completed utterance.
type TranscriptFinal struct {
	Base
	Text string
}

func (e TranscriptFinal) String() string { return e.Text }

// IsFinal reports whether the transcript can still be revised.
func (e TranscriptFinal) IsFinal() bool { return true }

// NewTranscriptFinal creates a final transcript event.
func NewTranscriptFinal(text string, sequence uint64) TranscriptFinal {
	return TranscriptFinal{Base: NewBase(KindTranscriptFinal, sequence), Text: text}
}
