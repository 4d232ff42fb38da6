// Package speechtotext defines the option surface shared by streaming
// transcription backends.
package speechtotext

import "github.com/lumenvoice/lumen-core/core/audio"

type TranscriptionOptions struct {
	PartialTranscriptCallback func(transcript string)
	FinalTranscriptCallback   func(transcript string)

	SpeechStartedCallback func()
	SpeechStoppedCallback func()

	Model    string
	Language string

	EncodingInfo audio.EncodingInfo
}

type TranscriptionOption func(*TranscriptionOptions)

func WithPartialTranscriptCallback(callback func(transcript string)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.PartialTranscriptCallback = callback
	}
}

func WithFinalTranscriptCallback(callback func(transcript string)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.FinalTranscriptCallback = callback
	}
}

func WithSpeechStartedCallback(callback func()) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.SpeechStartedCallback = callback
	}
}

func WithSpeechStoppedCallback(callback func()) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.SpeechStoppedCallback = callback
	}
}

func WithModel(model string) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.Model = model
	}
}

func WithLanguage(language string) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.Language = language
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.EncodingInfo = encodingInfo
	}
}
