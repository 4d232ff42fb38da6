package deepgram

import "github.com/lumenvoice/lumen-core/core/speechtotext"

type transcriptionCallbacks struct {
	partialTranscriptCallback func(transcript string)
	finalTranscriptCallback   func(transcript string)
	startSpeechCallback       func()
	endSpeechCallback         func()
}

type websocketConfig struct {
	shouldDetectSpeechStart            bool
	shouldEnhanceSpeechEndingDetection bool
	shouldRequestInterimResults        bool
}

// newCallbackConfig normalizes the caller's options into always-callable
// callbacks and the matching websocket feature flags, so the message loop
// never has to nil-check.
func newCallbackConfig(options speechtotext.TranscriptionOptions) (transcriptionCallbacks, websocketConfig) {
	callbacks := transcriptionCallbacks{
		partialTranscriptCallback: func(string) {},
		finalTranscriptCallback:   func(string) {},
		startSpeechCallback:       func() {},
		endSpeechCallback:         func() {},
	}
	config := websocketConfig{
		shouldDetectSpeechStart: options.SpeechStartedCallback != nil,
		shouldEnhanceSpeechEndingDetection: options.FinalTranscriptCallback != nil ||
			options.SpeechStoppedCallback != nil,
		shouldRequestInterimResults: options.PartialTranscriptCallback != nil,
	}

	if options.PartialTranscriptCallback != nil {
		callbacks.partialTranscriptCallback = options.PartialTranscriptCallback
	}
	if options.FinalTranscriptCallback != nil {
		callbacks.finalTranscriptCallback = options.FinalTranscriptCallback
	}
	if options.SpeechStartedCallback != nil {
		callbacks.startSpeechCallback = options.SpeechStartedCallback
	}
	if options.SpeechStoppedCallback != nil {
		callbacks.endSpeechCallback = options.SpeechStoppedCallback
	}

	return callbacks, config
}
