// Package events defines the typed event contract emitted by a realtime
// speech session.
//
// Events form a closed tagged set dispatched by exhaustive type switches,
// with [Unclassified] as the forward-compatibility escape hatch for event
// kinds the engine does not recognize.
//
// Semantics used across the package:
//
//   - Partial: an in-progress, revisable text hypothesis for the current
//     utterance.
//   - Final: the closed, non-revisable text for a completed utterance.
//   - Sequence: a per-session monotonically increasing counter stamped at
//     emission time; consumers observe events in non-decreasing sequence
//     order, never reordered.
//
// Event kinds:
//
//   - SpeechStarted (speech.started): voice activity began.
//   - SpeechStopped (speech.stopped): voice activity ended.
//   - TranscriptPartial (transcript.partial): revisable utterance text.
//   - TranscriptFinal (transcript.final): terminal utterance text.
//   - AudioOutput (audio.output): synthesized response audio, only on
//     speech-to-speech sessions.
//   - SessionError (session.error): remote-reported error; carries a
//     recoverable flag.
//   - SessionClosed (session.closed): remote ended the session.
//   - Unclassified (unclassified): unknown inbound kind, forwarded with
//     its raw payload.
package events
