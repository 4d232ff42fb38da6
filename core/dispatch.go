package realtime

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"

	"github.com/lumenvoice/lumen-core/core/events"
)

// dispatcher classifies decoded envelopes into the closed event set. It
// owns sequence stamping: every emitted event carries the counter value
// taken at classification time, so delivery order equals receipt order.
type dispatcher struct {
	mode   sessionMode
	strict bool
}

// dispatch maps one envelope to at most one event. A nil event with a nil
// error means the message was absorbed (acknowledgments, duplicates, and
// out-of-modality audio in lenient mode). A non-nil error is fatal to the
// session.
func (d dispatcher) dispatch(env envelope, sequence uint64) (events.Event, error) {
	if d.strict {
		if err := validateEnvelope(env.Raw); err != nil {
			return nil, err
		}
	}

	switch env.Type {
	case wireSessionCreated:
		// Acknowledgment handling belongs to the connect handshake; a
		// duplicate mid-stream is absorbed.
		return nil, nil

	case wireSpeechStarted:
		return events.NewSpeechStarted(sequence), nil

	case wireSpeechStopped:
		return events.NewSpeechStopped(sequence), nil

	case wireTranscriptPartial:
		text, err := requiredString(env, "text")
		if err != nil {
			return nil, err
		}
		return events.NewTranscriptPartial(text, sequence), nil

	case wireTranscriptFinal:
		text, err := requiredString(env, "text")
		if err != nil {
			return nil, err
		}
		return events.NewTranscriptFinal(text, sequence), nil

	case wireAudioOutput:
		if d.mode == modeTranscription {
			if d.strict {
				return nil, &ProtocolError{WireType: env.Type, Reason: "audio output on a transcription-only session"}
			}
			log.Printf("Dropping audio output received on a transcription-only session")
			return nil, nil
		}
		encoded, err := requiredString(env, "audio")
		if err != nil {
			return nil, err
		}
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, &ProtocolError{WireType: env.Type, Reason: fmt.Sprintf("audio payload is not valid base64: %v", err)}
		}
		return events.NewAudioOutput(decoded, sequence), nil

	case wireError:
		var body struct {
			Code        *string `json:"code"`
			Message     *string `json:"message"`
			Recoverable bool    `json:"recoverable"`
		}
		if err := json.Unmarshal(env.Raw, &body); err != nil || body.Code == nil || body.Message == nil {
			return nil, &ProtocolError{WireType: env.Type, Reason: "error message is missing code or message"}
		}
		return events.NewSessionError(*body.Code, *body.Message, body.Recoverable, sequence), nil

	case wireSessionClosed:
		var body struct {
			Reason string `json:"reason"`
		}
		// Reason is optional; decode failures were already caught by the
		// envelope parse.
		_ = json.Unmarshal(env.Raw, &body)
		return events.NewSessionClosed(body.Reason, sequence), nil
	}

	if d.strict {
		return nil, &ProtocolError{WireType: env.Type, Reason: "unknown message type"}
	}
	return events.NewUnclassified(env.Type, env.Raw, sequence), nil
}

// requiredString extracts a mandatory string field; its absence makes the
// message malformed regardless of mode.
func requiredString(env envelope, field string) (string, error) {
	var body map[string]json.RawMessage
	if err := json.Unmarshal(env.Raw, &body); err != nil {
		return "", &ProtocolError{WireType: env.Type, Reason: fmt.Sprintf("message body is not an object: %v", err)}
	}

	raw, ok := body[field]
	if !ok {
		return "", &ProtocolError{WireType: env.Type, Reason: fmt.Sprintf("missing required field %q", field)}
	}

	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", &ProtocolError{WireType: env.Type, Reason: fmt.Sprintf("field %q is not a string", field)}
	}
	return value, nil
}
