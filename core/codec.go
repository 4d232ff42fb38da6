package realtime

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/lumenvoice/lumen-core/core/audio"
)

// Outbound wire message kinds.
const (
	wireSessionInit      = "session.init"
	wireInputAudioAppend = "input_audio.append"
	wireInputAudioEnd    = "input_audio.end"
)

// Inbound wire message kinds, discriminated by the "type" field.
const (
	wireSessionCreated    = "session.created"
	wireSpeechStarted     = "speech.started"
	wireSpeechStopped     = "speech.stopped"
	wireTranscriptPartial = "transcript.partial"
	wireTranscriptFinal   = "transcript.final"
	wireAudioOutput       = "audio.output"
	wireError             = "error"
	wireSessionClosed     = "session.closed"
)

// maxFrameAudioBytes caps the raw audio carried per append message;
// oversized chunks are split across frames in production order.
const maxFrameAudioBytes = 32 * 1024

// frameCodec holds the two pure wire mappings: audio chunks to outbound
// envelopes and inbound bytes to a typed envelope. It carries only the
// negotiated encoding and has no side effects.
type frameCodec struct {
	negotiated audio.EncodingInfo
}

type initMessage struct {
	Type     string `json:"type"`
	Model    string `json:"model"`
	Voice    string `json:"voice,omitempty"`
	Modality string `json:"modality"`
	Language string `json:"language,omitempty"`

	PartialResults         bool `json:"partial_results"`
	VoiceActivityDetection bool `json:"vad"`

	AudioFormat string `json:"audio_format"`
	SampleRate  int    `json:"sample_rate"`
	Channels    int    `json:"channels"`
}

type appendMessage struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}

// encodeInit builds the negotiation message sent right after the
// transport opens.
func (c frameCodec) encodeInit(config SessionConfig) ([]byte, error) {
	message, err := json.Marshal(initMessage{
		Type:                   wireSessionInit,
		Model:                  config.Model,
		Voice:                  config.Voice,
		Modality:               string(config.Modality),
		Language:               config.Language,
		PartialResults:         config.PartialResults,
		VoiceActivityDetection: config.VoiceActivityDetection,
		AudioFormat:            config.Encoding.Format.Name(),
		SampleRate:             config.Encoding.SampleRate,
		Channels:               config.Encoding.Channels,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode init message: %w", err)
	}
	return message, nil
}

// encodeAudio turns one chunk into one or more append envelopes,
// preserving production order across the split. Chunks whose encoding does
// not match the negotiated session format are rejected with a FormatError.
func (c frameCodec) encodeAudio(chunk audio.Chunk) ([][]byte, error) {
	if !chunk.Encoding.Equal(c.negotiated) {
		return nil, &FormatError{Want: c.negotiated, Got: chunk.Encoding}
	}
	if len(chunk.Data) == 0 {
		return nil, nil
	}

	frames := make([][]byte, 0, (len(chunk.Data)+maxFrameAudioBytes-1)/maxFrameAudioBytes)
	for offset := 0; offset < len(chunk.Data); offset += maxFrameAudioBytes {
		end := min(offset+maxFrameAudioBytes, len(chunk.Data))

		message, err := json.Marshal(appendMessage{
			Type:  wireInputAudioAppend,
			Audio: base64.StdEncoding.EncodeToString(chunk.Data[offset:end]),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to encode audio frame: %w", err)
		}
		frames = append(frames, message)
	}
	return frames, nil
}

// encodeEnd builds the end-of-input marker.
func (c frameCodec) encodeEnd() ([]byte, error) {
	message, err := json.Marshal(struct {
		Type string `json:"type"`
	}{Type: wireInputAudioEnd})
	if err != nil {
		return nil, fmt.Errorf("failed to encode end message: %w", err)
	}
	return message, nil
}

// envelope is one decoded inbound message: its discriminator plus the raw
// bytes for kind-specific field extraction.
type envelope struct {
	Type string
	Raw  []byte
}

// decodeEnvelope parses inbound bytes into an envelope. A message that is
// not JSON or lacks the "type" discriminator is malformed.
func decodeEnvelope(data []byte) (envelope, error) {
	var header struct {
		Type *string `json:"type"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return envelope{}, &ProtocolError{Reason: fmt.Sprintf("message is not valid JSON: %v", err)}
	}
	if header.Type == nil || *header.Type == "" {
		return envelope{}, &ProtocolError{Reason: "message is missing the type field"}
	}
	return envelope{Type: *header.Type, Raw: data}, nil
}
