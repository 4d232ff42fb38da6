package realtime

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	"github.com/lumenvoice/lumen-core/core/audio"
)

func TestEncodeInitCarriesNegotiationFields(t *testing.T) {
	config := defaultSessionConfig("lumen-live-1", ModalityAudio)
	config.Voice = "ember"
	config.Language = "en"

	codec := frameCodec{negotiated: config.Encoding}
	message, err := codec.encodeInit(config)
	if err != nil {
		t.Fatalf("expected init message to encode, got %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(message, &decoded); err != nil {
		t.Fatalf("expected init message to be JSON, got %v", err)
	}

	if got := decoded["type"]; got != "session.init" {
		t.Fatalf("expected type session.init, got %v", got)
	}
	if got := decoded["model"]; got != "lumen-live-1" {
		t.Fatalf("expected model lumen-live-1, got %v", got)
	}
	if got := decoded["voice"]; got != "ember" {
		t.Fatalf("expected voice ember, got %v", got)
	}
	if got := decoded["modality"]; got != "audio" {
		t.Fatalf("expected modality audio, got %v", got)
	}
	if got := decoded["language"]; got != "en" {
		t.Fatalf("expected language en, got %v", got)
	}
	if got := decoded["audio_format"]; got != "linear16" {
		t.Fatalf("expected audio_format linear16, got %v", got)
	}
	if got := decoded["sample_rate"]; got != float64(audio.DefaultSampleRate) {
		t.Fatalf("expected sample_rate %d, got %v", audio.DefaultSampleRate, got)
	}
	if got := decoded["partial_results"]; got != true {
		t.Fatalf("expected partial_results true, got %v", got)
	}
	if got := decoded["vad"]; got != true {
		t.Fatalf("expected vad true, got %v", got)
	}
}

func TestEncodeAudioWrapsChunkInBase64(t *testing.T) {
	encoding := audio.GetDefaultEncodingInfo()
	codec := frameCodec{negotiated: encoding}

	payload := []byte{0x01, 0x02, 0x03, 0x04}
	frames, err := codec.encodeAudio(audio.NewChunk(payload, encoding))
	if err != nil {
		t.Fatalf("expected chunk to encode, got %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("expected a single frame, got %d", len(frames))
	}

	var decoded struct {
		Type  string `json:"type"`
		Audio string `json:"audio"`
	}
	if err := json.Unmarshal(frames[0], &decoded); err != nil {
		t.Fatalf("expected frame to be JSON, got %v", err)
	}
	if decoded.Type != "input_audio.append" {
		t.Fatalf("expected type input_audio.append, got %q", decoded.Type)
	}
	if decoded.Audio != base64.StdEncoding.EncodeToString(payload) {
		t.Fatalf("expected audio payload to round-trip, got %q", decoded.Audio)
	}
}

func TestEncodeAudioSplitsLargeChunksInOrder(t *testing.T) {
	encoding := audio.GetDefaultEncodingInfo()
	codec := frameCodec{negotiated: encoding}

	payload := make([]byte, maxFrameAudioBytes+100)
	for i := range payload {
		payload[i] = byte(i)
	}

	frames, err := codec.encodeAudio(audio.NewChunk(payload, encoding))
	if err != nil {
		t.Fatalf("expected chunk to encode, got %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("expected the chunk split across 2 frames, got %d", len(frames))
	}

	var reassembled []byte
	for _, frame := range frames {
		var decoded struct {
			Audio string `json:"audio"`
		}
		if err := json.Unmarshal(frame, &decoded); err != nil {
			t.Fatalf("expected frame to be JSON, got %v", err)
		}
		data, err := base64.StdEncoding.DecodeString(decoded.Audio)
		if err != nil {
			t.Fatalf("expected frame audio to be base64, got %v", err)
		}
		reassembled = append(reassembled, data...)
	}

	if !bytes.Equal(reassembled, payload) {
		t.Fatalf("expected frames to reassemble into the original payload")
	}
}

func TestEncodeAudioRejectsMismatchedEncoding(t *testing.T) {
	codec := frameCodec{negotiated: audio.GetDefaultEncodingInfo()}

	chunk := audio.NewChunk([]byte{1, 2}, audio.EncodingInfo{
		SampleRate: 8000,
		Channels:   1,
		Format:     audio.EncodingMulaw,
	})
	_, err := codec.encodeAudio(chunk)

	var formatErr *FormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("expected a FormatError, got %v", err)
	}
}

func TestEncodeAudioEmptyChunkProducesNoFrames(t *testing.T) {
	encoding := audio.GetDefaultEncodingInfo()
	codec := frameCodec{negotiated: encoding}

	frames, err := codec.encodeAudio(audio.NewChunk(nil, encoding))
	if err != nil {
		t.Fatalf("expected empty chunk to be accepted, got %v", err)
	}
	if len(frames) != 0 {
		t.Fatalf("expected no frames for an empty chunk, got %d", len(frames))
	}
}

func TestDecodeEnvelopeRejectsMalformedMessages(t *testing.T) {
	for name, message := range map[string]string{
		"not json":     "hello",
		"missing type": `{"text":"hi"}`,
		"empty type":   `{"type":""}`,
	} {
		_, err := decodeEnvelope([]byte(message))
		var protocolErr *ProtocolError
		if !errors.As(err, &protocolErr) {
			t.Fatalf("%s: expected a ProtocolError, got %v", name, err)
		}
	}
}

func TestDecodeEnvelopeKeepsRawPayload(t *testing.T) {
	message := []byte(`{"type":"transcript.final","text":"hello"}`)
	env, err := decodeEnvelope(message)
	if err != nil {
		t.Fatalf("expected envelope to decode, got %v", err)
	}
	if env.Type != "transcript.final" {
		t.Fatalf("expected type transcript.final, got %q", env.Type)
	}
	if !bytes.Equal(env.Raw, message) {
		t.Fatalf("expected raw payload preserved")
	}
}
