package realtime

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lumenvoice/lumen-core/core/audio"
	"github.com/lumenvoice/lumen-core/core/events"
)

var testUpgrader = websocket.Upgrader{}

// newTestClient runs handler as the remote side of every session the
// returned client opens.
func newTestClient(t *testing.T, handler func(conn *websocket.Conn)) *Client {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("failed to upgrade test connection: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(
		WithAPIKey("test-key"),
		WithEndpoint("ws"+strings.TrimPrefix(server.URL, "http")),
	)
	if err != nil {
		t.Fatalf("failed to build test client: %v", err)
	}
	return client
}

func readWireMessage(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	_, message, err := conn.ReadMessage()
	if err != nil {
		t.Errorf("failed to read client message: %v", err)
		return nil
	}
	var decoded map[string]any
	if err := json.Unmarshal(message, &decoded); err != nil {
		t.Errorf("client message is not JSON: %v", err)
		return nil
	}
	return decoded
}

func acknowledge(conn *websocket.Conn) {
	_ = conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"session.created","session":{"id":"srv-42"}}`))
}

func sendWire(conn *websocket.Conn, message string) {
	_ = conn.WriteMessage(websocket.TextMessage, []byte(message))
}

func waitForState(t *testing.T, session *Session, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if session.State() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected session to reach %s, still %s", want, session.State())
}

func TestConnectNegotiatesAndAcknowledges(t *testing.T) {
	client := newTestClient(t, func(conn *websocket.Conn) {
		init := readWireMessage(t, conn)
		if init["type"] != "session.init" {
			t.Errorf("expected a session.init first, got %v", init["type"])
		}
		if init["model"] != "lumen-live-1" {
			t.Errorf("expected model forwarded, got %v", init["model"])
		}
		if init["modality"] != "text" {
			t.Errorf("expected text modality, got %v", init["modality"])
		}
		acknowledge(conn)

		// Hold the connection open until the client closes it.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	session, err := client.ConnectTranscription(context.Background(), "lumen-live-1")
	if err != nil {
		t.Fatalf("expected session to connect, got %v", err)
	}
	defer session.Close()

	if got := session.State(); got != StateReady {
		t.Fatalf("expected Ready after acknowledgment, got %s", got)
	}
	if got := session.RemoteID(); got != "srv-42" {
		t.Fatalf("expected remote id srv-42, got %q", got)
	}
}

func TestConnectValidatesConfigBeforeDialing(t *testing.T) {
	client, err := NewClient(WithAPIKey("test-key"), WithEndpoint("ws://127.0.0.1:1"))
	if err != nil {
		t.Fatalf("failed to build client: %v", err)
	}

	_, err = client.ConnectSpeechToSpeech(context.Background(), "lumen-live-1", "")
	var configErr *ConfigurationError
	if !errors.As(err, &configErr) {
		t.Fatalf("expected a ConfigurationError for a missing voice, got %v", err)
	}

	_, err = client.ConnectTranscription(context.Background(), "  ")
	if !errors.As(err, &configErr) {
		t.Fatalf("expected a ConfigurationError for a blank model, got %v", err)
	}
}

func TestConnectTimesOutWithoutAcknowledgment(t *testing.T) {
	client := newTestClient(t, func(conn *websocket.Conn) {
		readWireMessage(t, conn)
		time.Sleep(time.Second)
	})

	_, err := client.ConnectTranscription(context.Background(), "lumen-live-1",
		WithAckTimeout(100*time.Millisecond))
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected a ConnectionError on handshake timeout, got %v", err)
	}
}

func TestConnectSurfacesServerRejection(t *testing.T) {
	client := newTestClient(t, func(conn *websocket.Conn) {
		readWireMessage(t, conn)
		sendWire(conn, `{"type":"error","code":"unknown_model","message":"no such model","recoverable":false}`)
	})

	_, err := client.ConnectTranscription(context.Background(), "lumen-live-1")
	var sessionErr *SessionError
	if !errors.As(err, &sessionErr) {
		t.Fatalf("expected a SessionError from the handshake, got %v", err)
	}
	if sessionErr.Code != "unknown_model" {
		t.Fatalf("expected the remote code carried through, got %q", sessionErr.Code)
	}
}

func TestTranscriptionRoundTrip(t *testing.T) {
	encoding := audio.GetDefaultEncodingInfo()
	chunks := [][]byte{{1, 1}, {2, 2}, {3, 3}}

	client := newTestClient(t, func(conn *websocket.Conn) {
		readWireMessage(t, conn)
		acknowledge(conn)

		var received []byte
		for {
			message := readWireMessage(t, conn)
			if message == nil {
				return
			}
			if message["type"] == "input_audio.end" {
				break
			}
			if message["type"] != "input_audio.append" {
				t.Errorf("expected only audio between init and end, got %v", message["type"])
				return
			}
			data, err := base64.StdEncoding.DecodeString(message["audio"].(string))
			if err != nil {
				t.Errorf("audio payload is not base64: %v", err)
				return
			}
			received = append(received, data...)
		}
		if len(received) != 6 {
			t.Errorf("expected 6 audio bytes, got %d", len(received))
		}

		sendWire(conn, `{"type":"speech.started"}`)
		sendWire(conn, `{"type":"transcript.partial","text":"Hello"}`)
		sendWire(conn, `{"type":"transcript.partial","text":" world"}`)
		sendWire(conn, `{"type":"speech.stopped"}`)
		sendWire(conn, `{"type":"transcript.final","text":"Hello world"}`)
		sendWire(conn, `{"type":"session.closed","reason":"input complete"}`)
	})

	session, err := client.ConnectTranscription(context.Background(), "lumen-live-1")
	if err != nil {
		t.Fatalf("expected session to connect, got %v", err)
	}
	defer session.Close()

	for _, payload := range chunks {
		if err := session.SendAudio(audio.NewChunk(payload, encoding)); err != nil {
			t.Fatalf("expected audio accepted, got %v", err)
		}
	}
	if got := session.State(); got != StateStreaming {
		t.Fatalf("expected Streaming after the first chunk, got %s", got)
	}
	if err := session.EndAudio(); err != nil {
		t.Fatalf("expected end of input accepted, got %v", err)
	}

	var kinds []events.Kind
	var lastSequence uint64
	var final string
	for event := range session.Events() {
		if event.Sequence() < lastSequence {
			t.Fatalf("event sequence went backwards: %d after %d", event.Sequence(), lastSequence)
		}
		lastSequence = event.Sequence()
		kinds = append(kinds, event.Kind())
		if transcript, ok := event.(events.TranscriptFinal); ok {
			final = transcript.Text
		}
	}

	wantKinds := []events.Kind{
		events.KindSpeechStarted,
		events.KindTranscriptPartial,
		events.KindTranscriptPartial,
		events.KindSpeechStopped,
		events.KindTranscriptFinal,
		events.KindSessionClosed,
	}
	if len(kinds) != len(wantKinds) {
		t.Fatalf("expected %d events, got %d: %v", len(wantKinds), len(kinds), kinds)
	}
	for i := range wantKinds {
		if kinds[i] != wantKinds[i] {
			t.Fatalf("expected event %d to be %s, got %s", i, wantKinds[i], kinds[i])
		}
	}
	if final != "Hello world" {
		t.Fatalf("expected final transcript \"Hello world\", got %q", final)
	}

	waitForState(t, session, StateClosed)
	if err := session.Err(); err != nil {
		t.Fatalf("expected a clean close, got %v", err)
	}
}

func TestSendAudioAfterEndFailsLoudly(t *testing.T) {
	client := newTestClient(t, func(conn *websocket.Conn) {
		readWireMessage(t, conn)
		acknowledge(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	session, err := client.ConnectTranscription(context.Background(), "lumen-live-1")
	if err != nil {
		t.Fatalf("expected session to connect, got %v", err)
	}
	defer session.Close()

	if err := session.EndAudio(); err != nil {
		t.Fatalf("expected end of input accepted, got %v", err)
	}

	err = session.SendAudio(audio.NewChunk([]byte{1}, audio.GetDefaultEncodingInfo()))
	var stateErr *InvalidStateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("expected an InvalidStateError after end of input, got %v", err)
	}
	if stateErr.State != StateClosing {
		t.Fatalf("expected the error to carry Closing, got %s", stateErr.State)
	}

	err = session.EndAudio()
	if !errors.As(err, &stateErr) {
		t.Fatalf("expected a second end of input rejected, got %v", err)
	}
}

func TestMismatchedChunkFailsTheSendOnly(t *testing.T) {
	client := newTestClient(t, func(conn *websocket.Conn) {
		readWireMessage(t, conn)
		acknowledge(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	session, err := client.ConnectTranscription(context.Background(), "lumen-live-1")
	if err != nil {
		t.Fatalf("expected session to connect, got %v", err)
	}
	defer session.Close()

	mulaw := audio.EncodingInfo{SampleRate: 8000, Channels: 1, Format: audio.EncodingMulaw}
	err = session.SendAudio(audio.NewChunk([]byte{1, 2}, mulaw))
	var formatErr *FormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("expected a FormatError, got %v", err)
	}

	// The rejected chunk must not affect the session.
	if got := session.State(); got != StateReady {
		t.Fatalf("expected session untouched by the bad chunk, got %s", got)
	}
	if err := session.SendAudio(audio.NewChunk([]byte{1, 2}, audio.GetDefaultEncodingInfo())); err != nil {
		t.Fatalf("expected a well-formed chunk accepted afterwards, got %v", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	client := newTestClient(t, func(conn *websocket.Conn) {
		readWireMessage(t, conn)
		acknowledge(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	session, err := client.ConnectTranscription(context.Background(), "lumen-live-1")
	if err != nil {
		t.Fatalf("expected session to connect, got %v", err)
	}

	if err := session.Close(); err != nil {
		t.Fatalf("expected first close to succeed, got %v", err)
	}
	if err := session.Close(); err != nil {
		t.Fatalf("expected repeated close to succeed, got %v", err)
	}
	if got := session.State(); got != StateClosed {
		t.Fatalf("expected Closed, got %s", got)
	}

	for range session.Events() {
		t.Fatalf("expected no events after close")
	}
}

func TestBackpressureFailsTheSession(t *testing.T) {
	client := newTestClient(t, func(conn *websocket.Conn) {
		readWireMessage(t, conn)
		acknowledge(conn)
		for i := 0; i < 16; i++ {
			sendWire(conn, `{"type":"transcript.partial","text":"overflow"}`)
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	session, err := client.ConnectTranscription(context.Background(), "lumen-live-1",
		WithEventBufferCapacity(2))
	if err != nil {
		t.Fatalf("expected session to connect, got %v", err)
	}
	defer session.Close()

	// Nobody consumes events, so the bounded buffer must overflow.
	waitForState(t, session, StateFailed)

	var backpressureErr *BackpressureError
	if !errors.As(session.Err(), &backpressureErr) {
		t.Fatalf("expected a BackpressureError, got %v", session.Err())
	}
	if backpressureErr.Capacity != 2 {
		t.Fatalf("expected the configured capacity reported, got %d", backpressureErr.Capacity)
	}
}

func TestStreamFromDrainsSourceAndEndsInput(t *testing.T) {
	encoding := audio.GetDefaultEncodingInfo()

	client := newTestClient(t, func(conn *websocket.Conn) {
		readWireMessage(t, conn)
		acknowledge(conn)

		for {
			message := readWireMessage(t, conn)
			if message == nil {
				return
			}
			if message["type"] == "input_audio.end" {
				break
			}
		}
		sendWire(conn, `{"type":"transcript.final","text":"done"}`)
		sendWire(conn, `{"type":"session.closed","reason":"input complete"}`)
	})

	session, err := client.ConnectTranscription(context.Background(), "lumen-live-1")
	if err != nil {
		t.Fatalf("expected session to connect, got %v", err)
	}
	defer session.Close()

	source := audio.NewSliceSource(encoding, []byte{1, 2}, []byte{3, 4})
	if err := session.StreamFrom(context.Background(), source); err != nil {
		t.Fatalf("expected streaming to finish cleanly, got %v", err)
	}

	var sawFinal bool
	for event := range session.Events() {
		if _, ok := event.(events.TranscriptFinal); ok {
			sawFinal = true
		}
	}
	if !sawFinal {
		t.Fatalf("expected a final transcript after the source drained")
	}

	waitForState(t, session, StateClosed)
}

func TestRemoteFatalErrorFailsSession(t *testing.T) {
	client := newTestClient(t, func(conn *websocket.Conn) {
		readWireMessage(t, conn)
		acknowledge(conn)
		sendWire(conn, `{"type":"error","code":"internal","message":"engine crashed","recoverable":false}`)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	session, err := client.ConnectTranscription(context.Background(), "lumen-live-1")
	if err != nil {
		t.Fatalf("expected session to connect, got %v", err)
	}
	defer session.Close()

	var sawError bool
	for event := range session.Events() {
		if remoteErr, ok := event.(events.SessionError); ok {
			sawError = true
			if remoteErr.Code != "internal" {
				t.Fatalf("expected code internal, got %q", remoteErr.Code)
			}
		}
	}
	if !sawError {
		t.Fatalf("expected the remote error delivered as an event")
	}

	waitForState(t, session, StateFailed)
	var sessionErr *SessionError
	if !errors.As(session.Err(), &sessionErr) {
		t.Fatalf("expected the terminal error to be a SessionError, got %v", session.Err())
	}
}

func TestMalformedMessageFailsSession(t *testing.T) {
	client := newTestClient(t, func(conn *websocket.Conn) {
		readWireMessage(t, conn)
		acknowledge(conn)
		sendWire(conn, `this is not json`)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	session, err := client.ConnectTranscription(context.Background(), "lumen-live-1")
	if err != nil {
		t.Fatalf("expected session to connect, got %v", err)
	}
	defer session.Close()

	var sawProtocolEvent bool
	for event := range session.Events() {
		if remoteErr, ok := event.(events.SessionError); ok && remoteErr.Code == "protocol_error" {
			sawProtocolEvent = true
		}
	}
	if !sawProtocolEvent {
		t.Fatalf("expected a protocol_error event before failure")
	}

	waitForState(t, session, StateFailed)
	var protocolErr *ProtocolError
	if !errors.As(session.Err(), &protocolErr) {
		t.Fatalf("expected the terminal error to be a ProtocolError, got %v", session.Err())
	}
}

func TestUnknownMessageForwardedInLenientMode(t *testing.T) {
	client := newTestClient(t, func(conn *websocket.Conn) {
		readWireMessage(t, conn)
		acknowledge(conn)
		sendWire(conn, `{"type":"diagnostics.ping"}`)
		sendWire(conn, `{"type":"session.closed"}`)
	})

	session, err := client.ConnectTranscription(context.Background(), "lumen-live-1")
	if err != nil {
		t.Fatalf("expected session to connect, got %v", err)
	}
	defer session.Close()

	var sawUnclassified bool
	for event := range session.Events() {
		if unclassified, ok := event.(events.Unclassified); ok {
			sawUnclassified = true
			if unclassified.WireType != "diagnostics.ping" {
				t.Fatalf("expected wire type preserved, got %q", unclassified.WireType)
			}
		}
	}
	if !sawUnclassified {
		t.Fatalf("expected an unclassified event in lenient mode")
	}
}

func TestStrictSessionFailsOnUnknownMessage(t *testing.T) {
	client := newTestClient(t, func(conn *websocket.Conn) {
		readWireMessage(t, conn)
		acknowledge(conn)
		sendWire(conn, `{"type":"diagnostics.ping"}`)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	session, err := client.ConnectTranscription(context.Background(), "lumen-live-1",
		WithStrictMode())
	if err != nil {
		t.Fatalf("expected session to connect, got %v", err)
	}
	defer session.Close()

	for range session.Events() {
	}

	waitForState(t, session, StateFailed)
	var protocolErr *ProtocolError
	if !errors.As(session.Err(), &protocolErr) {
		t.Fatalf("expected a ProtocolError, got %v", session.Err())
	}

	err = session.SendAudio(audio.NewChunk([]byte{1}, audio.GetDefaultEncodingInfo()))
	var stateErr *InvalidStateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("expected sends rejected after failure, got %v", err)
	}
}
