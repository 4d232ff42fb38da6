package realtime

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lumenvoice/lumen-core/core/audio"
	"github.com/lumenvoice/lumen-core/core/events"
)

type sessionMode string

const (
	modeTranscription  sessionMode = "transcription"
	modeSpeechToSpeech sessionMode = "speech_to_speech"
)

const closeWriteTimeout = 5 * time.Second

// Session is one live streaming connection. It exclusively owns its
// transport: the send side (SendAudio/StreamFrom) and the receive loop are
// the only writers and reader, never the caller directly.
//
// A session terminates exactly once, in Closed or Failed; afterwards sends
// fail with InvalidStateError and Events ends.
type Session struct {
	id     string
	mode   sessionMode
	config SessionConfig

	codec      frameCodec
	dispatcher dispatcher

	conn   *websocket.Conn
	connMu sync.Mutex // serializes transport writes

	mu          sync.Mutex // guards state, sequence, terminalErr
	state       State
	sequence    uint64
	terminalErr error

	remoteID string

	eventCh  chan events.Event
	closeCh  chan struct{}
	shutOnce sync.Once
	loops    sync.WaitGroup

	lastInbound atomic.Int64 // unix nanos of the last transport read
}

// ID is the locally assigned session identity.
func (s *Session) ID() string { return s.id }

// RemoteID is the identity the server assigned at acknowledgment, if any.
func (s *Session) RemoteID() string { return s.remoteID }

// State is the session's current lifecycle position.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err is the terminal error after the session failed, nil otherwise.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminalErr
}

// Config is the immutable parameter set negotiated for this session.
func (s *Session) Config() SessionConfig { return s.config }

func (s *Session) nextSequence() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sequence++
	return s.sequence
}

// SendAudio submits one chunk for transmission. It is accepted only in
// Ready or Streaming; the first accepted chunk moves the session to
// Streaming. Chunks in the wrong encoding fail with FormatError without
// affecting the session.
func (s *Session) SendAudio(chunk audio.Chunk) error {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()
	if !state.canSendAudio() {
		return &InvalidStateError{Op: "send audio", State: state}
	}

	frames, err := s.codec.encodeAudio(chunk)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if !s.state.canSendAudio() {
		state := s.state
		s.mu.Unlock()
		return &InvalidStateError{Op: "send audio", State: state}
	}
	if s.state == StateReady {
		s.state = StateStreaming
	}
	s.mu.Unlock()

	for _, frame := range frames {
		if err := s.writeMessage(frame); err != nil {
			return fmt.Errorf("failed to send audio: %w", err)
		}
	}
	return nil
}

// EndAudio signals end of input and moves the session into Closing. The
// remote side is expected to flush pending results and close.
func (s *Session) EndAudio() error {
	s.mu.Lock()
	if !s.state.canSendAudio() {
		state := s.state
		s.mu.Unlock()
		return &InvalidStateError{Op: "end audio", State: state}
	}
	s.state = StateClosing
	s.mu.Unlock()

	frame, err := s.codec.encodeEnd()
	if err != nil {
		return err
	}
	if err := s.writeMessage(frame); err != nil {
		return fmt.Errorf("failed to signal end of audio: %w", err)
	}
	return nil
}

// StreamFrom runs the send loop: it pulls chunks from source in production
// order and submits them until the source ends, the context is cancelled,
// or the session terminates. A source signaling end of stream ends the
// input (EndAudio) so the session can wind down without further caller
// action. Chunks in a mismatched format are skipped, not fatal.
func (s *Session) StreamFrom(ctx context.Context, source audio.Source) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.loops.Add(1)
	defer s.loops.Done()

	// Unblock source.Next promptly when the session shuts down.
	go func() {
		select {
		case <-s.closeCh:
			cancel()
			source.Stop()
		case <-ctx.Done():
		}
	}()

	for {
		select {
		case <-s.closeCh:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		chunk, err := source.Next(ctx)
		if errors.Is(err, audio.ErrEndOfStream) {
			err := s.EndAudio()
			var invalidState *InvalidStateError
			if errors.As(err, &invalidState) {
				// The session wound down while we were draining the source.
				return nil
			}
			return err
		}
		if err != nil {
			if errors.Is(err, context.Canceled) && s.isShutdown() {
				return nil
			}
			return fmt.Errorf("audio source failed: %w", err)
		}

		if err := s.SendAudio(chunk); err != nil {
			var formatErr *FormatError
			if errors.As(err, &formatErr) {
				log.Printf("Skipping audio chunk with mismatched format: %v", formatErr)
				continue
			}
			var invalidState *InvalidStateError
			if errors.As(err, &invalidState) && s.isShutdown() {
				return nil
			}
			return err
		}
	}
}

// Events yields the session's ordered event sequence. Events appear in
// receipt order with non-decreasing sequence numbers and the iteration
// ends once the session reaches Closed or Failed. Consuming this sequence
// is the only way to observe transcripts.
func (s *Session) Events() iter.Seq[events.Event] {
	return func(yield func(events.Event) bool) {
		for event := range s.eventCh {
			if !yield(event) {
				return
			}
		}
	}
}

// Close terminates the session: it cancels both loops, releases the
// transport, and waits for loop termination before returning. It is
// idempotent and safe to call concurrently with either loop, including
// after a failure.
func (s *Session) Close() error {
	s.shutdown(true)
	s.loops.Wait()

	s.mu.Lock()
	if s.state != StateFailed {
		s.state = StateClosed
	}
	s.mu.Unlock()
	return nil
}

// shutdown releases the transport exactly once. polite sends a close
// frame first so well-behaved servers see a clean end.
func (s *Session) shutdown(polite bool) {
	s.shutOnce.Do(func() {
		close(s.closeCh)
		if polite {
			deadline := time.Now().Add(closeWriteTimeout)
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		}
		_ = s.conn.Close()
	})
}

func (s *Session) isShutdown() bool {
	select {
	case <-s.closeCh:
		return true
	default:
		return false
	}
}

// abort records the first terminal error, marks the session Failed, and
// releases the transport. Idempotent like Close.
func (s *Session) abort(err error) {
	s.mu.Lock()
	if s.terminalErr == nil {
		s.terminalErr = err
	}
	s.state = StateFailed
	s.mu.Unlock()

	logger.Warn("session failed", "session", s.id, "error", err)
	s.shutdown(false)
}

// finishRemoteClose ends the session cleanly after the remote side closed.
func (s *Session) finishRemoteClose() {
	s.shutdown(false)
	s.mu.Lock()
	if s.state != StateFailed {
		s.state = StateClosed
	}
	s.mu.Unlock()
}

func (s *Session) writeMessage(message []byte) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	// Cancellation check before every transport write so a concurrent
	// Close never races a new message onto a released connection.
	select {
	case <-s.closeCh:
		return &InvalidStateError{Op: "write", State: s.State()}
	default:
	}

	if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		connErr := &ConnectionError{Op: "write", Err: err}
		s.abort(connErr)
		return connErr
	}
	return nil
}

// emit hands an event to the caller-facing sequence without ever blocking
// the receive loop. Past the configured capacity the session fails closed
// rather than growing memory without bound.
func (s *Session) emit(event events.Event) bool {
	select {
	case s.eventCh <- event:
		return true
	default:
		s.abort(&BackpressureError{Capacity: s.config.EventBufferCapacity})
		return false
	}
}

// receiveLoop drains the transport for the session's lifetime, routing
// every inbound message through the codec and dispatcher. It is the only
// reader of the connection and the only writer of the event channel, which
// it closes on exit so Events terminates.
func (s *Session) receiveLoop() {
	defer s.loops.Done()
	defer close(s.eventCh)

	for {
		select {
		case <-s.closeCh:
			return
		default:
		}

		_, message, err := s.conn.ReadMessage()
		if err != nil {
			s.handleReadError(err)
			return
		}
		s.lastInbound.Store(time.Now().UnixNano())

		env, err := decodeEnvelope(message)
		if err != nil {
			s.failProtocol(err)
			return
		}

		event, err := s.dispatcher.dispatch(env, s.nextSequence())
		if err != nil {
			s.failProtocol(err)
			return
		}
		if event == nil {
			continue
		}

		if !s.emit(event) {
			return
		}

		switch typedEvent := event.(type) {
		case events.SessionClosed:
			s.finishRemoteClose()
			return
		case events.SessionError:
			if !typedEvent.Recoverable {
				s.abort(&SessionError{Code: typedEvent.Code, Message: typedEvent.Message})
				return
			}
		}
	}
}

// failProtocol surfaces a malformed-message failure as a terminal error
// event before moving the session to Failed.
func (s *Session) failProtocol(err error) {
	s.emit(events.NewSessionError("protocol_error", err.Error(), false, s.nextSequence()))
	s.abort(err)
}

func (s *Session) handleReadError(err error) {
	if s.isShutdown() {
		return
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		s.finishRemoteClose()
		return
	}

	s.mu.Lock()
	closing := s.state == StateClosing
	s.mu.Unlock()
	if closing {
		// The remote dropped the connection after we announced the end of
		// input; treat it as a completed shutdown.
		s.finishRemoteClose()
		return
	}

	s.abort(&ConnectionError{Op: "read", Err: err})
}

// watchIdle logs a recoverable warning when a streaming session goes
// quiet for an extended period. Idleness alone never fails the session.
func (s *Session) watchIdle() {
	defer s.loops.Done()

	ticker := time.NewTicker(s.config.IdleWarnAfter)
	defer ticker.Stop()

	for {
		select {
		case <-s.closeCh:
			return
		case <-ticker.C:
			if s.State() != StateStreaming {
				continue
			}
			idle := time.Since(time.Unix(0, s.lastInbound.Load()))
			if idle >= s.config.IdleWarnAfter {
				logger.Warn("no events received while streaming",
					"session", s.id, "idle", idle.Round(time.Second).String())
			}
		}
	}
}

// awaitAck blocks until the server acknowledges the session, bounded by
// the configured ack timeout. Non-acknowledgment traffic arriving before
// the ack is absorbed.
func (s *Session) awaitAck() error {
	if err := s.conn.SetReadDeadline(time.Now().Add(s.config.AckTimeout)); err != nil {
		return &ConnectionError{Op: "handshake", Err: err}
	}
	defer func() { _ = s.conn.SetReadDeadline(time.Time{}) }()

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return &ConnectionError{Op: "handshake", Err: fmt.Errorf("no acknowledgment within %s", s.config.AckTimeout)}
			}
			return &ConnectionError{Op: "handshake", Err: err}
		}

		env, err := decodeEnvelope(message)
		if err != nil {
			return err
		}

		switch env.Type {
		case wireSessionCreated:
			s.remoteID = parseRemoteID(env)
			return nil
		case wireError:
			event, dispatchErr := s.dispatcher.dispatch(env, s.nextSequence())
			if dispatchErr != nil {
				return dispatchErr
			}
			if remoteErr, ok := event.(events.SessionError); ok {
				return &SessionError{Code: remoteErr.Code, Message: remoteErr.Message}
			}
			return &ConnectionError{Op: "handshake", Err: errors.New("server rejected the session")}
		default:
			log.Printf("Ignoring %q message before session acknowledgment", env.Type)
		}
	}
}
