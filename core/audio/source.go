package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrEndOfStream is returned by [Source.Next] once a source has no more
// audio to produce, either because it drained naturally or because it was
// stopped.
var ErrEndOfStream = errors.New("audio: end of stream")

// Source produces a lazy, possibly infinite sequence of audio chunks.
//
// Next blocks until a chunk is available, the context is cancelled, or the
// stream ends. Stop is safe to call concurrently with Next and causes any
// blocked or subsequent Next to return [ErrEndOfStream] promptly.
type Source interface {
	Next(ctx context.Context) (Chunk, error)
	Stop()
}

// SliceSource replays a fixed set of chunks in order and then ends.
type SliceSource struct {
	mu       sync.Mutex
	chunks   []Chunk
	position int
	stopped  bool
}

// NewSliceSource builds a source over pre-cut chunks, all sharing encoding.
func NewSliceSource(encoding EncodingInfo, payloads ...[]byte) *SliceSource {
	chunks := make([]Chunk, 0, len(payloads))
	for _, payload := range payloads {
		chunks = append(chunks, NewChunk(payload, encoding))
	}
	return &SliceSource{chunks: chunks}
}

func (s *SliceSource) Next(ctx context.Context) (Chunk, error) {
	if err := ctx.Err(); err != nil {
		return Chunk{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped || s.position >= len(s.chunks) {
		return Chunk{}, ErrEndOfStream
	}

	chunk := s.chunks[s.position]
	s.position++
	return chunk, nil
}

func (s *SliceSource) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
}

// ReaderSource cuts a reader into fixed-size chunks, e.g. for streaming a
// recorded file into a session at its native framing.
type ReaderSource struct {
	mu       sync.Mutex
	reader   io.Reader
	encoding EncodingInfo
	size     int
	stopped  bool
}

// NewReaderSource wraps reader, producing chunks of chunkSize bytes (the
// final chunk may be shorter).
func NewReaderSource(reader io.Reader, encoding EncodingInfo, chunkSize int) (*ReaderSource, error) {
	if reader == nil {
		return nil, fmt.Errorf("audio: reader is required")
	}
	if chunkSize <= 0 {
		return nil, fmt.Errorf("audio: chunk size must be positive, got %d", chunkSize)
	}

	return &ReaderSource{reader: reader, encoding: encoding, size: chunkSize}, nil
}

func (s *ReaderSource) Next(ctx context.Context) (Chunk, error) {
	if err := ctx.Err(); err != nil {
		return Chunk{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return Chunk{}, ErrEndOfStream
	}

	buffer := make([]byte, s.size)
	n, err := io.ReadFull(s.reader, buffer)
	if n > 0 {
		return NewChunk(buffer[:n], s.encoding), nil
	}
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return Chunk{}, ErrEndOfStream
	}
	return Chunk{}, fmt.Errorf("audio: failed to read chunk: %w", err)
}

func (s *ReaderSource) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
}

// ChannelSource bridges a push-based producer (a capture callback) to the
// pull-based [Source] contract through a bounded channel.
type ChannelSource struct {
	encoding EncodingInfo
	chunks   chan Chunk
	done     chan struct{}
	stopOnce sync.Once
}

// NewChannelSource builds a bridge with room for capacity in-flight chunks.
func NewChannelSource(encoding EncodingInfo, capacity int) *ChannelSource {
	if capacity <= 0 {
		capacity = 32
	}
	return &ChannelSource{
		encoding: encoding,
		chunks:   make(chan Chunk, capacity),
		done:     make(chan struct{}),
	}
}

// Encoding is the encoding every pushed chunk is assumed to carry.
func (s *ChannelSource) Encoding() EncodingInfo { return s.encoding }

// Push hands a payload to the consumer side. Payloads pushed while the
// buffer is full are dropped rather than blocking the capture callback.
func (s *ChannelSource) Push(payload []byte) bool {
	data := make([]byte, len(payload))
	copy(data, payload)

	select {
	case <-s.done:
		return false
	case s.chunks <- NewChunk(data, s.encoding):
		return true
	default:
		return false
	}
}

func (s *ChannelSource) Next(ctx context.Context) (Chunk, error) {
	// Stop wins over buffered chunks so the stream ends promptly.
	select {
	case <-s.done:
		return Chunk{}, ErrEndOfStream
	default:
	}

	select {
	case chunk := <-s.chunks:
		return chunk, nil
	case <-s.done:
		return Chunk{}, ErrEndOfStream
	case <-ctx.Done():
		return Chunk{}, ctx.Err()
	}
}

func (s *ChannelSource) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
}
