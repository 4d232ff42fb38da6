// Package portaudio adapts a PortAudio duplex stream to the session audio
// contract: the client is itself an [audio.Source] over the microphone,
// and plays received chunks back through the same stream.
package portaudio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/lumenvoice/lumen-core/core/audio"
)

type Client struct {
	bufferSize int
	stream     *portaudio.Stream
	pending    []byte

	in  []int16
	out []int16

	mu      sync.Mutex
	started bool
	stopped bool
}

func NewClient(bufferSize int) (*Client, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	in := make([]int16, bufferSize)
	out := make([]int16, bufferSize)
	stream, err := portaudio.OpenDefaultStream(1, 1, audio.DefaultSampleRate, bufferSize, in, out)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("failed to open portaudio stream: %w", err)
	}

	return &Client{
		bufferSize: bufferSize,
		stream:     stream,
		in:         in,
		out:        out,
	}, nil
}

// Next blocks on the microphone for one buffer of audio. The stream starts
// lazily on the first call.
func (c *Client) Next(ctx context.Context) (audio.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return audio.Chunk{}, err
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return audio.Chunk{}, audio.ErrEndOfStream
	}
	if !c.started {
		if err := c.stream.Start(); err != nil {
			c.mu.Unlock()
			return audio.Chunk{}, fmt.Errorf("failed to start portaudio stream: %w", err)
		}
		c.started = true
	}
	c.mu.Unlock()

	if err := c.stream.Read(); err != nil {
		c.mu.Lock()
		stopped := c.stopped
		c.mu.Unlock()
		if stopped {
			return audio.Chunk{}, audio.ErrEndOfStream
		}
		return audio.Chunk{}, fmt.Errorf("failed to read from portaudio stream: %w", err)
	}

	captured := bytes.Buffer{}
	_ = binary.Write(&captured, binary.LittleEndian, c.in)
	return audio.NewChunk(captured.Bytes(), c.EncodingInfo()), nil
}

// Stop ends capture; a blocked Next returns end of stream once the stream
// aborts.
func (c *Client) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.stopped = true
	if c.started {
		_ = c.stream.Abort()
	}
}

// Play writes one chunk to the output side, carrying over any remainder
// that does not fill a whole device buffer.
func (c *Client) Play(chunk audio.Chunk) error {
	if !chunk.Encoding.Equal(c.EncodingInfo()) {
		return fmt.Errorf("chunk encoding %s@%d does not match stream %s@%d",
			chunk.Encoding.Format.Name(), chunk.Encoding.SampleRate,
			c.EncodingInfo().Format.Name(), c.EncodingInfo().SampleRate)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		if err := c.stream.Start(); err != nil {
			return fmt.Errorf("failed to start portaudio stream: %w", err)
		}
		c.started = true
	}

	bufferSize := c.bufferSize * 2
	pending := append(c.pending, chunk.Data...)
	full := len(pending) / bufferSize * bufferSize
	for offset := 0; offset < full; offset += bufferSize {
		_ = binary.Read(bytes.NewReader(pending[offset:offset+bufferSize]), binary.LittleEndian, c.out)
		if err := c.stream.Write(); err != nil {
			return fmt.Errorf("failed to write to portaudio stream: %w", err)
		}
	}
	c.pending = append(c.pending[:0], pending[full:]...)

	return nil
}

func (c *Client) ClearBuffer() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = nil
}

func (c *Client) Close() {
	c.Stop()
	_ = c.stream.Close()
	_ = portaudio.Terminate()
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{
		SampleRate: audio.DefaultSampleRate,
		Channels:   1,
		Format:     audio.EncodingLinear16,
	}
}
