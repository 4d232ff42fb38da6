// Package miniaudio connects the system's audio devices to a realtime
// session: the microphone becomes an [audio.Source] and synthesized
// output chunks go straight to the speakers.
package miniaudio

import (
	"fmt"

	"github.com/gen2brain/malgo"
	"github.com/lumenvoice/lumen-core/core/audio"
)

type Client struct {
	// audioContext is only saved to be able to uninitialize it, it is an
	// ownership thing
	audioContext *malgo.AllocatedContext
	playbackClient
	captureClient
}

func NewClient() (*Client, error) {
	audioCtx, err := malgo.InitContext(
		nil,
		malgo.ContextConfig{},
		func(message string) {},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}

	client := Client{
		audioContext: audioCtx,
	}

	if err := client.playbackClient.Init(audioCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize playback client: %w", err)
	}

	if err := client.captureClient.Init(audioCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize capture client: %w", err)
	}

	return &client, nil
}

// CaptureSource starts the microphone and returns a source yielding its
// audio, buffered up to bufferChunks in flight. Stop the source (or call
// StopCapture) to release the device for the next capture.
func (c *Client) CaptureSource(bufferChunks int) (*audio.ChannelSource, error) {
	source := audio.NewChannelSource(c.EncodingInfo(), bufferChunks)
	if err := c.captureClient.Start(func(payload []byte) {
		source.Push(payload)
	}); err != nil {
		return nil, err
	}
	return source, nil
}

func (c *Client) StopCapture() error {
	return c.captureClient.Stop()
}

// Play queues one chunk for playback. Chunks must match the client's
// encoding; playback starts lazily on the first queued chunk.
func (c *Client) Play(chunk audio.Chunk) error {
	if !chunk.Encoding.Equal(c.EncodingInfo()) {
		return fmt.Errorf("chunk encoding %s@%d does not match playback device %s@%d",
			chunk.Encoding.Format.Name(), chunk.Encoding.SampleRate,
			c.EncodingInfo().Format.Name(), c.EncodingInfo().SampleRate)
	}
	if err := c.playbackClient.EnsureStarted(); err != nil {
		return err
	}
	return c.playbackClient.QueueAudio(chunk.Data)
}

// AwaitDrain blocks until every queued chunk has been played.
func (c *Client) AwaitDrain() {
	c.playbackClient.AwaitDrain()
}

func (c *Client) Close() {
	_ = c.captureClient.Uninit()
	_ = c.playbackClient.Uninit()
	_ = c.audioContext.Uninit()
	c.audioContext.Free()
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{
		SampleRate: audio.DefaultSampleRate,
		Channels:   1,
		Format:     audio.EncodingLinear16,
	}
}
