// Package openai synthesizes speech through OpenAI's batch speech
// endpoint. It returns complete utterances; for conversational streaming
// use the realtime package instead.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/lumenvoice/lumen-core/core/audio"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini-tts"
	defaultVoice   = "alloy"

	// The pcm response format is headerless 24 kHz 16-bit mono.
	pcmSampleRate = 24000
)

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// NewClient builds a synthesis client. The API key falls back to the
// OPENAI_API_KEY environment variable.
func NewClient(opts ...Option) (*Client, error) {
	client := &Client{
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   60 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(client)
	}

	if client.apiKey == "" {
		if key, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			client.apiKey = key
		}
	}
	if client.apiKey == "" {
		return nil, fmt.Errorf("openai api key not found")
	}

	return client, nil
}

type SynthesisOptions struct {
	Model string
	Voice string
	Speed float64
}

type SynthesisOption func(*SynthesisOptions)

func WithModel(model string) SynthesisOption {
	return func(o *SynthesisOptions) { o.Model = model }
}

func WithVoice(voice string) SynthesisOption {
	return func(o *SynthesisOptions) { o.Voice = voice }
}

func WithSpeed(speed float64) SynthesisOption {
	return func(o *SynthesisOptions) { o.Speed = speed }
}

// Synthesize renders text into one complete audio chunk in linear16 PCM.
func (c *Client) Synthesize(ctx context.Context, text string, opts ...SynthesisOption) (audio.Chunk, error) {
	options := &SynthesisOptions{Model: defaultModel, Voice: defaultVoice}
	for _, opt := range opts {
		opt(options)
	}

	payload := struct {
		Model          string  `json:"model"`
		Voice          string  `json:"voice"`
		Input          string  `json:"input"`
		ResponseFormat string  `json:"response_format"`
		Speed          float64 `json:"speed,omitempty"`
	}{
		Model:          options.Model,
		Voice:          options.Voice,
		Input:          text,
		ResponseFormat: "pcm",
		Speed:          options.Speed,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return audio.Chunk{}, fmt.Errorf("failed to build synthesis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/audio/speech", bytes.NewReader(body))
	if err != nil {
		return audio.Chunk{}, fmt.Errorf("failed to build synthesis request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return audio.Chunk{}, fmt.Errorf("synthesis request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return audio.Chunk{}, decodeAPIError(resp)
	}

	rendered, err := io.ReadAll(resp.Body)
	if err != nil {
		return audio.Chunk{}, fmt.Errorf("failed to read synthesized audio: %w", err)
	}

	return audio.NewChunk(rendered, audio.EncodingInfo{
		SampleRate: pcmSampleRate,
		Channels:   1,
		Format:     audio.EncodingLinear16,
	}), nil
}

func decodeAPIError(resp *http.Response) error {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil || parsed.Error.Message == "" {
		return fmt.Errorf("synthesis request rejected with status %d", resp.StatusCode)
	}
	return fmt.Errorf("synthesis request rejected (%s): %s", parsed.Error.Type, parsed.Error.Message)
}
