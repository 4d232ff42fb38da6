// Package openai transcribes recorded audio through OpenAI's batch
// transcription endpoint. For live streaming use the realtime package
// instead.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/lumenvoice/lumen-core/core/speechtotext"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "whisper-1"
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

// NewClient builds a transcription client. The API key falls back to the
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

// Transcribe submits a complete recording and returns its transcript. The
// filename's extension tells the service the container format, e.g.
// "utterance.wav".
func (c *Client) Transcribe(ctx context.Context, filename string, recording io.Reader, opts ...speechtotext.TranscriptionOption) (string, error) {
	options := &speechtotext.TranscriptionOptions{Model: defaultModel}
	for _, opt := range opts {
		opt(options)
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to build transcription request: %w", err)
	}
	if _, err := io.Copy(part, recording); err != nil {
		return "", fmt.Errorf("failed to read recording: %w", err)
	}
	_ = form.WriteField("model", options.Model)
	if options.Language != "" {
		_ = form.WriteField("language", options.Language)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("failed to build transcription request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return "", fmt.Errorf("failed to build transcription request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", decodeAPIError(resp)
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to parse transcription response: %w", err)
	}

	return parsed.Text, nil
}

func decodeAPIError(resp *http.Response) error {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil || parsed.Error.Message == "" {
		return fmt.Errorf("transcription request rejected with status %d", resp.StatusCode)
	}
	return fmt.Errorf("transcription request rejected (%s): %s", parsed.Error.Type, parsed.Error.Message)
}
