package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jinzhu/copier"
	"github.com/lumenvoice/lumen-core/core/events"
	"go.opentelemetry.io/otel/codes"
)

// DefaultEndpoint is the realtime speech service endpoint dialed when no
// override is configured.
const DefaultEndpoint = "wss://api.lumenvoice.ai/v1/realtime"

const apiKeyEnvVar = "LUMEN_API_KEY"

// Client negotiates and opens realtime sessions. It validates its
// configuration up front so a misconfigured client fails before any dial.
type Client struct {
	apiKey   string
	endpoint string
	dialer   *websocket.Dialer
}

type ClientOption func(*Client)

// WithAPIKey overrides the LUMEN_API_KEY environment lookup.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) { c.apiKey = key }
}

// WithEndpoint points the client at a different service endpoint, e.g. a
// local test server. The scheme must be ws or wss.
func WithEndpoint(endpoint string) ClientOption {
	return func(c *Client) { c.endpoint = endpoint }
}

// WithDialer swaps the websocket dialer, e.g. to tune handshake timeouts
// or proxies.
func WithDialer(dialer *websocket.Dialer) ClientOption {
	return func(c *Client) { c.dialer = dialer }
}

// NewClient builds a session factory. The API key is taken from the
// LUMEN_API_KEY environment variable unless provided explicitly.
func NewClient(opts ...ClientOption) (*Client, error) {
	client := &Client{
		endpoint: DefaultEndpoint,
		dialer:   websocket.DefaultDialer,
	}
	for _, opt := range opts {
		opt(client)
	}

	if client.apiKey == "" {
		if key, ok := os.LookupEnv(apiKeyEnvVar); ok {
			client.apiKey = key
		}
	}
	if strings.TrimSpace(client.apiKey) == "" {
		return nil, &ConfigurationError{Field: "api key", Reason: "api key not provided and " + apiKeyEnvVar + " not set"}
	}

	parsed, err := url.Parse(client.endpoint)
	if err != nil {
		return nil, &ConfigurationError{Field: "endpoint", Reason: fmt.Sprintf("not a valid URL: %v", err)}
	}
	if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
		return nil, &ConfigurationError{Field: "endpoint", Reason: "scheme must be ws or wss"}
	}
	if client.dialer == nil {
		return nil, &ConfigurationError{Field: "dialer", Reason: "dialer must not be nil"}
	}

	return client, nil
}

// ConnectTranscription opens a transcription-only session: audio in, text
// out. The returned session never emits audio output events.
func (c *Client) ConnectTranscription(ctx context.Context, model string, opts ...SessionOption) (*Session, error) {
	config := defaultSessionConfig(model, ModalityText)
	for _, opt := range opts {
		opt(&config)
	}
	return c.connect(ctx, config, modeTranscription)
}

// ConnectSpeechToSpeech opens a bidirectional session: audio in,
// transcripts and synthesized audio out.
func (c *Client) ConnectSpeechToSpeech(ctx context.Context, model, voice string, opts ...SessionOption) (*Session, error) {
	config := defaultSessionConfig(model, ModalityAudio)
	config.Voice = voice
	for _, opt := range opts {
		opt(&config)
	}
	return c.connect(ctx, config, modeSpeechToSpeech)
}

func (c *Client) connect(ctx context.Context, config SessionConfig, mode sessionMode) (*Session, error) {
	ctx, span := tracer.Start(ctx, "connect realtime session")
	defer span.End()

	if err := config.validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	// Snapshot the configuration so later caller mutations cannot leak
	// into a live session.
	var negotiated SessionConfig
	if err := copier.CopyWithOption(&negotiated, &config, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("failed to snapshot session config: %w", err)
	}

	session := &Session{
		id:         uuid.NewString(),
		mode:       mode,
		config:     negotiated,
		codec:      frameCodec{negotiated: negotiated.Encoding},
		dispatcher: dispatcher{mode: mode, strict: negotiated.Strict},
		state:      StateConnecting,
		eventCh:    make(chan events.Event, negotiated.EventBufferCapacity),
		closeCh:    make(chan struct{}),
	}

	conn, _, err := c.dialer.DialContext(ctx, c.endpoint, http.Header{
		"Authorization": {"Bearer " + c.apiKey},
	})
	if err != nil {
		connErr := &ConnectionError{Op: "dial", Err: err}
		span.RecordError(connErr)
		span.SetStatus(codes.Error, connErr.Error())
		session.mu.Lock()
		session.state = StateFailed
		session.terminalErr = connErr
		session.mu.Unlock()
		return nil, connErr
	}
	session.conn = conn

	init, err := session.codec.encodeInit(negotiated)
	if err != nil {
		session.abort(err)
		return nil, err
	}
	if err := conn.WriteMessage(websocket.TextMessage, init); err != nil {
		connErr := &ConnectionError{Op: "init", Err: err}
		session.abort(connErr)
		return nil, connErr
	}

	if err := session.awaitAck(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		session.abort(err)
		return nil, err
	}

	session.mu.Lock()
	session.state = StateReady
	session.mu.Unlock()
	session.lastInbound.Store(time.Now().UnixNano())

	session.loops.Add(2)
	go session.receiveLoop()
	go session.watchIdle()

	logger.InfoContext(ctx, "realtime session connected",
		"session", session.id, "model", negotiated.Model, "modality", string(negotiated.Modality))

	return session, nil
}

func parseRemoteID(env envelope) string {
	var body struct {
		Session struct {
			ID string `json:"id"`
		} `json:"session"`
	}
	_ = json.Unmarshal(env.Raw, &body)
	return body.Session.ID
}
