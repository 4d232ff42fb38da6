package deepgram

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"
	"github.com/lumenvoice/lumen-core/core/audio"
	"github.com/lumenvoice/lumen-core/core/speechtotext"
	"github.com/lumenvoice/lumen-core/internal/utils"
)

// Transcribe opens the live listening stream and starts delivering
// transcripts through the configured callbacks. It returns once the
// stream is established; transcription runs until StopStream or ctx end.
func (c *TranscriptionClient) Transcribe(ctx context.Context, opts ...speechtotext.TranscriptionOption) error {
	options := &speechtotext.TranscriptionOptions{
		Model:        defaultModel,
		EncodingInfo: audio.GetDefaultEncodingInfo(),
	}
	for _, opt := range opts {
		opt(options)
	}

	encoding, err := convertEncoding(options.EncodingInfo)
	if err != nil {
		return fmt.Errorf("invalid encoding: %w", err)
	}

	callbacks, wsConfig := newCallbackConfig(*options)

	conn, err := connectWebsocket(connectionOptions{
		sampleRate: encoding.SampleRate,
		encoding:   encoding.Format.Name(),
		model:      options.Model,
		language:   options.Language,

		websocketConfig: wsConfig,
	})
	if err != nil {
		return fmt.Errorf("failed to open websocket: %w", err)
	}

	c.conn = conn
	go c.readAndProcessMessages(ctx, conn, callbacks, options.EncodingInfo)

	return nil
}

type connectionOptions struct {
	sampleRate int
	encoding   string
	model      string
	language   string

	websocketConfig
}

func connectWebsocket(options connectionOptions) (*websocket.Conn, error) {
	apiKey, ok := os.LookupEnv("DEEPGRAM_API_KEY")
	if !ok {
		return nil, fmt.Errorf("deepgram api key not found")
	}

	listenURL, _ := url.Parse("wss://api.deepgram.com/v1/listen")
	queryParams := listenURL.Query()
	queryParams.Set("encoding", options.encoding)
	queryParams.Set("sample_rate", strconv.Itoa(options.sampleRate))
	queryParams.Set("channels", "1")
	queryParams.Set("model", options.model)
	if options.language != "" {
		queryParams.Set("language", options.language)
	}
	queryParams.Set("smart_format", "true")
	if options.shouldEnhanceSpeechEndingDetection {
		queryParams.Set("utterance_end_ms", "1000")
		queryParams.Set("interim_results", "true")
	} else if options.shouldRequestInterimResults {
		queryParams.Set("interim_results", "true")
	}
	queryParams.Set("endpointing", "300")
	if options.shouldDetectSpeechStart || options.shouldEnhanceSpeechEndingDetection {
		queryParams.Set("vad_events", "true")
	}

	listenURL.RawQuery = queryParams.Encode()
	conn, _, err := websocket.DefaultDialer.Dial(listenURL.String(),
		http.Header{"Authorization": {"Token " + apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}

	return conn, nil
}

func (c *TranscriptionClient) SendAudio(audio []byte) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	c.lastMsgTs = time.Now()
	if err := c.conn.WriteMessage(websocket.BinaryMessage, audio); err != nil {
		return fmt.Errorf("failed to write to deepgram client: %w", err)
	}
	return nil
}

func (c *TranscriptionClient) StopStream() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn != nil {
		if err := c.conn.WriteJSON(struct {
			Type string `json:"type"`
		}{Type: string(api.TypeCloseStreamResponse)}); err != nil {
			return fmt.Errorf("failed to close deepgram stream: %w", err)
		}
	}
	return nil
}

func (c *TranscriptionClient) sendKeepAlive() {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if err := c.conn.WriteJSON(struct {
		Type string `json:"type"`
	}{Type: "KeepAlive"}); err != nil {
		log.Println("Failed to write keepalive to deepgram client", "error", err)
	}
}

func (c *TranscriptionClient) sendSilence(audio []byte) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if err := c.conn.WriteMessage(websocket.BinaryMessage, audio); err != nil {
		return fmt.Errorf("failed to write to deepgram client: %w", err)
	}
	return nil
}

func (c *TranscriptionClient) readAndProcessMessages(ctx context.Context, conn *websocket.Conn, callbacks transcriptionCallbacks, encoding audio.EncodingInfo) {
	silenceCtx, silenceCancel := context.WithCancel(ctx)
	defer silenceCancel()

	go c.generateSilence(silenceCtx, encoding)

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				log.Println("Failed to read deepgram websocket message", "error", err)
			}

			c.conn = nil
			conn.Close()
			return
		}
		if msgType != websocket.BinaryMessage {
			go c.processMessage(msg, callbacks)
		}
	}
}

func (c *TranscriptionClient) processMessage(msg []byte, callbacks transcriptionCallbacks) {
	var parsedMsg struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &parsedMsg); err != nil {
		log.Println("Failed to unmarshal deepgram message", "error", err)
		return
	}

	switch api.TypeResponse(parsedMsg.Type) {
	case api.TypeMessageResponse:
		var msgResp api.MessageResponse
		if err := json.Unmarshal(msg, &msgResp); err != nil {
			log.Println("Failed to unmarshal deepgram message", err)
			return
		}
		if len(msgResp.Channel.Alternatives) == 0 {
			return
		}
		transcript := strings.TrimSpace(msgResp.Channel.Alternatives[0].Transcript)
		if len(transcript) == 0 {
			return
		}

		if msgResp.IsFinal {
			c.accumulatedTranscript += " " + transcript
			if msgResp.SpeechFinal {
				c.onSpeechEnded(callbacks)
			}
		} else {
			callbacks.partialTranscriptCallback(transcript)
		}

	case api.TypeUtteranceEndResponse:
		if c.unendedSegment {
			c.onSpeechEnded(callbacks)
		}

	case api.TypeSpeechStartedResponse:
		c.unendedSegment = true
		callbacks.startSpeechCallback()
	}
}

func (c *TranscriptionClient) onSpeechEnded(callbacks transcriptionCallbacks) {
	c.unendedSegment = false
	fullTranscript := strings.TrimSpace(c.accumulatedTranscript)
	c.accumulatedTranscript = ""
	if len(fullTranscript) > 0 {
		callbacks.finalTranscriptCallback(fullTranscript)
	}
	callbacks.endSpeechCallback()
}

// generateSilence keeps the stream alive through pauses: after 50ms of
// caller silence it pads the stream with silence frames, and after a full
// second it backs off to protocol keepalives until audio resumes.
func (c *TranscriptionClient) generateSilence(ctx context.Context, encoding audio.EncodingInfo) {
	type silenceGeneratorState string
	const (
		stateWaiting   silenceGeneratorState = "waiting"
		stateSilence   silenceGeneratorState = "silence"
		stateKeepAlive silenceGeneratorState = "keepAlive"
	)

	const durationMs = 50
	const millisecondsPerSecond = 1000
	ticker := time.NewTicker(durationMs * time.Millisecond)

	chunk := make([]byte, encoding.BytesPerSecond()*durationMs/millisecondsPerSecond)
	for i := range chunk {
		chunk[i] = encoding.SilenceValue()
	}

	var state = stateWaiting
	var firstSilenceTime *time.Time
	var lastKeepAliveTime *time.Time
	for {
		select {
		case <-ctx.Done():
			ticker.Stop()
			return
		case <-ticker.C:
			switch state {
			case stateWaiting:
				if time.Since(c.lastMsgTs).Milliseconds() > durationMs {
					state = stateSilence
					firstSilenceTime = utils.Ptr(time.Now())
					continue
				}

			case stateSilence:
				if time.Since(c.lastMsgTs).Milliseconds() < durationMs {
					state = stateWaiting
					firstSilenceTime = nil
					continue
				}
				if time.Since(*firstSilenceTime).Milliseconds() >= millisecondsPerSecond {
					state = stateKeepAlive
					lastKeepAliveTime = utils.Ptr(time.Now())
					firstSilenceTime = nil
					continue
				}

				if err := c.sendSilence(chunk); err != nil {
					log.Println("Sending silence audio error", err)
				}

			case stateKeepAlive:
				if time.Since(c.lastMsgTs).Milliseconds() < durationMs {
					state = stateWaiting
					continue
				}

				if time.Since(*lastKeepAliveTime).Seconds() >= 5 {
					lastKeepAliveTime = utils.Ptr(time.Now())
					c.sendKeepAlive()
				}
			}
		}
	}
}
