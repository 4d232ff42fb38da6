// Package deepgram streams microphone audio to Deepgram's live listening
// API and reports transcripts through the shared speechtotext callbacks.
package deepgram

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const defaultModel = "nova-3"

type TranscriptionClient struct {
	conn   *websocket.Conn
	connMu sync.Mutex

	lastMsgTs             time.Time
	accumulatedTranscript string
	unendedSegment        bool
}

func NewTranscriptionClient() *TranscriptionClient {
	return &TranscriptionClient{}
}
