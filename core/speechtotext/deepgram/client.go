// Package deepgram transcribes live microphone audio over the Deepgram
// listen websocket.
package deepgram

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-cookbook/core/speechtotext"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const (
	DefaultListenURL = "wss://api.deepgram.com/v1/listen"
	DefaultModel     = "nova-3"
	DefaultLanguage  = "en-US"
)

var logger = otelslog.NewLogger("github.com/koscakluka/ema-cookbook/core/speechtotext/deepgram")

var _ speechtotext.Transcriber = (*TranscriptionClient)(nil)

type TranscriptionClient struct {
	apiKey    string
	listenURL string
	model     string
	language  string
	dialer    *websocket.Dialer

	conn      *websocket.Conn
	lastMsgTs time.Time
	connMu    sync.Mutex

	accumulatedTranscript string
	unendedSegment        bool
}

type ClientOption func(*TranscriptionClient)

func WithListenURL(listenURL string) ClientOption {
	return func(c *TranscriptionClient) {
		if listenURL != "" {
			c.listenURL = listenURL
		}
	}
}

func WithModel(model string) ClientOption {
	return func(c *TranscriptionClient) {
		if model != "" {
			c.model = model
		}
	}
}

func WithLanguage(language string) ClientOption {
	return func(c *TranscriptionClient) {
		if language != "" {
			c.language = language
		}
	}
}

func NewTranscriptionClient(apiKey string, opts ...ClientOption) (*TranscriptionClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("deepgram api key not set")
	}

	client := &TranscriptionClient{
		apiKey:    apiKey,
		listenURL: DefaultListenURL,
		model:     DefaultModel,
		language:  DefaultLanguage,
		dialer:    websocket.DefaultDialer,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}
