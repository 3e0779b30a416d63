package deepgram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-cookbook/core/audio"
	"github.com/koscakluka/ema-cookbook/core/speechtotext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCallbackConfigDefaultsToNoopCallbacks(t *testing.T) {
	callbacks, wsConfig := newCallbackConfig(speechtotext.TranscriptionOptions{})

	assert.NotPanics(t, func() {
		callbacks.interimTranscriptionCallback("interim")
		callbacks.partialTranscriptionCallback("final")
		callbacks.transcriptionCallback("full")
		callbacks.startSpeechCallback()
		callbacks.endSpeechCallback()
	})

	assert.False(t, wsConfig.shouldDetectSpeechStart)
	assert.False(t, wsConfig.shouldEnhanceSpeechEndingDetection)
	assert.False(t, wsConfig.shouldRequestInterimResults)
}

func TestNewCallbackConfigKeepsConfiguredCallbacksAndFlags(t *testing.T) {
	calls := atomic.Int32{}
	count := func(string) { calls.Add(1) }

	callbacks, wsConfig := newCallbackConfig(speechtotext.TranscriptionOptions{
		InterimTranscriptionCallback: count,
		PartialTranscriptionCallback: count,
		TranscriptionCallback:        count,
		SpeechStartedCallback:        func() { calls.Add(1) },
		SpeechEndedCallback:          func() { calls.Add(1) },
	})

	callbacks.interimTranscriptionCallback("hel")
	callbacks.partialTranscriptionCallback("hello")
	callbacks.transcriptionCallback("hello world")
	callbacks.startSpeechCallback()
	callbacks.endSpeechCallback()

	assert.True(t, wsConfig.shouldDetectSpeechStart)
	assert.True(t, wsConfig.shouldEnhanceSpeechEndingDetection)
	assert.True(t, wsConfig.shouldRequestInterimResults)
	assert.Equal(t, int32(5), calls.Load())
}

func results(transcript string, isFinal, speechFinal bool) []byte {
	final := "false"
	if isFinal {
		final = "true"
	}
	speech := "false"
	if speechFinal {
		speech = "true"
	}
	return []byte(`{"type":"Results","is_final":` + final + `,"speech_final":` + speech +
		`,"channel":{"alternatives":[{"transcript":"` + transcript + `","confidence":0.9}]}}`)
}

func TestProcessMessageAccumulatesUtterance(t *testing.T) {
	var interim, partial, full []string
	ended := 0
	callbacks, _ := newCallbackConfig(speechtotext.TranscriptionOptions{
		InterimTranscriptionCallback: func(s string) { interim = append(interim, s) },
		PartialTranscriptionCallback: func(s string) { partial = append(partial, s) },
		TranscriptionCallback:        func(s string) { full = append(full, s) },
		SpeechEndedCallback:          func() { ended++ },
	})
	client := &TranscriptionClient{}

	client.processMessage(results("i want", false, false), callbacks)
	client.processMessage(results("i want pasta", true, false), callbacks)
	client.processMessage(results("with", false, false), callbacks)
	client.processMessage(results("with cheese", true, true), callbacks)

	assert.Equal(t, []string{"i want", "i want pasta with"}, interim)
	assert.Equal(t, []string{"i want pasta", "with cheese"}, partial)
	assert.Equal(t, []string{"i want pasta with cheese"}, full)
	assert.Equal(t, 1, ended)
}

func TestProcessMessageUtteranceEndFlushes(t *testing.T) {
	var full []string
	callbacks, _ := newCallbackConfig(speechtotext.TranscriptionOptions{
		TranscriptionCallback: func(s string) { full = append(full, s) },
	})
	client := &TranscriptionClient{}

	client.processMessage(results("yes", true, false), callbacks)
	client.processMessage([]byte(`{"type":"UtteranceEnd","last_word_end":1.2}`), callbacks)
	client.processMessage([]byte(`{"type":"UtteranceEnd","last_word_end":1.2}`), callbacks)

	assert.Equal(t, []string{"yes"}, full)
}

func TestProcessMessageIgnoresGarbage(t *testing.T) {
	callbacks, _ := newCallbackConfig(speechtotext.TranscriptionOptions{
		TranscriptionCallback: func(string) { t.Fatal("no transcript expected") },
	})
	client := &TranscriptionClient{}

	client.processMessage([]byte(`not json`), callbacks)
	client.processMessage([]byte(`{"type":"Metadata"}`), callbacks)
}

func TestTranscribeStreamsAudioAndDeliversUtterances(t *testing.T) {
	upgrader := websocket.Upgrader{}
	received := make(chan []byte, 16)
	requests := make(chan *http.Request, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests <- r.Clone(context.Background())
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			msgType, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if msgType == websocket.BinaryMessage && len(msg) == 4 {
				received <- msg
				_ = conn.WriteMessage(websocket.TextMessage, results("new dish", true, true))
			}
		}
	}))
	defer server.Close()

	client, err := NewTranscriptionClient("dg-key",
		WithListenURL("ws"+strings.TrimPrefix(server.URL, "http")),
		WithLanguage("en-GB"),
	)
	require.NoError(t, err)

	utterances := make(chan string, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	err = client.Transcribe(ctx,
		speechtotext.WithEncodingInfo(audio.EncodingInfo{SampleRate: 16000, Channels: 1, Format: audio.EncodingLinear16}),
		speechtotext.WithTranscriptionCallback(func(s string) { utterances <- s }),
	)
	require.NoError(t, err)

	require.NoError(t, client.SendAudio([]byte{1, 2, 3, 4}))

	select {
	case got := <-received:
		assert.Equal(t, []byte{1, 2, 3, 4}, got)
	case <-time.After(2 * time.Second):
		t.Fatal("audio not received")
	}
	select {
	case got := <-utterances:
		assert.Equal(t, "new dish", got)
	case <-time.After(2 * time.Second):
		t.Fatal("utterance not delivered")
	}

	request := <-requests
	query := request.URL.RawQuery
	assert.Equal(t, "Token dg-key", request.Header.Get("Authorization"))
	assert.Contains(t, query, "sample_rate=16000")
	assert.Contains(t, query, "encoding=linear16")
	assert.Contains(t, query, "model=nova-3")
	assert.Contains(t, query, "language=en-GB")
	assert.Contains(t, query, "utterance_end_ms=1000")
}

func TestSendAudioWithoutStream(t *testing.T) {
	client, err := NewTranscriptionClient("dg-key")
	require.NoError(t, err)

	assert.ErrorIs(t, client.SendAudio([]byte{0}), errStreamClosed)
}

func TestConvertEncoding(t *testing.T) {
	_, err := convertEncoding(audio.EncodingInfo{SampleRate: 44100, Format: audio.EncodingLinear16})
	assert.Error(t, err)

	_, err = convertEncoding(audio.EncodingInfo{SampleRate: 16000, Format: audio.EncodingMulaw})
	assert.Error(t, err)

	encoding, err := convertEncoding(audio.EncodingInfo{SampleRate: 8000, Format: audio.EncodingMulaw})
	require.NoError(t, err)
	assert.Equal(t, "mulaw", encoding.name)
	assert.Equal(t, 1, encoding.channels)
}
