package murf

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/koscakluka/ema-cookbook/core/audio"
	"github.com/koscakluka/ema-cookbook/core/texttospeech"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	apiKey string
	body   generateRequest
}

type fakeMurf struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (f *fakeMurf) record(t *testing.T, r *http.Request) generateRequest {
	t.Helper()
	var body generateRequest
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, recordedRequest{apiKey: r.Header.Get("api-key"), body: body})
	return body
}

func newTestClient(t *testing.T, handler http.Handler, opts ...ClientOption) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient("murf-key", append([]ClientOption{
		WithBaseURL(server.URL),
		WithHTTPClient(server.Client()),
	}, opts...)...)
	require.NoError(t, err)
	return client
}

func TestSynthesizeEncodedAudio(t *testing.T) {
	fake := &fakeMurf{}
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/speech/generate", r.URL.Path)
		body := fake.record(t, r)
		_ = json.NewEncoder(w).Encode(generateResponse{
			EncodedAudio:         base64.StdEncoding.EncodeToString([]byte("mp3:" + body.Text)),
			AudioLengthInSeconds: 1.5,
		})
	}))

	speech, err := client.Synthesize(context.Background(), "Hello there.")

	require.NoError(t, err)
	assert.Equal(t, texttospeech.FormatMP3, speech.Format)
	assert.Equal(t, []byte("mp3:Hello there."), speech.Bytes())
	require.Len(t, fake.requests, 1)
	assert.Equal(t, "murf-key", fake.requests[0].apiKey)
	assert.Equal(t, generateRequest{
		VoiceID:     DefaultVoice,
		Text:        "Hello there.",
		Format:      "MP3",
		SampleRate:  audio.DefaultSampleRate,
		ChannelType: "MONO",
		EncodeAsB64: true,
	}, fake.requests[0].body)
}

func TestSynthesizeDownloadsAudioFile(t *testing.T) {
	mux := http.NewServeMux()
	var fileURL string
	mux.HandleFunc("/speech/generate", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(generateResponse{AudioFile: fileURL})
	})
	mux.HandleFunc("/files/speech.wav", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("RIFF...."))
	})
	server := httptest.NewServer(mux)
	defer server.Close()
	fileURL = server.URL + "/files/speech.wav"

	client, err := NewClient("murf-key", WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	require.NoError(t, err)

	speech, err := client.Synthesize(context.Background(), "Hi.",
		texttospeech.WithFormat(texttospeech.FormatWAV),
		texttospeech.WithVoice("en-UK-hazel"),
	)

	require.NoError(t, err)
	assert.Equal(t, texttospeech.FormatWAV, speech.Format)
	assert.Equal(t, [][]byte{[]byte("RIFF....")}, speech.Segments)
}

func TestSynthesizeSplitsLongText(t *testing.T) {
	fake := &fakeMurf{}
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := fake.record(t, r)
		_ = json.NewEncoder(w).Encode(generateResponse{
			EncodedAudio: base64.StdEncoding.EncodeToString([]byte{byte(len(body.Text) % 256)}),
		})
	}))
	text := strings.Repeat("Simmer the sauce for ten minutes. ", 200)

	speech, err := client.Synthesize(context.Background(), text)

	require.NoError(t, err)
	assert.Greater(t, len(speech.Segments), 1)
	assert.Len(t, fake.requests, len(speech.Segments))
	for _, request := range fake.requests {
		assert.LessOrEqual(t, len(request.body.Text), MaxTextLength)
	}
}

func TestSynthesizeAPIError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(errorResponse{ErrorMessage: "Invalid api key", ErrorCode: 401})
	}))

	speech, err := client.Synthesize(context.Background(), "Hello.")

	assert.Nil(t, speech)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Invalid api key", apiErr.Message)
}

func TestSynthesizeEmptyText(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty text")
	}))

	_, err := client.Synthesize(context.Background(), "   ")

	assert.ErrorIs(t, err, texttospeech.ErrEmptyText)
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient("")
	assert.Error(t, err)
}
