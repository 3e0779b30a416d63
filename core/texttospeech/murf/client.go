// Package murf synthesizes speech with the Murf REST API.
package murf

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/koscakluka/ema-cookbook/core/audio"
	"github.com/koscakluka/ema-cookbook/core/texttospeech"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

const (
	DefaultBaseURL = "https://api.murf.ai/v1"
	DefaultVoice   = "en-US-natalie"
	DefaultTimeout = 60 * time.Second

	// MaxTextLength is the longest text Murf accepts in a single request.
	MaxTextLength = 3000

	generatePath  = "/speech/generate"
	channelMono   = "MONO"
	channelStereo = "STEREO"
)

var _ texttospeech.Synthesizer = (*Client)(nil)

type Client struct {
	apiKey     string
	baseURL    string
	voice      string
	httpClient *http.Client

	characters metric.Int64Counter
}

type ClientOption func(*Client)

func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimSuffix(baseURL, "/")
		}
	}
}

func WithDefaultVoice(voice string) ClientOption {
	return func(c *Client) {
		if voice != "" {
			c.voice = voice
		}
	}
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithHTTPClient replaces the instrumented default HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func NewClient(apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("murf api key not set")
	}

	client := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		voice:   DefaultVoice,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport,
				otelhttp.WithSpanNameFormatter(func(operationName string, request *http.Request) string {
					return operationName + " " + request.URL.Path
				}),
			),
		},
	}
	for _, opt := range opts {
		opt(client)
	}

	characters, err := meter.Int64Counter("murf.characters",
		metric.WithDescription("Characters sent to Murf for synthesis"),
		metric.WithUnit("{character}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create characters counter: %w", err)
	}
	client.characters = characters

	return client, nil
}

func (c *Client) Voice() string { return c.voice }

type generateRequest struct {
	VoiceID     string `json:"voiceId"`
	Text        string `json:"text"`
	Format      string `json:"format"`
	SampleRate  int    `json:"sampleRate,omitempty"`
	ChannelType string `json:"channelType,omitempty"`
	EncodeAsB64 bool   `json:"encodeAsBase64"`
}

type generateResponse struct {
	AudioFile               string  `json:"audioFile"`
	EncodedAudio            string  `json:"encodedAudio"`
	AudioLengthInSeconds    float64 `json:"audioLengthInSeconds"`
	RemainingCharacterCount int64   `json:"remainingCharacterCount"`
	Warning                 string  `json:"warning"`
}

type errorResponse struct {
	ErrorMessage string `json:"errorMessage"`
	ErrorCode    int    `json:"errorCode"`
}

// APIError is returned when Murf answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("murf responded with status %d", e.StatusCode)
	}
	return fmt.Sprintf("murf responded with status %d: %s", e.StatusCode, e.Message)
}

// Synthesize turns text into speech. Texts longer than MaxTextLength are
// split on sentence boundaries and each piece becomes its own segment.
func (c *Client) Synthesize(ctx context.Context, text string, opts ...texttospeech.SynthesisOption) (*texttospeech.Speech, error) {
	options := texttospeech.SynthesisOptions{
		VoiceID:      c.voice,
		Format:       texttospeech.FormatMP3,
		EncodingInfo: audio.GetDefaultEncodingInfo(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	ctx, span := tracer.Start(ctx, "synthesize speech")
	defer span.End()
	span.SetAttributes(
		attribute.String("request.voice", options.VoiceID),
		attribute.String("request.format", string(options.Format)),
		attribute.Int("request.text_length", len(text)),
	)

	pieces := texttospeech.SplitText(text, MaxTextLength)
	if len(pieces) == 0 {
		span.RecordError(texttospeech.ErrEmptyText)
		span.SetStatus(codes.Error, texttospeech.ErrEmptyText.Error())
		return nil, texttospeech.ErrEmptyText
	}
	span.SetAttributes(attribute.Int("request.segments", len(pieces)))

	speech := &texttospeech.Speech{Format: options.Format}
	for i, piece := range pieces {
		segment, err := c.generate(ctx, piece, options)
		if err != nil {
			err = fmt.Errorf("failed to synthesize segment %d of %d: %w", i+1, len(pieces), err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.ErrorContext(ctx, "murf synthesis failed", "voice", options.VoiceID, "error", err)
			return nil, err
		}
		speech.Segments = append(speech.Segments, segment)
		c.characters.Add(ctx, int64(len(piece)), metric.WithAttributes(attribute.String("voice", options.VoiceID)))
	}

	return speech, nil
}

func (c *Client) generate(ctx context.Context, text string, options texttospeech.SynthesisOptions) ([]byte, error) {
	request := generateRequest{
		VoiceID:     options.VoiceID,
		Text:        text,
		Format:      string(options.Format),
		SampleRate:  options.EncodingInfo.SampleRate,
		ChannelType: channelMono,
		EncodeAsB64: true,
	}
	if options.EncodingInfo.ChannelCount() > 1 {
		request.ChannelType = channelStereo
	}

	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+generatePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call murf: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errResp errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil {
			apiErr.Message = errResp.ErrorMessage
		}
		return nil, apiErr
	}

	var generated generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&generated); err != nil {
		return nil, fmt.Errorf("failed to decode murf response: %w", err)
	}
	if generated.Warning != "" {
		logger.WarnContext(ctx, "murf warning", "warning", generated.Warning)
	}
	logger.DebugContext(ctx, "speech generated",
		"seconds", generated.AudioLengthInSeconds,
		"remaining_characters", generated.RemainingCharacterCount)

	if generated.EncodedAudio != "" {
		decoded, err := base64.StdEncoding.DecodeString(generated.EncodedAudio)
		if err != nil {
			return nil, fmt.Errorf("failed to decode encoded audio: %w", err)
		}
		return decoded, nil
	}
	if generated.AudioFile != "" {
		return c.download(ctx, generated.AudioFile)
	}
	return nil, fmt.Errorf("murf response contained no audio")
}

func (c *Client) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create audio file request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download audio file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: "audio file download failed"}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio file: %w", err)
	}
	return data, nil
}
