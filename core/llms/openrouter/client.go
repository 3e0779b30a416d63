// Package openrouter talks to language models through the OpenRouter
// chat completions API.
package openrouter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/koscakluka/ema-cookbook/core/llms"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultModel   = "openai/gpt-3.5-turbo"
	DefaultTimeout = 60 * time.Second

	appTitle = "ema-cookbook"
)

var _ llms.Generator = (*Client)(nil)

type Client struct {
	client openai.Client
	model  string
}

type ClientOption func(*clientOptions)

type clientOptions struct {
	baseURL    string
	model      string
	timeout    time.Duration
	httpClient *http.Client
}

func WithBaseURL(baseURL string) ClientOption {
	return func(o *clientOptions) {
		if baseURL != "" {
			o.baseURL = baseURL
		}
	}
}

func WithModel(model string) ClientOption {
	return func(o *clientOptions) {
		if model != "" {
			o.model = model
		}
	}
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(o *clientOptions) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// WithHTTPClient replaces the instrumented default HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(o *clientOptions) { o.httpClient = client }
}

func NewClient(apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openrouter api key not set")
	}

	options := clientOptions{
		baseURL: DefaultBaseURL,
		model:   DefaultModel,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&options)
	}

	httpClient := options.httpClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: options.timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport,
				otelhttp.WithSpanNameFormatter(func(operationName string, request *http.Request) string {
					return operationName + " " + request.URL.Path
				}),
			),
		}
	}

	return &Client{
		client: openai.NewClient(
			option.WithAPIKey(apiKey),
			option.WithBaseURL(strings.TrimSuffix(options.baseURL, "/")+"/"),
			option.WithHTTPClient(httpClient),
			option.WithMaxRetries(0),
			option.WithHeader("X-Title", appTitle),
		),
		model: options.model,
	}, nil
}

func (c *Client) Model() string { return c.model }

// Generate sends the system instruction and the prompt as a single chat
// completion request and returns the text of the first choice.
func (c *Client) Generate(ctx context.Context, prompt string, systemInstruction string) (string, error) {
	ctx, span := tracer.Start(ctx, "prompt llm")
	defer span.End()
	span.SetAttributes(
		attribute.String("request.model", c.model),
		attribute.Int("request.prompt_length", len(prompt)),
	)

	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: toOpenAIMessages(llms.PromptMessages(prompt, systemInstruction)),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			span.SetAttributes(attribute.Int("response.status_code", apiErr.StatusCode))
		}
		err = fmt.Errorf("failed to prompt openrouter: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.ErrorContext(ctx, "openrouter request failed", "model", c.model, "error", err)
		return "", err
	}

	if len(completion.Choices) == 0 || strings.TrimSpace(completion.Choices[0].Message.Content) == "" {
		span.RecordError(llms.ErrEmptyResponse)
		span.SetStatus(codes.Error, llms.ErrEmptyResponse.Error())
		return "", llms.ErrEmptyResponse
	}

	span.SetAttributes(
		attribute.String("response.model", completion.Model),
		attribute.Int64("response.total_tokens", completion.Usage.TotalTokens),
		attribute.String("response.finish_reason", string(completion.Choices[0].FinishReason)),
	)
	return completion.Choices[0].Message.Content, nil
}

func toOpenAIMessages(messages []llms.Message) []openai.ChatCompletionMessageParamUnion {
	converted := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, message := range messages {
		switch message.Role {
		case llms.MessageRoleSystem:
			converted = append(converted, openai.SystemMessage(message.Content))
		case llms.MessageRoleAssistant:
			converted = append(converted, openai.AssistantMessage(message.Content))
		default:
			converted = append(converted, openai.UserMessage(message.Content))
		}
	}
	return converted
}
