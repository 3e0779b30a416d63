package openrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/koscakluka/ema-cookbook/core/llms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Path          string
	Authorization string
	Title         string
	Body          struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
}

func newTestServer(t *testing.T, status int, response string, captured *capturedRequest, calls *int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		captured.Path = r.URL.Path
		captured.Authorization = r.Header.Get("Authorization")
		captured.Title = r.Header.Get("X-Title")
		_ = json.NewDecoder(r.Body).Decode(&captured.Body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(server.Close)
	return server
}

const completionResponse = `{
	"id": "gen-1",
	"object": "chat.completion",
	"created": 1700000000,
	"model": "openai/gpt-3.5-turbo",
	"choices": [{
		"index": 0,
		"message": {"role": "assistant", "content": "You will need flour and a bowl."},
		"finish_reason": "stop"
	}],
	"usage": {"prompt_tokens": 10, "completion_tokens": 8, "total_tokens": 18}
}`

func TestGenerate(t *testing.T) {
	var captured capturedRequest
	calls := 0
	server := newTestServer(t, http.StatusOK, completionResponse, &captured, &calls)

	client, err := NewClient("test-key", WithBaseURL(server.URL), WithModel("test/model"))
	require.NoError(t, err)

	text, err := client.Generate(context.Background(), "For bread, list things.", "Be brief.")

	require.NoError(t, err)
	assert.Equal(t, "You will need flour and a bowl.", text)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "/chat/completions", captured.Path)
	assert.Equal(t, "Bearer test-key", captured.Authorization)
	assert.Equal(t, appTitle, captured.Title)
	assert.Equal(t, "test/model", captured.Body.Model)
	require.Len(t, captured.Body.Messages, 2)
	assert.Equal(t, "system", captured.Body.Messages[0].Role)
	assert.Equal(t, "Be brief.", captured.Body.Messages[0].Content)
	assert.Equal(t, "user", captured.Body.Messages[1].Role)
	assert.Equal(t, "For bread, list things.", captured.Body.Messages[1].Content)
}

func TestGenerateDoesNotRetry(t *testing.T) {
	var captured capturedRequest
	calls := 0
	server := newTestServer(t, http.StatusServiceUnavailable,
		`{"error": {"message": "overloaded", "code": 503}}`, &captured, &calls)

	client, err := NewClient("test-key", WithBaseURL(server.URL))
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), "prompt", "")

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestGenerateEmptyChoices(t *testing.T) {
	var captured capturedRequest
	calls := 0
	server := newTestServer(t, http.StatusOK,
		`{"id": "gen-2", "object": "chat.completion", "created": 1, "model": "m", "choices": []}`, &captured, &calls)

	client, err := NewClient("test-key", WithBaseURL(server.URL))
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), "prompt", "")

	assert.ErrorIs(t, err, llms.ErrEmptyResponse)
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient("")
	assert.Error(t, err)
}

func TestPromptMessagesSkipEmptyInstruction(t *testing.T) {
	messages := toOpenAIMessages(llms.PromptMessages("only prompt", ""))
	assert.Len(t, messages, 1)
}
