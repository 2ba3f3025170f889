package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/debugd/internal/config"
)

func TestNewClient_UnknownProvider(t *testing.T) {
	_, err := NewClient(config.ModelConfig{Provider: "bard"})
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestNewClient_MissingAPIKey(t *testing.T) {
	_, err := NewClient(config.ModelConfig{Provider: "anthropic", Model: "claude-sonnet-4-5"})
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = NewClient(config.ModelConfig{Provider: "openai", Model: "gpt-4o"})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestNewClient_OllamaNeedsNoKey(t *testing.T) {
	client, err := NewClient(config.ModelConfig{Provider: "ollama", Model: "llama3"})
	require.NoError(t, err)
	assert.Equal(t, "llama3", client.Model())
}

func TestAnthropicComplete(t *testing.T) {
	var gotAuth, gotVersion string
	var gotReq anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("X-API-Key")
		gotVersion = r.Header.Get("Anthropic-Version")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(anthropicResponse{
			Content: []struct {
				Text string `json:"text"`
			}{{Text: "PLAN:\n- fix it"}},
		})
	}))
	defer srv.Close()

	client, err := NewClient(config.ModelConfig{
		Provider:  "anthropic",
		Model:     "claude-sonnet-4-5",
		APIKey:    config.Secret("sk-test"),
		BaseURL:   srv.URL,
		MaxTokens: 1024,
	})
	require.NoError(t, err)

	out, err := client.Complete(context.Background(), "you are the planner", []Message{
		{Role: "user", Content: "bug report"},
	})
	require.NoError(t, err)
	assert.Equal(t, "PLAN:\n- fix it", out)
	assert.Equal(t, "sk-test", gotAuth)
	assert.Equal(t, anthropicAPIVersion, gotVersion)
	assert.Equal(t, "you are the planner", gotReq.System)
	require.Len(t, gotReq.Messages, 1)
}

func TestAnthropicComplete_RetriesServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(anthropicResponse{
			Content: []struct {
				Text string `json:"text"`
			}{{Text: "ok"}},
		})
	}))
	defer srv.Close()

	client, err := NewClient(config.ModelConfig{
		Provider: "anthropic",
		Model:    "claude-sonnet-4-5",
		APIKey:   config.Secret("sk-test"),
		BaseURL:  srv.URL,
	})
	require.NoError(t, err)

	out, err := client.Complete(context.Background(), "", []Message{{Role: "user", Content: "x"}})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(2), calls.Load())
}

func TestAnthropicComplete_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"message": "max_tokens too large"},
		})
	}))
	defer srv.Close()

	client, err := NewClient(config.ModelConfig{
		Provider: "anthropic",
		Model:    "claude-sonnet-4-5",
		APIKey:   config.Secret("sk-test"),
		BaseURL:  srv.URL,
	})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "", []Message{{Role: "user", Content: "x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_tokens too large")
	assert.Equal(t, int32(1), calls.Load())
}

func TestOpenAIComplete(t *testing.T) {
	var gotReq openAIRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(openAIResponse{
			Choices: []struct {
				Message openAIMessage `json:"message"`
			}{{Message: openAIMessage{Role: "assistant", Content: "HANDOFF: coder"}}},
		})
	}))
	defer srv.Close()

	client, err := NewClient(config.ModelConfig{
		Provider: "openai",
		Model:    "gpt-4o",
		APIKey:   config.Secret("sk-test"),
		BaseURL:  srv.URL,
	})
	require.NoError(t, err)

	out, err := client.Complete(context.Background(), "sys", []Message{{Role: "user", Content: "x"}})
	require.NoError(t, err)
	assert.Equal(t, "HANDOFF: coder", out)
	// the system instruction becomes the leading system message
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
}

func TestOpenAIComplete_EmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(openAIResponse{})
	}))
	defer srv.Close()

	client, err := NewClient(config.ModelConfig{
		Provider: "openai",
		Model:    "gpt-4o",
		APIKey:   config.Secret("sk-test"),
		BaseURL:  srv.URL,
	})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "", []Message{{Role: "user", Content: "x"}})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestWithRetries_NonRetryableStopsImmediately(t *testing.T) {
	calls := 0
	_, err := withRetries(context.Background(), 3, func() (string, error) {
		calls++
		return "", errors.New("bad request")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetries_ExhaustsRetryable(t *testing.T) {
	calls := 0
	_, err := withRetries(context.Background(), 2, func() (string, error) {
		calls++
		return "", &retryableError{err: errors.New("503")}
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries exceeded")
	assert.Equal(t, 3, calls)
}
