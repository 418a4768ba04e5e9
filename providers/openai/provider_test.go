package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arbiterhq/arbiter/llm"
	"github.com/arbiterhq/arbiter/providers"
)

func newTestProvider(baseURL string) *Provider {
	return New(providers.OpenAIConfig{
		APIKey:  "test-key",
		BaseURL: baseURL,
		Model:   "gpt-4o-mini",
		Timeout: 5 * time.Second,
	}, zap.NewNop())
}

func TestOpenAIProvider_Name(t *testing.T) {
	provider := newTestProvider("")
	assert.Equal(t, "openai", provider.Name())
}

func TestOpenAIProvider_Completion(t *testing.T) {
	var gotAuth string
	var gotBody openAIRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(openAIResponse{
			ID:    "chatcmpl-123",
			Model: "gpt-4o-mini",
			Choices: []openAIChoice{
				{Index: 0, FinishReason: "stop", Message: openAIMessage{Role: "assistant", Content: "hello there"}},
			},
			Usage:   &openAIUsage{PromptTokens: 12, CompletionTokens: 4, TotalTokens: 16},
			Created: 1700000000,
		})
	}))
	defer srv.Close()

	provider := newTestProvider(srv.URL)
	resp, err := provider.Completion(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "You are helpful."},
			{Role: llm.RoleUser, Content: "Say hello"},
		},
		Temperature: 0.2,
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "gpt-4o-mini", gotBody.Model)
	require.Len(t, gotBody.Messages, 2)
	assert.Equal(t, "system", gotBody.Messages[0].Role)
	assert.Equal(t, "Say hello", gotBody.Messages[1].Content)

	assert.Equal(t, "chatcmpl-123", resp.ID)
	assert.Equal(t, "openai", resp.Provider)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, llm.RoleAssistant, resp.Choices[0].Message.Role)
	assert.Equal(t, "hello there", resp.Choices[0].Message.Content)
	assert.Equal(t, 16, resp.Usage.TotalTokens)
	assert.Equal(t, time.Unix(1700000000, 0), resp.CreatedAt)
}

func TestOpenAIProvider_ModelPriority(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body openAIRequest
		json.NewDecoder(r.Body).Decode(&body)
		gotModel = body.Model
		json.NewEncoder(w).Encode(openAIResponse{Choices: []openAIChoice{{Message: openAIMessage{Content: "ok"}}}})
	}))
	defer srv.Close()

	provider := newTestProvider(srv.URL)
	_, err := provider.Completion(context.Background(), &llm.ChatRequest{
		Model:    "gpt-4o",
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", gotModel, "request model overrides config model")
}

func TestOpenAIProvider_ErrorMapping(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		code      llm.ErrorCode
		retryable bool
	}{
		{
			name:   "Unauthorized",
			status: http.StatusUnauthorized,
			body:   `{"error":{"message":"invalid api key","type":"invalid_request_error"}}`,
			code:   llm.ErrUnauthorized,
		},
		{
			name:      "RateLimited",
			status:    http.StatusTooManyRequests,
			body:      `{"error":{"message":"rate limit exceeded"}}`,
			code:      llm.ErrRateLimited,
			retryable: true,
		},
		{
			name:   "QuotaExceeded",
			status: http.StatusBadRequest,
			body:   `{"error":{"message":"you have exceeded your quota"}}`,
			code:   llm.ErrQuotaExceeded,
		},
		{
			name:   "InvalidRequest",
			status: http.StatusBadRequest,
			body:   `{"error":{"message":"missing messages"}}`,
			code:   llm.ErrInvalidRequest,
		},
		{
			name:      "ServiceUnavailable",
			status:    http.StatusServiceUnavailable,
			body:      `{"error":{"message":"upstream down"}}`,
			code:      llm.ErrUpstreamError,
			retryable: true,
		},
		{
			name:      "ModelOverloaded",
			status:    529,
			body:      `{"error":{"message":"overloaded"}}`,
			code:      llm.ErrModelOverloaded,
			retryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			provider := newTestProvider(srv.URL)
			_, err := provider.Completion(context.Background(), &llm.ChatRequest{
				Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
			})
			require.Error(t, err)

			var llmErr *llm.Error
			require.ErrorAs(t, err, &llmErr)
			assert.Equal(t, tt.code, llmErr.Code)
			assert.Equal(t, tt.status, llmErr.HTTPStatus)
			assert.Equal(t, tt.retryable, llmErr.Retryable)
			assert.Equal(t, "openai", llmErr.Provider)
		})
	}
}

func TestOpenAIProvider_ErrorMessageExtraction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"invalid api key"}}`))
	}))
	defer srv.Close()

	provider := newTestProvider(srv.URL)
	_, err := provider.Completion(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	require.Error(t, err)
	assert.Equal(t, "invalid api key", err.Error())
}

func TestOpenAIProvider_ConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	provider := newTestProvider(srv.URL)
	_, err := provider.Completion(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	require.Error(t, err)

	var llmErr *llm.Error
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, llm.ErrUpstreamError, llmErr.Code)
	assert.True(t, llmErr.Retryable)
}

func TestOpenAIProvider_HealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/models", r.URL.Path)
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	provider := newTestProvider(srv.URL)
	status, err := provider.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Healthy)
	assert.Greater(t, status.Latency, time.Duration(0))
}

func TestOpenAIProvider_HealthCheckUnhealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"boom"}}`))
	}))
	defer srv.Close()

	provider := newTestProvider(srv.URL)
	status, err := provider.HealthCheck(context.Background())
	require.Error(t, err)
	assert.False(t, status.Healthy)
}
