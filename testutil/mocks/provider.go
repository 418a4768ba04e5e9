// Package mocks provides test doubles for the LLM provider boundary.
//
// MockProvider supports fixed responses, scripted response sequences,
// per-prompt routing and error injection.
package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/arbiterhq/arbiter/llm"
)

// MockProvider is a scriptable llm.Provider implementation.
type MockProvider struct {
	mu sync.Mutex

	responses      []string
	err            error
	failAfter      int // fail calls with index >= failAfter when > 0
	completionFunc func(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error)

	calls     []*llm.ChatRequest
	callCount int
}

// NewMockProvider creates a provider that answers "Mock response" to every
// call.
func NewMockProvider() *MockProvider {
	return &MockProvider{responses: []string{"Mock response"}}
}

// WithResponse sets a single fixed response.
func (m *MockProvider) WithResponse(response string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = []string{response}
	return m
}

// WithResponses scripts a sequence of responses; the last one repeats once
// the script is exhausted.
func (m *MockProvider) WithResponses(responses ...string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append([]string(nil), responses...)
	return m
}

// WithError makes every call fail with err.
func (m *MockProvider) WithError(err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithFailAfter makes calls fail with err starting at the n-th call
// (1-based). Earlier calls answer normally.
func (m *MockProvider) WithFailAfter(n int, err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAfter = n
	m.err = err
	return m
}

// WithCompletionFunc overrides the completion behavior entirely.
func (m *MockProvider) WithCompletionFunc(fn func(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error)) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completionFunc = fn
	return m
}

// Completion implements llm.Provider.
func (m *MockProvider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.callCount++
	count := m.callCount
	m.calls = append(m.calls, req)
	fn := m.completionFunc
	err := m.err
	failAfter := m.failAfter
	response := ""
	if len(m.responses) > 0 {
		idx := count - 1
		if idx >= len(m.responses) {
			idx = len(m.responses) - 1
		}
		response = m.responses[idx]
	}
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if err != nil && (failAfter <= 0 || count >= failAfter) {
		return nil, err
	}

	return &llm.ChatResponse{
		Provider: "mock",
		Model:    req.Model,
		Choices: []llm.ChatChoice{
			{Message: llm.Message{Role: llm.RoleAssistant, Content: response}, FinishReason: "stop"},
		},
		Usage:     llm.ChatUsage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30},
		CreatedAt: time.Now(),
	}, nil
}

// HealthCheck implements llm.Provider.
func (m *MockProvider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	return &llm.HealthStatus{Healthy: true}, nil
}

// Name implements llm.Provider.
func (m *MockProvider) Name() string { return "mock" }

// Calls returns the recorded requests in call order.
func (m *MockProvider) Calls() []*llm.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*llm.ChatRequest(nil), m.calls...)
}

// CallCount returns how many completions were requested.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// LastUserPrompt returns the user-role content of the most recent call, or "".
func (m *MockProvider) LastUserPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return ""
	}
	req := m.calls[len(m.calls)-1]
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == llm.RoleUser {
			return req.Messages[i].Content
		}
	}
	return ""
}
