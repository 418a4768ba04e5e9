// Package workers holds the static worker registry and the coordinator that
// dispatches planned tasks to workers.
package workers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arbiterhq/arbiter/llm"
)

// Worker is a specialized task executor backed by the reasoning collaborator.
// A worker is defined entirely by its prompt persona and sampling temperature.
type Worker struct {
	ID             string
	Description    string
	Capabilities   []string
	Specialization string
	SystemPrompt   string
	Temperature    float64

	// TaskLabel prefixes the task line in the prompt ("Task", "Creative Task").
	TaskLabel string
	// ErrorLabel names the worker in degraded error text ("research worker").
	ErrorLabel string

	provider llm.Provider
	logger   *zap.Logger
}

// ExecuteTask runs a single task with optional shared context and returns the
// worker's textual result. The caller owns the deadline on ctx.
func (w *Worker) ExecuteTask(ctx context.Context, task string, shared map[string]any) (string, error) {
	user := fmt.Sprintf("%s: %s\nContext: %s", w.TaskLabel, task, renderContext(shared))

	start := time.Now()
	resp, err := w.provider.Completion(ctx, &llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: w.SystemPrompt},
			{Role: llm.RoleUser, Content: user},
		},
		Temperature: float32(w.Temperature),
	})
	if err != nil {
		return "", err
	}

	w.logger.Debug("task executed",
		zap.String("worker_id", w.ID),
		zap.Duration("duration", time.Since(start)),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)
	return resp.Text(), nil
}

// renderContext formats shared context for the prompt, keys sorted for
// deterministic output.
func renderContext(shared map[string]any) string {
	if len(shared) == 0 {
		return "No additional context"
	}
	var sb strings.Builder
	for i, id := range sortedKeys(shared) {
		if i > 0 {
			sb.WriteString("; ")
		}
		fmt.Fprintf(&sb, "%s: %v", id, shared[id])
	}
	return sb.String()
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 0; i < len(keys); i++ {
		for j := i + 1; j < len(keys); j++ {
			if keys[j] < keys[i] {
				keys[i], keys[j] = keys[j], keys[i]
			}
		}
	}
	return keys
}
