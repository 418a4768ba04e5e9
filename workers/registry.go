package workers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/arbiterhq/arbiter/llm"
)

const researchSystemPrompt = `You are a research worker specialized in gathering and analyzing information.
Your task is to provide accurate, well-researched information based on the given task.
Be thorough but concise in your response.`

const creativeSystemPrompt = `You are a creative worker specialized in generating creative content,
writing, brainstorming, and artistic tasks. Your responses should be imaginative,
engaging, and tailored to the specific creative requirements.`

// Capabilities describes a worker for introspection endpoints.
type Capabilities struct {
	WorkerID       string   `json:"worker_id"`
	Capabilities   []string `json:"capabilities"`
	Specialization string   `json:"specialization"`
}

// Registry is the fixed set of workers available to the coordinator. The set
// is built once at startup and never mutated afterwards, so reads need no
// locking.
type Registry struct {
	workers map[string]*Worker
	order   []string
}

// NewRegistry builds the standard two-worker registry on the given provider.
func NewRegistry(provider llm.Provider, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}

	research := &Worker{
		ID:             "research_worker",
		Description:    "Gathers and analyzes information for research tasks",
		Capabilities:   []string{"information_gathering", "data_analysis", "fact_checking", "source_verification"},
		Specialization: "research_and_analysis",
		SystemPrompt:   researchSystemPrompt,
		Temperature:    0.1,
		TaskLabel:      "Task",
		ErrorLabel:     "research worker",
		provider:       provider,
		logger:         logger,
	}
	creative := &Worker{
		ID:             "creative_worker",
		Description:    "Generates creative content, writing, and brainstorming output",
		Capabilities:   []string{"content_generation", "creative_writing", "brainstorming", "artistic_creation", "storytelling"},
		Specialization: "creativity_and_content",
		SystemPrompt:   creativeSystemPrompt,
		Temperature:    0.7,
		TaskLabel:      "Creative Task",
		ErrorLabel:     "creative worker",
		provider:       provider,
		logger:         logger,
	}

	return &Registry{
		workers: map[string]*Worker{
			research.ID: research,
			creative.ID: creative,
		},
		order: []string{research.ID, creative.ID},
	}
}

// IDs returns the registered worker IDs in registration order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}

// Get returns the worker for id, or nil when unknown.
func (r *Registry) Get(id string) *Worker {
	return r.workers[id]
}

// AllCapabilities lists every worker's capability descriptor in
// registration order.
func (r *Registry) AllCapabilities() []Capabilities {
	out := make([]Capabilities, 0, len(r.order))
	for _, id := range r.order {
		w := r.workers[id]
		out = append(out, Capabilities{
			WorkerID:       w.ID,
			Capabilities:   append([]string(nil), w.Capabilities...),
			Specialization: w.Specialization,
		})
	}
	return out
}

// Execute dispatches a task to the named worker. It never returns an error:
// an unknown id yields a not-found text and an execution failure yields the
// worker's degraded error text, so one bad dispatch cannot abort a plan.
func (r *Registry) Execute(ctx context.Context, workerID, task string, shared map[string]any) string {
	w := r.workers[workerID]
	if w == nil {
		return fmt.Sprintf("Worker %s not found", workerID)
	}
	result, err := w.ExecuteTask(ctx, task, shared)
	if err != nil {
		return fmt.Sprintf("Error in %s: %v", w.ErrorLabel, err)
	}
	return result
}
