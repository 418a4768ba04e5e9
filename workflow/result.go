package workflow

// Result is the structured outcome of one query run, returned to the
// transport layer and serialized as-is.
type Result struct {
	Status               string            `json:"status"`
	CurrentPhase         string            `json:"current_phase,omitempty"`
	SupervisorMemorySize int               `json:"supervisor_memory_size"`
	ActiveWorkers        int               `json:"active_workers"`
	Action               string            `json:"action,omitempty"`
	FollowUpQuestions    []string          `json:"follow_up_questions,omitempty"`
	FinalResponse        string            `json:"final_response,omitempty"`
	WorkerResults        map[string]string `json:"worker_results,omitempty"`
	Message              string            `json:"message,omitempty"`
	Error                string            `json:"error,omitempty"`
}

const (
	// StatusSuccess marks a run that completed, possibly with degraded
	// content embedded in its fields.
	StatusSuccess = "success"
	// StatusError marks a run aborted by a stage failure.
	StatusError = "error"

	// ActionGatherInfo asks the caller for more information.
	ActionGatherInfo = "gather_info"
	// ActionCompleted carries the synthesized final response.
	ActionCompleted = "completed"
)
