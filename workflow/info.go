package workflow

import "github.com/arbiterhq/arbiter/workers"

// Info describes the workflow shape and the workers it can dispatch to.
type Info struct {
	WorkflowType           string                          `json:"workflow_type"`
	AvailableWorkers       map[string]workers.Capabilities `json:"available_workers"`
	SupervisorCapabilities []string                        `json:"supervisor_capabilities"`
	MemoryFeatures         []string                        `json:"memory_features"`
}

// Info returns the static workflow description.
func (e *Engine) Info() Info {
	available := make(map[string]workers.Capabilities)
	for _, caps := range e.registry.AllCapabilities() {
		available[caps.WorkerID] = caps
	}
	return Info{
		WorkflowType:     "supervisor_worker",
		AvailableWorkers: available,
		SupervisorCapabilities: []string{
			"query_analysis",
			"information_gathering",
			"worker_coordination",
			"result_synthesis",
		},
		MemoryFeatures: []string{
			"conversation_history",
			"context_tracking",
			"decision_history",
		},
	}
}
