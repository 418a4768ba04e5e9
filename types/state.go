package types

import "time"

// DefaultHistoryCap is the number of conversation messages the supervisor
// memory retains when no explicit cap is configured.
const DefaultHistoryCap = 10

// Memory is the supervisor's bounded conversation history plus the key/value
// context gathered during a run. It is owned by the RunState and mutated only
// by the supervisor.
type Memory struct {
	History   []Message      `json:"history"`
	Context   map[string]any `json:"context"`
	Decisions []PlanRecord   `json:"decisions"`
}

// PlanRecord is a historical note about an execution plan the supervisor
// committed to during a run.
type PlanRecord struct {
	Query     string    `json:"query"`
	Workers   []string  `json:"workers"`
	CreatedAt time.Time `json:"created_at"`
}

// NewMemory returns an empty memory with an initialized context map.
func NewMemory() *Memory {
	return &Memory{
		Context: make(map[string]any),
	}
}

// Append adds a message to the history, dropping the oldest entries once the
// cap is exceeded. Order of the retained messages is preserved. A cap <= 0
// falls back to DefaultHistoryCap.
func (m *Memory) Append(msg Message, histCap int) {
	if histCap <= 0 {
		histCap = DefaultHistoryCap
	}
	m.History = append(m.History, msg)
	if len(m.History) > histCap {
		m.History = m.History[len(m.History)-histCap:]
	}
}

// RecentContext returns the last min(n, len(history)) messages in
// chronological order. An empty history yields an empty slice.
func (m *Memory) RecentContext(n int) []Message {
	if n <= 0 || len(m.History) == 0 {
		return nil
	}
	if n > len(m.History) {
		n = len(m.History)
	}
	return m.History[len(m.History)-n:]
}

// SetContext stores a value under key in the gathered-context map.
func (m *Memory) SetContext(key string, value any) {
	if m.Context == nil {
		m.Context = make(map[string]any)
	}
	m.Context[key] = value
}

// GetContext returns the value stored under key, if any.
func (m *Memory) GetContext(key string) (any, bool) {
	v, ok := m.Context[key]
	return v, ok
}

// RecordDecision appends a plan record to the decision history.
func (m *Memory) RecordDecision(rec PlanRecord) {
	m.Decisions = append(m.Decisions, rec)
}

// WorkerState tracks the last known activity of a single registered worker
// for the duration of one run.
type WorkerState struct {
	WorkerID     string    `json:"worker_id"`
	CurrentTask  string    `json:"current_task,omitempty"`
	LastResult   string    `json:"last_result,omitempty"`
	Busy         bool      `json:"busy"`
	LastActivity time.Time `json:"last_activity"`
}

// NewWorkerState creates an idle worker state for workerID.
func NewWorkerState(workerID string) *WorkerState {
	return &WorkerState{
		WorkerID:     workerID,
		LastActivity: time.Now(),
	}
}

// Phase is the coarse progress marker on a run.
type Phase string

const (
	PhaseGatheringInfo Phase = "gathering_info"
	PhaseProcessing    Phase = "processing"
	PhaseCompleted     Phase = "completed"
)

// RunState is the single mutable record threaded through the workflow for one
// query's lifetime. It is exclusively owned by the engine; stage handlers
// receive it, mutate it, and hand it back. It is never shared between runs.
type RunState struct {
	RunID         string                  `json:"run_id"`
	Query         string                  `json:"query"`
	Memory        *Memory                 `json:"memory"`
	WorkerStates  map[string]*WorkerState `json:"worker_states"`
	Phase         Phase                   `json:"phase"`
	FinalResponse string                  `json:"final_response,omitempty"`
	ErrorMessage  string                  `json:"error_message,omitempty"`
	StartedAt     time.Time               `json:"started_at"`
}

// ActiveWorkers counts workers currently marked busy.
func (s *RunState) ActiveWorkers() int {
	n := 0
	for _, ws := range s.WorkerStates {
		if ws.Busy {
			n++
		}
	}
	return n
}
