package types

// WorkerAssignment is one task handed to a specific worker as part of an
// execution plan. Dependencies are descriptive metadata; they do not gate or
// reorder execution, which follows plan order.
type WorkerAssignment struct {
	WorkerID     string   `json:"worker_id"`
	Task         string   `json:"task"`
	Priority     string   `json:"priority,omitempty"` // high, medium, low
	Dependencies []string `json:"dependencies,omitempty"`
}

// ExecutionPlan is produced once per run by the supervisor and consumed once
// by the worker coordinator.
type ExecutionPlan struct {
	Assignments     []WorkerAssignment `json:"worker_assignments"`
	Order           []string           `json:"execution_order"`
	ExpectedOutputs []string           `json:"expected_outputs"`
	QualityChecks   []string           `json:"quality_checks"`
}

// Empty reports whether the plan carries no assignments.
func (p *ExecutionPlan) Empty() bool {
	return p == nil || len(p.Assignments) == 0
}

// PlanSummary is the execution strategy sketch the supervisor includes in its
// query analysis, before a full plan exists.
type PlanSummary struct {
	RequiredWorkers     []string `json:"required_workers"`
	TaskBreakdown       []string `json:"task_breakdown"`
	EstimatedComplexity string   `json:"estimated_complexity"` // low, medium, high, unknown
}

// Analysis is the supervisor's structured judgment about a user query. It is
// transient: the engine stores it in the run context under "last_analysis".
type Analysis struct {
	HasSufficientInfo  bool        `json:"has_sufficient_info"`
	MissingInformation []string    `json:"missing_information"`
	FollowUpQuestions  []string    `json:"follow_up_questions"`
	Plan               PlanSummary `json:"execution_plan"`
	Confidence         float64     `json:"confidence_score"`
}
