// Package workflow runs a user query through the supervisor-worker state
// machine: analyze the query, then either ask follow-up questions or execute
// the planned worker tasks and synthesize their results.
package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/arbiterhq/arbiter/internal/metrics"
	"github.com/arbiterhq/arbiter/supervisor"
	"github.com/arbiterhq/arbiter/types"
	"github.com/arbiterhq/arbiter/workers"
)

// stage identifies one node of the run state machine.
type stage string

const (
	stageAnalyze    stage = "analyze_query"
	stageGatherInfo stage = "gather_info"
	stageExecute    stage = "execute_workers"
	stageSynthesize stage = "synthesize_results"
	stageDone       stage = "done"
)

// Run-context keys written by stage handlers and read by routing and by the
// result builder.
const (
	ctxLastAnalysis      = "last_analysis"
	ctxFollowUpQuestions = "follow_up_questions"
	ctxExecutionPlan     = "execution_plan"
	ctxWorkerResults     = "worker_results"
)

// Engine owns the state machine. Stages are fixed at compile time and every
// run traverses them at most once; there are no back-edges.
type Engine struct {
	supervisor  *supervisor.Supervisor
	coordinator *workers.Coordinator
	registry    *workers.Registry
	collector   *metrics.Collector
	logger      *zap.Logger
	tracer      trace.Tracer
}

// New assembles the engine. collector may be nil.
func New(sup *supervisor.Supervisor, coord *workers.Coordinator, registry *workers.Registry, collector *metrics.Collector, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		supervisor:  sup,
		coordinator: coord,
		registry:    registry,
		collector:   collector,
		logger:      logger.With(zap.String("component", "workflow")),
		tracer:      otel.Tracer("arbiter/workflow"),
	}
}

// ProcessQuery runs a single query to completion and returns the structured
// result. Recoverable failures inside stages degrade to fallback content; only
// an uncaught stage failure produces a status of "error".
func (e *Engine) ProcessQuery(ctx context.Context, query string) *Result {
	start := time.Now()
	state := e.newRunState(query)

	ctx, span := e.tracer.Start(ctx, "workflow.process_query",
		trace.WithAttributes(attribute.String("run_id", state.RunID)))
	defer span.End()

	logger := e.logger.With(zap.String("run_id", state.RunID))
	logger.Info("run started", zap.String("query", truncate(query, 100)))

	current := stageAnalyze
	for current != stageDone {
		if err := e.runStage(ctx, current, state); err != nil {
			state.ErrorMessage = fmt.Sprintf("Error in %s: %v", current, err)
			logger.Error("stage failed", zap.String("stage", string(current)), zap.Error(err))
			break
		}
		current = nextStage(current, state)
	}

	result := e.buildResult(state)

	if e.collector != nil {
		e.collector.ObserveWorkflowRun(result.Status, time.Since(start))
	}
	logger.Info("run finished",
		zap.String("status", result.Status),
		zap.String("phase", result.CurrentPhase),
		zap.Duration("duration", time.Since(start)),
	)
	return result
}

func (e *Engine) newRunState(query string) *types.RunState {
	state := &types.RunState{
		RunID:        uuid.NewString(),
		Query:        query,
		Memory:       types.NewMemory(),
		WorkerStates: make(map[string]*types.WorkerState),
		Phase:        types.PhaseGatheringInfo,
		StartedAt:    time.Now().UTC(),
	}
	for _, id := range e.registry.IDs() {
		state.WorkerStates[id] = types.NewWorkerState(id)
	}
	return state
}

func (e *Engine) runStage(ctx context.Context, s stage, state *types.RunState) error {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "workflow.stage."+string(s))
	defer span.End()

	var err error
	switch s {
	case stageAnalyze:
		err = e.analyzeStage(ctx, state)
	case stageGatherInfo:
		err = e.gatherInfoStage(ctx, state)
	case stageExecute:
		err = e.executeStage(ctx, state)
	case stageSynthesize:
		err = e.synthesizeStage(ctx, state)
	default:
		err = fmt.Errorf("unknown stage %q", s)
	}

	if e.collector != nil {
		e.collector.ObserveStage(string(s), time.Since(start))
	}
	return err
}

// nextStage is the routing function. Only the analyze stage branches, and it
// branches solely on the error message and the stored analysis.
func nextStage(current stage, state *types.RunState) stage {
	switch current {
	case stageAnalyze:
		if state.ErrorMessage != "" {
			return stageDone
		}
		if analysis := lastAnalysis(state); analysis != nil && analysis.HasSufficientInfo {
			return stageExecute
		}
		return stageGatherInfo
	case stageGatherInfo:
		return stageDone
	case stageExecute:
		return stageSynthesize
	case stageSynthesize:
		return stageDone
	default:
		return stageDone
	}
}

// analyzeStage records the user message, obtains the supervisor's analysis,
// and sets the phase from its sufficiency verdict.
func (e *Engine) analyzeStage(ctx context.Context, state *types.RunState) error {
	e.supervisor.UpdateMemory(types.NewUserMessage(state.Query), state)

	analysis := e.supervisor.AnalyzeQuery(ctx, state.Query, state)
	state.Memory.SetContext(ctxLastAnalysis, analysis)

	if analysis.HasSufficientInfo {
		state.Phase = types.PhaseProcessing
	} else {
		state.Phase = types.PhaseGatheringInfo
	}
	return nil
}

// gatherInfoStage generates follow-up questions for the missing information
// named by the analysis.
func (e *Engine) gatherInfoStage(ctx context.Context, state *types.RunState) error {
	analysis := lastAnalysis(state)
	if analysis == nil || len(analysis.MissingInformation) == 0 {
		return nil
	}

	questions := e.supervisor.GenerateFollowUpQuestions(ctx, analysis.MissingInformation, state.Query)
	e.supervisor.UpdateMemory(types.NewSupervisorQuestion(strings.Join(questions, "\n")), state)
	state.Memory.SetContext(ctxFollowUpQuestions, questions)
	return nil
}

// executeStage creates the execution plan and dispatches its assignments.
func (e *Engine) executeStage(ctx context.Context, state *types.RunState) error {
	analysis := lastAnalysis(state)

	plan := e.supervisor.CreateExecutionPlan(ctx, state.Query, analysis, state)
	state.Memory.SetContext(ctxExecutionPlan, plan)
	state.Memory.RecordDecision(types.PlanRecord{
		Query:     state.Query,
		Workers:   plannedWorkers(plan),
		CreatedAt: time.Now().UTC(),
	})

	results := e.coordinator.Execute(ctx, plan, state)
	for _, a := range plan.Assignments {
		if r, ok := results[a.WorkerID]; ok {
			e.supervisor.UpdateMemory(types.NewWorkerResponse(a.WorkerID, r), state)
		}
	}
	state.Memory.SetContext(ctxWorkerResults, results)

	state.Phase = types.PhaseCompleted
	return nil
}

// synthesizeStage combines worker results into the final response.
func (e *Engine) synthesizeStage(ctx context.Context, state *types.RunState) error {
	results := workerResults(state)
	if len(results) == 0 {
		return nil
	}

	var order []string
	if v, ok := state.Memory.GetContext(ctxExecutionPlan); ok {
		if plan, ok := v.(*types.ExecutionPlan); ok {
			order = plan.Order
		}
	}

	final := e.supervisor.SynthesizeResults(ctx, results, order, state.Query, state)
	state.FinalResponse = final
	e.supervisor.UpdateMemory(types.NewSupervisorDecision(final), state)
	return nil
}

func (e *Engine) buildResult(state *types.RunState) *Result {
	result := &Result{
		Status:               StatusSuccess,
		CurrentPhase:         string(state.Phase),
		SupervisorMemorySize: len(state.Memory.History),
		ActiveWorkers:        state.ActiveWorkers(),
	}

	switch {
	case state.ErrorMessage != "":
		result.Status = StatusError
		result.Error = state.ErrorMessage

	case state.Phase == types.PhaseGatheringInfo:
		result.Action = ActionGatherInfo
		result.FollowUpQuestions = followUpQuestions(state)
		result.Message = "Please provide additional information to proceed."

	case state.Phase == types.PhaseCompleted:
		result.Action = ActionCompleted
		result.FinalResponse = state.FinalResponse
		result.WorkerResults = workerResults(state)
		result.Message = "Task completed successfully."
	}

	return result
}

func lastAnalysis(state *types.RunState) *types.Analysis {
	v, ok := state.Memory.GetContext(ctxLastAnalysis)
	if !ok {
		return nil
	}
	analysis, _ := v.(*types.Analysis)
	return analysis
}

func workerResults(state *types.RunState) map[string]string {
	v, ok := state.Memory.GetContext(ctxWorkerResults)
	if !ok {
		return nil
	}
	results, _ := v.(map[string]string)
	return results
}

func followUpQuestions(state *types.RunState) []string {
	v, ok := state.Memory.GetContext(ctxFollowUpQuestions)
	if !ok {
		return nil
	}
	questions, _ := v.([]string)
	return questions
}

func plannedWorkers(plan *types.ExecutionPlan) []string {
	ids := make([]string, 0, len(plan.Assignments))
	for _, a := range plan.Assignments {
		ids = append(ids, a.WorkerID)
	}
	return ids
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
