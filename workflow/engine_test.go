package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arbiterhq/arbiter/config"
	"github.com/arbiterhq/arbiter/llm"
	"github.com/arbiterhq/arbiter/supervisor"
	"github.com/arbiterhq/arbiter/testutil/mocks"
	"github.com/arbiterhq/arbiter/types"
	"github.com/arbiterhq/arbiter/workers"
)

const insufficientAnalysis = `{"has_sufficient_info": false, "missing_information": ["what to write"], "follow_up_questions": ["What would you like me to write about?"], "confidence_score": 0.4}`

const sufficientAnalysis = `{"has_sufficient_info": true, "missing_information": [], "follow_up_questions": [], "execution_plan": {"required_workers": ["research_worker", "creative_worker"], "task_breakdown": ["research", "summarize"], "estimated_complexity": "medium"}, "confidence_score": 0.9}`

const twoStepPlan = `{"worker_assignments": [{"worker_id": "research_worker", "task": "Research quantum computing", "priority": "high", "dependencies": []}, {"worker_id": "creative_worker", "task": "Write a creative summary", "priority": "medium", "dependencies": ["research_worker"]}], "execution_order": ["research_worker", "creative_worker"], "expected_outputs": ["findings", "summary"], "quality_checks": ["accuracy"]}`

func newTestEngine(provider *mocks.MockProvider) *Engine {
	logger := zap.NewNop()
	registry := workers.NewRegistry(provider, logger)
	coordinator := workers.NewCoordinator(registry, config.DefaultWorkersConfig(), logger)
	sup := supervisor.New(provider, nil, config.DefaultSupervisorConfig(), registry.IDs(), logger)
	return New(sup, coordinator, registry, nil, logger)
}

func TestProcessQueryGatherInfo(t *testing.T) {
	// Analysis says more information is needed, then the follow-up call
	// produces questions.
	provider := mocks.NewMockProvider().WithResponses(
		insufficientAnalysis,
		"1. What topic should I write about?\n2. How long should it be?",
	)
	engine := newTestEngine(provider)

	result := engine.ProcessQuery(context.Background(), "Help me write something")

	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, string(types.PhaseGatheringInfo), result.CurrentPhase)
	assert.Equal(t, ActionGatherInfo, result.Action)
	require.NotEmpty(t, result.FollowUpQuestions)
	assert.Equal(t, "Please provide additional information to proceed.", result.Message)
	assert.Empty(t, result.WorkerResults)
	assert.Empty(t, result.FinalResponse)
	assert.Zero(t, result.ActiveWorkers)
	// Analysis plus follow-up generation, no worker dispatch.
	assert.Equal(t, 2, provider.CallCount())
}

func TestProcessQueryCompleted(t *testing.T) {
	provider := mocks.NewMockProvider().WithResponses(
		sufficientAnalysis,
		twoStepPlan,
		"quantum computing facts",
		"a creative quantum summary",
		"Final synthesized response about quantum computing.",
	)
	engine := newTestEngine(provider)

	result := engine.ProcessQuery(context.Background(), "Research quantum computing and create a creative summary")

	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, string(types.PhaseCompleted), result.CurrentPhase)
	assert.Equal(t, ActionCompleted, result.Action)
	assert.Equal(t, "Task completed successfully.", result.Message)
	assert.NotEmpty(t, result.FinalResponse)

	require.Len(t, result.WorkerResults, 2)
	assert.Equal(t, "quantum computing facts", result.WorkerResults["research_worker"])
	assert.Equal(t, "a creative quantum summary", result.WorkerResults["creative_worker"])
	assert.Empty(t, result.FollowUpQuestions)

	// Dispatch happened in plan order: research persona before creative.
	calls := provider.Calls()
	require.Len(t, calls, 5)
	assert.Contains(t, calls[2].Messages[0].Content, "research worker")
	assert.Contains(t, calls[3].Messages[0].Content, "creative worker")
}

func TestProcessQueryMidPlanWorkerFailure(t *testing.T) {
	calls := 0
	scripted := []string{sufficientAnalysis, twoStepPlan}
	provider := mocks.NewMockProvider().WithCompletionFunc(
		func(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
			calls++
			switch {
			case calls <= 2:
				return textResponse(scripted[calls-1]), nil
			case calls == 3:
				// research_worker dispatch fails
				return nil, errors.New("model unavailable")
			case calls == 4:
				return textResponse("creative output"), nil
			default:
				return textResponse("final response"), nil
			}
		})
	engine := newTestEngine(provider)

	result := engine.ProcessQuery(context.Background(), "Research and summarize")

	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, string(types.PhaseCompleted), result.CurrentPhase)
	require.Len(t, result.WorkerResults, 2)
	assert.Equal(t, "Error in research worker: model unavailable", result.WorkerResults["research_worker"])
	assert.Equal(t, "creative output", result.WorkerResults["creative_worker"])
	assert.Equal(t, "final response", result.FinalResponse)
}

func TestProcessQueryAnalysisProviderFailure(t *testing.T) {
	// Every collaborator call fails. Analysis degrades to its fallback and the
	// run still succeeds with gather_info.
	provider := mocks.NewMockProvider().WithError(errors.New("upstream down"))
	engine := newTestEngine(provider)

	result := engine.ProcessQuery(context.Background(), "anything")

	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, ActionGatherInfo, result.Action)
	require.Len(t, result.FollowUpQuestions, 1)
	assert.True(t, strings.HasPrefix(result.FollowUpQuestions[0], "Could you provide more details about:"))
}

func TestProcessQueryUnparsablePlanUsesFallback(t *testing.T) {
	provider := mocks.NewMockProvider().WithResponses(
		sufficientAnalysis,
		"not a plan at all",
		"research output",
		"creative output",
		"final",
	)
	engine := newTestEngine(provider)

	result := engine.ProcessQuery(context.Background(), "do both")

	assert.Equal(t, ActionCompleted, result.Action)
	require.Len(t, result.WorkerResults, 2)
	assert.Contains(t, result.WorkerResults, "research_worker")
	assert.Contains(t, result.WorkerResults, "creative_worker")
}

func TestProcessQueryRecordsMemory(t *testing.T) {
	provider := mocks.NewMockProvider().WithResponses(
		insufficientAnalysis,
		"1. What exactly do you need?",
	)
	engine := newTestEngine(provider)

	result := engine.ProcessQuery(context.Background(), "Help")

	// user input + supervisor question
	assert.Equal(t, 2, result.SupervisorMemorySize)
}

func TestProcessQueryRecordsPlanDecision(t *testing.T) {
	provider := mocks.NewMockProvider().WithResponses(
		sufficientAnalysis,
		twoStepPlan,
		"r", "c", "final",
	)
	engine := newTestEngine(provider)
	state := engine.newRunState("q")

	require.NoError(t, engine.analyzeStage(context.Background(), state))
	require.NoError(t, engine.executeStage(context.Background(), state))

	require.Len(t, state.Memory.Decisions, 1)
	assert.Equal(t, []string{"research_worker", "creative_worker"}, state.Memory.Decisions[0].Workers)
}

func TestWorkflowInfo(t *testing.T) {
	engine := newTestEngine(mocks.NewMockProvider())

	info := engine.Info()

	assert.Equal(t, "supervisor_worker", info.WorkflowType)
	require.Len(t, info.AvailableWorkers, 2)
	assert.Equal(t, "research_and_analysis", info.AvailableWorkers["research_worker"].Specialization)
	assert.Equal(t, []string{
		"query_analysis",
		"information_gathering",
		"worker_coordination",
		"result_synthesis",
	}, info.SupervisorCapabilities)
	assert.Equal(t, []string{
		"conversation_history",
		"context_tracking",
		"decision_history",
	}, info.MemoryFeatures)
}

// Routing is a function of the error message and the stored analysis only.
func TestRoutingProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("analyze routes on error and sufficiency alone", prop.ForAll(
		func(hasError bool, hasAnalysis bool, sufficient bool) bool {
			state := &types.RunState{Memory: types.NewMemory()}
			if hasError {
				state.ErrorMessage = "Error in analyze_query: boom"
			}
			if hasAnalysis {
				state.Memory.SetContext(ctxLastAnalysis, &types.Analysis{HasSufficientInfo: sufficient})
			}

			next := nextStage(stageAnalyze, state)

			if hasError {
				return next == stageDone
			}
			if hasAnalysis && sufficient {
				return next == stageExecute
			}
			return next == stageGatherInfo
		},
		gen.Bool(), gen.Bool(), gen.Bool(),
	))

	properties.Property("non-branching stages have fixed successors", prop.ForAll(
		func(errMsg string) bool {
			state := &types.RunState{Memory: types.NewMemory(), ErrorMessage: errMsg}
			return nextStage(stageGatherInfo, state) == stageDone &&
				nextStage(stageExecute, state) == stageSynthesize &&
				nextStage(stageSynthesize, state) == stageDone
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

func textResponse(content string) *llm.ChatResponse {
	return &llm.ChatResponse{
		Choices: []llm.ChatChoice{
			{Message: llm.Message{Role: llm.RoleAssistant, Content: content}, FinishReason: "stop"},
		},
	}
}
