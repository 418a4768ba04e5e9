// Package supervisor implements the decision-making side of the
// supervisor-worker workflow: query analysis, follow-up question generation,
// execution planning, result synthesis, and memory upkeep.
//
// Every operation is a single reasoning-collaborator call with a strict
// expected-output contract. Collaborator output is untrusted text: on parse
// failure or call failure each operation substitutes its documented fallback
// instead of propagating an error upward.
package supervisor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arbiterhq/arbiter/config"
	"github.com/arbiterhq/arbiter/llm"
	"github.com/arbiterhq/arbiter/llm/tokenizer"
	"github.com/arbiterhq/arbiter/types"
)

// recentContextLimit is how many history messages are summarized into
// reasoning prompts, before token budgeting.
const recentContextLimit = 5

// Supervisor coordinates worker tasks and owns the run memory.
type Supervisor struct {
	provider  llm.Provider
	tok       tokenizer.Tokenizer
	cfg       config.SupervisorConfig
	workerIDs []string
	logger    *zap.Logger
}

// New creates a supervisor. workerIDs lists the registered workers the
// supervisor may plan for; it is embedded into reasoning prompts.
func New(provider llm.Provider, tok tokenizer.Tokenizer, cfg config.SupervisorConfig, workerIDs []string, logger *zap.Logger) *Supervisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tok == nil {
		tok = tokenizer.NewEstimatorTokenizer("", 0)
	}
	return &Supervisor{
		provider:  provider,
		tok:       tok,
		cfg:       cfg,
		workerIDs: append([]string(nil), workerIDs...),
		logger:    logger.With(zap.String("component", "supervisor")),
	}
}

// AnalyzeQuery analyzes the user query and decides whether enough information
// exists to proceed. It never returns an error: parse failures and
// collaborator failures both degrade to a conservative Analysis that requests
// more information.
func (s *Supervisor) AnalyzeQuery(ctx context.Context, query string, state *types.RunState) *types.Analysis {
	user := fmt.Sprintf(`User Query: %s

Recent Conversation Context:
%s

Current Gathered Information:
%s

Available Workers: %s

Analyze this request and provide your assessment.`,
		query,
		s.recentContextBlock(state),
		s.gatheredContextJSON(state),
		strings.Join(s.workerIDs, ", "),
	)

	raw, err := s.invoke(ctx, analyzeSystemPrompt, user)
	if err != nil {
		s.logger.Warn("analysis call failed", zap.Error(err))
		return &types.Analysis{
			HasSufficientInfo:  false,
			MissingInformation: []string{fmt.Sprintf("Error in analysis: %v", err)},
			FollowUpQuestions:  []string{"There was an error processing your request. Please try again."},
			Plan:               types.PlanSummary{EstimatedComplexity: "unknown"},
			Confidence:         0.0,
		}
	}

	var analysis types.Analysis
	if !decodeJSON(raw, &analysis) {
		s.logger.Warn("analysis output is not valid JSON, using fallback",
			zap.Int("raw_len", len(raw)))
		return &types.Analysis{
			HasSufficientInfo:  false,
			MissingInformation: []string{"Unable to parse analysis"},
			FollowUpQuestions:  []string{"Could you please rephrase your request?"},
			Plan:               types.PlanSummary{EstimatedComplexity: "unknown"},
			Confidence:         0.0,
		}
	}

	return &analysis
}

// GenerateFollowUpQuestions produces specific follow-up questions for the
// listed missing information. Only lines containing a question mark are kept,
// capped at the configured maximum. On collaborator failure a single
// synthesized question referencing the missing information is returned.
func (s *Supervisor) GenerateFollowUpQuestions(ctx context.Context, missingInfo []string, query string) []string {
	user := fmt.Sprintf(`Original Query: %s
Missing Information: %s

Generate follow-up questions to gather this missing information.`,
		query, strings.Join(missingInfo, ", "))

	raw, err := s.invoke(ctx, followUpSystemPrompt, user)
	if err != nil {
		s.logger.Warn("follow-up generation failed", zap.Error(err))
		return []string{fmt.Sprintf("Could you provide more details about: %s", strings.Join(missingInfo, ", "))}
	}

	limit := s.cfg.MaxFollowUpQuestions
	if limit <= 0 {
		limit = 3
	}
	return questionLines(raw, limit)
}

// CreateExecutionPlan asks the collaborator for a worker assignment plan.
// A parse failure falls back to a fixed research-then-creative plan; a
// collaborator failure falls back to an empty plan.
func (s *Supervisor) CreateExecutionPlan(ctx context.Context, query string, analysis *types.Analysis, state *types.RunState) *types.ExecutionPlan {
	analysisJSON, _ := json.MarshalIndent(analysis, "", "  ")
	user := fmt.Sprintf(`User Query: %s
Analysis: %s
Available Workers: %s

Create a detailed execution plan.`,
		query, analysisJSON, strings.Join(s.workerIDs, ", "))

	raw, err := s.invoke(ctx, planSystemPrompt, user)
	if err != nil {
		s.logger.Warn("plan call failed, using empty plan", zap.Error(err))
		return &types.ExecutionPlan{
			Assignments:     []types.WorkerAssignment{},
			Order:           []string{},
			ExpectedOutputs: []string{},
			QualityChecks:   []string{},
		}
	}

	var plan types.ExecutionPlan
	if !decodeJSON(raw, &plan) {
		s.logger.Warn("plan output is not valid JSON, using fallback plan",
			zap.Int("raw_len", len(raw)))
		return fallbackPlan()
	}

	return &plan
}

// fallbackPlan is the fixed two-step plan used when plan output cannot be
// parsed: research first, then creative presentation depending on it.
func fallbackPlan() *types.ExecutionPlan {
	return &types.ExecutionPlan{
		Assignments: []types.WorkerAssignment{
			{
				WorkerID:     "research_worker",
				Task:         "Gather information related to the query",
				Priority:     "high",
				Dependencies: []string{},
			},
			{
				WorkerID:     "creative_worker",
				Task:         "Process and present the information creatively",
				Priority:     "medium",
				Dependencies: []string{"research_worker"},
			},
		},
		Order:           []string{"research_worker", "creative_worker"},
		ExpectedOutputs: []string{"Research findings", "Creative presentation"},
		QualityChecks:   []string{"Verify information accuracy", "Ensure creative output meets requirements"},
	}
}

// SynthesizeResults combines worker results into a final response. On failure
// it returns an error-describing text rather than raising.
func (s *Supervisor) SynthesizeResults(ctx context.Context, workerResults map[string]string, order []string, query string, state *types.RunState) string {
	var summary strings.Builder
	for _, workerID := range resultOrder(workerResults, order) {
		fmt.Fprintf(&summary, "%s: %s\n", workerID, workerResults[workerID])
	}

	user := fmt.Sprintf(`Original User Query: %s

Worker Results:
%s
Create a comprehensive, well-structured response that addresses the user's query.`,
		query, summary.String())

	raw, err := s.invoke(ctx, synthesizeSystemPrompt, user)
	if err != nil {
		s.logger.Warn("synthesis failed", zap.Error(err))
		return fmt.Sprintf("Error synthesizing results: %v", err)
	}
	return raw
}

// resultOrder returns worker IDs in the given preferred order, then any
// remaining result keys sorted lexically so the prompt is deterministic.
func resultOrder(results map[string]string, preferred []string) []string {
	ordered := make([]string, 0, len(results))
	seen := make(map[string]bool, len(results))
	for _, id := range preferred {
		if _, ok := results[id]; ok && !seen[id] {
			ordered = append(ordered, id)
			seen[id] = true
		}
	}
	var rest []string
	for id := range results {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	for i := 0; i < len(rest); i++ {
		for j := i + 1; j < len(rest); j++ {
			if rest[j] < rest[i] {
				rest[i], rest[j] = rest[j], rest[i]
			}
		}
	}
	return append(ordered, rest...)
}

// UpdateMemory appends the message to the run memory, applying the history
// cap, and records per-kind context keys.
func (s *Supervisor) UpdateMemory(message types.Message, state *types.RunState) {
	state.Memory.Append(message, s.cfg.MemorySize)

	switch message.Kind {
	case types.KindUserInput:
		state.Memory.SetContext("last_user_input", message.Content)
	case types.KindWorkerResponse:
		state.Memory.SetContext(fmt.Sprintf("worker_%s_last_response", message.Sender), message.Content)
	}
}

// invoke performs one reasoning-collaborator call and returns its raw text.
func (s *Supervisor) invoke(ctx context.Context, system, user string) (string, error) {
	start := time.Now()
	resp, err := s.provider.Completion(ctx, &llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: user},
		},
		Temperature: float32(s.cfg.Temperature),
	})
	if err != nil {
		return "", err
	}

	s.logger.Debug("collaborator call completed",
		zap.String("provider", s.provider.Name()),
		zap.Duration("duration", time.Since(start)),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)
	return resp.Text(), nil
}

// recentContextBlock renders the most recent history messages as
// "sender: content" lines, dropping the oldest lines that exceed the
// configured token budget.
func (s *Supervisor) recentContextBlock(state *types.RunState) string {
	recent := state.Memory.RecentContext(recentContextLimit)
	if len(recent) == 0 {
		return ""
	}

	lines := make([]string, 0, len(recent))
	for _, msg := range recent {
		lines = append(lines, fmt.Sprintf("%s: %s", msg.Sender, msg.Content))
	}

	budget := s.cfg.ContextTokenBudget
	if budget <= 0 {
		return strings.Join(lines, "\n")
	}

	// Drop from the front (oldest first) until the block fits the budget.
	for len(lines) > 1 {
		block := strings.Join(lines, "\n")
		n, err := s.tok.CountTokens(block)
		if err != nil {
			// Estimate instead of failing the prompt build.
			n = len(block) / 4
		}
		if n <= budget {
			break
		}
		lines = lines[1:]
	}
	return strings.Join(lines, "\n")
}

// gatheredContextJSON renders the gathered-context map for prompts. Keys are
// sorted by json.Marshal, keeping prompts stable.
func (s *Supervisor) gatheredContextJSON(state *types.RunState) string {
	data, err := json.MarshalIndent(state.Memory.Context, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}
