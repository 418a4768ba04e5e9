package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/arbiterhq/arbiter/config"
	"github.com/arbiterhq/arbiter/types"
)

// Coordinator executes the assignments of an execution plan against the
// registry. Execution is sequential in plan order by default; when parallel
// mode is enabled and no assignment depends on another assignment from the
// same plan, assignments run concurrently instead.
type Coordinator struct {
	registry *Registry
	cfg      config.WorkersConfig
	logger   *zap.Logger
}

// NewCoordinator creates a coordinator over the given registry.
func NewCoordinator(registry *Registry, cfg config.WorkersConfig, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		registry: registry,
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "coordinator")),
	}
}

// Execute runs every assignment in the plan and returns a worker-id to result
// map. Failures never abort the plan: each assignment degrades to error text
// in its own result slot, and an aborted coordination run reports a single
// "error" entry.
func (c *Coordinator) Execute(ctx context.Context, plan *types.ExecutionPlan, state *types.RunState) map[string]string {
	if plan == nil {
		return map[string]string{"error": "Coordination error: no execution plan"}
	}
	if c.cfg.Parallel && independentAssignments(plan) {
		return c.executeParallel(ctx, plan, state)
	}
	return c.executeSequential(ctx, plan, state)
}

func (c *Coordinator) executeSequential(ctx context.Context, plan *types.ExecutionPlan, state *types.RunState) map[string]string {
	results := make(map[string]string, len(plan.Assignments))

	for _, assignment := range plan.Assignments {
		if err := ctx.Err(); err != nil {
			results["error"] = fmt.Sprintf("Coordination error: %v", err)
			return results
		}

		workerID := assignment.WorkerID

		// Availability check. In the sequential path workers are released
		// before the next dispatch, so this only skips when a state carries
		// a stale busy flag.
		if ws, ok := state.WorkerStates[workerID]; ok && ws.Busy {
			results[workerID] = fmt.Sprintf("Worker %s is busy", workerID)
			continue
		}

		results[workerID] = c.runOne(ctx, workerID, assignment.Task, state)
	}

	return results
}

func (c *Coordinator) executeParallel(ctx context.Context, plan *types.ExecutionPlan, state *types.RunState) map[string]string {
	results := make(map[string]string, len(plan.Assignments))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, assignment := range plan.Assignments {
		workerID, task := assignment.WorkerID, assignment.Task

		mu.Lock()
		busy := false
		if ws, ok := state.WorkerStates[workerID]; ok && ws.Busy {
			busy = true
			results[workerID] = fmt.Sprintf("Worker %s is busy", workerID)
		}
		mu.Unlock()
		if busy {
			continue
		}

		g.Go(func() error {
			result := c.runOneLocked(gctx, workerID, task, state, &mu)
			mu.Lock()
			results[workerID] = result
			mu.Unlock()
			return nil
		})
	}
	// Tasks degrade to error text instead of returning errors, so Wait
	// only synchronizes.
	_ = g.Wait()

	return results
}

// runOne dispatches a single task and updates the worker's state record.
func (c *Coordinator) runOne(ctx context.Context, workerID, task string, state *types.RunState) string {
	taskCtx := ctx
	if c.cfg.TaskTimeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(ctx, c.cfg.TaskTimeout)
		defer cancel()
	}

	c.logger.Info("dispatching task",
		zap.String("worker_id", workerID),
		zap.String("task", task),
	)

	result := c.registry.Execute(taskCtx, workerID, task, state.Memory.Context)

	ws, ok := state.WorkerStates[workerID]
	if !ok {
		ws = types.NewWorkerState(workerID)
		state.WorkerStates[workerID] = ws
	}
	ws.CurrentTask = task
	ws.LastResult = result
	ws.Busy = false
	ws.LastActivity = time.Now().UTC()

	return result
}

// runOneLocked is runOne with state mutation guarded for the parallel path.
func (c *Coordinator) runOneLocked(ctx context.Context, workerID, task string, state *types.RunState, mu *sync.Mutex) string {
	taskCtx := ctx
	if c.cfg.TaskTimeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(ctx, c.cfg.TaskTimeout)
		defer cancel()
	}

	c.logger.Info("dispatching task",
		zap.String("worker_id", workerID),
		zap.String("task", task),
	)

	mu.Lock()
	shared := make(map[string]any, len(state.Memory.Context))
	for k, v := range state.Memory.Context {
		shared[k] = v
	}
	mu.Unlock()

	result := c.registry.Execute(taskCtx, workerID, task, shared)

	mu.Lock()
	ws, ok := state.WorkerStates[workerID]
	if !ok {
		ws = types.NewWorkerState(workerID)
		state.WorkerStates[workerID] = ws
	}
	ws.CurrentTask = task
	ws.LastResult = result
	ws.Busy = false
	ws.LastActivity = time.Now().UTC()
	mu.Unlock()

	return result
}

// independentAssignments reports whether no assignment in the plan depends on
// another worker assigned by the same plan. Dependencies are advisory, so
// any cross-reference forces the sequential path.
func independentAssignments(plan *types.ExecutionPlan) bool {
	assigned := make(map[string]bool, len(plan.Assignments))
	for _, a := range plan.Assignments {
		assigned[a.WorkerID] = true
	}
	for _, a := range plan.Assignments {
		for _, dep := range a.Dependencies {
			if assigned[dep] {
				return false
			}
		}
	}
	return true
}
