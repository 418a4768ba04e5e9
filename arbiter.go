// Package arbiter provides a top-level convenience entry point for running
// queries through the supervisor-worker workflow without standing up the
// HTTP service.
//
// Usage:
//
//	import "github.com/arbiterhq/arbiter"
//
//	engine := arbiter.New(provider)
//	result := engine.ProcessQuery(ctx, "Research quantum computing")
//
// For the full service (HTTP API, metrics, telemetry) use cmd/arbiter.
package arbiter

import (
	"go.uber.org/zap"

	"github.com/arbiterhq/arbiter/config"
	"github.com/arbiterhq/arbiter/llm"
	"github.com/arbiterhq/arbiter/llm/tokenizer"
	"github.com/arbiterhq/arbiter/supervisor"
	"github.com/arbiterhq/arbiter/workers"
	"github.com/arbiterhq/arbiter/workflow"
)

// Option configures the engine created by [New].
type Option func(*options)

type options struct {
	logger     *zap.Logger
	model      string
	supervisor config.SupervisorConfig
	workers    config.WorkersConfig
}

// WithLogger sets a custom zap logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithModel names the collaborator model, used to pick a tokenizer for
// prompt budgeting.
func WithModel(model string) Option {
	return func(o *options) { o.model = model }
}

// WithSupervisorConfig overrides the supervisor defaults.
func WithSupervisorConfig(cfg config.SupervisorConfig) Option {
	return func(o *options) { o.supervisor = cfg }
}

// WithWorkersConfig overrides the worker dispatch defaults.
func WithWorkersConfig(cfg config.WorkersConfig) Option {
	return func(o *options) { o.workers = cfg }
}

// New builds a workflow engine over the given provider with the standard
// two-worker registry.
func New(provider llm.Provider, opts ...Option) *workflow.Engine {
	o := options{
		logger:     zap.NewNop(),
		supervisor: config.DefaultSupervisorConfig(),
		workers:    config.DefaultWorkersConfig(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	registry := workers.NewRegistry(provider, o.logger)
	coordinator := workers.NewCoordinator(registry, o.workers, o.logger)
	sup := supervisor.New(provider, tokenizer.ForModel(o.model), o.supervisor, registry.IDs(), o.logger)
	return workflow.New(sup, coordinator, registry, nil, o.logger)
}
