package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/arbiterhq/arbiter/workflow"
)

// WorkflowHandler serves the read-only workflow description.
type WorkflowHandler struct {
	engine *workflow.Engine
	logger *zap.Logger
}

// NewWorkflowHandler creates a workflow info handler.
func NewWorkflowHandler(engine *workflow.Engine, logger *zap.Logger) *WorkflowHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkflowHandler{engine: engine, logger: logger}
}

// HandleInfo returns the workflow type, the registered workers and their
// capabilities.
func (h *WorkflowHandler) HandleInfo(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.engine.Info())
}
