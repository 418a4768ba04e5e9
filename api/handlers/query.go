package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/arbiterhq/arbiter/types"
	"github.com/arbiterhq/arbiter/workflow"
)

// QueryRequest is the body of POST /api/v1/query.
type QueryRequest struct {
	Query string `json:"query"`
}

// FollowUpRequest is the body of POST /api/v1/followup.
type FollowUpRequest struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

// FollowUpAck acknowledges a follow-up submission. There is no session store;
// the client is told to resubmit a complete query.
type FollowUpAck struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	SessionID  string `json:"session_id"`
	NextAction string `json:"next_action"`
}

// QueryHandler serves query submission and follow-up responses.
type QueryHandler struct {
	engine *workflow.Engine
	logger *zap.Logger
}

// NewQueryHandler creates a query handler over the workflow engine.
func NewQueryHandler(engine *workflow.Engine, logger *zap.Logger) *QueryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryHandler{engine: engine, logger: logger}
}

// HandleQuery processes a user query through the workflow and returns the run
// result. Degraded runs still return 200 with their result body; only a
// malformed request is rejected.
func (h *QueryHandler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "Method not allowed", h.logger)
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "Invalid JSON body", h.logger)
		return
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "Query is required", h.logger)
		return
	}

	h.logger.Info("processing query", zap.String("query", truncate(query, 100)))

	result := h.engine.ProcessQuery(r.Context(), query)

	h.logger.Info("query processed", zap.String("status", result.Status))
	WriteJSON(w, http.StatusOK, result)
}

// HandleFollowUp acknowledges a follow-up response.
func (h *QueryHandler) HandleFollowUp(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "Method not allowed", h.logger)
		return
	}

	var req FollowUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "Invalid JSON body", h.logger)
		return
	}

	if strings.TrimSpace(req.Response) == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "Follow-up response is required", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, FollowUpAck{
		Status:     "success",
		Message:    "Follow-up response received",
		SessionID:  req.SessionID,
		NextAction: "Please submit a new query with the additional information",
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
