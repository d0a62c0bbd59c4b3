package controllers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/invoflow/invoflow/internal/engine"
	"github.com/invoflow/invoflow/pkg/invoflow/domain"
	"github.com/invoflow/invoflow/pkg/invoflow/models"
)

// ExecutionsController holds dependencies for execution HTTP endpoints.
type ExecutionsController struct {
	ExecutionRepo       engine.ExecutionRepo
	ExecutionActionRepo engine.ExecutionActionRepo
	Scheduler           *engine.Scheduler
}

func NewExecutionsController(executionRepo engine.ExecutionRepo, executionActionRepo engine.ExecutionActionRepo,
	scheduler *engine.Scheduler) *ExecutionsController {
	return &ExecutionsController{
		ExecutionRepo:       executionRepo,
		ExecutionActionRepo: executionActionRepo,
		Scheduler:           scheduler,
	}
}

func (c *ExecutionsController) handleGetExecutionById(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	result, err := c.ExecutionRepo.FindByID(id)
	if err != nil || result == nil {
		http.Error(w, "execution not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(mapExecutionToApiExecution(result))
}

func (c *ExecutionsController) handleSearchExecutions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req models.SearchExecutionsRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		slog.Error("Failed to decode request", "error", err)
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}

	//max of 1000 results is allowed
	if req.Limit > 1000 {
		http.Error(w, "limit cannot be greater than 1000", http.StatusBadRequest)
		return
	}

	results, err := c.ExecutionRepo.Search(req)
	if err != nil {
		slog.Error("Failed to search executions", "error", err)
		http.Error(w, "failed to search executions", http.StatusInternalServerError)
		return
	}

	mapped := make([]models.ExecutionApiResponse, 0, len(*results))
	for i := range *results {
		mapped = append(mapped, mapExecutionToApiExecution(&(*results)[i]))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(mapped)
}

// handleGetExecutionActions returns the audit log of an execution, newest first.
func (c *ExecutionsController) handleGetExecutionActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if exec, err := c.ExecutionRepo.FindByID(id); err != nil || exec == nil {
		http.Error(w, "execution not found", http.StatusNotFound)
		return
	}
	actions, err := c.ExecutionActionRepo.FindAllByExecutionID(id)
	if err != nil {
		slog.Error("Failed to load execution actions", "execution_id", id, "error", err)
		http.Error(w, "failed to load actions", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(actions)
}

func (c *ExecutionsController) handleCancelExecution(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if exec, err := c.ExecutionRepo.FindByID(id); err != nil || exec == nil {
		http.Error(w, "execution not found", http.StatusNotFound)
		return
	}
	cancelled, err := c.Scheduler.CancelExecution(id)
	if err != nil {
		slog.Error("Failed to cancel execution", "execution_id", id, "error", err)
		http.Error(w, "failed to cancel execution", http.StatusInternalServerError)
		return
	}
	if !cancelled {
		http.Error(w, "execution already finished", http.StatusConflict)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

// handleExecutionsOverview returns execution counts grouped by status.
func (c *ExecutionsController) handleExecutionsOverview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	rows, err := c.ExecutionRepo.Overview()
	if err != nil {
		slog.Error("Failed to load executions overview", "error", err)
		http.Error(w, "failed to load overview", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(rows)
}

func mapExecutionToApiExecution(result *domain.WorkflowExecution) models.ExecutionApiResponse {
	return models.ExecutionApiResponse{
		ID:               result.ID,
		WorkflowID:       result.WorkflowID,
		Status:           result.Status,
		CurrentStepIndex: result.CurrentStepIndex,
		AttemptCount:     result.AttemptCount,
		EntityType:       result.EntityType,
		EntityID:         result.EntityID,
		Created:          result.Created,
		Modified:         result.Modified,
		NextRunAt: func() time.Time {
			if result.NextRunAt.Valid {
				return result.NextRunAt.Time
			}
			return time.Time{}
		}(),
		Started: func() time.Time {
			if result.Started.Valid {
				return result.Started.Time
			}
			return time.Time{}
		}(),
	}
}
