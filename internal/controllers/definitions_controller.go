package controllers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/invoflow/invoflow/internal/engine"
	"github.com/invoflow/invoflow/pkg/invoflow/core"
	"github.com/invoflow/invoflow/pkg/invoflow/domain"
	"github.com/invoflow/invoflow/pkg/invoflow/models"
)

// DefinitionsController holds dependencies for workflow definition HTTP endpoints.
type DefinitionsController struct {
	DefinitionRepo engine.DefinitionRepo
	validate       *validator.Validate
	clock          core.Clock
}

func NewDefinitionsController(definitionRepo engine.DefinitionRepo, clock core.Clock) *DefinitionsController {
	return &DefinitionsController{
		DefinitionRepo: definitionRepo,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		clock:          clock,
	}
}

func (c *DefinitionsController) handleCreateDefinition(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req models.CreateDefinitionRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}

	if err := req.Validate(c.validate); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	now := c.clock.Now()
	def := &domain.WorkflowDefinition{
		Name:        req.Name,
		Description: req.Description,
		TriggerType: req.TriggerType,
		IsActive:    req.IsActive,
		Created:     now,
		Updated:     now,
	}
	for _, s := range req.Steps {
		def.Steps = append(def.Steps, domain.WorkflowStep{
			StepOrder:  s.StepOrder,
			ActionType: s.ActionType,
			ActionData: s.ActionData,
		})
	}

	id, err := c.DefinitionRepo.Create(def)
	if err != nil {
		slog.Error("Failed to save workflow definition", "error", err)
		http.Error(w, "failed to create definition", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(models.CreateDefinitionResponse{ID: id})
}

func (c *DefinitionsController) handleListDefinitions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	defs, err := c.DefinitionRepo.FindAll()
	if err != nil {
		slog.Error("Failed to list workflow definitions", "error", err)
		http.Error(w, "failed to load definitions", http.StatusInternalServerError)
		return
	}

	results := make([]models.DefinitionApiResponse, 0, len(*defs))
	for i := range *defs {
		results = append(results, mapDefinitionToApiDefinition(&(*defs)[i]))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(results)
}

func (c *DefinitionsController) handleGetDefinitionById(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	def, err := c.DefinitionRepo.FindByID(id)
	if err != nil || def == nil {
		http.Error(w, "definition not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(mapDefinitionToApiDefinition(def))
}

func (c *DefinitionsController) handleActivateDefinition(w http.ResponseWriter, r *http.Request) {
	c.setActive(w, r, true)
}

func (c *DefinitionsController) handleDeactivateDefinition(w http.ResponseWriter, r *http.Request) {
	c.setActive(w, r, false)
}

// setActive flips the is_active flag. Running executions are untouched: they
// run from their own step snapshot, deactivation only stops new matches.
func (c *DefinitionsController) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if def, err := c.DefinitionRepo.FindByID(id); err != nil || def == nil {
		http.Error(w, "definition not found", http.StatusNotFound)
		return
	}
	if err := c.DefinitionRepo.SetActive(id, active); err != nil {
		slog.Error("Failed to update definition active flag", "id", id, "error", err)
		http.Error(w, "failed to update definition", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

func mapDefinitionToApiDefinition(def *domain.WorkflowDefinition) models.DefinitionApiResponse {
	steps := make([]models.StepApiResponse, 0, len(def.Steps))
	for _, s := range def.Steps {
		steps = append(steps, models.StepApiResponse{
			StepOrder:  s.StepOrder,
			ActionType: s.ActionType,
			ActionData: s.ActionData,
		})
	}
	return models.DefinitionApiResponse{
		ID:          def.ID,
		Name:        def.Name,
		Description: def.Description,
		TriggerType: def.TriggerType,
		IsActive:    def.IsActive,
		Created:     def.Created,
		Updated:     def.Updated,
		Steps:       steps,
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := r.PathValue("id")
	if idStr == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return 0, false
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		http.Error(w, "id is an integer", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
