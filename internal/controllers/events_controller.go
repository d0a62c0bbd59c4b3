package controllers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/invoflow/invoflow/internal/engine"
	"github.com/invoflow/invoflow/pkg/invoflow/models"
)

// EventsController accepts domain events from the surrounding application
// and hands them to the dispatcher.
type EventsController struct {
	Dispatcher *engine.Dispatcher
	validate   *validator.Validate
}

func NewEventsController(dispatcher *engine.Dispatcher) *EventsController {
	return &EventsController{
		Dispatcher: dispatcher,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (c *EventsController) handlePostEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req models.EventRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}

	if err := c.validate.Struct(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	event, err := req.ToEvent()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	created, err := c.Dispatcher.Dispatch(r.Context(), event)
	if err != nil {
		slog.Error("Failed to dispatch event", "type", req.Type, "entity_id", req.EntityID, "error", err)
		// The producer should retry the event; nothing was partially hidden,
		// any executions already created are listed in the response.
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(eventResponse{ExecutionIDs: created, Error: err.Error()})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(eventResponse{ExecutionIDs: created})
}

type eventResponse struct {
	ExecutionIDs []int64 `json:"executionIds"`
	Error        string  `json:"error,omitempty"`
}
