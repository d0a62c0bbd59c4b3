package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// CreateDefinitionRequest is the payload the UI layer submits to create a
// workflow definition. It is validated fully before anything is persisted;
// malformed definitions never reach the engine's runtime path.
type CreateDefinitionRequest struct {
	Name        string              `json:"name"        validate:"required,min=3"`
	Description string              `json:"description" validate:"required,min=10"`
	TriggerType string              `json:"triggerType" validate:"required,oneof=invoice_created invoice_due invoice_overdue client_added"`
	IsActive    bool                `json:"isActive"`
	Steps       []CreateStepRequest `json:"steps"       validate:"required,min=1,dive"`
}

type CreateStepRequest struct {
	StepOrder  int             `json:"stepOrder"  validate:"required,min=1"`
	ActionType string          `json:"actionType" validate:"required,oneof=send_email wait update_status notify"`
	ActionData json.RawMessage `json:"actionData" validate:"required"`
}

// Validate runs struct-tag validation, then the checks tags cannot express:
// step_order must be a permutation of 1..N and each step's action_data must
// match the schema for its action type.
func (r *CreateDefinitionRequest) Validate(v *validator.Validate) error {
	if err := v.Struct(r); err != nil {
		return err
	}

	seen := make(map[int]bool, len(r.Steps))
	for _, s := range r.Steps {
		if s.StepOrder < 1 || s.StepOrder > len(r.Steps) {
			return fmt.Errorf("stepOrder %d is outside 1..%d", s.StepOrder, len(r.Steps))
		}
		if seen[s.StepOrder] {
			return fmt.Errorf("duplicate stepOrder %d", s.StepOrder)
		}
		seen[s.StepOrder] = true
	}

	for _, s := range r.Steps {
		if err := ValidateActionData(ActionType(s.ActionType), s.ActionData); err != nil {
			return fmt.Errorf("step %d: %w", s.StepOrder, err)
		}
	}
	return nil
}

type CreateDefinitionResponse struct {
	ID int64 `json:"id"`
}

// EventRequest is the wire shape of POST /api/events.
type EventRequest struct {
	Type     string         `json:"type"     validate:"required,oneof=invoice_created invoice_due invoice_overdue client_added"`
	EntityID int64          `json:"entityId" validate:"required,min=1"`
	Payload  map[string]any `json:"payload,omitempty"`
}

func (r *EventRequest) ToEvent() (Event, error) {
	t := TriggerType(r.Type)
	if !t.Valid() {
		return Event{}, errors.New("unknown trigger type: " + r.Type)
	}
	return Event{Type: t, EntityID: r.EntityID, Payload: r.Payload}, nil
}

// SearchExecutionsRequest filters the executions search endpoint. Zero values
// mean "no filter".
type SearchExecutionsRequest struct {
	WorkflowID int64  `json:"workflowId"`
	Status     string `json:"status"`
	EntityType string `json:"entityType"`
	EntityID   int64  `json:"entityId"`
	Limit      int    `json:"limit"`
	Offset     int    `json:"offset"`
}

// ExecutionApiResponse is the JSON view of an execution row.
type ExecutionApiResponse struct {
	ID               int64     `json:"id"`
	WorkflowID       int64     `json:"workflowId"`
	Status           string    `json:"status"`
	CurrentStepIndex int       `json:"currentStepIndex"`
	AttemptCount     int       `json:"attemptCount"`
	EntityType       string    `json:"entityType"`
	EntityID         int64     `json:"entityId"`
	Created          time.Time `json:"created"`
	Modified         time.Time `json:"modified"`
	NextRunAt        time.Time `json:"nextRunAt,omitempty"`
	Started          time.Time `json:"started,omitempty"`
}

// DefinitionApiResponse is the JSON view of a definition with its steps.
type DefinitionApiResponse struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	TriggerType string            `json:"triggerType"`
	IsActive    bool              `json:"isActive"`
	Created     time.Time         `json:"created"`
	Updated     time.Time         `json:"updated"`
	Steps       []StepApiResponse `json:"steps"`
}

type StepApiResponse struct {
	StepOrder  int             `json:"stepOrder"`
	ActionType string          `json:"actionType"`
	ActionData json.RawMessage `json:"actionData"`
}
