package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ActionType is the kind of one workflow step.
type ActionType string

const (
	ActionSendEmail    ActionType = "send_email"
	ActionWait         ActionType = "wait"
	ActionUpdateStatus ActionType = "update_status"
	ActionNotify       ActionType = "notify"
)

func (a ActionType) Valid() bool {
	switch a {
	case ActionSendEmail, ActionWait, ActionUpdateStatus, ActionNotify:
		return true
	}
	return false
}

// EntityStatuses is the fixed set of statuses update_status may apply.
var EntityStatuses = []string{"draft", "sent", "paid", "overdue", "cancelled"}

// SendEmailData configures a send_email step. TemplateID is nullable in the
// builder UI (template picked later); the handler treats nil as a permanent
// failure at execution time.
type SendEmailData struct {
	TemplateID    *int64 `json:"template_id"`
	RecipientType string `json:"recipient_type"`
	EntityType    string `json:"entity_type,omitempty"`
}

type WaitData struct {
	Days int `json:"days"`
}

type UpdateStatusData struct {
	Status string `json:"status"`
}

type NotifyData struct {
	Message string `json:"message"`
}

// actionSchemas holds one JSON schema per action type. action_data is
// validated against them exactly once, at definition-creation time; the
// runtime path only decodes.
var actionSchemas = map[ActionType]map[string]any{
	ActionSendEmail: {
		"type": "object",
		"properties": map[string]any{
			"template_id":    map[string]any{"type": []string{"integer", "null"}},
			"recipient_type": map[string]any{"type": "string", "minLength": 1},
			"entity_type":    map[string]any{"type": "string"},
		},
		"required":             []string{"template_id", "recipient_type"},
		"additionalProperties": false,
	},
	ActionWait: {
		"type": "object",
		"properties": map[string]any{
			"days": map[string]any{"type": "integer", "minimum": 1},
		},
		"required":             []string{"days"},
		"additionalProperties": false,
	},
	ActionUpdateStatus: {
		"type": "object",
		"properties": map[string]any{
			"status": map[string]any{"type": "string", "enum": EntityStatuses},
		},
		"required":             []string{"status"},
		"additionalProperties": false,
	},
	ActionNotify: {
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{"type": "string", "minLength": 1},
		},
		"required":             []string{"message"},
		"additionalProperties": false,
	},
}

// ValidateActionData checks raw against the schema registered for the action
// type. Unknown action types are rejected.
func ValidateActionData(actionType ActionType, raw json.RawMessage) error {
	schema, ok := actionSchemas[actionType]
	if !ok {
		return fmt.Errorf("unknown action type: %s", actionType)
	}

	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("action_data is not valid JSON: %w", err)
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	dataLoader := gojsonschema.NewGoLoader(data)
	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("schema validation failed for %s: %w", actionType, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("invalid action_data for %s: %s", actionType, strings.Join(msgs, "; "))
	}
	return nil
}

// SnapshotStep is one step in an execution's steps snapshot, the JSON copy of
// the definition's step list taken at trigger time.
type SnapshotStep struct {
	StepOrder  int             `json:"step_order"`
	ActionType ActionType      `json:"action_type"`
	ActionData json.RawMessage `json:"action_data"`
}

// DecodeSnapshot parses an execution's steps_snapshot column.
func DecodeSnapshot(snapshot string) ([]SnapshotStep, error) {
	var steps []SnapshotStep
	if err := json.Unmarshal([]byte(snapshot), &steps); err != nil {
		return nil, fmt.Errorf("corrupt steps snapshot: %w", err)
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("steps snapshot is empty")
	}
	return steps, nil
}
