package domain

import (
	"encoding/json"
	"time"
)

// WorkflowDefinition is a named, ordered list of steps bound to one trigger kind.
// Steps are loaded alongside the definition; step_order is 1-based and
// contiguous.
type WorkflowDefinition struct {
	ID          int64
	Name        string
	Description string
	TriggerType string
	IsActive    bool
	Created     time.Time
	Updated     time.Time
	Steps       []WorkflowStep
}

type WorkflowStep struct {
	ID         int64
	WorkflowID int64
	StepOrder  int
	ActionType string
	ActionData json.RawMessage
}
