package domain

import "time"

// ExecutionAction is one immutable audit log entry for an execution. Every
// status transition appends one; rows are never updated or deleted by the
// engine.
type ExecutionAction struct {
	ID          int64
	ExecutionID int64
	ExecutorID  int64
	StepIndex   int
	ActionType  string
	Type        string
	Text        string
	DateTime    time.Time
}
