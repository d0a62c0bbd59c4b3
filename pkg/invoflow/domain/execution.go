package domain

import (
	"database/sql"
	"time"
)

// Execution statuses. RUNNING is a transient claim state and must never be
// the resting state of a row; COMPLETED, FAILED and CANCELLED are terminal.
const (
	ExecutionRunnable  = "RUNNABLE"
	ExecutionWaiting   = "WAITING"
	ExecutionRunning   = "RUNNING"
	ExecutionCompleted = "COMPLETED"
	ExecutionFailed    = "FAILED"
	ExecutionCancelled = "CANCELLED"
)

// IsTerminalStatus reports whether a status permits no further transitions.
func IsTerminalStatus(status string) bool {
	return status == ExecutionCompleted || status == ExecutionFailed || status == ExecutionCancelled
}

// WorkflowExecution is one running instance of a definition, created per
// matching trigger event. StepsSnapshot holds a JSON copy of the definition's
// steps taken at trigger time, so later edits to the definition never affect
// executions already in flight.
type WorkflowExecution struct {
	ID               int64
	WorkflowID       int64
	Status           string
	CurrentStepIndex int
	AttemptCount     int
	EntityType       string
	EntityID         int64
	StepsSnapshot    string
	Created          time.Time
	Modified         time.Time
	NextRunAt        sql.NullTime
	Started          sql.NullTime
	ExecutorID       sql.NullInt64
	ExecutorGroup    string
}
