package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/invoflow/invoflow/internal/actions"
	"github.com/invoflow/invoflow/pkg/invoflow/core"
	"github.com/invoflow/invoflow/pkg/invoflow/domain"
	"github.com/invoflow/invoflow/pkg/invoflow/models"
)

// StepExecutor runs exactly one step of a claimed execution and records the
// resulting transition. It never loops: an execution that stays runnable is
// picked up again by the next poll, which keeps a single worker from
// monopolising a long workflow.
type StepExecutor struct {
	executions ExecutionRepo
	actionsLog ExecutionActionRepo
	registry   *actions.Registry
	retry      models.RetryConfig
	clock      core.Clock
	executorID int64
}

func NewStepExecutor(executions ExecutionRepo, actionsLog ExecutionActionRepo, registry *actions.Registry,
	retry models.RetryConfig, clock core.Clock, executorID int64) *StepExecutor {
	return &StepExecutor{
		executions: executions,
		actionsLog: actionsLog,
		registry:   registry,
		retry:      retry,
		clock:      clock,
		executorID: executorID,
	}
}

// Advance runs the current step of an already claimed execution.
func (s *StepExecutor) Advance(ctx context.Context, exec *domain.WorkflowExecution) {
	log := slog.With("execution_id", exec.ID, "workflow_id", exec.WorkflowID, "step", exec.CurrentStepIndex)

	if !exec.Started.Valid {
		if err := s.executions.UpdateStartingTime(exec.ID); err != nil {
			log.Error("Failed to set execution start time", "error", err)
		}
	}

	steps, err := models.DecodeSnapshot(exec.StepsSnapshot)
	if err != nil {
		s.failPermanently(exec, fmt.Sprintf("corrupt step snapshot: %v", err))
		return
	}

	// A wait recorded after the final step parks the index one past the
	// end; the execution completes when the wait elapses.
	if exec.CurrentStepIndex >= len(steps) {
		s.complete(exec)
		return
	}

	step := steps[exec.CurrentStepIndex]
	handler := s.registry.Handler(step.ActionType)
	if handler == nil {
		s.failPermanently(exec, fmt.Sprintf("no handler registered for action type %q", step.ActionType))
		return
	}

	s.auditStep(exec, string(step.ActionType), "EXECUTING", fmt.Sprintf("running %s (attempt %d)", step.ActionType, exec.AttemptCount+1))

	sc := models.StepContext{
		ExecutionID: exec.ID,
		StepOrder:   step.StepOrder,
		Entity:      models.EntityRef{EntityType: exec.EntityType, EntityID: exec.EntityID},
	}
	outcome := handler.Execute(ctx, sc, step.ActionData)

	switch outcome.Kind {
	case models.OutcomeSuccess:
		if exec.CurrentStepIndex == len(steps)-1 {
			s.auditStep(exec, string(step.ActionType), "STEP_COMPLETED", outcome.Log)
			s.complete(exec)
			return
		}
		if err := s.executions.MarkRunnable(exec.ID, exec.CurrentStepIndex+1); err != nil {
			log.Error("Failed to advance execution", "error", err)
			return
		}
		s.auditStep(exec, string(step.ActionType), "STEP_COMPLETED", outcome.Log)

	case models.OutcomeWait:
		next := s.clock.Now().Add(outcome.WaitDuration)
		if err := s.executions.MarkWaiting(exec.ID, exec.CurrentStepIndex+1, next); err != nil {
			log.Error("Failed to park execution", "error", err)
			return
		}
		s.auditStep(exec, string(step.ActionType), "WAITING", fmt.Sprintf("waiting until %s", next.UTC().Format("2006-01-02 15:04:05")))

	case models.OutcomeTransientFailure:
		if exec.AttemptCount+1 >= s.retry.MaxRetryCount {
			s.failPermanently(exec, fmt.Sprintf("retry budget exhausted after %d attempts: %v", exec.AttemptCount+1, outcome.Err))
			return
		}
		next := s.clock.Now().Add(s.retry.SlidingInterval(exec.AttemptCount))
		if err := s.executions.ScheduleRetry(exec.ID, next); err != nil {
			log.Error("Failed to schedule retry", "error", err)
			return
		}
		s.auditStep(exec, string(step.ActionType), "RETRY_SCHEDULED", fmt.Sprintf("attempt %d failed: %v, retrying at %s",
			exec.AttemptCount+1, outcome.Err, next.UTC().Format("2006-01-02 15:04:05")))
		log.Warn("Step failed, retry scheduled", "error", outcome.Err, "next_run_at", next)

	case models.OutcomePermanentFailure:
		s.failPermanently(exec, fmt.Sprintf("permanent failure: %v", outcome.Err))

	default:
		s.failPermanently(exec, fmt.Sprintf("handler returned unknown outcome %q", outcome.Kind))
	}
}

// RecoverPanic is called by workers when a handler panics. The panic counts
// against the retry budget like any transient failure.
func (s *StepExecutor) RecoverPanic(exec *domain.WorkflowExecution, recovered any) {
	if exec.AttemptCount+1 >= s.retry.MaxRetryCount {
		s.failPermanently(exec, fmt.Sprintf("panic after %d attempts: %v", exec.AttemptCount+1, recovered))
		return
	}
	next := s.clock.Now().Add(s.retry.SlidingInterval(exec.AttemptCount))
	if err := s.executions.ScheduleRetry(exec.ID, next); err != nil {
		slog.Error("Failed to schedule retry after panic", "execution_id", exec.ID, "error", err)
		return
	}
	s.audit(exec, "RETRY_SCHEDULED", fmt.Sprintf("step panicked: %v", recovered))
	slog.Error("Recovered from panic in step handler", "execution_id", exec.ID, "panic", recovered)
}

func (s *StepExecutor) complete(exec *domain.WorkflowExecution) {
	if err := s.executions.MarkCompleted(exec.ID); err != nil {
		slog.Error("Failed to complete execution", "execution_id", exec.ID, "error", err)
		return
	}
	s.audit(exec, "COMPLETED", "all steps finished")
	slog.Info("Execution completed", "execution_id", exec.ID, "workflow_id", exec.WorkflowID)
}

func (s *StepExecutor) failPermanently(exec *domain.WorkflowExecution, reason string) {
	if err := s.executions.MarkFailed(exec.ID); err != nil {
		slog.Error("Failed to fail execution", "execution_id", exec.ID, "error", err)
		return
	}
	s.audit(exec, "FAILED", reason)
	slog.Error("Execution failed", "execution_id", exec.ID, "workflow_id", exec.WorkflowID, "reason", reason)
}

func (s *StepExecutor) audit(exec *domain.WorkflowExecution, entryType string, text string) {
	s.auditStep(exec, "", entryType, text)
}

func (s *StepExecutor) auditStep(exec *domain.WorkflowExecution, stepAction string, entryType string, text string) {
	_, _ = s.actionsLog.Save(&domain.ExecutionAction{
		ExecutionID: exec.ID,
		ExecutorID:  s.executorID,
		StepIndex:   exec.CurrentStepIndex,
		ActionType:  stepAction,
		Type:        entryType,
		Text:        text,
		DateTime:    s.clock.Now(),
	})
}
