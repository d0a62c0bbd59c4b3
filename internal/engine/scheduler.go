package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/invoflow/invoflow/internal/actions"
	"github.com/invoflow/invoflow/internal/config"
	"github.com/invoflow/invoflow/internal/repository"
	"github.com/invoflow/invoflow/pkg/invoflow/core"
	"github.com/invoflow/invoflow/pkg/invoflow/domain"
	"github.com/invoflow/invoflow/pkg/invoflow/models"
)

var executionQueue chan *domain.WorkflowExecution // Initialized in StartEngine using system setting

// Scheduler owns the polling loop: it claims due executions and hands them
// to the worker pool. Claiming happens here, on one goroutine, so two
// workers of the same process never race for a row.
type Scheduler struct {
	ExecutionRepo       ExecutionRepo
	ExecutionActionRepo ExecutionActionRepo
	executorRepo        ExecutorRepo
	DefinitionRepo      DefinitionRepo
	stepExecutor        *StepExecutor
	executorID          int64
	wakeup              chan struct{}
	clock               core.Clock
}

func NewScheduler(executionRepo ExecutionRepo, executionActionRepo ExecutionActionRepo, executorRepo ExecutorRepo,
	definitionRepo DefinitionRepo, clock core.Clock) *Scheduler {
	return &Scheduler{
		ExecutionRepo:       executionRepo,
		ExecutionActionRepo: executionActionRepo,
		executorRepo:        executorRepo,
		DefinitionRepo:      definitionRepo,
		wakeup:              make(chan struct{}, 1),
		clock:               clock,
	}
}

// ExecutorID is valid only after StartEngine has registered this instance.
func (s *Scheduler) ExecutorID() int64 {
	return s.executorID
}

// ListDefinitions exposes repository list for web/API layers.
func (s *Scheduler) ListDefinitions() (*[]domain.WorkflowDefinition, error) {
	return s.DefinitionRepo.FindAll()
}

// ListExecutors returns recent executors ordered by last_active desc.
func (s *Scheduler) ListExecutors(limit int) ([]*domain.Executor, error) {
	return s.executorRepo.GetExecutorsByLastActive(limit)
}

// SearchExecutions delegates to the repository to search based on request filters.
func (s *Scheduler) SearchExecutions(req models.SearchExecutionsRequest) (*[]domain.WorkflowExecution, error) {
	return s.ExecutionRepo.Search(req)
}

// Overview exposes grouped status counts for the API.
func (s *Scheduler) Overview() ([]repository.ExecutionOverviewRow, error) {
	return s.ExecutionRepo.Overview()
}

// StartEngine starts polling for due executions at the given interval.
func (s *Scheduler) StartEngine(ctx context.Context, pollInterval time.Duration, registry *actions.Registry, retry models.RetryConfig) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	registerExecutorInstance(ctx, s)

	s.stepExecutor = NewStepExecutor(
		s.ExecutionRepo,
		s.ExecutionActionRepo,
		registry,
		retry,
		s.clock,
		s.executorID,
	)

	go startExecutionRepairService(ctx, s)

	queueSize := config.GetSystemSettingInteger(config.ENGINE_BATCH_SIZE)
	if queueSize <= 0 {
		queueSize = 10 // fallback default
	}
	executionQueue = make(chan *domain.WorkflowExecution, queueSize)

	workers := config.GetSystemSettingInteger(config.ENGINE_EXECUTOR_SIZE)
	slog.Info("Starting workflow engine", "workers", workers, "queue_size", queueSize)
	for i := 0; i < workers; i++ {
		go Worker(ctx, i, s.stepExecutor, executionQueue)
	}

	slog.Info("Workflow engine started", "poll_interval", pollInterval.String())

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Workflow engine stopping due to context cancel")
			return
		case <-ticker.C:
			s.pollAndRunExecutions(ctx)
		case <-s.wakeup:
			s.pollAndRunExecutions(ctx)
		}
	}
}

// responsible for finding executions whose executor crashed mid step and
// releasing them so another instance can pick them up. These executions are
// RUNNING with a stale modified time and an executor that stopped heartbeating.
func startExecutionRepairService(ctx context.Context, s *Scheduler) {
	dur, _ := time.ParseDuration(config.GetSystemSettingString(config.ENGINE_STUCK_EXECUTIONS_INTERVAL))
	ticker := time.NewTicker(dur)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Execution repair service stopping due to context cancel")
			return
		case <-ticker.C:
			stuck, err := s.ExecutionRepo.FindStale(
				config.GetSystemSettingString(config.ENGINE_STUCK_EXECUTIONS_REPAIR_AFTER_MINUTES),
				config.GetSystemSettingString(config.ENGINE_EXECUTOR_GROUP),
				100)
			if err != nil {
				slog.Error("Error finding stuck executions", "error", err)
				continue
			}
			for _, exec := range *stuck {
				slog.Warn("Repairing stuck execution", "execution_id", exec.ID, "workflow_id", exec.WorkflowID, "step", exec.CurrentStepIndex)
				previousExecutorID := exec.ExecutorID
				if s.ExecutionRepo.ReleaseStale(exec.ID, exec.Modified) {
					_, _ = s.ExecutionActionRepo.Save(&domain.ExecutionAction{
						ExecutionID: exec.ID,
						ExecutorID:  s.executorID,
						StepIndex:   exec.CurrentStepIndex,
						Type:        "REPAIRED",
						Text:        "Released and rescheduled, previous executor was: " + fmt.Sprint(previousExecutorID.Int64),
						DateTime:    s.clock.Now(),
					})
				}
			}
		}
	}
}

func registerExecutorInstance(ctx context.Context, s *Scheduler) {
	name := config.GetSystemSettingString(config.EXECUTOR_NAME)
	if name == "" {
		hostname, err := os.Hostname()
		if err != nil {
			name = "workflow-engine"
		} else {
			name = hostname
		}
	}
	exec := &domain.Executor{
		Name:          name,
		ExecutorGroup: config.GetSystemSettingString(config.ENGINE_EXECUTOR_GROUP),
		Started:       s.clock.Now(),
		LastActive:    s.clock.Now(),
	}
	id, err := s.executorRepo.Save(exec)
	if err != nil {
		slog.Error("Failed to register executor", "error", err)
		return
	}
	s.executorID = id
	slog.Info("Registered executor", "executor_id", id, "name", name)
	// Heartbeat every 30s; the repair service on other instances treats a
	// silent executor as dead.
	hb := time.NewTicker(30 * time.Second)
	go func(executorID int64) {
		for {
			select {
			case <-ctx.Done():
				hb.Stop()
				return
			case <-hb.C:
				if err := s.executorRepo.UpdateLastActive(executorID, s.clock.Now()); err != nil {
					slog.Error("Failed to update executor last_active", "executor_id", executorID, "error", err)
				}
			}
		}
	}(id)
}

// pollAndRunExecutions queries the repository for due executions, claims
// them and enqueues the claimed ones for the worker pool.
func (s *Scheduler) pollAndRunExecutions(ctx context.Context) {
	slog.Debug("Polling for due executions")

	if len(executionQueue) >= config.GetSystemSettingInteger(config.ENGINE_BATCH_SIZE) {
		slog.Warn("execution queue full, skipping poll, possibly stuck or long running steps")
		return
	}

	due, err := s.ExecutionRepo.FindDue(
		config.GetSystemSettingInteger(config.ENGINE_BATCH_SIZE),
		config.GetSystemSettingString(config.ENGINE_EXECUTOR_GROUP),
	)
	if err != nil {
		slog.Error("Error fetching due executions", "error", err)
		return
	}

	for i := range *due {
		exec := (*due)[i]

		claimed := s.ExecutionRepo.ClaimForExecution(exec.ID, s.executorID, exec.Modified)
		if !claimed {
			slog.InfoContext(ctx, "Unable to claim execution, possibly picked up by another executor", "execution_id", exec.ID)
			_, _ = s.ExecutionActionRepo.Save(&domain.ExecutionAction{
				ExecutionID: exec.ID,
				ExecutorID:  s.executorID,
				StepIndex:   exec.CurrentStepIndex,
				Type:        "CLAIM_FAILED",
				Text:        "Failed to acquire a claim on the execution",
				DateTime:    s.clock.Now(),
			})
			continue
		}
		_, _ = s.ExecutionActionRepo.Save(&domain.ExecutionAction{
			ExecutionID: exec.ID,
			ExecutorID:  s.executorID,
			StepIndex:   exec.CurrentStepIndex,
			Type:        "SCHEDULED",
			Text:        "Claimed and scheduled for execution",
			DateTime:    s.clock.Now(),
		})

		slog.InfoContext(ctx, "Adding execution to worker queue", "execution_id", exec.ID, "workflow_id", exec.WorkflowID)
		executionQueue <- &exec
	}
}

// CancelExecution cancels an execution that has not reached a terminal
// status. It returns false when the execution was already terminal.
func (s *Scheduler) CancelExecution(id int64) (bool, error) {
	cancelled, err := s.ExecutionRepo.Cancel(id)
	if err != nil || !cancelled {
		return cancelled, err
	}
	_, _ = s.ExecutionActionRepo.Save(&domain.ExecutionAction{
		ExecutionID: id,
		ExecutorID:  s.executorID,
		Type:        "CANCELLED",
		Text:        "Cancelled by operator",
		DateTime:    s.clock.Now(),
	})
	return true, nil
}

func (s *Scheduler) Wakeup() {
	slog.Debug("Scheduler wakeup called")
	select {
	case s.wakeup <- struct{}{}:
	default:
	}
}
