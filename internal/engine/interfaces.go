package engine

import (
	"time"

	"github.com/invoflow/invoflow/internal/repository"
	"github.com/invoflow/invoflow/pkg/invoflow/domain"
	"github.com/invoflow/invoflow/pkg/invoflow/models"
)

// ExecutionRepo defines the interface for execution persistence, matching
// repository.ExecutionRepository.
type ExecutionRepo interface {
	Save(e *domain.WorkflowExecution) (int64, error)
	FindByID(id int64) (*domain.WorkflowExecution, error)
	FindDue(size int, executorGroup string) (*[]domain.WorkflowExecution, error)
	ClaimForExecution(id int64, executorID int64, modified time.Time) bool
	MarkRunnable(id int64, stepIndex int) error
	MarkWaiting(id int64, stepIndex int, next time.Time) error
	ScheduleRetry(id int64, next time.Time) error
	MarkCompleted(id int64) error
	MarkFailed(id int64) error
	Cancel(id int64) (bool, error)
	UpdateStartingTime(id int64) error
	FindStale(minutesRepair string, executorGroup string, limit int) (*[]domain.WorkflowExecution, error)
	ReleaseStale(id int64, modified time.Time) bool
	Search(req models.SearchExecutionsRequest) (*[]domain.WorkflowExecution, error)
	Overview() ([]repository.ExecutionOverviewRow, error)
}

// ExecutionActionRepo defines the interface for audit log persistence.
type ExecutionActionRepo interface {
	Save(a *domain.ExecutionAction) (int64, error)
	FindAllByExecutionID(executionID int64) (*[]domain.ExecutionAction, error)
}

// ExecutorRepo defines the interface for executor persistence.
type ExecutorRepo interface {
	Save(e *domain.Executor) (int64, error)
	UpdateLastActive(id int64, ts time.Time) error
	GetExecutorsByLastActive(limit int) ([]*domain.Executor, error)
}

// NotificationRepo defines the interface for notification persistence.
type NotificationRepo interface {
	Save(n *domain.Notification) error
	FindRecent(limit int) (*[]domain.Notification, error)
}

// DefinitionRepo defines the interface for workflow definition persistence.
type DefinitionRepo interface {
	Create(def *domain.WorkflowDefinition) (int64, error)
	FindByID(id int64) (*domain.WorkflowDefinition, error)
	FindActiveByTrigger(triggerType string) (*[]domain.WorkflowDefinition, error)
	FindAll() (*[]domain.WorkflowDefinition, error)
	SetActive(id int64, active bool) error
}
