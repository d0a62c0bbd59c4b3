package controllers

import (
	"time"

	"github.com/invoflow/invoflow/internal/repository"
	"github.com/invoflow/invoflow/pkg/invoflow/domain"
	"github.com/invoflow/invoflow/pkg/invoflow/models"
)

// MockDefinitionRepo implements engine.DefinitionRepo for controller tests
type MockDefinitionRepo struct {
	CreateFunc              func(def *domain.WorkflowDefinition) (int64, error)
	FindByIDFunc            func(id int64) (*domain.WorkflowDefinition, error)
	FindActiveByTriggerFunc func(triggerType string) (*[]domain.WorkflowDefinition, error)
	FindAllFunc             func() (*[]domain.WorkflowDefinition, error)
	SetActiveFunc           func(id int64, active bool) error
}

func (m *MockDefinitionRepo) Create(def *domain.WorkflowDefinition) (int64, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(def)
	}
	return 1, nil
}
func (m *MockDefinitionRepo) FindByID(id int64) (*domain.WorkflowDefinition, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(id)
	}
	return nil, nil
}
func (m *MockDefinitionRepo) FindActiveByTrigger(triggerType string) (*[]domain.WorkflowDefinition, error) {
	if m.FindActiveByTriggerFunc != nil {
		return m.FindActiveByTriggerFunc(triggerType)
	}
	return &[]domain.WorkflowDefinition{}, nil
}
func (m *MockDefinitionRepo) FindAll() (*[]domain.WorkflowDefinition, error) {
	if m.FindAllFunc != nil {
		return m.FindAllFunc()
	}
	return &[]domain.WorkflowDefinition{}, nil
}
func (m *MockDefinitionRepo) SetActive(id int64, active bool) error {
	if m.SetActiveFunc != nil {
		return m.SetActiveFunc(id, active)
	}
	return nil
}

// MockExecutionRepo implements engine.ExecutionRepo for controller tests
type MockExecutionRepo struct {
	SaveFunc     func(e *domain.WorkflowExecution) (int64, error)
	FindByIDFunc func(id int64) (*domain.WorkflowExecution, error)
	CancelFunc   func(id int64) (bool, error)
	SearchFunc   func(req models.SearchExecutionsRequest) (*[]domain.WorkflowExecution, error)
	OverviewFunc func() ([]repository.ExecutionOverviewRow, error)
}

func (m *MockExecutionRepo) Save(e *domain.WorkflowExecution) (int64, error) {
	if m.SaveFunc != nil {
		return m.SaveFunc(e)
	}
	return 1, nil
}
func (m *MockExecutionRepo) FindByID(id int64) (*domain.WorkflowExecution, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(id)
	}
	return nil, nil
}
func (m *MockExecutionRepo) FindDue(size int, executorGroup string) (*[]domain.WorkflowExecution, error) {
	return &[]domain.WorkflowExecution{}, nil
}
func (m *MockExecutionRepo) ClaimForExecution(id int64, executorID int64, modified time.Time) bool {
	return true
}
func (m *MockExecutionRepo) MarkRunnable(id int64, stepIndex int) error                { return nil }
func (m *MockExecutionRepo) MarkWaiting(id int64, stepIndex int, next time.Time) error { return nil }
func (m *MockExecutionRepo) ScheduleRetry(id int64, next time.Time) error              { return nil }
func (m *MockExecutionRepo) MarkCompleted(id int64) error                              { return nil }
func (m *MockExecutionRepo) MarkFailed(id int64) error                                 { return nil }
func (m *MockExecutionRepo) Cancel(id int64) (bool, error) {
	if m.CancelFunc != nil {
		return m.CancelFunc(id)
	}
	return true, nil
}
func (m *MockExecutionRepo) UpdateStartingTime(id int64) error { return nil }
func (m *MockExecutionRepo) FindStale(minutesRepair string, executorGroup string, limit int) (*[]domain.WorkflowExecution, error) {
	return &[]domain.WorkflowExecution{}, nil
}
func (m *MockExecutionRepo) ReleaseStale(id int64, modified time.Time) bool { return true }
func (m *MockExecutionRepo) Search(req models.SearchExecutionsRequest) (*[]domain.WorkflowExecution, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(req)
	}
	return &[]domain.WorkflowExecution{}, nil
}
func (m *MockExecutionRepo) Overview() ([]repository.ExecutionOverviewRow, error) {
	if m.OverviewFunc != nil {
		return m.OverviewFunc()
	}
	return nil, nil
}

// MockExecutionActionRepo implements engine.ExecutionActionRepo
type MockExecutionActionRepo struct {
	SaveFunc                 func(a *domain.ExecutionAction) (int64, error)
	FindAllByExecutionIDFunc func(executionID int64) (*[]domain.ExecutionAction, error)
}

func (m *MockExecutionActionRepo) Save(a *domain.ExecutionAction) (int64, error) {
	if m.SaveFunc != nil {
		return m.SaveFunc(a)
	}
	return 1, nil
}
func (m *MockExecutionActionRepo) FindAllByExecutionID(executionID int64) (*[]domain.ExecutionAction, error) {
	if m.FindAllByExecutionIDFunc != nil {
		return m.FindAllByExecutionIDFunc(executionID)
	}
	return &[]domain.ExecutionAction{}, nil
}

// MockNotificationRepo implements engine.NotificationRepo
type MockNotificationRepo struct {
	SaveFunc       func(n *domain.Notification) error
	FindRecentFunc func(limit int) (*[]domain.Notification, error)
}

func (m *MockNotificationRepo) Save(n *domain.Notification) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(n)
	}
	return nil
}
func (m *MockNotificationRepo) FindRecent(limit int) (*[]domain.Notification, error) {
	if m.FindRecentFunc != nil {
		return m.FindRecentFunc(limit)
	}
	return &[]domain.Notification{}, nil
}
