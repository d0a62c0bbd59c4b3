package sqllite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"

	"github.com/invoflow/invoflow/internal/actions"
	"github.com/invoflow/invoflow/internal/collaborators"
	"github.com/invoflow/invoflow/internal/config"
	"github.com/invoflow/invoflow/internal/engine"
	"github.com/invoflow/invoflow/internal/migrations"
	"github.com/invoflow/invoflow/internal/repository"
	"github.com/invoflow/invoflow/pkg/invoflow/domain"
	"github.com/invoflow/invoflow/pkg/invoflow/models"
	"github.com/invoflow/invoflow/test/integration"
)

const testExecutorID = int64(1)

// testEngine wires the real repositories over a migrated SQLite file and the
// real dispatcher and step executor over a fake clock. Only the poll ticker
// is left out: tests drive each tick explicitly via runDueOnce.
type testEngine struct {
	db          *sql.DB
	clock       *integration.FakeClock
	definitions *repository.DefinitionRepository
	executions  *repository.ExecutionRepository
	actionsLog  *repository.ExecutionActionRepository
	receipts    *repository.EmailReceiptRepository
	dispatcher  *engine.Dispatcher
	executor    *engine.StepExecutor
	sender      *scriptedEmailSender
	statuses    *collaborators.MemoryStatusUpdater
}

func setupTestEngine(t *testing.T, clock *integration.FakeClock, retry models.RetryConfig) *testEngine {
	t.Helper()
	os.Setenv(config.DATABASE_TYPE, config.DATABASE_TYPE_SQLLITE)

	fileName := filepath.Join(t.TempDir(), "invoflow-test.db")
	if err := migrateSqlLite(fileName); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	db, err := sql.Open("sqlite3", fileName)
	if err != nil {
		t.Fatalf("Failed to open SQLite DB: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	te := &testEngine{
		db:          db,
		clock:       clock,
		definitions: repository.NewDefinitionRepository(db, clock),
		executions:  repository.NewExecutionRepository(db, clock),
		actionsLog:  repository.NewExecutionActionRepository(db, clock),
		receipts:    repository.NewEmailReceiptRepository(db, clock),
		sender:      &scriptedEmailSender{},
		statuses:    collaborators.NewMemoryStatusUpdater(),
	}
	notificationRepo := repository.NewNotificationRepository(db, clock)

	registry := actions.NewRegistry(
		actions.NewSendEmailHandler(te.sender, te.receipts),
		actions.NewWaitHandler(),
		actions.NewUpdateStatusHandler(te.statuses),
		actions.NewNotifyHandler(notificationRepo),
	)
	te.executor = engine.NewStepExecutor(te.executions, te.actionsLog, registry, retry, clock, testExecutorID)
	te.dispatcher = engine.NewDispatcher(te.definitions, te.executions, te.actionsLog, clock, "default", nil)
	return te
}

func migrateSqlLite(fileName string) error {
	sub, err := fs.Sub(migrations.FS, "sqllite3")
	if err != nil {
		return err
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, "sqlite3://"+fileName)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

// runDueOnce mimics one scheduler poll: claim every due execution and run a
// single step of each. Returns the number of claims won.
func (te *testEngine) runDueOnce(t *testing.T) int {
	t.Helper()
	due, err := te.executions.FindDue(10, "default")
	if err != nil {
		t.Fatalf("Failed to find due executions: %v", err)
	}
	claimed := 0
	for i := range *due {
		exec := (*due)[i]
		if !te.executions.ClaimForExecution(exec.ID, testExecutorID, exec.Modified) {
			continue
		}
		claimed++
		te.executor.Advance(context.Background(), &exec)
	}
	return claimed
}

func createDefinition(t *testing.T, te *testEngine, trigger string, steps ...domain.WorkflowStep) int64 {
	t.Helper()
	def := &domain.WorkflowDefinition{
		Name:        "integration definition",
		Description: "exercises the engine end to end",
		TriggerType: trigger,
		IsActive:    true,
		Steps:       steps,
	}
	id, err := te.definitions.Create(def)
	if err != nil {
		t.Fatalf("Failed to create definition: %v", err)
	}
	return id
}

func step(order int, actionType string, data string) domain.WorkflowStep {
	return domain.WorkflowStep{StepOrder: order, ActionType: actionType, ActionData: json.RawMessage(data)}
}

func fetchExecution(t *testing.T, te *testEngine, id int64) *domain.WorkflowExecution {
	t.Helper()
	exec, err := te.executions.FindByID(id)
	if err != nil {
		t.Fatalf("Failed to load execution %d: %v", id, err)
	}
	return exec
}

// scriptedEmailSender fails the first failuresLeft sends with a transport
// error, then records successful sends by template id.
type scriptedEmailSender struct {
	mu           sync.Mutex
	failuresLeft int
	sent         []int64
}

func (s *scriptedEmailSender) RenderAndSend(ctx context.Context, templateID *int64, recipientType string, entityType string, entityID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failuresLeft > 0 {
		s.failuresLeft--
		return errors.New("smtp connection refused")
	}
	s.sent = append(s.sent, *templateID)
	return nil
}

func (s *scriptedEmailSender) sentTemplates() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, len(s.sent))
	copy(out, s.sent)
	return out
}
