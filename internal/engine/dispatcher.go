package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/invoflow/invoflow/pkg/invoflow/core"
	"github.com/invoflow/invoflow/pkg/invoflow/domain"
	"github.com/invoflow/invoflow/pkg/invoflow/models"
)

// Dispatcher turns domain events into execution rows. It runs no steps
// itself: creation and execution are decoupled so event producers never
// block on workflow side effects.
type Dispatcher struct {
	definitions   DefinitionRepo
	executions    ExecutionRepo
	actions       ExecutionActionRepo
	clock         core.Clock
	executorGroup string
	wakeup        func()
}

func NewDispatcher(definitions DefinitionRepo, executions ExecutionRepo, actions ExecutionActionRepo,
	clock core.Clock, executorGroup string, wakeup func()) *Dispatcher {
	return &Dispatcher{
		definitions:   definitions,
		executions:    executions,
		actions:       actions,
		clock:         clock,
		executorGroup: executorGroup,
		wakeup:        wakeup,
	}
}

// Dispatch creates one RUNNABLE execution per active definition matching the
// event's trigger type. The step list is snapshotted into each execution so
// later definition edits never touch it. A storage failure is returned to
// the caller, who owns the retry/log policy for the event feed.
func (d *Dispatcher) Dispatch(ctx context.Context, event models.Event) ([]int64, error) {
	if !event.Type.Valid() {
		return nil, fmt.Errorf("unknown trigger type: %q", event.Type)
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	defs, err := d.definitions.FindActiveByTrigger(string(event.Type))
	if err != nil {
		return nil, fmt.Errorf("looking up definitions for %s: %w", event.Type, err)
	}

	var created []int64
	for _, def := range *defs {
		snapshot, err := snapshotSteps(def.Steps)
		if err != nil {
			return created, fmt.Errorf("snapshotting steps of definition %d: %w", def.ID, err)
		}

		now := d.clock.Now()
		exec := &domain.WorkflowExecution{
			WorkflowID:       def.ID,
			Status:           domain.ExecutionRunnable,
			CurrentStepIndex: 0,
			EntityType:       event.Type.SubjectEntity(),
			EntityID:         event.EntityID,
			StepsSnapshot:    snapshot,
			Created:          now,
			Modified:         now,
			NextRunAt:        sql.NullTime{Time: now, Valid: true},
			ExecutorGroup:    d.executorGroup,
		}
		id, err := d.executions.Save(exec)
		if err != nil {
			return created, fmt.Errorf("creating execution for definition %d: %w", def.ID, err)
		}
		created = append(created, id)

		_, _ = d.actions.Save(&domain.ExecutionAction{
			ExecutionID: id,
			StepIndex:   0,
			Type:        "CREATED",
			Text:        fmt.Sprintf("event %s %s for %s %d", event.ID, event.Type, event.Type.SubjectEntity(), event.EntityID),
			DateTime:    now,
		})
		slog.InfoContext(ctx, "Execution created",
			"execution_id", id, "workflow_id", def.ID, "trigger", event.Type, "entity_id", event.EntityID)
	}

	if len(created) > 0 && d.wakeup != nil {
		d.wakeup()
	}
	return created, nil
}

func snapshotSteps(steps []domain.WorkflowStep) (string, error) {
	snap := make([]models.SnapshotStep, 0, len(steps))
	for _, s := range steps {
		snap = append(snap, models.SnapshotStep{
			StepOrder:  s.StepOrder,
			ActionType: models.ActionType(s.ActionType),
			ActionData: s.ActionData,
		})
	}
	b, err := json.Marshal(snap)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
