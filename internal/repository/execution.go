package repository

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/invoflow/invoflow/pkg/invoflow/core"
	"github.com/invoflow/invoflow/pkg/invoflow/domain"
	"github.com/invoflow/invoflow/pkg/invoflow/models"
)

// ExecutionRepository persists workflow execution rows. All mutation of an
// in-flight execution goes through the claim-then-update protocol: a worker
// first wins the ClaimForExecution compare-and-swap, then writes exactly one
// outcome.
type ExecutionRepository struct {
	db    *sql.DB
	clock core.Clock
}

const executionColumns = ` id, workflow_id, status, current_step_index, attempt_count,
	       entity_type, entity_id, steps_snapshot, created, modified,
	       next_run_at, started, executor_id, executor_group `

// ExecutionOverviewRow holds grouped counts by workflow_id and status.
type ExecutionOverviewRow struct {
	WorkflowID     int64
	RunnableCount  int
	WaitingCount   int
	RunningCount   int
	CompletedCount int
	FailedCount    int
	CancelledCount int
}

func NewExecutionRepository(db *sql.DB, clock core.Clock) *ExecutionRepository {
	return &ExecutionRepository{db: db, clock: clock}
}

func scanExecution(scan func(dest ...any) error) (*domain.WorkflowExecution, error) {
	var e domain.WorkflowExecution
	err := scan(
		&e.ID,
		&e.WorkflowID,
		&e.Status,
		&e.CurrentStepIndex,
		&e.AttemptCount,
		&e.EntityType,
		&e.EntityID,
		&e.StepsSnapshot,
		&e.Created,
		&e.Modified,
		&e.NextRunAt,
		&e.Started,
		&e.ExecutorID,
		&e.ExecutorGroup,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *ExecutionRepository) Save(e *domain.WorkflowExecution) (int64, error) {
	vals := []interface{}{
		e.WorkflowID, e.Status, e.CurrentStepIndex, e.AttemptCount,
		e.EntityType, e.EntityID, e.StepsSnapshot,
		formatDateInDatabase(e.Created), formatDateInDatabase(e.Modified),
		formatDateInDatabaseNull(e.NextRunAt), formatDateInDatabaseNull(e.Started),
		e.ExecutorID, e.ExecutorGroup,
	}
	pps := make([]string, 0, len(vals))
	for i := range vals {
		pps = append(pps, placeholder(i+1))
	}
	base := `INSERT INTO workflow_executions (
		workflow_id, status, current_step_index, attempt_count,
		entity_type, entity_id, steps_snapshot, created, modified,
		next_run_at, started, executor_id, executor_group
	) VALUES (` + strings.Join(pps, ", ") + `)`
	var err error
	if supportsReturning() {
		query := base + " RETURNING id"
		err = r.db.QueryRow(query, vals...).Scan(&e.ID)
	} else {
		res, execErr := r.db.Exec(base, vals...)
		if execErr != nil {
			err = execErr
		} else {
			id, idErr := res.LastInsertId()
			if idErr != nil {
				err = idErr
			} else {
				e.ID = id
			}
		}
	}
	return e.ID, err
}

func (r *ExecutionRepository) FindByID(id int64) (*domain.WorkflowExecution, error) {
	query := `
		SELECT ` + executionColumns + `
		FROM workflow_executions WHERE id = ` + placeholder(1) + `
	`
	return scanExecution(func(dest ...any) error {
		return r.db.QueryRow(query, id).Scan(dest...)
	})
}

// FindDue returns executions ready for a claim attempt: runnable now, or
// waiting with an elapsed next_run_at. Rows already owned by an executor are
// skipped.
func (r *ExecutionRepository) FindDue(size int, executorGroup string) (*[]domain.WorkflowExecution, error) {
	query := `
		SELECT ` + executionColumns + `
		FROM workflow_executions
		WHERE ` + dateBeforeNow("next_run_at", r.clock.Now()) + `
		  AND status IN ('RUNNABLE', 'WAITING')
		  AND executor_id IS NULL
		  AND executor_group = ` + placeholder(1) + `
		ORDER BY next_run_at ASC
		LIMIT ` + placeholder(2) + `
	`

	rows, err := r.db.Query(query, executorGroup, size)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var executions []domain.WorkflowExecution
	for rows.Next() {
		e, err := scanExecution(rows.Scan)
		if err != nil {
			return nil, err
		}
		executions = append(executions, *e)
	}
	return &executions, rows.Err()
}

// ClaimForExecution atomically transitions a row to RUNNING for the given
// executor. The modified-timestamp guard plus status and owner predicates
// make this a compare-and-swap: when two workers race, exactly one sees
// rowsAffected == 1.
func (r *ExecutionRepository) ClaimForExecution(id int64, executorID int64, modified time.Time) bool {
	query := `
		UPDATE workflow_executions
		SET status = 'RUNNING', modified = ` + nowLiteral(r.clock.Now()) + `, executor_id = ` + placeholder(1) + `
		WHERE id = ` + placeholder(2) + ` AND modified = ` + placeholder(3) + ` AND status IN ('RUNNABLE', 'WAITING') AND executor_id IS NULL
	`
	result, err := r.db.Exec(query, executorID, id, formatDateInDatabase(modified))
	if err != nil {
		slog.Error("Failed to claim execution", "error", err, "id", id, "executor_id", executorID)
		return false
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false
	}
	return rowsAffected == 1
}

// MarkRunnable releases the claim with the pointer advanced to stepIndex and
// the attempt counter reset; the row is due immediately.
func (r *ExecutionRepository) MarkRunnable(id int64, stepIndex int) error {
	query := `
		UPDATE workflow_executions
		SET status = 'RUNNABLE', current_step_index = ` + placeholder(1) + `, attempt_count = 0,
		    next_run_at = ` + nowLiteral(r.clock.Now()) + `, executor_id = NULL, modified = ` + nowLiteral(r.clock.Now()) + `
		WHERE id = ` + placeholder(2) + `
	`
	_, err := r.db.Exec(query, stepIndex, id)
	return err
}

// MarkWaiting parks the execution until next, with the pointer already
// advanced past the wait step.
func (r *ExecutionRepository) MarkWaiting(id int64, stepIndex int, next time.Time) error {
	query := `
		UPDATE workflow_executions
		SET status = 'WAITING', current_step_index = ` + placeholder(1) + `, attempt_count = 0,
		    next_run_at = ` + placeholder(2) + `, executor_id = NULL, modified = ` + nowLiteral(r.clock.Now()) + `
		WHERE id = ` + placeholder(3) + `
	`
	_, err := r.db.Exec(query, stepIndex, formatDateInDatabase(next), id)
	return err
}

// ScheduleRetry releases the claim after a transient failure: same step,
// attempt counter incremented, next attempt after the backoff delay.
func (r *ExecutionRepository) ScheduleRetry(id int64, next time.Time) error {
	query := `
		UPDATE workflow_executions
		SET status = 'RUNNABLE', executor_id = NULL, attempt_count = attempt_count + 1,
		    next_run_at = ` + placeholder(1) + `, modified = ` + nowLiteral(r.clock.Now()) + `
		WHERE id = ` + placeholder(2) + `
	`
	_, err := r.db.Exec(query, formatDateInDatabase(next), id)
	return err
}

func (r *ExecutionRepository) MarkCompleted(id int64) error {
	return r.markTerminal(id, domain.ExecutionCompleted)
}

func (r *ExecutionRepository) MarkFailed(id int64) error {
	return r.markTerminal(id, domain.ExecutionFailed)
}

func (r *ExecutionRepository) markTerminal(id int64, status string) error {
	query := `
		UPDATE workflow_executions
		SET status = ` + placeholder(1) + `, executor_id = NULL, modified = ` + nowLiteral(r.clock.Now()) + `
		WHERE id = ` + placeholder(2) + `
	`
	_, err := r.db.Exec(query, status, id)
	return err
}

// Cancel transitions a non-terminal execution to CANCELLED. Returns false
// when the row was already terminal.
func (r *ExecutionRepository) Cancel(id int64) (bool, error) {
	query := `
		UPDATE workflow_executions
		SET status = 'CANCELLED', executor_id = NULL, modified = ` + nowLiteral(r.clock.Now()) + `
		WHERE id = ` + placeholder(1) + ` AND status NOT IN ('COMPLETED', 'FAILED', 'CANCELLED')
	`
	result, err := r.db.Exec(query, id)
	if err != nil {
		return false, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected == 1, nil
}

func (r *ExecutionRepository) UpdateStartingTime(id int64) error {
	query := `
		UPDATE workflow_executions
		SET started = ` + nowLiteral(r.clock.Now()) + `
		WHERE id = ` + placeholder(1) + `
	`
	_, err := r.db.Exec(query, id)
	return err
}

// FindStale returns RUNNING claims whose row has not moved within the repair
// window and whose owning executor has stopped heartbeating. These are the
// leftovers of a crashed worker.
func (r *ExecutionRepository) FindStale(minutesRepair string, executorGroup string, limit int) (*[]domain.WorkflowExecution, error) {
	query := `
		SELECT ` + executionColumns + `
		FROM workflow_executions
		WHERE modified < ` + placeholder(1) + `
		  AND status = 'RUNNING'
		  AND executor_group = ` + placeholder(2) + `
		  AND executor_id NOT IN (
		      SELECT id
		      FROM executors
		      WHERE last_active > ` + placeholder(3) + `
		  )
		ORDER BY next_run_at ASC
		LIMIT ` + placeholder(4) + `
	`
	mins := 0
	fmt.Sscanf(minutesRepair, "%d", &mins)
	cutoff := r.clock.Now().UTC().Add(-time.Duration(mins) * time.Minute)
	rows, err := r.db.Query(query, formatDateInDatabase(cutoff), executorGroup, formatDateInDatabase(cutoff), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var executions []domain.WorkflowExecution
	for rows.Next() {
		e, err := scanExecution(rows.Scan)
		if err != nil {
			return nil, err
		}
		executions = append(executions, *e)
	}
	return &executions, rows.Err()
}

// ReleaseStale reverts a stale RUNNING claim back to RUNNABLE, charging one
// attempt. Guarded on modified so two repair sweeps cannot both release the
// same row.
func (r *ExecutionRepository) ReleaseStale(id int64, modified time.Time) bool {
	query := `
		UPDATE workflow_executions
		SET status = 'RUNNABLE', executor_id = NULL, attempt_count = attempt_count + 1,
		    next_run_at = ` + nowLiteral(r.clock.Now()) + `, modified = ` + nowLiteral(r.clock.Now()) + `
		WHERE id = ` + placeholder(1) + ` AND modified = ` + placeholder(2) + ` AND status = 'RUNNING'
	`
	result, err := r.db.Exec(query, id, formatDateInDatabase(modified))
	if err != nil {
		return false
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false
	}
	return rowsAffected == 1
}

func (r *ExecutionRepository) Search(req models.SearchExecutionsRequest) (*[]domain.WorkflowExecution, error) {
	whereClause, args := buildExecutionWhereClause(req)

	query := `
		SELECT ` + executionColumns + `
		FROM workflow_executions
		` + whereClause + `
		ORDER BY id DESC
	` + buildLimitsAndOffset(req.Limit, req.Offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var executions []domain.WorkflowExecution
	for rows.Next() {
		e, err := scanExecution(rows.Scan)
		if err != nil {
			return nil, err
		}
		executions = append(executions, *e)
	}
	return &executions, rows.Err()
}

// Overview returns aggregated counts grouped by workflow_id for dashboards.
func (r *ExecutionRepository) Overview() ([]ExecutionOverviewRow, error) {
	query := `
SELECT
    workflow_id,
    SUM(CASE WHEN status = 'RUNNABLE' THEN 1 ELSE 0 END) AS runnable_count,
    SUM(CASE WHEN status = 'WAITING' THEN 1 ELSE 0 END) AS waiting_count,
    SUM(CASE WHEN status = 'RUNNING' THEN 1 ELSE 0 END) AS running_count,
    SUM(CASE WHEN status = 'COMPLETED' THEN 1 ELSE 0 END) AS completed_count,
    SUM(CASE WHEN status = 'FAILED' THEN 1 ELSE 0 END) AS failed_count,
    SUM(CASE WHEN status = 'CANCELLED' THEN 1 ELSE 0 END) AS cancelled_count
FROM workflow_executions
GROUP BY workflow_id
ORDER BY workflow_id
	`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []ExecutionOverviewRow
	for rows.Next() {
		var row ExecutionOverviewRow
		if err := rows.Scan(&row.WorkflowID, &row.RunnableCount, &row.WaitingCount, &row.RunningCount,
			&row.CompletedCount, &row.FailedCount, &row.CancelledCount); err != nil {
			return nil, err
		}
		res = append(res, row)
	}
	return res, rows.Err()
}

func buildLimitsAndOffset(limit, offset int) string {
	if limit > 0 {
		return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
	}
	return ""
}

func buildExecutionWhereClause(req models.SearchExecutionsRequest) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if req.WorkflowID != 0 {
		args = append(args, req.WorkflowID)
		clauses = append(clauses, fmt.Sprintf("workflow_id = %s", placeholder(len(args))))
	}
	if req.Status != "" {
		args = append(args, req.Status)
		clauses = append(clauses, fmt.Sprintf("status = %s", placeholder(len(args))))
	}
	if req.EntityType != "" {
		args = append(args, req.EntityType)
		clauses = append(clauses, fmt.Sprintf("entity_type = %s", placeholder(len(args))))
	}
	if req.EntityID != 0 {
		args = append(args, req.EntityID)
		clauses = append(clauses, fmt.Sprintf("entity_id = %s", placeholder(len(args))))
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
