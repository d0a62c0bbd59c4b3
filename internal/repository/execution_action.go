package repository

import (
	"database/sql"
	"log/slog"

	"github.com/invoflow/invoflow/pkg/invoflow/core"
	"github.com/invoflow/invoflow/pkg/invoflow/domain"
)

// ExecutionActionRepository provides methods to persist and query the
// immutable per-execution audit log.
type ExecutionActionRepository struct {
	db    *sql.DB
	clock core.Clock
}

func NewExecutionActionRepository(db *sql.DB, clock core.Clock) *ExecutionActionRepository {
	return &ExecutionActionRepository{db: db, clock: clock}
}

// Save inserts a new execution action and returns its ID.
func (r *ExecutionActionRepository) Save(a *domain.ExecutionAction) (int64, error) {
	base := `
		INSERT INTO execution_actions (
			execution_id, executor_id, step_index, action_type, type, text, date_time
		) VALUES (
			` + placeholder(1) + `, ` + placeholder(2) + `, ` + placeholder(3) + `, ` + placeholder(4) + `, ` + placeholder(5) + `, ` + placeholder(6) + `, ` + placeholder(7) + `
		)`
	var err error
	if supportsReturning() {
		query := base + " RETURNING id"
		err = r.db.QueryRow(
			query,
			a.ExecutionID,
			a.ExecutorID,
			a.StepIndex,
			a.ActionType,
			a.Type,
			a.Text,
			formatDateInDatabase(a.DateTime),
		).Scan(&a.ID)
	} else {
		res, execErr := r.db.Exec(base,
			a.ExecutionID,
			a.ExecutorID,
			a.StepIndex,
			a.ActionType,
			a.Type,
			a.Text,
			formatDateInDatabase(a.DateTime),
		)
		if execErr != nil {
			err = execErr
		} else {
			id, idErr := res.LastInsertId()
			if idErr != nil {
				err = idErr
			} else {
				a.ID = id
			}
		}
	}

	if err != nil {
		slog.Error("Failed to save execution action", "error", err)
	}
	return a.ID, err
}

// FindAllByExecutionID returns all actions for an execution, newest first.
func (r *ExecutionActionRepository) FindAllByExecutionID(executionID int64) (*[]domain.ExecutionAction, error) {
	query := `
		SELECT id, execution_id, executor_id, step_index, action_type, type, text, date_time
		FROM execution_actions
		WHERE execution_id = ` + placeholder(1) + `
		ORDER BY id DESC
	`
	rows, err := r.db.Query(query, executionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []domain.ExecutionAction
	for rows.Next() {
		var a domain.ExecutionAction
		if err := rows.Scan(
			&a.ID,
			&a.ExecutionID,
			&a.ExecutorID,
			&a.StepIndex,
			&a.ActionType,
			&a.Type,
			&a.Text,
			&a.DateTime,
		); err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return &actions, rows.Err()
}
