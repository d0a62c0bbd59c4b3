package repository

import (
	"database/sql"
	"strings"

	"github.com/invoflow/invoflow/pkg/invoflow/core"
	"github.com/invoflow/invoflow/pkg/invoflow/domain"
)

// DefinitionRepository persists workflow definitions and their ordered steps.
type DefinitionRepository struct {
	db    *sql.DB
	clock core.Clock
}

func NewDefinitionRepository(db *sql.DB, clock core.Clock) *DefinitionRepository {
	return &DefinitionRepository{db: db, clock: clock}
}

// Create inserts a definition and all of its steps in one transaction, so a
// definition can never be observed with a partial step list.
func (r *DefinitionRepository) Create(def *domain.WorkflowDefinition) (int64, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	vals := []interface{}{def.Name, def.Description, def.TriggerType, def.IsActive,
		formatDateInDatabase(def.Created), formatDateInDatabase(def.Updated)}
	pps := make([]string, 0, len(vals))
	for i := range vals {
		pps = append(pps, placeholder(i+1))
	}
	base := `INSERT INTO workflow_definitions (name, description, trigger_type, is_active, created, updated)
		VALUES (` + strings.Join(pps, ", ") + `)`

	if supportsReturning() {
		if err := tx.QueryRow(base+" RETURNING id", vals...).Scan(&def.ID); err != nil {
			return 0, err
		}
	} else {
		res, err := tx.Exec(base, vals...)
		if err != nil {
			return 0, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return 0, err
		}
		def.ID = id
	}

	stepQuery := `INSERT INTO workflow_steps (workflow_id, step_order, action_type, action_data)
		VALUES (` + placeholder(1) + `, ` + placeholder(2) + `, ` + placeholder(3) + `, ` + placeholder(4) + `)`
	for i := range def.Steps {
		def.Steps[i].WorkflowID = def.ID
		if _, err := tx.Exec(stepQuery, def.ID, def.Steps[i].StepOrder, def.Steps[i].ActionType, string(def.Steps[i].ActionData)); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return def.ID, nil
}

func (r *DefinitionRepository) FindByID(id int64) (*domain.WorkflowDefinition, error) {
	query := `
		SELECT id, name, description, trigger_type, is_active, created, updated
		FROM workflow_definitions WHERE id = ` + placeholder(1) + `
	`
	var def domain.WorkflowDefinition
	err := r.db.QueryRow(query, id).Scan(
		&def.ID,
		&def.Name,
		&def.Description,
		&def.TriggerType,
		&def.IsActive,
		&def.Created,
		&def.Updated,
	)
	if err != nil {
		return nil, err
	}
	if err := r.loadSteps(&def); err != nil {
		return nil, err
	}
	return &def, nil
}

// FindActiveByTrigger returns every active definition matching the trigger
// type, steps included, ordered by id. This is the dispatcher's match query.
func (r *DefinitionRepository) FindActiveByTrigger(triggerType string) (*[]domain.WorkflowDefinition, error) {
	query := `
		SELECT id, name, description, trigger_type, is_active, created, updated
		FROM workflow_definitions
		WHERE trigger_type = ` + placeholder(1) + ` AND is_active = ` + boolLiteral(true) + `
		ORDER BY id
	`
	return r.queryDefinitions(query, triggerType)
}

func (r *DefinitionRepository) FindAll() (*[]domain.WorkflowDefinition, error) {
	query := `
		SELECT id, name, description, trigger_type, is_active, created, updated
		FROM workflow_definitions
		ORDER BY name
	`
	return r.queryDefinitions(query)
}

func (r *DefinitionRepository) queryDefinitions(query string, args ...interface{}) (*[]domain.WorkflowDefinition, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	defs := make([]domain.WorkflowDefinition, 0)
	for rows.Next() {
		var d domain.WorkflowDefinition
		if err := rows.Scan(&d.ID, &d.Name, &d.Description, &d.TriggerType, &d.IsActive, &d.Created, &d.Updated); err != nil {
			return nil, err
		}
		defs = append(defs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range defs {
		if err := r.loadSteps(&defs[i]); err != nil {
			return nil, err
		}
	}
	return &defs, nil
}

func (r *DefinitionRepository) loadSteps(def *domain.WorkflowDefinition) error {
	query := `
		SELECT id, workflow_id, step_order, action_type, action_data
		FROM workflow_steps
		WHERE workflow_id = ` + placeholder(1) + `
		ORDER BY step_order
	`
	rows, err := r.db.Query(query, def.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	var steps []domain.WorkflowStep
	for rows.Next() {
		var s domain.WorkflowStep
		var data string
		if err := rows.Scan(&s.ID, &s.WorkflowID, &s.StepOrder, &s.ActionType, &data); err != nil {
			return err
		}
		s.ActionData = []byte(data)
		steps = append(steps, s)
	}
	def.Steps = steps
	return rows.Err()
}

// SetActive flips the is_active flag only. In-flight executions run from
// their snapshot and are unaffected.
func (r *DefinitionRepository) SetActive(id int64, active bool) error {
	query := `
		UPDATE workflow_definitions
		SET is_active = ` + placeholder(1) + `, updated = ` + nowLiteral(r.clock.Now()) + `
		WHERE id = ` + placeholder(2) + `
	`
	_, err := r.db.Exec(query, active, id)
	return err
}
