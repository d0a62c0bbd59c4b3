package repository

import (
	"database/sql"

	"github.com/invoflow/invoflow/pkg/invoflow/core"
)

// EmailReceiptRepository records which (execution, step) pairs have already
// sent their email, so an at-least-once re-claim after a crash cannot send
// the same email twice.
type EmailReceiptRepository struct {
	db    *sql.DB
	clock core.Clock
}

func NewEmailReceiptRepository(db *sql.DB, clock core.Clock) *EmailReceiptRepository {
	return &EmailReceiptRepository{db: db, clock: clock}
}

func (r *EmailReceiptRepository) Exists(executionID int64, stepOrder int) (bool, error) {
	query := `
		SELECT COUNT(1) FROM email_receipts
		WHERE execution_id = ` + placeholder(1) + ` AND step_order = ` + placeholder(2) + `
	`
	var count int
	if err := r.db.QueryRow(query, executionID, stepOrder).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// Record inserts the receipt; a duplicate insert is a no-op.
func (r *EmailReceiptRepository) Record(executionID int64, stepOrder int) error {
	query := insertIgnorePrefix() + ` INTO email_receipts (execution_id, step_order, created)
		VALUES (` + placeholder(1) + `, ` + placeholder(2) + `, ` + placeholder(3) + `)` + insertIgnoreSuffix()
	_, err := r.db.Exec(query, executionID, stepOrder, formatDateInDatabase(r.clock.Now()))
	return err
}
