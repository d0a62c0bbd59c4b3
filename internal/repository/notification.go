package repository

import (
	"database/sql"

	"github.com/invoflow/invoflow/pkg/invoflow/core"
	"github.com/invoflow/invoflow/pkg/invoflow/domain"
)

// NotificationRepository stores operator notifications recorded by the notify
// action.
type NotificationRepository struct {
	db    *sql.DB
	clock core.Clock
}

func NewNotificationRepository(db *sql.DB, clock core.Clock) *NotificationRepository {
	return &NotificationRepository{db: db, clock: clock}
}

func (r *NotificationRepository) Save(n *domain.Notification) error {
	if n.Created.IsZero() {
		n.Created = r.clock.Now()
	}
	query := `
		INSERT INTO notifications (id, message, entity_type, entity_id, created)
		VALUES (` + placeholder(1) + `, ` + placeholder(2) + `, ` + placeholder(3) + `, ` + placeholder(4) + `, ` + placeholder(5) + `)
	`
	_, err := r.db.Exec(query, n.ID, n.Message, n.EntityType, n.EntityID, formatDateInDatabase(n.Created))
	return err
}

// FindRecent returns the newest notifications, most recent first.
func (r *NotificationRepository) FindRecent(limit int) (*[]domain.Notification, error) {
	query := `
		SELECT id, message, entity_type, entity_id, created
		FROM notifications
		ORDER BY created DESC
		LIMIT ` + placeholder(1) + `
	`
	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := make([]domain.Notification, 0)
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.Message, &n.EntityType, &n.EntityID, &n.Created); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return &notifications, rows.Err()
}
