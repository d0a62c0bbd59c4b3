package domain

import "time"

// Notification is an operator-facing message recorded by the notify action.
type Notification struct {
	ID         string
	Message    string
	EntityType string
	EntityID   int64
	Created    time.Time
}
