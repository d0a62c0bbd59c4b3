package collaborators

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
)

// LogEmailSender renders nothing and sends nothing; it logs what a real
// mailer integration would do. Useful for local runs and demos.
type LogEmailSender struct{}

func (s *LogEmailSender) RenderAndSend(ctx context.Context, templateID *int64, recipientType string, entityType string, entityID int64) error {
	var tid int64
	if templateID != nil {
		tid = *templateID
	}
	slog.InfoContext(ctx, "Sending email",
		"template_id", tid,
		"recipient_type", recipientType,
		"entity_type", entityType,
		"entity_id", entityID,
	)
	return nil
}

// MemoryStatusUpdater keeps entity statuses in memory. It stands in for the
// invoicing system's own database in local runs.
type MemoryStatusUpdater struct {
	mu       sync.Mutex
	statuses map[string]string
}

func NewMemoryStatusUpdater() *MemoryStatusUpdater {
	return &MemoryStatusUpdater{statuses: make(map[string]string)}
}

func (u *MemoryStatusUpdater) SetStatus(ctx context.Context, entityType string, entityID int64, status string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	key := entityKey(entityType, entityID)
	slog.InfoContext(ctx, "Updating entity status", "entity", key, "status", status)
	u.statuses[key] = status
	return nil
}

// Status returns the last status set for an entity, or "" if none.
func (u *MemoryStatusUpdater) Status(entityType string, entityID int64) string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.statuses[entityKey(entityType, entityID)]
}

func entityKey(entityType string, entityID int64) string {
	return entityType + ":" + strconv.FormatInt(entityID, 10)
}
