package actions

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/invoflow/invoflow/pkg/invoflow/domain"
	"github.com/invoflow/invoflow/pkg/invoflow/models"
)

// NotificationStore is implemented by repository.NotificationRepository.
type NotificationStore interface {
	Save(n *domain.Notification) error
}

// NotifyHandler records an internal notification for operators. The only way
// it fails is the store being unavailable, which is transient.
type NotifyHandler struct {
	store NotificationStore
}

func NewNotifyHandler(store NotificationStore) *NotifyHandler {
	return &NotifyHandler{store: store}
}

func (h *NotifyHandler) ActionType() models.ActionType { return models.ActionNotify }

func (h *NotifyHandler) Execute(_ context.Context, sc models.StepContext, data json.RawMessage) models.Outcome {
	var cfg models.NotifyData
	if err := json.Unmarshal(data, &cfg); err != nil {
		return models.Permanent(fmt.Errorf("malformed notify action_data: %w", err))
	}

	n := &domain.Notification{
		ID:         uuid.NewString(),
		Message:    cfg.Message,
		EntityType: sc.Entity.EntityType,
		EntityID:   sc.Entity.EntityID,
	}
	if err := h.store.Save(n); err != nil {
		return models.Transient(fmt.Errorf("saving notification: %w", err))
	}
	return models.Success("notification recorded")
}
