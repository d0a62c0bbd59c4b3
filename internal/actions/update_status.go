package actions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/invoflow/invoflow/pkg/invoflow/core"
	"github.com/invoflow/invoflow/pkg/invoflow/models"
)

// UpdateStatusHandler applies a status to the referenced entity through the
// surrounding application's status capability. A vanished entity or rejected
// transition cannot succeed on retry, so both are permanent.
type UpdateStatusHandler struct {
	updater core.StatusUpdater
}

func NewUpdateStatusHandler(updater core.StatusUpdater) *UpdateStatusHandler {
	return &UpdateStatusHandler{updater: updater}
}

func (h *UpdateStatusHandler) ActionType() models.ActionType { return models.ActionUpdateStatus }

func (h *UpdateStatusHandler) Execute(ctx context.Context, sc models.StepContext, data json.RawMessage) models.Outcome {
	var cfg models.UpdateStatusData
	if err := json.Unmarshal(data, &cfg); err != nil {
		return models.Permanent(fmt.Errorf("malformed update_status action_data: %w", err))
	}

	err := h.updater.SetStatus(ctx, sc.Entity.EntityType, sc.Entity.EntityID, cfg.Status)
	if err != nil {
		if errors.Is(err, core.ErrEntityNotFound) || errors.Is(err, core.ErrInvalidStatus) {
			return models.Permanent(err)
		}
		return models.Transient(err)
	}

	slog.Info("Entity status updated", "action_type", "update_status",
		"entity_type", sc.Entity.EntityType, "entity_id", sc.Entity.EntityID, "status", cfg.Status)
	return models.Success(fmt.Sprintf("set %s %d to %s", sc.Entity.EntityType, sc.Entity.EntityID, cfg.Status))
}
