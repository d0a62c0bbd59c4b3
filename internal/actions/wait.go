package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/invoflow/invoflow/pkg/invoflow/models"
)

// WaitHandler is pure: it computes the resume delay and performs no I/O. The
// scheduler is responsible for parking the execution until the delay elapses.
type WaitHandler struct{}

func NewWaitHandler() *WaitHandler { return &WaitHandler{} }

func (h *WaitHandler) ActionType() models.ActionType { return models.ActionWait }

func (h *WaitHandler) Execute(_ context.Context, _ models.StepContext, data json.RawMessage) models.Outcome {
	var cfg models.WaitData
	if err := json.Unmarshal(data, &cfg); err != nil {
		return models.Permanent(fmt.Errorf("malformed wait action_data: %w", err))
	}
	if cfg.Days < 1 {
		return models.Permanent(fmt.Errorf("wait days must be >= 1, got %d", cfg.Days))
	}
	d := time.Duration(cfg.Days) * 24 * time.Hour
	return models.Wait(d, fmt.Sprintf("waiting %d days", cfg.Days))
}
