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

// ReceiptStore is the dedup record keyed (execution_id, step_order),
// implemented by repository.EmailReceiptRepository.
type ReceiptStore interface {
	Exists(executionID int64, stepOrder int) (bool, error)
	Record(executionID int64, stepOrder int) error
}

// SendEmailHandler renders and sends an email through the surrounding
// application's email capability. Missing template or recipient is permanent;
// transport errors are transient and retried.
type SendEmailHandler struct {
	sender   core.EmailSender
	receipts ReceiptStore
}

func NewSendEmailHandler(sender core.EmailSender, receipts ReceiptStore) *SendEmailHandler {
	return &SendEmailHandler{sender: sender, receipts: receipts}
}

func (h *SendEmailHandler) ActionType() models.ActionType { return models.ActionSendEmail }

func (h *SendEmailHandler) Execute(ctx context.Context, sc models.StepContext, data json.RawMessage) models.Outcome {
	logger := slog.With("action_type", "send_email", "execution_id", sc.ExecutionID, "step_order", sc.StepOrder)

	var cfg models.SendEmailData
	if err := json.Unmarshal(data, &cfg); err != nil {
		return models.Permanent(fmt.Errorf("malformed send_email action_data: %w", err))
	}
	if cfg.TemplateID == nil {
		return models.Permanent(errors.New("send_email step has no template selected"))
	}

	sent, err := h.receipts.Exists(sc.ExecutionID, sc.StepOrder)
	if err != nil {
		return models.Transient(fmt.Errorf("checking email receipt: %w", err))
	}
	if sent {
		logger.Info("Email already sent for this step, skipping")
		return models.Success("email already sent, skipped duplicate")
	}

	entityType := cfg.EntityType
	if entityType == "" {
		entityType = sc.Entity.EntityType
	}

	err = h.sender.RenderAndSend(ctx, cfg.TemplateID, cfg.RecipientType, entityType, sc.Entity.EntityID)
	if err != nil {
		if errors.Is(err, core.ErrTemplateNotFound) || errors.Is(err, core.ErrRecipientMissing) {
			return models.Permanent(err)
		}
		return models.Transient(err)
	}

	if err := h.receipts.Record(sc.ExecutionID, sc.StepOrder); err != nil {
		// The email went out; a missing receipt only risks one extra send
		// after a crash between here and the status write.
		logger.Warn("Failed to record email receipt", "error", err)
	}

	logger.Info("Email sent", "template_id", *cfg.TemplateID, "recipient_type", cfg.RecipientType)
	return models.Success(fmt.Sprintf("sent template %d to %s", *cfg.TemplateID, cfg.RecipientType))
}
