package core

import (
	"context"
	"errors"
)

// Sentinel errors collaborators return so action handlers can classify a
// failure as permanent. Anything else coming back from a capability is
// treated as transient and retried.
var (
	ErrTemplateNotFound = errors.New("email template not found")
	ErrRecipientMissing = errors.New("recipient email address missing")
	ErrEntityNotFound   = errors.New("entity not found")
	ErrInvalidStatus    = errors.New("invalid status transition")
)

// EmailSender is the rendered email-send capability the surrounding
// application provides. Template and recipient resolution happen behind it;
// the engine only hands over the reference data from the step.
type EmailSender interface {
	RenderAndSend(ctx context.Context, templateID *int64, recipientType, entityType string, entityID int64) error
}

// StatusUpdater is the invoice-status capability the surrounding application
// provides.
type StatusUpdater interface {
	SetStatus(ctx context.Context, entityType string, entityID int64, status string) error
}
