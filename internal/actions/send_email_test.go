package actions

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invoflow/invoflow/pkg/invoflow/core"
	"github.com/invoflow/invoflow/pkg/invoflow/models"
)

type mockEmailSender struct {
	sendFunc func(ctx context.Context, templateID *int64, recipientType string, entityType string, entityID int64) error
	calls    int
}

func (m *mockEmailSender) RenderAndSend(ctx context.Context, templateID *int64, recipientType string, entityType string, entityID int64) error {
	m.calls++
	if m.sendFunc != nil {
		return m.sendFunc(ctx, templateID, recipientType, entityType, entityID)
	}
	return nil
}

type mockReceiptStore struct {
	existsFunc func(executionID int64, stepOrder int) (bool, error)
	recordFunc func(executionID int64, stepOrder int) error
	recorded   int
}

func (m *mockReceiptStore) Exists(executionID int64, stepOrder int) (bool, error) {
	if m.existsFunc != nil {
		return m.existsFunc(executionID, stepOrder)
	}
	return false, nil
}

func (m *mockReceiptStore) Record(executionID int64, stepOrder int) error {
	m.recorded++
	if m.recordFunc != nil {
		return m.recordFunc(executionID, stepOrder)
	}
	return nil
}

func emailContext() models.StepContext {
	return models.StepContext{
		ExecutionID: 11,
		StepOrder:   1,
		Entity:      models.EntityRef{EntityType: "invoice", EntityID: 42},
	}
}

func TestSendEmail_SendsAndRecordsReceipt(t *testing.T) {
	sender := &mockEmailSender{}
	receipts := &mockReceiptStore{}
	h := NewSendEmailHandler(sender, receipts)

	outcome := h.Execute(context.Background(), emailContext(), json.RawMessage(`{"template_id":4,"recipient_type":"client"}`))

	assert.Equal(t, models.OutcomeSuccess, outcome.Kind)
	assert.Equal(t, 1, sender.calls)
	assert.Equal(t, 1, receipts.recorded)
}

func TestSendEmail_SkipsWhenReceiptExists(t *testing.T) {
	sender := &mockEmailSender{}
	receipts := &mockReceiptStore{
		existsFunc: func(executionID int64, stepOrder int) (bool, error) { return true, nil },
	}
	h := NewSendEmailHandler(sender, receipts)

	outcome := h.Execute(context.Background(), emailContext(), json.RawMessage(`{"template_id":4,"recipient_type":"client"}`))

	assert.Equal(t, models.OutcomeSuccess, outcome.Kind)
	assert.Zero(t, sender.calls, "duplicate step must not send again")
}

func TestSendEmail_NilTemplateIsPermanent(t *testing.T) {
	h := NewSendEmailHandler(&mockEmailSender{}, &mockReceiptStore{})

	outcome := h.Execute(context.Background(), emailContext(), json.RawMessage(`{"recipient_type":"client"}`))

	assert.Equal(t, models.OutcomePermanentFailure, outcome.Kind)
}

func TestSendEmail_MalformedDataIsPermanent(t *testing.T) {
	h := NewSendEmailHandler(&mockEmailSender{}, &mockReceiptStore{})

	outcome := h.Execute(context.Background(), emailContext(), json.RawMessage(`{`))

	assert.Equal(t, models.OutcomePermanentFailure, outcome.Kind)
}

func TestSendEmail_MissingTemplateIsPermanent(t *testing.T) {
	sender := &mockEmailSender{
		sendFunc: func(ctx context.Context, templateID *int64, recipientType string, entityType string, entityID int64) error {
			return core.ErrTemplateNotFound
		},
	}
	h := NewSendEmailHandler(sender, &mockReceiptStore{})

	outcome := h.Execute(context.Background(), emailContext(), json.RawMessage(`{"template_id":99,"recipient_type":"client"}`))

	require.Equal(t, models.OutcomePermanentFailure, outcome.Kind)
	assert.ErrorIs(t, outcome.Err, core.ErrTemplateNotFound)
}

func TestSendEmail_TransportFailureIsTransient(t *testing.T) {
	sender := &mockEmailSender{
		sendFunc: func(ctx context.Context, templateID *int64, recipientType string, entityType string, entityID int64) error {
			return errors.New("smtp connection refused")
		},
	}
	receipts := &mockReceiptStore{}
	h := NewSendEmailHandler(sender, receipts)

	outcome := h.Execute(context.Background(), emailContext(), json.RawMessage(`{"template_id":4,"recipient_type":"client"}`))

	assert.Equal(t, models.OutcomeTransientFailure, outcome.Kind)
	assert.Zero(t, receipts.recorded, "failed send must not record a receipt")
}

func TestSendEmail_ReceiptCheckFailureIsTransient(t *testing.T) {
	receipts := &mockReceiptStore{
		existsFunc: func(executionID int64, stepOrder int) (bool, error) {
			return false, errors.New("db gone")
		},
	}
	sender := &mockEmailSender{}
	h := NewSendEmailHandler(sender, receipts)

	outcome := h.Execute(context.Background(), emailContext(), json.RawMessage(`{"template_id":4,"recipient_type":"client"}`))

	assert.Equal(t, models.OutcomeTransientFailure, outcome.Kind)
	assert.Zero(t, sender.calls, "must not send when dedup state is unknown")
}
