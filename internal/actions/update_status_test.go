package actions

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/invoflow/invoflow/pkg/invoflow/core"
	"github.com/invoflow/invoflow/pkg/invoflow/models"
)

type mockStatusUpdater struct {
	setFunc func(ctx context.Context, entityType string, entityID int64, status string) error
	lastSet string
}

func (m *mockStatusUpdater) SetStatus(ctx context.Context, entityType string, entityID int64, status string) error {
	m.lastSet = status
	if m.setFunc != nil {
		return m.setFunc(ctx, entityType, entityID, status)
	}
	return nil
}

func TestUpdateStatus_AppliesStatusToEntity(t *testing.T) {
	updater := &mockStatusUpdater{}
	h := NewUpdateStatusHandler(updater)

	sc := models.StepContext{Entity: models.EntityRef{EntityType: "invoice", EntityID: 42}}
	outcome := h.Execute(context.Background(), sc, json.RawMessage(`{"status":"overdue"}`))

	assert.Equal(t, models.OutcomeSuccess, outcome.Kind)
	assert.Equal(t, "overdue", updater.lastSet)
}

func TestUpdateStatus_MissingEntityIsPermanent(t *testing.T) {
	updater := &mockStatusUpdater{
		setFunc: func(ctx context.Context, entityType string, entityID int64, status string) error {
			return core.ErrEntityNotFound
		},
	}
	h := NewUpdateStatusHandler(updater)

	outcome := h.Execute(context.Background(), models.StepContext{}, json.RawMessage(`{"status":"paid"}`))

	assert.Equal(t, models.OutcomePermanentFailure, outcome.Kind)
}

func TestUpdateStatus_RejectedTransitionIsPermanent(t *testing.T) {
	updater := &mockStatusUpdater{
		setFunc: func(ctx context.Context, entityType string, entityID int64, status string) error {
			return core.ErrInvalidStatus
		},
	}
	h := NewUpdateStatusHandler(updater)

	outcome := h.Execute(context.Background(), models.StepContext{}, json.RawMessage(`{"status":"paid"}`))

	assert.Equal(t, models.OutcomePermanentFailure, outcome.Kind)
}

func TestUpdateStatus_StoreOutageIsTransient(t *testing.T) {
	updater := &mockStatusUpdater{
		setFunc: func(ctx context.Context, entityType string, entityID int64, status string) error {
			return errors.New("connection reset")
		},
	}
	h := NewUpdateStatusHandler(updater)

	outcome := h.Execute(context.Background(), models.StepContext{}, json.RawMessage(`{"status":"paid"}`))

	assert.Equal(t, models.OutcomeTransientFailure, outcome.Kind)
}
