package actions

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/invoflow/invoflow/pkg/invoflow/models"
)

func TestWait_ReturnsWaitOutcomeInDays(t *testing.T) {
	h := NewWaitHandler()

	outcome := h.Execute(context.Background(), models.StepContext{}, json.RawMessage(`{"days":3}`))

	assert.Equal(t, models.OutcomeWait, outcome.Kind)
	assert.Equal(t, 72*time.Hour, outcome.WaitDuration)
}

func TestWait_ZeroDaysIsPermanent(t *testing.T) {
	h := NewWaitHandler()

	outcome := h.Execute(context.Background(), models.StepContext{}, json.RawMessage(`{"days":0}`))

	assert.Equal(t, models.OutcomePermanentFailure, outcome.Kind)
}

func TestWait_MalformedDataIsPermanent(t *testing.T) {
	h := NewWaitHandler()

	outcome := h.Execute(context.Background(), models.StepContext{}, json.RawMessage(`"three"`))

	assert.Equal(t, models.OutcomePermanentFailure, outcome.Kind)
}
