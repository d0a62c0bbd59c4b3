package sqllite

import (
	"context"
	"testing"
	"time"

	"github.com/invoflow/invoflow/pkg/invoflow/domain"
	"github.com/invoflow/invoflow/pkg/invoflow/models"
	"github.com/invoflow/invoflow/test/integration"
)

// A reminder sequence: wait a day, email, wait two more days, email again.
// The execution must survive the waits in the database and never be claimed
// before its next_run_at elapses.
func TestReminderSequenceAcrossWaits(t *testing.T) {
	clock := integration.NewFakeClock(time.Date(2026, 2, 3, 8, 0, 0, 0, time.UTC))
	retry := models.RetryConfig{MaxRetryCount: 3, RetryIntervalMin: time.Minute, RetryIntervalMax: time.Hour}
	te := setupTestEngine(t, clock, retry)

	createDefinition(t, te, "invoice_due",
		step(1, "wait", `{"days":1}`),
		step(2, "send_email", `{"template_id":1,"recipient_type":"client"}`),
		step(3, "wait", `{"days":2}`),
		step(4, "send_email", `{"template_id":2,"recipient_type":"client"}`),
	)

	ids, err := te.dispatcher.Dispatch(context.Background(), models.Event{Type: models.TriggerInvoiceDue, EntityID: 42})
	if err != nil {
		t.Fatalf("Failed to dispatch event: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("Expected 1 execution, got %d", len(ids))
	}
	execID := ids[0]

	// first poll runs the initial wait and parks the execution for a day
	if n := te.runDueOnce(t); n != 1 {
		t.Fatalf("Expected 1 claim on the first poll, got %d", n)
	}
	exec := fetchExecution(t, te, execID)
	if exec.Status != domain.ExecutionWaiting {
		t.Fatalf("Expected status WAITING, got %s", exec.Status)
	}
	if exec.CurrentStepIndex != 1 {
		t.Errorf("Expected step index 1 after the wait, got %d", exec.CurrentStepIndex)
	}
	wantNext := clock.Now().Add(24 * time.Hour)
	if !exec.NextRunAt.Valid || !exec.NextRunAt.Time.Equal(wantNext) {
		t.Errorf("Expected next_run_at %v, got %v", wantNext, exec.NextRunAt)
	}

	// half a day early nothing is due
	clock.Add(12 * time.Hour)
	if n := te.runDueOnce(t); n != 0 {
		t.Fatalf("Expected no claims before the wait elapses, got %d", n)
	}

	// past the first wait the first reminder goes out
	clock.Add(13 * time.Hour)
	if n := te.runDueOnce(t); n != 1 {
		t.Fatalf("Expected 1 claim after the wait elapsed, got %d", n)
	}
	if got := te.sender.sentTemplates(); len(got) != 1 || got[0] != 1 {
		t.Fatalf("Expected template 1 sent, got %v", got)
	}

	// next poll runs the second wait and parks for two days
	if n := te.runDueOnce(t); n != 1 {
		t.Fatalf("Expected 1 claim for the second wait, got %d", n)
	}
	exec = fetchExecution(t, te, execID)
	if exec.Status != domain.ExecutionWaiting || exec.CurrentStepIndex != 3 {
		t.Fatalf("Expected WAITING at step index 3, got %s at %d", exec.Status, exec.CurrentStepIndex)
	}

	clock.Add(24 * time.Hour)
	if n := te.runDueOnce(t); n != 0 {
		t.Fatalf("Expected no claims one day into a two day wait, got %d", n)
	}

	clock.Add(25 * time.Hour)
	if n := te.runDueOnce(t); n != 1 {
		t.Fatalf("Expected 1 claim after the second wait elapsed, got %d", n)
	}
	exec = fetchExecution(t, te, execID)
	if exec.Status != domain.ExecutionCompleted {
		t.Fatalf("Expected status COMPLETED, got %s", exec.Status)
	}
	if got := te.sender.sentTemplates(); len(got) != 2 || got[1] != 2 {
		t.Fatalf("Expected templates [1 2] sent, got %v", got)
	}

	// both sends left receipts, so a re-claim could never repeat them
	for _, stepOrder := range []int{2, 4} {
		sent, err := te.receipts.Exists(execID, stepOrder)
		if err != nil {
			t.Fatalf("Failed to check receipt for step %d: %v", stepOrder, err)
		}
		if !sent {
			t.Errorf("Expected a receipt for step %d", stepOrder)
		}
	}
}
