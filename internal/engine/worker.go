package engine

import (
	"context"
	"log/slog"

	"github.com/invoflow/invoflow/pkg/invoflow/domain"
)

// Worker processes claimed executions from the queue, one step at a time.
// A panicking handler counts as a transient failure so a bad payload cannot
// kill the pool.
func Worker(ctx context.Context, id int, stepExecutor *StepExecutor, queue <-chan *domain.WorkflowExecution) {
	for {
		select {
		case <-ctx.Done():
			slog.Info("Worker stopping due to context cancel", "worker_id", id)
			return
		case exec := <-queue:
			slog.Info("Worker starting execution step", "worker_id", id, "execution_id", exec.ID)
			runStep(ctx, stepExecutor, exec)
			slog.Info("Worker finished execution step", "worker_id", id, "execution_id", exec.ID)
		}
	}
}

func runStep(ctx context.Context, stepExecutor *StepExecutor, exec *domain.WorkflowExecution) {
	defer func() {
		if r := recover(); r != nil {
			stepExecutor.RecoverPanic(exec, r)
		}
	}()
	stepExecutor.Advance(ctx, exec)
}
