package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/invoflow/invoflow/internal/collaborators"
	"github.com/invoflow/invoflow/pkg/invoflow"
)

func main() {

	//you may do your own logger setup here or use this default one with slog
	invoflow.SetupLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := invoflow.Options{
		EmailSender:   &collaborators.LogEmailSender{},
		StatusUpdater: collaborators.NewMemoryStatusUpdater(),
	}
	if err := invoflow.Start(ctx, opts); err != nil {
		slog.Error("Engine exited with error", "error", err)
	}
}
