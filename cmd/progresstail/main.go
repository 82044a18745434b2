package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hswtrack/compliance-backend/internal/pkg/logger"
	"github.com/hswtrack/compliance-backend/internal/realtime"
	"github.com/hswtrack/compliance-backend/internal/realtime/bus"
)

// progresstail subscribes to the import progress channel and prints every
// event. Meant for operators watching a bulk import from a terminal.
func main() {
	log, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	b, err := bus.NewRedisBus(log)
	if err != nil {
		log.Error("Redis bus init failed", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = b.StartForwarder(ctx, func(ev realtime.ProgressEvent) {
		log.Info("Import progress",
			"batch_id", ev.BatchID,
			"stage", ev.Stage,
			"status", ev.Status,
			"total", ev.Total,
			"accepted", ev.Accepted,
			"errors", ev.Errors,
			"skipped", ev.Skipped,
			"message", ev.Message,
		)
	})
	if err != nil {
		log.Error("Subscribe failed", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()
}
