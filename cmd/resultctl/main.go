// Command resultctl inspects stored assessments and re-delivers reports.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand(openService).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
