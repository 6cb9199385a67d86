// Command graphcachectl inspects and edits a persisted graph cache, and
// serves health and metrics endpoints for it.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "graphcachectl:", err)
		stop()
		os.Exit(1)
	}
}
