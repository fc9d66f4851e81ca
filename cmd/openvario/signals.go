package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/srg/openvario/internal/groutine"
)

// interruptible returns a context that is canceled on Ctrl+C or SIGTERM.
// The returned cancel func also stops listening for signals.
func interruptible(parent context.Context, out io.Writer, what string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	groutine.Go(ctx, "signal-handler", func(ctx context.Context) {
		select {
		case <-sigCh:
			fmt.Fprintf(out, "\nCtrl+C pressed, cancelling %s...\n", what)
			cancel()
		case <-ctx.Done():
		}
	})

	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}
