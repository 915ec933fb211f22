package common

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// WithInterrupt returns a context cancelled on SIGINT or SIGTERM. Call the
// returned function to release the signal handler.
func WithInterrupt(parent context.Context) (context.Context, func()) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
