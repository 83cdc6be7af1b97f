// Package shutdown turns OS signals into context cancellation and handles
// fatal startup errors.
package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"meshbbs/pkg/logger"
	"meshbbs/pkg/state"
)

// SetupSignalHandler returns a context cancelled on SIGINT or SIGTERM.
func SetupSignalHandler(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigc)
		select {
		case s := <-sigc:
			logger.Info("signal_received", "signal", s.String(), "msg", "shutdown requested")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

var exit = os.Exit

// Abort logs a fatal startup error, writes a crash dump under root when it
// can and exits with status 2.
func Abort(contextMsg string, err error, root string) {
	logger.Error("startup_fatal", "msg", contextMsg, "error", err)
	fmt.Fprintf(os.Stderr, "%s: %v\n", contextMsg, err)
	if dumpPath, derr := state.WriteCrashDump(root, contextMsg, err); derr != nil {
		logger.Error("crash_dump_failed", "error", derr)
	} else {
		logger.Info("wrote_crash_dump", "path", dumpPath)
	}
	logger.Sync()
	exit(2)
}
