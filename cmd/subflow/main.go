package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"subflow/internal/batch"
)

// Process exit codes.
const (
	exitOK         = 0
	exitNotStarted = 1
	exitIncomplete = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(err, os.Stderr))
}

// exitCode reports err on stderr and maps it to the process status: 2 when a
// batch ran but did not fully succeed, 1 when the command could not do its
// work at all.
func exitCode(err error, stderr io.Writer) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, batch.ErrIncomplete):
		fmt.Fprintln(stderr, err)
		return exitIncomplete
	case errors.Is(err, context.Canceled):
		return exitNotStarted
	default:
		fmt.Fprintln(stderr, err)
		return exitNotStarted
	}
}
