package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/terrarium-dev/terrarium/internal/cmd"
	"github.com/terrarium-dev/terrarium/internal/exitcode"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		exitcode.Exit(exitcode.Success)
	}

	if errors.Is(ctx.Err(), context.Canceled) {
		fmt.Fprintln(os.Stderr, "\nOperation cancelled")
		exitcode.Exit(exitcode.Interrupted)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	exitcode.ExitWithError(err)
}
