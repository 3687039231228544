package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"storyreel/internal/services"
)

// Exit codes: 2 for bad input or configuration, 130 when interrupted.
const (
	exitFailure     = 1
	exitUsage       = 2
	exitInterrupted = 130
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cmd := newRootCommand()
	cmd.SetArgs(args)
	err := cmd.Execute()
	if err == nil {
		return 0
	}
	if errors.Is(err, context.Canceled) {
		return exitInterrupted
	}
	fmt.Fprintln(os.Stderr, "storyreel:", err)
	return exitCode(err)
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrConfiguration):
		return exitUsage
	default:
		return exitFailure
	}
}
