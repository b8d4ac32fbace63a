package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jgoulah/meterdata/internal/usage"
)

// Exit codes, one per error kind
const (
	exitOK                 = 0
	exitError              = 1
	exitUnknownMeter       = 3
	exitUnknownBuilding    = 4
	exitMalformedInput     = 5
	exitMalformedTimestamp = 6
	exitInconsistentUnit   = 7
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to the exit code of its kind
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, usage.ErrUnknownMeter):
		return exitUnknownMeter
	case errors.Is(err, usage.ErrUnknownBuilding):
		return exitUnknownBuilding
	case errors.Is(err, usage.ErrMalformedTimestamp):
		return exitMalformedTimestamp
	case errors.Is(err, usage.ErrMalformedInput):
		return exitMalformedInput
	case errors.Is(err, usage.ErrInconsistentUnit):
		return exitInconsistentUnit
	default:
		return exitError
	}
}
