package exitcode

import (
	stderrors "errors"
	"os"

	"github.com/terrarium-dev/terrarium/internal/errors"
)

// Exit codes for consistent error handling across the CLI
const (
	// Success indicates successful execution
	Success = 0

	// GeneralError indicates a general error condition
	GeneralError = 1

	// UsageError indicates invalid command usage (bad flags, missing args)
	UsageError = 2

	// LockFileStale indicates the lock file is out of date and the usage
	// policy forbade refreshing it
	LockFileStale = 3

	// PrefixRelocated indicates an environment directory moved on disk
	// and could not be recreated
	PrefixRelocated = 4

	// Interrupted indicates the operation was cancelled by the user
	Interrupted = 130
)

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with an appropriate code based on error type
func ExitWithError(err error) {
	Exit(DetermineExitCode(err))
}

// DetermineExitCode analyzes an error and returns the appropriate code
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}

	var terr *errors.TerrariumError
	if stderrors.As(err, &terr) {
		switch terr.Code {
		case errors.ErrCodeLockFileStale:
			return LockFileStale
		case errors.ErrCodePrefixRelocated:
			return PrefixRelocated
		}
	}

	return GeneralError
}
