package exitcode

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/terrarium-dev/terrarium/internal/errors"
)

func TestDetermineExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil error", err: nil, want: Success},
		{name: "plain error", err: fmt.Errorf("boom"), want: GeneralError},
		{name: "stale lock file", err: errors.NewLockFileStaleError("missing platform"), want: LockFileStale},
		{name: "relocated prefix", err: errors.NewPrefixRelocatedError("/old", "/new"), want: PrefixRelocated},
		{name: "wrapped stale lock file", err: fmt.Errorf("install: %w", errors.NewLockFileStaleError("x")), want: LockFileStale},
		{name: "other coded error", err: errors.NewEnvUnknownError("gpu"), want: GeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetermineExitCode(tt.err))
		})
	}
}
