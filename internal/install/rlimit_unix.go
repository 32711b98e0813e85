//go:build unix

package install

import (
	"sync"
	"syscall"

	"github.com/terrarium-dev/terrarium/internal/log"
)

// sensibleNoFileLimit is the soft file descriptor limit large installs
// need. Linking thousands of files concurrently runs over the common
// default of 1024.
const sensibleNoFileLimit = 4096

var rlimitOnce sync.Once

// TryIncreaseRlimitToSensible makes a one-time, best-effort attempt to
// raise the process's file descriptor ceiling before a large install. It
// never fails: platforms that refuse the raise are left as they are.
func TryIncreaseRlimitToSensible() {
	rlimitOnce.Do(func() {
		logger := log.DefaultLogger()

		var limit syscall.Rlimit
		if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &limit); err != nil {
			logger.Debug("failed to read file descriptor limit", "error", err)
			return
		}

		if limit.Cur >= sensibleNoFileLimit {
			return
		}

		desired := uint64(sensibleNoFileLimit)
		if limit.Max != 0 && desired > limit.Max {
			desired = limit.Max
		}

		raised := syscall.Rlimit{Cur: desired, Max: limit.Max}
		if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &raised); err != nil {
			logger.Debug("failed to raise file descriptor limit",
				"current", limit.Cur, "desired", desired, "error", err)
			return
		}

		logger.Debug("raised file descriptor limit",
			"previous", limit.Cur, "current", desired)
	})
}
