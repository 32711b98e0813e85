package platform

import (
	"fmt"
	"runtime"
	"strings"
)

// Platform identifies an operating system and architecture combination
// using the conda subdir naming convention (e.g. "linux-64", "osx-arm64").
type Platform string

// Known platforms
const (
	Linux64    Platform = "linux-64"
	LinuxAarch Platform = "linux-aarch64"
	LinuxPpc   Platform = "linux-ppc64le"
	Osx64      Platform = "osx-64"
	OsxArm64   Platform = "osx-arm64"
	Win64      Platform = "win-64"
	WinArm64   Platform = "win-arm64"
	NoArch     Platform = "noarch"
)

// All lists every platform terrarium can target.
var All = []Platform{
	Linux64, LinuxAarch, LinuxPpc, Osx64, OsxArm64, Win64, WinArm64,
}

// Parse validates a platform string and returns the typed platform.
func Parse(s string) (Platform, error) {
	for _, p := range All {
		if string(p) == s {
			return p, nil
		}
	}
	if s == string(NoArch) {
		return NoArch, nil
	}
	return "", fmt.Errorf("unknown platform: %q", s)
}

// Current returns the platform of the running process.
func Current() Platform {
	switch runtime.GOOS {
	case "linux":
		switch runtime.GOARCH {
		case "arm64":
			return LinuxAarch
		case "ppc64le":
			return LinuxPpc
		default:
			return Linux64
		}
	case "darwin":
		if runtime.GOARCH == "arm64" {
			return OsxArm64
		}
		return Osx64
	case "windows":
		if runtime.GOARCH == "arm64" {
			return WinArm64
		}
		return Win64
	default:
		return Linux64
	}
}

// IsWindows reports whether the platform belongs to the Windows family.
// On Windows the site-packages directory is not versioned by interpreter,
// which matters when deciding whether stale packages must be purged.
func (p Platform) IsWindows() bool {
	return strings.HasPrefix(string(p), "win-")
}

func (p Platform) String() string {
	return string(p)
}
