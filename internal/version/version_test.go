package version

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetInfo(t *testing.T) {
	info := GetInfo()

	assert.Equal(t, Version, info.Version)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Contains(t, info.Platform, runtime.GOOS)
}

func TestStringTruncatesCommit(t *testing.T) {
	info := Info{
		Version:   "1.2.3",
		Commit:    "0123456789abcdef",
		Date:      "2026-01-01",
		GoVersion: "go1.24",
		Platform:  "linux/amd64",
	}

	s := info.String()
	assert.True(t, strings.HasPrefix(s, "terrarium 1.2.3"))
	assert.Contains(t, s, "01234567")
	assert.NotContains(t, s, "0123456789abcdef")
}

func TestStringShortCommitUnchanged(t *testing.T) {
	info := Info{Version: "dev", Commit: "abc", Date: "unknown"}
	assert.Contains(t, info.String(), "abc")
}
