package environment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terrarium-dev/terrarium/internal/install"
)

func pyInfo(version string) *install.PythonInfo {
	return &install.PythonInfo{
		Path:         "bin/python",
		Version:      version,
		ShortVersion: install.ShortVersionOf(version),
	}
}

func TestPythonStatusFromTransaction(t *testing.T) {
	tests := []struct {
		name     string
		previous *install.PythonInfo
		current  *install.PythonInfo
		want     PythonStatusKind
	}{
		{name: "no interpreter at all", previous: nil, current: nil, want: PythonDoesNotExist},
		{name: "interpreter added", previous: nil, current: pyInfo("3.11.4"), want: PythonAdded},
		{name: "interpreter removed", previous: pyInfo("3.11.4"), current: nil, want: PythonRemoved},
		{name: "same minor version", previous: pyInfo("3.11.4"), current: pyInfo("3.11.4"), want: PythonUnchanged},
		{name: "patch release is unchanged", previous: pyInfo("3.10.1"), current: pyInfo("3.10.2"), want: PythonUnchanged},
		{name: "minor upgrade is changed", previous: pyInfo("3.10.1"), current: pyInfo("3.11.0"), want: PythonChanged},
		{name: "major upgrade is changed", previous: pyInfo("2.7.18"), current: pyInfo("3.11.0"), want: PythonChanged},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := PythonStatusFromTransaction(&install.TransactionResult{
				PreviousPython: tt.previous,
				CurrentPython:  tt.current,
			})
			assert.Equal(t, tt.want, status.Kind)

			switch tt.want {
			case PythonChanged:
				assert.Equal(t, tt.previous, status.Old)
				assert.Equal(t, tt.current, status.New)
			case PythonRemoved:
				assert.Equal(t, tt.previous, status.Old)
				assert.Nil(t, status.New)
			case PythonUnchanged, PythonAdded:
				assert.Nil(t, status.Old)
				assert.Equal(t, tt.current, status.New)
			default:
				assert.Nil(t, status.Old)
				assert.Nil(t, status.New)
			}
		})
	}
}

func TestPythonStatusAccessors(t *testing.T) {
	t.Run("current info after change", func(t *testing.T) {
		status := PythonStatusFromTransaction(&install.TransactionResult{
			PreviousPython: pyInfo("3.10.1"),
			CurrentPython:  pyInfo("3.11.0"),
		})
		require.NotNil(t, status.CurrentInfo())
		assert.Equal(t, "3.11", status.CurrentInfo().ShortVersion)

		path, ok := status.Location()
		assert.True(t, ok)
		assert.Equal(t, "bin/python", path)
	})

	t.Run("no current info after removal", func(t *testing.T) {
		status := PythonStatusFromTransaction(&install.TransactionResult{
			PreviousPython: pyInfo("3.11.4"),
		})
		assert.Nil(t, status.CurrentInfo())

		_, ok := status.Location()
		assert.False(t, ok)
	})
}
