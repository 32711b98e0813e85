package environment

import (
	"github.com/terrarium-dev/terrarium/internal/install"
)

// PythonStatusKind enumerates how the interpreter changed across an
// install transaction.
type PythonStatusKind int

const (
	// PythonDoesNotExist means the environment has no interpreter before
	// or after the transaction.
	PythonDoesNotExist PythonStatusKind = iota
	// PythonUnchanged means the interpreter kept its major.minor version.
	PythonUnchanged
	// PythonChanged means the interpreter moved to a different major.minor
	// version.
	PythonChanged
	// PythonAdded means the transaction introduced an interpreter.
	PythonAdded
	// PythonRemoved means the transaction removed the interpreter.
	PythonRemoved
)

func (k PythonStatusKind) String() string {
	switch k {
	case PythonDoesNotExist:
		return "does-not-exist"
	case PythonUnchanged:
		return "unchanged"
	case PythonChanged:
		return "changed"
	case PythonAdded:
		return "added"
	case PythonRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// PythonStatus describes the interpreter transition of one install
// operation. It is derived from the transaction result, lives for the
// duration of the materialization call, and is never persisted.
//
// Old is set for PythonChanged and PythonRemoved; New is set for
// PythonChanged, PythonUnchanged and PythonAdded.
type PythonStatus struct {
	Kind PythonStatusKind
	Old  *install.PythonInfo
	New  *install.PythonInfo
}

// PythonStatusFromTransaction derives the interpreter transition from the
// before/after interpreter info of a transaction. Presence and short
// version are all that matter: a patch-level change is Unchanged.
func PythonStatusFromTransaction(result *install.TransactionResult) PythonStatus {
	old, current := result.PreviousPython, result.CurrentPython
	switch {
	case old != nil && current != nil && old.ShortVersion != current.ShortVersion:
		return PythonStatus{Kind: PythonChanged, Old: old, New: current}
	case old != nil && current != nil:
		return PythonStatus{Kind: PythonUnchanged, New: current}
	case old == nil && current != nil:
		return PythonStatus{Kind: PythonAdded, New: current}
	case old != nil:
		return PythonStatus{Kind: PythonRemoved, Old: old}
	default:
		return PythonStatus{Kind: PythonDoesNotExist}
	}
}

// CurrentInfo returns the interpreter present after the transaction, or
// nil when the environment ends up without one.
func (s PythonStatus) CurrentInfo() *install.PythonInfo {
	switch s.Kind {
	case PythonChanged, PythonUnchanged, PythonAdded:
		return s.New
	default:
		return nil
	}
}

// Location returns the interpreter path relative to the prefix root, if an
// interpreter is present.
func (s PythonStatus) Location() (string, bool) {
	info := s.CurrentInfo()
	if info == nil {
		return "", false
	}
	return info.Path, true
}
