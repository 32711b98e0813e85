package lockfile

// Usage specifies how the lock file may be refreshed during an operation.
type Usage int

const (
	// UsageUpdate refreshes the lock file when it is out of date.
	UsageUpdate Usage = iota
	// UsageLocked checks whether the lock file is out of date and fails if
	// it is, but never refreshes it.
	UsageLocked
	// UsageFrozen uses the lock file as-is without any freshness check.
	UsageFrozen
)

// AllowsLockFileUpdates reports whether an out-of-date lock file may be
// refreshed.
func (u Usage) AllowsLockFileUpdates() bool {
	return u == UsageUpdate
}

// ShouldCheckIfOutOfDate reports whether the lock file freshness must be
// verified at all.
func (u Usage) ShouldCheckIfOutOfDate() bool {
	switch u {
	case UsageUpdate, UsageLocked:
		return true
	default:
		return false
	}
}

func (u Usage) String() string {
	switch u {
	case UsageUpdate:
		return "update"
	case UsageLocked:
		return "locked"
	case UsageFrozen:
		return "frozen"
	default:
		return "unknown"
	}
}

// UpdateMode controls how thoroughly an existing prefix is validated when
// it is reused during an update.
type UpdateMode int

const (
	// UpdateModeQuickValidate trusts the persisted environment record when
	// its hash matches the lock file.
	UpdateModeQuickValidate UpdateMode = iota
	// UpdateModeRevalidate re-examines the installed prefix even when the
	// persisted hash matches.
	UpdateModeRevalidate
)
