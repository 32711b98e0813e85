package errors

import (
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Manifest errors (MANIFEST-001 to MANIFEST-099)
	ErrCodeManifestNotFound        ErrorCode = "MANIFEST-001"
	ErrCodeManifestInvalid         ErrorCode = "MANIFEST-002"
	ErrCodeFeatureNameReserved     ErrorCode = "MANIFEST-003"
	ErrCodeFeatureUnknown          ErrorCode = "MANIFEST-004"
	ErrCodeChannelPriorityConflict ErrorCode = "MANIFEST-005"

	// Lock file errors (LOCK-001 to LOCK-099)
	ErrCodeLockFileNotFound ErrorCode = "LOCK-001"
	ErrCodeLockFileInvalid  ErrorCode = "LOCK-002"
	ErrCodeLockFileStale    ErrorCode = "LOCK-003"

	// Prefix errors (PREFIX-001 to PREFIX-099)
	ErrCodePrefixRelocated    ErrorCode = "PREFIX-001"
	ErrCodePrefixRemoveFailed ErrorCode = "PREFIX-002"
	ErrCodePrefixMarkerWrite  ErrorCode = "PREFIX-003"

	// Environment errors (ENV-001 to ENV-099)
	ErrCodeEnvUnknown         ErrorCode = "ENV-001"
	ErrCodeEnvInstallFailed   ErrorCode = "ENV-002"
	ErrCodeEnvUninstallFailed ErrorCode = "ENV-003"
	ErrCodeEnvNotLocked       ErrorCode = "ENV-004"

	// File I/O errors (IO-001 to IO-099)
	ErrCodeFileNotFound    ErrorCode = "IO-001"
	ErrCodeFileReadFailed  ErrorCode = "IO-002"
	ErrCodeFileWriteFailed ErrorCode = "IO-003"
	ErrCodeDirectoryFailed ErrorCode = "IO-004"
)

// TerrariumError represents an enhanced error with code, suggestions, and
// documentation
type TerrariumError struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	DocsURL     string
	Cause       error
}

// Error implements the error interface
func (e *TerrariumError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  • %s", suggestion))
		}
	}

	if e.DocsURL != "" {
		b.WriteString(fmt.Sprintf("\n\nDocumentation: %s", e.DocsURL))
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *TerrariumError) Unwrap() error {
	return e.Cause
}

// New creates a new TerrariumError
func New(code ErrorCode, message string) *TerrariumError {
	return &TerrariumError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new TerrariumError wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *TerrariumError {
	return &TerrariumError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *TerrariumError) WithSuggestion(suggestion string) *TerrariumError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *TerrariumError) WithSuggestions(suggestions ...string) *TerrariumError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// WithDocs adds a documentation URL to the error
func (e *TerrariumError) WithDocs(url string) *TerrariumError {
	e.DocsURL = url
	return e
}

// Common error constructors for frequently used errors

// NewPrefixRelocatedError is returned when an installed environment has
// moved on disk and the user declined (or could not be asked) to recreate
// it. Installed environments are not relocatable.
func NewPrefixRelocatedError(previousDir, currentDir string) *TerrariumError {
	return New(ErrCodePrefixRelocated,
		fmt.Sprintf("the environment directory has moved from `%s` to `%s`", previousDir, currentDir)).
		WithSuggestion("Remove the environment directory; it will be recreated from the lock file on the next run").
		WithSuggestion("Environments are non-relocatable, moving them can cause issues")
}

// NewLockFileStaleError is returned when the lock file is out of date but
// the usage policy forbids refreshing it.
func NewLockFileStaleError(reason string) *TerrariumError {
	return New(ErrCodeLockFileStale, fmt.Sprintf("the lock file is out of date: %s", reason)).
		WithSuggestion("Run without --locked to allow the lock file to be updated").
		WithSuggestion("Or run 'terrarium install' to bring it up to date first")
}

// NewEnvUnknownError is returned when an environment name does not exist
// in the manifest.
func NewEnvUnknownError(name string) *TerrariumError {
	return New(ErrCodeEnvUnknown, fmt.Sprintf("the environment %q is not defined in the manifest", name)).
		WithSuggestion("Check the [environments] table of terrarium.toml")
}

// NewEnvNotLockedError is returned when the lock file has no entry for an
// environment that should be materialized.
func NewEnvNotLockedError(name string) *TerrariumError {
	return New(ErrCodeEnvNotLocked, fmt.Sprintf("the environment %q is missing from the lock file", name)).
		WithSuggestion("Run 'terrarium install' to solve and lock the environment")
}

// NewManifestNotFoundError is returned when no manifest can be located.
func NewManifestNotFoundError(path string) *TerrariumError {
	return New(ErrCodeManifestNotFound, fmt.Sprintf("manifest file not found: %s", path)).
		WithSuggestion("Create a terrarium.toml manifest in the project root").
		WithSuggestion("Check if the file path is correct")
}
