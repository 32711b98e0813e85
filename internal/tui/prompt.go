package tui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

var (
	pathStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

// StylePath renders a filesystem path for prompt and diagnostic output.
func StylePath(path string) string {
	return pathStyle.Render(path)
}

// StyleWarning renders a warning heading.
func StyleWarning(s string) string {
	return warningStyle.Render(s)
}

// Confirm displays a yes/no confirmation prompt.
func Confirm(message string, defaultValue bool) (bool, error) {
	confirmed := defaultValue

	confirm := huh.NewConfirm().
		Title(message).
		Value(&confirmed)

	form := huh.NewForm(huh.NewGroup(confirm))

	if err := form.Run(); err != nil {
		return false, fmt.Errorf("prompt failed: %w", err)
	}

	return confirmed, nil
}

// IsInteractive returns true if stdin is a terminal (not piped)
func IsInteractive() bool {
	fileInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

var nonInteractive bool

// SetNonInteractive disables every prompt for the rest of the process,
// regardless of terminal state. Set from the tool configuration.
func SetNonInteractive(disabled bool) {
	nonInteractive = disabled
}

// ShouldPrompt returns true if prompts should be shown based on
// environment. Prompts are disabled by configuration, in CI, or when
// stdin is not a terminal.
func ShouldPrompt() bool {
	if nonInteractive {
		return false
	}
	ciEnvVars := []string{
		"CI",
		"GITHUB_ACTIONS",
		"GITLAB_CI",
		"JENKINS_URL",
		"TRAVIS",
		"CIRCLECI",
		"BUILDKITE",
	}

	for _, envVar := range ciEnvVars {
		if os.Getenv(envVar) != "" {
			return false
		}
	}

	return IsInteractive()
}
