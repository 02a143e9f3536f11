// Package screen defines what the router stacks.
package screen

import (
	tea "charm.land/bubbletea/v2"

	"github.com/satslab/satslab/internal/ui/layout"
)

// Screen defines the interface for all application screens.
type Screen interface {
	// Init returns an initial command when the screen is first created.
	Init() tea.Cmd

	// Update handles messages and returns updated screen + command.
	Update(msg tea.Msg) (Screen, tea.Cmd)

	// View renders the screen content (excluding header/footer).
	View(width, height int) string

	// Title returns the screen name for the header.
	Title() string
}

// KeyHintProvider is an optional interface that screens can implement
// to provide custom footer key hints.
type KeyHintProvider interface {
	KeyHints() []layout.KeyHint
}

// EscapeHandler is implemented by screens that consume Esc themselves,
// e.g. to step back inside a module before leaving it.
type EscapeHandler interface {
	HandlesEscape() bool
}

// Refresher is implemented by screens that reload their data when they
// become active again.
type Refresher interface {
	Refresh() tea.Cmd
}

// StatusProvider is implemented by the root screen to fill the header.
type StatusProvider interface {
	Status() layout.Status
}
