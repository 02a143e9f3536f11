package components

import (
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/satslab/satslab/internal/ui/theme"
)

// Mark is the outcome shown next to a submitted input.
type Mark int

const (
	MarkNone Mark = iota
	MarkAccepted
	MarkUnverified
	MarkRejected
)

// TextInput wraps bubbles/textinput with SatsLab styling.
type TextInput struct {
	Model textinput.Model
	mark  Mark
}

// NewTextInput creates a new focused text input. charLimit 0 means no limit.
func NewTextInput(placeholder string, charLimit int) TextInput {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Focus()
	if charLimit > 0 {
		ti.CharLimit = charLimit
	}
	return TextInput{Model: ti}
}

// Init returns the initial command.
func (t TextInput) Init() tea.Cmd {
	return t.Model.Focus()
}

// Update handles messages. Editing clears the mark.
func (t TextInput) Update(msg tea.Msg) (TextInput, tea.Cmd) {
	before := t.Model.Value()
	var cmd tea.Cmd
	t.Model, cmd = t.Model.Update(msg)
	if t.Model.Value() != before {
		t.mark = MarkNone
	}
	return t, cmd
}

// View renders the text input.
func (t TextInput) View() string {
	view := t.Model.View()
	switch t.mark {
	case MarkAccepted:
		view += " " + lipgloss.NewStyle().Foreground(theme.Success).Render("✓")
	case MarkUnverified:
		view += " " + lipgloss.NewStyle().Foreground(theme.Warning).Render("✓?")
	case MarkRejected:
		view += " " + lipgloss.NewStyle().Foreground(theme.Error).Render("✗")
	}
	return view
}

// Value returns the current input value.
func (t TextInput) Value() string {
	return t.Model.Value()
}

// SetValue replaces the input value.
func (t *TextInput) SetValue(s string) {
	t.Model.SetValue(s)
}

// SetMark records the outcome of the last submission.
func (t *TextInput) SetMark(m Mark) {
	t.mark = m
}
