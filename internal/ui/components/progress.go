package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/satslab/satslab/internal/ui/theme"
)

// ProgressBar displays a horizontal progress bar.
type ProgressBar struct {
	Label       string
	Percent     float64
	ShowPercent bool
	Width       int
}

// NewProgressBar creates a new progress bar.
func NewProgressBar(label string, percent float64, showPercent bool, width int) ProgressBar {
	return ProgressBar{
		Label:       label,
		Percent:     percent,
		ShowPercent: showPercent,
		Width:       width,
	}
}

// View renders the progress bar.
func (p ProgressBar) View() string {
	var result string

	if p.Label != "" {
		result += lipgloss.NewStyle().Foreground(theme.Text).Render(p.Label) + "  "
	}

	labelWidth := lipgloss.Width(result)
	percentWidth := 0
	if p.ShowPercent {
		percentWidth = 6
	}

	barWidth := p.Width - labelWidth - percentWidth
	if barWidth < 4 {
		barWidth = 4
	}

	filled := int(float64(barWidth) * p.Percent)
	filled = max(0, min(filled, barWidth))

	result += lipgloss.NewStyle().Background(theme.Primary).Render(strings.Repeat(" ", filled)) +
		lipgloss.NewStyle().Background(theme.Border).Render(strings.Repeat(" ", barWidth-filled))

	if p.ShowPercent {
		result += lipgloss.NewStyle().
			Foreground(theme.TextDim).
			Render(fmt.Sprintf("  %d%%", int(p.Percent*100)))
	}
	return result
}

// Step is the state of one position in a Steps strip.
type Step int

const (
	StepTodo Step = iota
	StepActive
	StepDone
)

// Steps renders one marker per task, highlighting the viewed one.
func Steps(steps []Step, viewing int) string {
	parts := make([]string, len(steps))
	for i, s := range steps {
		var glyph string
		var style lipgloss.Style
		switch s {
		case StepDone:
			glyph, style = "●", lipgloss.NewStyle().Foreground(theme.Success)
		case StepActive:
			glyph, style = "◉", lipgloss.NewStyle().Foreground(theme.Primary)
		default:
			glyph, style = "○", lipgloss.NewStyle().Foreground(theme.TextDim)
		}
		if i == viewing {
			style = style.Bold(true).Underline(true)
		}
		parts[i] = style.Render(glyph)
	}
	return strings.Join(parts, " ")
}
