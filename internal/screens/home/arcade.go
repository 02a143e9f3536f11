package home

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/satslab/satslab/internal/ui/layout"
	"github.com/satslab/satslab/internal/ui/theme"
)

const titleFull = ` ███████╗ █████╗ ████████╗███████╗██╗      █████╗ ██████╗
 ██╔════╝██╔══██╗╚══██╔══╝██╔════╝██║     ██╔══██╗██╔══██╗
 ███████╗███████║   ██║   ███████╗██║     ███████║██████╔╝
 ╚════██║██╔══██║   ██║   ╚════██║██║     ██╔══██║██╔══██╗
 ███████║██║  ██║   ██║   ███████║███████╗██║  ██║██████╔╝
 ╚══════╝╚═╝  ╚═╝   ╚═╝   ╚══════╝╚══════╝╚═╝  ╚═╝╚═════╝`

const titleCompact = "₿ · S A T S L A B"

// contentWidth returns the uniform inner width used for all sections.
func contentWidth(frameWidth int) int {
	// Leave room for the frame border (2) and inner padding (4).
	return min(max(frameWidth-6, 20), 64)
}

func renderTitle(cw int, compact bool) string {
	style := lipgloss.NewStyle().
		Foreground(theme.Primary).
		Bold(true)

	art := titleFull
	if compact || cw < lipgloss.Width(titleFull) {
		art = titleCompact
	}
	return lipgloss.NewStyle().
		Width(cw).
		Align(lipgloss.Center).
		Render(style.Render(art))
}

// renderStatsBar renders the learner summary in a bordered box.
func renderStatsBar(st layout.Status, cw int, compact bool) string {
	badgeStyle := lipgloss.NewStyle().Foreground(theme.Accent).Bold(true)
	doneStyle := lipgloss.NewStyle().Foreground(theme.Success).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(theme.TextDim)

	var stats string
	switch {
	case compact:
		stats = fmt.Sprintf("%s %s",
			badgeStyle.Render(fmt.Sprintf("◆%d", st.Badges)),
			doneStyle.Render(fmt.Sprintf("✓%d/%d", st.ModulesCompleted, st.ModulesTotal)))
	default:
		stats = fmt.Sprintf("%s  %s",
			badgeStyle.Render(fmt.Sprintf("◆ %d BADGES", st.Badges)),
			doneStyle.Render(fmt.Sprintf("✓ %d/%d MODULES", st.ModulesCompleted, st.ModulesTotal)))
	}
	if st.Guest {
		stats += "  " + dimStyle.Render("guest: progress is not saved")
	}

	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(theme.Secondary).
		Width(cw - 2).
		Align(lipgloss.Center).
		Padding(0, 1).
		Render(stats)
}

// buttonWidth is the fixed width for menu buttons.
const buttonWidth = 36

// renderMenu renders each menu item as a fixed-width button with its
// status on the right.
func renderMenu(items, details []string, selected, cw int, disabled map[int]bool) string {
	base := lipgloss.NewStyle().
		Width(buttonWidth).
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1)

	selectedBtn := base.
		Bold(true).
		Foreground(theme.BgDark).
		Background(theme.Primary).
		BorderForeground(theme.Primary)
	normalBtn := base.
		Foreground(theme.Text).
		BorderForeground(theme.Border)
	disabledBtn := base.
		Foreground(theme.TextDim).
		BorderForeground(theme.Border)

	var buttons []string
	for i, label := range items {
		text := label
		if i < len(details) && details[i] != "" {
			pad := max(buttonWidth-4-lipgloss.Width(label)-lipgloss.Width(details[i]), 1)
			text = label + strings.Repeat(" ", pad) + details[i]
		}
		switch {
		case disabled[i]:
			buttons = append(buttons, disabledBtn.Render(text))
		case i == selected:
			buttons = append(buttons, selectedBtn.Render(text))
		default:
			buttons = append(buttons, normalBtn.Render(text))
		}
	}

	return lipgloss.NewStyle().
		Width(cw).
		Align(lipgloss.Center).
		Render(strings.Join(buttons, "\n"))
}

// renderMenuCompact renders menu items as plain lines for small terminals.
func renderMenuCompact(items, details []string, selected, cw int, disabled map[int]bool) string {
	detailStyle := lipgloss.NewStyle().Foreground(theme.TextDim)
	var lines []string
	for i, label := range items {
		var line string
		switch {
		case disabled[i]:
			line = lipgloss.NewStyle().Foreground(theme.TextDim).Render("   " + label)
		case i == selected:
			line = lipgloss.NewStyle().
				Foreground(theme.BgDark).
				Background(theme.Primary).
				Bold(true).
				Render(" ▸ " + label + " ")
		default:
			line = lipgloss.NewStyle().Foreground(theme.Text).Render("   " + label)
		}
		if i < len(details) && details[i] != "" {
			line += "  " + detailStyle.Render(details[i])
		}
		lines = append(lines, line)
	}

	return lipgloss.NewStyle().
		Width(cw).
		Align(lipgloss.Center).
		Render(strings.Join(lines, "\n"))
}

func renderMascotBox(variant MascotVariant, cw int) string {
	return lipgloss.NewStyle().
		Width(cw).
		Align(lipgloss.Center).
		Render(RenderMascot(variant))
}

func renderError(msg string, cw int) string {
	return lipgloss.NewStyle().
		Foreground(theme.Error).
		Width(cw).
		Align(lipgloss.Center).
		Render("⚠ " + msg)
}

// renderCabinetFrame wraps content in a double border, centered in the
// given area.
func renderCabinetFrame(content string, width, height int) string {
	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(theme.Primary).
		Width(width - 2).
		Height(height - 2).
		Align(lipgloss.Center, lipgloss.Center).
		Render(content)
}
