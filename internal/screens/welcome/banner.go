package welcome

import (
	"charm.land/lipgloss/v2"

	"github.com/satslab/satslab/internal/ui/theme"
)

const bannerArt = `
 ███████╗ █████╗ ████████╗███████╗██╗      █████╗ ██████╗
 ██╔════╝██╔══██╗╚══██╔══╝██╔════╝██║     ██╔══██╗██╔══██╗
 ███████╗███████║   ██║   ███████╗██║     ███████║██████╔╝
 ╚════██║██╔══██║   ██║   ╚════██║██║     ██╔══██║██╔══██╗
 ███████║██║  ██║   ██║   ███████║███████╗██║  ██║██████╔╝
 ╚══════╝╚═╝  ╚═╝   ╚═╝   ╚══════╝╚══════╝╚═╝  ╚═╝╚═════╝`

const bannerCompact = "S A T S L A B"

// RenderBanner returns the SATSLAB banner in the primary color, or a
// compact fallback below 60 columns.
func RenderBanner(width int) string {
	style := lipgloss.NewStyle().
		Foreground(theme.Primary).
		Bold(true)

	if width < 60 {
		return style.Render(bannerCompact)
	}
	return style.Render(bannerArt)
}
