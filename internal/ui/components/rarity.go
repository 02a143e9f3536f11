package components

import (
	"image/color"

	"github.com/satslab/satslab/internal/badges"
	"github.com/satslab/satslab/internal/ui/theme"
)

// RarityColor returns the display color of a badge rarity.
func RarityColor(r badges.Rarity) color.Color {
	switch r {
	case badges.RaritySilver:
		return theme.Text
	case badges.RarityGold:
		return theme.Accent
	case badges.RarityPlatinum:
		return theme.Lightning
	default:
		return theme.Primary
	}
}
