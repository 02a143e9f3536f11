package home

import (
	"charm.land/lipgloss/v2"

	"github.com/satslab/satslab/internal/ui/theme"
)

// MascotVariant selects which mascot art to display.
type MascotVariant int

const (
	MascotIdle        MascotVariant = iota
	MascotBusy                      // a module is underway
	MascotCelebrating               // every module is complete
)

const mascotIdle = `╭─────╮
│ ◉ ◉ │
│  ▽  │
│  ₿  │
╰─────╯`

const mascotBusy = `╭─────╮
│ ◉ ◉ │ ⚡
│  ▿  │
│  ₿  │
╰─────╯`

const mascotCelebrating = `╭─────╮
│ ★ ★ │
│  ▿  │
│  ₿  │
╰─╥═╥─╯
  ╚═╝`

// RenderMascot returns the mascot art for variant.
func RenderMascot(variant MascotVariant) string {
	art, fg := mascotIdle, theme.Primary
	switch variant {
	case MascotBusy:
		art, fg = mascotBusy, theme.Lightning
	case MascotCelebrating:
		art, fg = mascotCelebrating, theme.Accent
	}
	return lipgloss.NewStyle().Foreground(fg).Render(art)
}
