// Package vault shows the badges a learner has earned.
package vault

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/satslab/satslab/internal/badges"
	"github.com/satslab/satslab/internal/catalog"
	"github.com/satslab/satslab/internal/router"
	"github.com/satslab/satslab/internal/screen"
	"github.com/satslab/satslab/internal/ui/components"
	"github.com/satslab/satslab/internal/ui/layout"
	"github.com/satslab/satslab/internal/ui/theme"
)

// Lister returns a learner's awards.
type Lister interface {
	List(ctx context.Context, userID string) ([]badges.Award, error)
}

type awardsLoadedMsg struct {
	Awards []badges.Award
	Err    error
}

// VaultScreen lists every module's badge, earned or not.
type VaultScreen struct {
	catalog *catalog.Catalog
	lister  Lister
	userID  string

	awards       map[string]badges.Award
	tab          int // 0 is all, then one per rarity
	scrollOffset int
	loaded       bool
	errMsg       string
}

var _ screen.Screen = (*VaultScreen)(nil)
var _ screen.KeyHintProvider = (*VaultScreen)(nil)

// New creates a VaultScreen.
func New(cat *catalog.Catalog, lister Lister, userID string) *VaultScreen {
	return &VaultScreen{catalog: cat, lister: lister, userID: userID}
}

func (s *VaultScreen) Init() tea.Cmd {
	if s.lister == nil {
		return func() tea.Msg { return awardsLoadedMsg{} }
	}
	lister, userID := s.lister, s.userID
	return func() tea.Msg {
		awards, err := lister.List(context.Background(), userID)
		return awardsLoadedMsg{Awards: awards, Err: err}
	}
}

func (s *VaultScreen) Title() string {
	return "Badge Vault"
}

func (s *VaultScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Tab", Description: "Filter rarity"},
		{Key: "↑↓", Description: "Scroll"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *VaultScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case awardsLoadedMsg:
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
		}
		s.awards = make(map[string]badges.Award, len(msg.Awards))
		for _, a := range msg.Awards {
			s.awards[a.Badge.ModuleID] = a
		}
		s.loaded = true
		return s, nil

	case tea.KeyPressMsg:
		tabs := len(badges.AllRarities()) + 1
		switch msg.String() {
		case "esc":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		case "tab":
			s.tab = (s.tab + 1) % tabs
			s.scrollOffset = 0
		case "shift+tab":
			s.tab = (s.tab - 1 + tabs) % tabs
			s.scrollOffset = 0
		case "up", "k":
			if s.scrollOffset > 0 {
				s.scrollOffset--
			}
		case "down", "j":
			if s.scrollOffset < len(s.rows())-1 {
				s.scrollOffset++
			}
		}
	}
	return s, nil
}

// row is one line of the vault: a module and its award, if earned.
type row struct {
	module *catalog.Module
	award  *badges.Award
}

func (s *VaultScreen) rows() []row {
	var out []row
	var filter badges.Rarity
	if s.tab > 0 {
		filter = badges.AllRarities()[s.tab-1]
	}
	for _, m := range s.catalog.All() {
		r := row{module: m}
		if a, ok := s.awards[m.ID]; ok {
			r.award = &a
		}
		if filter != "" && (r.award == nil || r.award.Rarity != filter) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (s *VaultScreen) View(width, height int) string {
	if s.errMsg != "" {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.Error).
			Render(fmt.Sprintf("\n\nError: %s", s.errMsg))
	}
	if !s.loaded {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).
			Render("\n\n  Loading badges...")
	}

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().
		Width(width).Align(lipgloss.Center).Foreground(theme.Text).
		Render(fmt.Sprintf("\nEarned: %d of %d badges\n", len(s.awards), s.catalog.Len())))
	b.WriteString("\n")

	tabs := []string{s.tabLabel(0, "All", len(s.awards))}
	for i, r := range badges.AllRarities() {
		tabs = append(tabs, s.tabLabel(i+1, r.DisplayName(), s.countByRarity(r)))
	}
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, strings.Join(tabs, "    ")))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, layout.Divider(min(width-8, 60))))
	b.WriteString("\n\n")

	rows := s.rows()
	if len(rows) == 0 {
		b.WriteString(lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).Italic(true).
			Render("No badges of this rarity yet"))
		return b.String()
	}

	maxVisible := max(height-10, 3)
	start := s.scrollOffset
	end := min(start+maxVisible, len(rows))

	for _, r := range rows[start:end] {
		var line string
		var style lipgloss.Style
		if r.award == nil {
			line = fmt.Sprintf("  %-3s %-28s %-10s %s", "·", r.module.Badge.Name, "locked", r.module.Title)
			style = lipgloss.NewStyle().Foreground(theme.TextDim)
		} else {
			a := r.award
			line = fmt.Sprintf("  %-3s %-28s %-10s %s", a.Badge.Icon, a.Badge.Name, a.Rarity.DisplayName(), a.AwardedAt.Format("Jan 02, 2006"))
			style = lipgloss.NewStyle().Foreground(components.RarityColor(a.Rarity))
		}
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, style.Render(line)))
		b.WriteString("\n")
	}

	if end < len(rows) {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).
			Render(fmt.Sprintf("... %d more", len(rows)-end)))
	}
	return b.String()
}

func (s *VaultScreen) tabLabel(i int, name string, count int) string {
	label := fmt.Sprintf("%s (%d)", name, count)
	if i == s.tab {
		return lipgloss.NewStyle().Foreground(theme.Primary).Bold(true).Render(label)
	}
	return lipgloss.NewStyle().Foreground(theme.TextDim).Render(label)
}

func (s *VaultScreen) countByRarity(r badges.Rarity) int {
	n := 0
	for _, a := range s.awards {
		if a.Rarity == r {
			n++
		}
	}
	return n
}
