// Package history lists a learner's recent task submissions.
package history

import (
	"context"
	"fmt"
	"image/color"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/satslab/satslab/internal/catalog"
	"github.com/satslab/satslab/internal/router"
	"github.com/satslab/satslab/internal/screen"
	"github.com/satslab/satslab/internal/store"
	"github.com/satslab/satslab/internal/ui/layout"
	"github.com/satslab/satslab/internal/ui/theme"
	"github.com/satslab/satslab/internal/validation"
)

const pageSize = 100

// Source returns stored submissions.
type Source interface {
	QuerySubmissions(ctx context.Context, opts store.QueryOpts) ([]store.SubmissionRecord, error)
}

type historyLoadedMsg struct {
	Records []store.SubmissionRecord
	Err     error
}

// HistoryScreen displays recent submissions, newest first.
type HistoryScreen struct {
	source  Source
	catalog *catalog.Catalog
	userID  string

	records  []store.SubmissionRecord
	selected int
	expanded map[int]bool
	loaded   bool
	errMsg   string
}

var _ screen.Screen = (*HistoryScreen)(nil)
var _ screen.KeyHintProvider = (*HistoryScreen)(nil)

// New creates a HistoryScreen.
func New(source Source, cat *catalog.Catalog, userID string) *HistoryScreen {
	return &HistoryScreen{
		source:   source,
		catalog:  cat,
		userID:   userID,
		expanded: make(map[int]bool),
	}
}

func (s *HistoryScreen) Init() tea.Cmd {
	if s.source == nil {
		return func() tea.Msg { return historyLoadedMsg{} }
	}
	source, userID := s.source, s.userID
	return func() tea.Msg {
		records, err := source.QuerySubmissions(context.Background(), store.QueryOpts{UserID: userID, Limit: pageSize})
		return historyLoadedMsg{Records: records, Err: err}
	}
}

func (s *HistoryScreen) Title() string {
	return "History"
}

func (s *HistoryScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Details"},
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *HistoryScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case historyLoadedMsg:
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
		} else {
			s.records = msg.Records
		}
		s.loaded = true
		return s, nil

	case tea.KeyPressMsg:
		switch msg.String() {
		case "esc":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		case "up", "k":
			if s.selected > 0 {
				s.selected--
			}
		case "down", "j":
			if s.selected < len(s.records)-1 {
				s.selected++
			}
		case "enter":
			s.expanded[s.selected] = !s.expanded[s.selected]
		}
	}
	return s, nil
}

func (s *HistoryScreen) View(width, height int) string {
	if s.errMsg != "" {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.Error).
			Render(fmt.Sprintf("\n\nError: %s", s.errMsg))
	}
	if !s.loaded {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).
			Render("\n\n  Loading history...")
	}
	if len(s.records) == 0 {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).Italic(true).
			Render("\n\n  No submissions yet. Pick a module and try a task!")
	}

	var b strings.Builder
	b.WriteString("\n")

	// Keep the selection in view.
	maxVisible := max(height-4, 3)
	start := max(0, s.selected-maxVisible+1)
	end := min(start+maxVisible, len(s.records))

	for i := start; i < end; i++ {
		rec := s.records[i]
		prefix := "  "
		if i == s.selected {
			prefix = "▸ "
		}
		line := fmt.Sprintf("%s%s  %s  %-24s %-16s #%d",
			prefix,
			rec.Timestamp.Format("Jan 02 15:04"),
			verdictGlyph(rec.Verdict),
			s.moduleTitle(rec.ModuleID),
			rec.TaskID,
			rec.Attempt)

		style := lipgloss.NewStyle().Foreground(verdictColor(rec.Verdict))
		if i == s.selected {
			style = style.Bold(true)
		}
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, style.Render(line)))
		b.WriteString("\n")

		if s.expanded[i] && rec.Message != "" {
			b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center,
				lipgloss.NewStyle().Foreground(theme.TextDim).Italic(true).Render("    "+rec.Message)))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (s *HistoryScreen) moduleTitle(id string) string {
	if s.catalog != nil {
		if m, err := s.catalog.Get(id); err == nil {
			return m.Title
		}
	}
	return id
}

func verdictGlyph(v string) string {
	switch validation.Verdict(v) {
	case validation.VerdictConfirmed:
		return "✓ "
	case validation.VerdictUnverified:
		return "✓?"
	}
	return "✗ "
}

func verdictColor(v string) color.Color {
	switch validation.Verdict(v) {
	case validation.VerdictConfirmed:
		return theme.Success
	case validation.VerdictUnverified:
		return theme.Warning
	}
	return theme.Error
}
