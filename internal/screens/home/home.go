// Package home is the module menu.
package home

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/satslab/satslab/internal/badges"
	"github.com/satslab/satslab/internal/catalog"
	"github.com/satslab/satslab/internal/flow"
	"github.com/satslab/satslab/internal/learner"
	"github.com/satslab/satslab/internal/progress"
	"github.com/satslab/satslab/internal/router"
	"github.com/satslab/satslab/internal/screen"
	"github.com/satslab/satslab/internal/screens/history"
	modulescreen "github.com/satslab/satslab/internal/screens/module"
	"github.com/satslab/satslab/internal/screens/vault"
	"github.com/satslab/satslab/internal/ui/components"
	"github.com/satslab/satslab/internal/ui/layout"
)

// ProgressLister returns a learner's saved progress records.
type ProgressLister interface {
	List(ctx context.Context, userID string) ([]progress.Record, error)
}

// Options wires the home screen.
type Options struct {
	Module   modulescreen.Options
	Progress ProgressLister
	Badges   vault.Lister
	History  history.Source
	Guest    bool
}

// moduleStatus is what the menu knows about one module.
type moduleStatus struct {
	done     int
	total    int
	complete bool
	started  bool
	award    *badges.Award
}

type statusLoadedMsg struct {
	statuses map[string]moduleStatus
	err      error
}

// HomeScreen lists the modules in order. A module unlocks once the one
// before it is complete.
type HomeScreen struct {
	opts     Options
	statuses map[string]moduleStatus
	menu     components.Menu
	labels   []string
	disabled map[int]bool
	errMsg   string
	variant  MascotVariant
}

var _ screen.Screen = (*HomeScreen)(nil)
var _ screen.Refresher = (*HomeScreen)(nil)
var _ screen.StatusProvider = (*HomeScreen)(nil)

// New creates a HomeScreen.
func New(opts Options) *HomeScreen {
	h := &HomeScreen{opts: opts, statuses: make(map[string]moduleStatus)}
	h.buildMenu()
	return h
}

func (h *HomeScreen) Init() tea.Cmd {
	return h.load()
}

// Refresh reloads progress when a module screen is popped.
func (h *HomeScreen) Refresh() tea.Cmd {
	return h.load()
}

func (h *HomeScreen) load() tea.Cmd {
	opts := h.opts
	return func() tea.Msg {
		statuses, err := loadStatuses(context.Background(), opts)
		return statusLoadedMsg{statuses: statuses, err: err}
	}
}

// loadStatuses merges saved progress, awarded badges and live sessions.
func loadStatuses(ctx context.Context, opts Options) (map[string]moduleStatus, error) {
	cat, userID := opts.Module.Catalog, opts.Module.UserID
	out := make(map[string]moduleStatus, cat.Len())
	for _, m := range cat.All() {
		out[m.ID] = moduleStatus{total: len(m.Tasks)}
	}

	if opts.Progress != nil {
		records, err := opts.Progress.List(ctx, userID)
		if err != nil {
			return out, fmt.Errorf("load progress: %w", err)
		}
		for _, rec := range records {
			m, err := cat.Get(rec.ModuleID)
			if err != nil || !catalog.CompatibleVersion(rec.ModuleVersion, m.Version) {
				continue
			}
			st := out[m.ID]
			st.started = true
			st.done = len(rec.CompletedTaskIDs)
			st.complete = rec.Done(m.TaskIDs())
			out[m.ID] = st
		}
	}

	if opts.Badges != nil {
		awards, err := opts.Badges.List(ctx, userID)
		if err != nil {
			return out, fmt.Errorf("load badges: %w", err)
		}
		for _, a := range awards {
			st, ok := out[a.Badge.ModuleID]
			if !ok {
				continue
			}
			st.award = &a
			st.complete = true
			st.done = st.total
			out[a.Badge.ModuleID] = st
		}
	}

	if reg := opts.Module.Registry; reg != nil {
		for _, m := range cat.All() {
			sess, err := reg.Get(userID, m.ID)
			if err != nil {
				continue
			}
			st := out[m.ID]
			_ = sess.Do(func(f *flow.Flow) error {
				if f.Phase() == flow.PhaseIntro {
					return nil
				}
				st.started = true
				if e := f.Engine(); e != nil {
					st.done = max(st.done, e.Complete().CompletedCount)
				}
				if f.Phase() == flow.PhaseCompleted {
					st.complete = true
				}
				return nil
			})
			out[m.ID] = st
		}
	}
	return out, nil
}

func (h *HomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case statusLoadedMsg:
		h.statuses = msg.statuses
		h.errMsg = ""
		if msg.err != nil {
			h.errMsg = msg.err.Error()
		}
		selected := h.menu.Selected
		h.buildMenu()
		if selected < len(h.menu.Items) && !h.menu.Items[selected].Disabled {
			h.menu.Selected = selected
		}
		return h, nil
	}

	var cmd tea.Cmd
	h.menu, cmd = h.menu.Update(msg)
	return h, cmd
}

func (h *HomeScreen) buildMenu() {
	cat := h.opts.Module.Catalog
	var items []components.MenuItem
	h.disabled = make(map[int]bool)
	h.labels = nil

	unlocked := true
	completed := 0
	anyStarted := false
	for _, m := range cat.All() {
		st := h.statuses[m.ID]
		item := components.MenuItem{Label: m.Title, Detail: moduleDetail(st, unlocked)}
		if unlocked {
			mod := m
			moduleOpts := h.opts.Module
			item.Action = func() tea.Cmd {
				return func() tea.Msg {
					return router.PushScreenMsg{Screen: modulescreen.New(moduleOpts, mod)}
				}
			}
		} else {
			item.Disabled = true
			h.disabled[len(items)] = true
		}
		items = append(items, item)
		h.labels = append(h.labels, menuLabel(m, st))

		if st.complete {
			completed++
		} else if st.started {
			anyStarted = true
		}
		unlocked = st.complete
	}

	items = append(items,
		components.MenuItem{Label: "BADGE VAULT", Action: func() tea.Cmd {
			scr := vault.New(cat, h.opts.Badges, h.opts.Module.UserID)
			return func() tea.Msg { return router.PushScreenMsg{Screen: scr} }
		}},
		components.MenuItem{Label: "HISTORY", Action: func() tea.Cmd {
			scr := history.New(h.opts.History, cat, h.opts.Module.UserID)
			return func() tea.Msg { return router.PushScreenMsg{Screen: scr} }
		}},
		components.MenuItem{Label: "EXIT", Action: func() tea.Cmd { return tea.Quit }},
	)
	h.labels = append(h.labels, "BADGE VAULT", "HISTORY", "EXIT")
	h.menu = components.NewMenu(items)

	switch {
	case completed == cat.Len():
		h.variant = MascotCelebrating
	case anyStarted:
		h.variant = MascotBusy
	default:
		h.variant = MascotIdle
	}
}

func menuLabel(m *catalog.Module, st moduleStatus) string {
	switch {
	case st.award != nil:
		return m.Badge.Icon + " " + m.Title
	case st.complete:
		return "✓ " + m.Title
	}
	return m.Title
}

func moduleDetail(st moduleStatus, unlocked bool) string {
	switch {
	case !unlocked:
		return "locked"
	case st.complete:
		return "complete"
	case st.started:
		return fmt.Sprintf("%d/%d tasks", st.done, st.total)
	}
	return "new"
}

// Status summarises progress for the header.
func (h *HomeScreen) Status() layout.Status {
	st := layout.Status{ModulesTotal: h.opts.Module.Catalog.Len(), Guest: h.opts.guest()}
	for _, s := range h.statuses {
		if s.complete {
			st.ModulesCompleted++
		}
		if s.award != nil {
			st.Badges++
		}
	}
	return st
}

func (h *HomeScreen) View(width, height int) string {
	termHeight := height + layout.HeaderHeight + layout.FooterHeight + 2
	compact := termHeight < 30 || width < 100

	cw := contentWidth(width)

	var sections []string
	sections = append(sections, renderTitle(cw, compact))
	if !compact {
		sections = append(sections, renderMascotBox(h.variant, cw))
	}
	sections = append(sections, renderStatsBar(h.Status(), cw, compact))

	details := make([]string, len(h.menu.Items))
	for i, item := range h.menu.Items {
		details[i] = item.Detail
	}
	if compact {
		sections = append(sections, renderMenuCompact(h.labels, details, h.menu.Selected, cw, h.disabled))
	} else {
		sections = append(sections, renderMenu(h.labels, details, h.menu.Selected, cw, h.disabled))
	}
	if h.errMsg != "" {
		sections = append(sections, renderError(h.errMsg, cw))
	}

	return renderCabinetFrame(strings.Join(sections, "\n\n"), width, height)
}

func (h *HomeScreen) Title() string {
	return "Home"
}

// guest reports whether the learner plays without persistence.
func (o Options) guest() bool { return o.Guest || learner.IsGuest(o.Module.UserID) }
