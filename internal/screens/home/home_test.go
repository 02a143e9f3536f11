package home

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/satslab/satslab/internal/badges"
	"github.com/satslab/satslab/internal/catalog"
	"github.com/satslab/satslab/internal/flow"
	"github.com/satslab/satslab/internal/learner"
	"github.com/satslab/satslab/internal/progress"
	"github.com/satslab/satslab/internal/router"
	modulescreen "github.com/satslab/satslab/internal/screens/module"
	"github.com/satslab/satslab/internal/screens/vault"
	"github.com/satslab/satslab/internal/validation"
)

type stubProgress struct{ records []progress.Record }

func (s stubProgress) List(context.Context, string) ([]progress.Record, error) {
	return s.records, nil
}

type stubBadges struct{ awards []badges.Award }

func (s stubBadges) List(context.Context, string) ([]badges.Award, error) {
	return s.awards, nil
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	tasks := []catalog.Task{
		{ID: "t1", Title: "One", Kind: validation.KindCustom},
		{ID: "t2", Title: "Two", Kind: validation.KindCustom},
	}
	c, err := catalog.New([]catalog.Module{
		{ID: "basics", Title: "Basics", Version: "v1.0.0", Tasks: tasks, Badge: catalog.BadgeInfo{Name: "Basic", Icon: "B"}},
		{ID: "wallets", Title: "Wallets", Version: "v1.0.0", Tasks: tasks, Badge: catalog.BadgeInfo{Name: "Wallet", Icon: "W"}},
		{ID: "fees", Title: "Fees", Version: "v1.0.0", Tasks: tasks},
	})
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	return c
}

func newHome(t *testing.T, prog stubProgress, awards stubBadges) *HomeScreen {
	t.Helper()
	cat := testCatalog(t)
	deps := func(string, bool) flow.Deps { return flow.Deps{Validator: validation.NewService(nil)} }
	h := New(Options{
		Module: modulescreen.Options{
			Catalog:  cat,
			Registry: learner.NewRegistry(cat, deps, flow.Settings{}, nil),
			UserID:   "alice",
		},
		Progress: prog,
		Badges:   awards,
	})
	h.Update(h.Init()())
	return h
}

func TestHome_LocksModulesInOrder(t *testing.T) {
	h := newHome(t, stubProgress{}, stubBadges{})

	if h.menu.Items[0].Disabled {
		t.Error("first module should be unlocked")
	}
	if !h.menu.Items[1].Disabled || !h.menu.Items[2].Disabled {
		t.Error("later modules should be locked")
	}
	if got := h.menu.Items[1].Detail; got != "locked" {
		t.Errorf("detail = %q, want locked", got)
	}
}

func TestHome_ProgressUnlocksNext(t *testing.T) {
	prog := stubProgress{records: []progress.Record{
		{ModuleID: "basics", ModuleVersion: "v1.0.0", CompletedTaskIDs: []string{"t1", "t2"}},
		{ModuleID: "wallets", ModuleVersion: "v1.2.0", CompletedTaskIDs: []string{"t1"}},
	}}
	h := newHome(t, prog, stubBadges{})

	if h.menu.Items[1].Disabled {
		t.Error("wallets should unlock after basics")
	}
	if got := h.menu.Items[1].Detail; got != "1/2 tasks" {
		t.Errorf("wallets detail = %q, want 1/2 tasks", got)
	}
	if !h.menu.Items[2].Disabled {
		t.Error("fees should stay locked")
	}

	st := h.Status()
	if st.ModulesCompleted != 1 || st.ModulesTotal != 3 {
		t.Errorf("status = %+v, want 1/3 completed", st)
	}
}

func TestHome_IncompatibleProgressIgnored(t *testing.T) {
	prog := stubProgress{records: []progress.Record{
		{ModuleID: "basics", ModuleVersion: "v0.9.0", CompletedTaskIDs: []string{"t1", "t2"}},
	}}
	h := newHome(t, prog, stubBadges{})
	if !h.menu.Items[1].Disabled {
		t.Error("progress saved for another major version must not unlock")
	}
}

func TestHome_BadgesCountInStatus(t *testing.T) {
	awards := stubBadges{awards: []badges.Award{{
		Badge:     badges.Badge{ModuleID: "basics", Name: "Basic", Icon: "B"},
		Rarity:    badges.RarityGold,
		AwardedAt: time.Now(),
	}}}
	h := newHome(t, stubProgress{}, awards)

	st := h.Status()
	if st.Badges != 1 || st.ModulesCompleted != 1 {
		t.Errorf("status = %+v, want one badge and one module", st)
	}
	if h.labels[0] != "B Basics" {
		t.Errorf("label = %q, want badge icon prefix", h.labels[0])
	}
}

func TestHome_LiveSessionCounts(t *testing.T) {
	h := newHome(t, stubProgress{}, stubBadges{})
	sess, _, err := h.opts.Module.Registry.Open(context.Background(), "alice", "basics")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_ = sess.Do(func(f *flow.Flow) error {
		f.Start()
		f.Submit(context.Background(), 0, "first")
		return nil
	})

	h.Update(h.Refresh()())
	if got := h.menu.Items[0].Detail; got != "1/2 tasks" {
		t.Errorf("detail = %q, want 1/2 tasks", got)
	}
	if h.variant != MascotBusy {
		t.Errorf("variant = %v, want MascotBusy", h.variant)
	}
}

func TestHome_OpenModule(t *testing.T) {
	h := newHome(t, stubProgress{}, stubBadges{})
	_, cmd := h.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected a command")
	}
	push, ok := cmd().(router.PushScreenMsg)
	if !ok {
		t.Fatalf("cmd() = %T, want PushScreenMsg", cmd())
	}
	if push.Screen.Title() != "Basics" {
		t.Errorf("pushed %q, want Basics", push.Screen.Title())
	}
}

func TestHome_VaultEntry(t *testing.T) {
	h := newHome(t, stubProgress{}, stubBadges{})
	// Locked modules are skipped by the menu.
	h.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	_, cmd := h.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected a command")
	}
	push, ok := cmd().(router.PushScreenMsg)
	if !ok {
		t.Fatalf("cmd() = %T, want PushScreenMsg", cmd())
	}
	if _, ok := push.Screen.(*vault.VaultScreen); !ok {
		t.Errorf("pushed %T, want *vault.VaultScreen", push.Screen)
	}
}

func TestHome_View(t *testing.T) {
	h := newHome(t, stubProgress{}, stubBadges{})
	view := h.View(120, 40)
	for _, want := range []string{"Basics", "BADGE VAULT", "HISTORY", "locked"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}
