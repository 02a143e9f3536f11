package badges

import (
	"context"
	"errors"
	"testing"

	"github.com/satslab/satslab/internal/store"
)

// mockBadgeRepo implements store.BadgeRepo for badge tests.
type mockBadgeRepo struct {
	rows []store.BadgeRow
	seq  int64
}

func (m *mockBadgeRepo) Insert(_ context.Context, row store.BadgeRow) error {
	for _, r := range m.rows {
		if r.UserID == row.UserID && r.ModuleID == row.ModuleID {
			return store.ErrDuplicate
		}
	}
	m.seq++
	row.Sequence = m.seq
	m.rows = append(m.rows, row)
	return nil
}

func (m *mockBadgeRepo) Get(_ context.Context, userID, moduleID string) (*store.BadgeRow, error) {
	for _, r := range m.rows {
		if r.UserID == userID && r.ModuleID == moduleID {
			return &r, nil
		}
	}
	return nil, nil
}

func (m *mockBadgeRepo) List(_ context.Context, userID string) ([]store.BadgeRow, error) {
	var out []store.BadgeRow
	for i := len(m.rows) - 1; i >= 0; i-- {
		if m.rows[i].UserID == userID {
			out = append(out, m.rows[i])
		}
	}
	return out, nil
}

func (m *mockBadgeRepo) Delete(_ context.Context, _, _ string) error {
	m.rows = nil
	return nil
}

var walletBadge = Badge{ModuleID: "wallets", Name: "Key Keeper", Icon: "🔑"}

func TestAwardOnce(t *testing.T) {
	repo := &mockBadgeRepo{}
	svc := NewService(repo, nil)
	ctx := context.Background()
	stats := Stats{CompletedCount: 3, TotalTasks: 3, HintsUsed: 1, Attempts: 5}

	award, err := svc.Award(ctx, "alice", walletBadge, stats)
	if err != nil {
		t.Fatalf("Award: %v", err)
	}
	if award.Rarity != RaritySilver {
		t.Errorf("Rarity = %q, want silver", award.Rarity)
	}

	again, err := svc.Award(ctx, "alice", walletBadge, Stats{CompletedCount: 3, TotalTasks: 3})
	if !errors.Is(err, ErrAlreadyAwarded) {
		t.Fatalf("second Award error = %v, want ErrAlreadyAwarded", err)
	}
	if again == nil || again.Rarity != RaritySilver {
		t.Errorf("second Award returned %+v, want the original silver award", again)
	}
	if len(repo.rows) != 1 {
		t.Errorf("stored %d awards, want 1", len(repo.rows))
	}
}

func TestAwardRequiresCompleteTally(t *testing.T) {
	svc := NewService(&mockBadgeRepo{}, nil)
	_, err := svc.Award(context.Background(), "alice", walletBadge, Stats{CompletedCount: 2, TotalTasks: 3})
	if !errors.Is(err, ErrIncomplete) {
		t.Errorf("error = %v, want ErrIncomplete", err)
	}
}

func TestListAndHas(t *testing.T) {
	repo := &mockBadgeRepo{}
	svc := NewService(repo, nil)
	ctx := context.Background()

	full := Stats{CompletedCount: 2, TotalTasks: 2, Attempts: 2}
	if _, err := svc.Award(ctx, "alice", walletBadge, full); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Award(ctx, "alice", Badge{ModuleID: "taproot", Name: "Root Explorer"}, full); err != nil {
		t.Fatal(err)
	}

	list, err := svc.List(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Badge.ModuleID != "taproot" {
		t.Errorf("List = %+v", list)
	}
	if list[0].Rarity != RarityPlatinum {
		t.Errorf("Rarity = %q, want platinum", list[0].Rarity)
	}

	has, err := svc.Has(ctx, "alice", "wallets")
	if err != nil || !has {
		t.Errorf("Has(wallets) = %v, %v", has, err)
	}
	has, _ = svc.Has(ctx, "bob", "wallets")
	if has {
		t.Error("Has(bob) = true")
	}
}

func TestRarityFor(t *testing.T) {
	tests := []struct {
		stats Stats
		want  Rarity
	}{
		{Stats{TotalTasks: 3, CompletedCount: 3, Attempts: 3}, RarityPlatinum},
		{Stats{TotalTasks: 3, CompletedCount: 3, Attempts: 6}, RarityGold},
		{Stats{TotalTasks: 3, CompletedCount: 3, Attempts: 6, HintsUsed: 3}, RaritySilver},
		{Stats{TotalTasks: 3, CompletedCount: 3, Attempts: 9, HintsUsed: 4}, RarityBronze},
	}
	for _, tt := range tests {
		if got := RarityFor(tt.stats); got != tt.want {
			t.Errorf("RarityFor(%+v) = %q, want %q", tt.stats, got, tt.want)
		}
	}
}

func TestRarityDisplayName(t *testing.T) {
	for _, r := range AllRarities() {
		if r.DisplayName() == "" || r.DisplayName() == string(r) {
			t.Errorf("DisplayName(%q) = %q", r, r.DisplayName())
		}
	}
}
