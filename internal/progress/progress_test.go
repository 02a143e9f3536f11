package progress

import (
	"context"
	"testing"
	"time"

	"github.com/satslab/satslab/internal/store"
)

// mockProgressRepo is an in-memory store.ProgressRepo.
type mockProgressRepo struct {
	rows map[string]store.ProgressRow
}

func newMockProgressRepo() *mockProgressRepo {
	return &mockProgressRepo{rows: make(map[string]store.ProgressRow)}
}

func (m *mockProgressRepo) Upsert(_ context.Context, row store.ProgressRow) error {
	m.rows[row.UserID+"/"+row.ModuleID] = row
	return nil
}

func (m *mockProgressRepo) Get(_ context.Context, userID, moduleID string) (*store.ProgressRow, error) {
	row, ok := m.rows[userID+"/"+moduleID]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (m *mockProgressRepo) ListByUser(_ context.Context, userID string) ([]store.ProgressRow, error) {
	var out []store.ProgressRow
	for _, row := range m.rows {
		if row.UserID == userID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *mockProgressRepo) Delete(_ context.Context, userID, moduleID string) error {
	delete(m.rows, userID+"/"+moduleID)
	return nil
}

func TestStoreTrackerRoundTrip(t *testing.T) {
	tr := NewStoreTracker(newMockProgressRepo())
	ctx := context.Background()

	got, err := tr.Load(ctx, "alice", "wallets")
	if err != nil || got != nil {
		t.Fatalf("Load(empty) = %v, %v, want nil, nil", got, err)
	}

	rec := Record{
		UserID: "alice", ModuleID: "wallets", ModuleVersion: "v1.0.0",
		CompletedTaskIDs: []string{"a", "b"}, HintsUsed: 2, TimeSpent: time.Minute, Attempts: 4,
		CurrentHints: 1, PriorValue: "a1b2c3d4",
	}
	if err := tr.Save(ctx, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err = tr.Load(ctx, "alice", "wallets")
	if err != nil || got == nil {
		t.Fatalf("Load = %v, %v", got, err)
	}
	if got.HintsUsed != 2 || got.Attempts != 4 || got.TimeSpent != time.Minute {
		t.Errorf("Load = %+v", got)
	}
	if got.CurrentHints != 1 || got.PriorValue != "a1b2c3d4" {
		t.Errorf("Load resume fields = %d/%q", got.CurrentHints, got.PriorValue)
	}

	list, err := tr.List(ctx, "alice")
	if err != nil || len(list) != 1 {
		t.Errorf("List = %v, %v", list, err)
	}
}

func TestStoreTrackerRejectsEmptyUser(t *testing.T) {
	tr := NewStoreTracker(newMockProgressRepo())
	if err := tr.Save(context.Background(), Record{ModuleID: "m"}); err == nil {
		t.Error("expected error for empty user id")
	}
}

func TestGuestKeepsNothing(t *testing.T) {
	var tr Tracker = Guest{}
	ctx := context.Background()
	if err := tr.Save(ctx, Record{UserID: "guest", ModuleID: "m"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := tr.Load(ctx, "guest", "m")
	if err != nil || got != nil {
		t.Errorf("Load = %v, %v, want nil, nil", got, err)
	}
}

func TestRecordDone(t *testing.T) {
	rec := &Record{CompletedTaskIDs: []string{"a", "b"}}
	if !rec.Done([]string{"a", "b"}) {
		t.Error("Done([a b]) = false")
	}
	if rec.Done([]string{"a", "b", "c"}) {
		t.Error("Done([a b c]) = true")
	}
	var none *Record
	if none.Done([]string{"a"}) {
		t.Error("nil record Done = true")
	}
}
