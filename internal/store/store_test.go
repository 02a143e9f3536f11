package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		// WAL mode falls back to "memory" for in-memory databases,
		// so we skip journal_mode here.
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
		{"busy_timeout", "5000"},
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestFileStoreUsesWAL(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "satslab.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	var mode string
	if err := s.DB().QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("PRAGMA journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}

func TestWithPragmas(t *testing.T) {
	tests := []struct {
		dsn        string
		wantPrefix string
	}{
		{"/data/satslab.db", "/data/satslab.db?_pragma="},
		{"file:x?mode=memory&cache=shared", "file:x?mode=memory&cache=shared&_pragma="},
	}
	for _, tt := range tests {
		got := withPragmas(tt.dsn)
		if !strings.HasPrefix(got, tt.wantPrefix) {
			t.Errorf("withPragmas(%q) = %q, want prefix %q", tt.dsn, got, tt.wantPrefix)
		}
		if n := strings.Count(got, "_pragma="); n != len(pragmas) {
			t.Errorf("withPragmas(%q) has %d pragmas, want %d", tt.dsn, n, len(pragmas))
		}
	}
}

func TestConcurrentWriters(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "satslab.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	progressRepo := s.ProgressRepo()
	events := s.EventRepo()
	ctx := context.Background()

	const learners, rounds = 16, 20
	errs := make(chan error, learners*rounds*2)
	var wg sync.WaitGroup
	for l := 0; l < learners; l++ {
		wg.Add(1)
		go func(l int) {
			defer wg.Done()
			user := fmt.Sprintf("learner-%d", l)
			for i := 0; i < rounds; i++ {
				if err := progressRepo.Upsert(ctx, ProgressRow{
					UserID:           user,
					ModuleID:         "wallets",
					ModuleVersion:    "v1.0.0",
					CompletedTaskIDs: []string{},
					Attempts:         i + 1,
				}); err != nil {
					errs <- err
				}
				if err := events.AppendSubmission(ctx, SubmissionEventData{
					UserID: user, ModuleID: "wallets", TaskID: "t1", Attempt: i + 1, Verdict: "rejected",
				}); err != nil {
					errs <- err
				}
			}
		}(l)
	}
	wg.Wait()
	close(errs)

	failed := 0
	var first error
	for err := range errs {
		if first == nil {
			first = err
		}
		failed++
	}
	if failed > 0 {
		t.Fatalf("%d of %d writes failed, first: %v", failed, learners*rounds*2, first)
	}

	counts, err := events.Counts(ctx, "")
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts.Submissions != learners*rounds {
		t.Errorf("Submissions = %d, want %d", counts.Submissions, learners*rounds)
	}
	rows, err := progressRepo.ListByUser(ctx, "learner-3")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 || rows[0].Attempts != rounds {
		t.Errorf("learner-3 progress = %+v", rows)
	}
}

func TestAutoMigrationCreatesTables(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	for _, table := range []string{"progress", "badge_awards", "submission_events", "hint_events", "llm_request_events", "global_sequence"} {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s: %v", table, err)
		}
	}
}

func TestProgressUpsertAndGet(t *testing.T) {
	s := openTestStore(t)
	repo := s.ProgressRepo()
	ctx := context.Background()

	got, err := repo.Get(ctx, "alice", "wallets")
	if err != nil {
		t.Fatalf("get (empty): %v", err)
	}
	if got != nil {
		t.Fatal("expected nil progress when none exists")
	}

	row := ProgressRow{
		UserID:           "alice",
		ModuleID:         "wallets",
		ModuleVersion:    "v1.0.0",
		CompletedTaskIDs: []string{"receive-address"},
		HintsUsed:        1,
		TimeSpent:        95 * time.Second,
		Attempts:         3,
	}
	if err := repo.Upsert(ctx, row); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	row.CompletedTaskIDs = append(row.CompletedTaskIDs, "faucet-funding")
	row.Attempts = 5
	row.CurrentHints = 1
	row.PriorValue = "a1b2c3d4"
	if err := repo.Upsert(ctx, row); err != nil {
		t.Fatalf("upsert again: %v", err)
	}

	got, err = repo.Get(ctx, "alice", "wallets")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected progress row")
	}
	if len(got.CompletedTaskIDs) != 2 || got.CompletedTaskIDs[1] != "faucet-funding" {
		t.Errorf("CompletedTaskIDs = %v", got.CompletedTaskIDs)
	}
	if got.Attempts != 5 {
		t.Errorf("Attempts = %d, want 5", got.Attempts)
	}
	if got.CurrentHints != 1 || got.PriorValue != "a1b2c3d4" {
		t.Errorf("CurrentHints/PriorValue = %d/%q", got.CurrentHints, got.PriorValue)
	}
	if got.TimeSpent != 95*time.Second {
		t.Errorf("TimeSpent = %v, want 95s", got.TimeSpent)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not set")
	}

	list, err := repo.ListByUser(ctx, "alice")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("ListByUser len = %d, want 1 (upsert must not duplicate)", len(list))
	}
}

func TestProgressDelete(t *testing.T) {
	s := openTestStore(t)
	repo := s.ProgressRepo()
	ctx := context.Background()

	for _, m := range []string{"wallets", "transactions"} {
		if err := repo.Upsert(ctx, ProgressRow{UserID: "bob", ModuleID: m, ModuleVersion: "v1.0.0"}); err != nil {
			t.Fatalf("upsert %s: %v", m, err)
		}
	}

	if err := repo.Delete(ctx, "bob", "wallets"); err != nil {
		t.Fatalf("delete one: %v", err)
	}
	list, _ := repo.ListByUser(ctx, "bob")
	if len(list) != 1 || list[0].ModuleID != "transactions" {
		t.Errorf("after delete one: %+v", list)
	}

	if err := repo.Delete(ctx, "bob", ""); err != nil {
		t.Fatalf("delete all: %v", err)
	}
	list, _ = repo.ListByUser(ctx, "bob")
	if len(list) != 0 {
		t.Errorf("after delete all: %d rows", len(list))
	}
}

func TestBadgeInsertIsUnique(t *testing.T) {
	s := openTestStore(t)
	repo := s.BadgeRepo()
	ctx := context.Background()

	row := BadgeRow{
		UserID: "alice", ModuleID: "wallets", Name: "Key Keeper", Icon: "🔑",
		Rarity: "gold", CompletedCount: 3, TotalTasks: 3,
	}
	if err := repo.Insert(ctx, row); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := repo.Insert(ctx, row); !errors.Is(err, ErrDuplicate) {
		t.Errorf("second insert error = %v, want ErrDuplicate", err)
	}

	row.ModuleID = "transactions"
	row.Name = "First Broadcast"
	if err := repo.Insert(ctx, row); err != nil {
		t.Fatalf("insert second module: %v", err)
	}

	list, err := repo.List(ctx, "alice")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("List len = %d, want 2", len(list))
	}
	if list[0].ModuleID != "transactions" {
		t.Errorf("List[0] = %q, want newest first", list[0].ModuleID)
	}
	if list[0].Sequence <= list[1].Sequence {
		t.Errorf("sequences not increasing: %d, %d", list[1].Sequence, list[0].Sequence)
	}

	got, err := repo.Get(ctx, "alice", "wallets")
	if err != nil || got == nil {
		t.Fatalf("get: %v, %v", got, err)
	}
	if got.Rarity != "gold" || got.Icon != "🔑" {
		t.Errorf("got %+v", got)
	}

	if err := repo.Delete(ctx, "alice", ""); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := repo.Get(ctx, "alice", "wallets"); got != nil {
		t.Error("badge still present after delete")
	}
}

func TestEventsAppendAndQuery(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	subs := []SubmissionEventData{
		{UserID: "alice", ModuleID: "wallets", TaskID: "t1", Attempt: 1, Verdict: "rejected", Success: false, Message: "bad"},
		{UserID: "alice", ModuleID: "wallets", TaskID: "t1", Attempt: 2, Verdict: "unverified", Success: true, Message: "ok"},
		{UserID: "bob", ModuleID: "wallets", TaskID: "t1", Attempt: 1, Verdict: "confirmed", Success: true, Message: "ok"},
	}
	for _, d := range subs {
		if err := repo.AppendSubmission(ctx, d); err != nil {
			t.Fatalf("append submission: %v", err)
		}
	}
	if err := repo.AppendHint(ctx, HintEventData{UserID: "alice", ModuleID: "wallets", TaskID: "t1", Level: 1}); err != nil {
		t.Fatalf("append hint: %v", err)
	}
	if err := repo.AppendLLMRequest(ctx, LLMRequestEventData{Provider: "mock", Model: "m", Purpose: "tutor", Success: true}); err != nil {
		t.Fatalf("append llm: %v", err)
	}

	recs, err := repo.QuerySubmissions(ctx, QueryOpts{UserID: "alice"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("len = %d, want 2", len(recs))
	}
	if recs[0].Attempt != 2 || !recs[0].Success {
		t.Errorf("newest record = %+v", recs[0])
	}
	if recs[0].Sequence <= recs[1].Sequence {
		t.Errorf("sequence order wrong: %d, %d", recs[0].Sequence, recs[1].Sequence)
	}

	limited, err := repo.QuerySubmissions(ctx, QueryOpts{Limit: 1})
	if err != nil {
		t.Fatalf("query limit: %v", err)
	}
	if len(limited) != 1 || limited[0].UserID != "bob" {
		t.Errorf("limited = %+v", limited)
	}

	all, err := repo.Counts(ctx, "")
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if all.Submissions != 3 || all.Accepted != 2 || all.Hints != 1 || all.LLMRequests != 1 {
		t.Errorf("Counts() = %+v", all)
	}

	alice, err := repo.Counts(ctx, "alice")
	if err != nil {
		t.Fatalf("counts alice: %v", err)
	}
	if alice.Submissions != 2 || alice.Accepted != 1 || alice.Hints != 1 {
		t.Errorf("Counts(alice) = %+v", alice)
	}
}

func TestLLMRequestQueries(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	events := []LLMRequestEventData{
		{Provider: "anthropic", Model: "claude-haiku", Purpose: "tutor", InputTokens: 100, OutputTokens: 40, LatencyMs: 900, Success: true},
		{Provider: "anthropic", Model: "claude-haiku", Purpose: "tutor", InputTokens: 120, OutputTokens: 0, Success: false, ErrorMessage: "timeout"},
		{Provider: "openai", Model: "gpt-4o-mini", Purpose: "tutor", InputTokens: 80, OutputTokens: 30, Success: true},
	}
	for _, e := range events {
		if err := repo.AppendLLMRequest(ctx, e); err != nil {
			t.Fatalf("append llm: %v", err)
		}
	}

	recs, err := repo.QueryLLMRequests(ctx, QueryOpts{Limit: 2})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("len = %d, want 2", len(recs))
	}
	if recs[0].Model != "gpt-4o-mini" || recs[1].ErrorMessage != "timeout" {
		t.Errorf("records = %+v", recs)
	}

	usage, err := repo.LLMUsageByModel(ctx)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if len(usage) != 2 {
		t.Fatalf("usage len = %d, want 2", len(usage))
	}
	if usage[0].Model != "claude-haiku" || usage[0].Calls != 2 || usage[0].InputTokens != 220 || usage[0].OutputTokens != 40 {
		t.Errorf("usage[0] = %+v", usage[0])
	}
}

func TestSequenceCounter(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()
	ctx := context.Background()

	sc, err := newSequenceCounter(db)
	if err != nil {
		t.Fatalf("new sequence counter: %v", err)
	}

	var seqs []int64
	for i := 0; i < 5; i++ {
		seq, err := sc.Next(ctx)
		if err != nil {
			t.Fatalf("next %d: %v", i, err)
		}
		seqs = append(seqs, seq)
	}

	// Should be monotonically increasing starting from 1.
	for i, seq := range seqs {
		expected := int64(i + 1)
		if seq != expected {
			t.Errorf("seq[%d] = %d, want %d", i, seq, expected)
		}
	}
}

func TestDefaultDBPathHonoursEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SATSLAB_DB", dir+"/nested/x.db")
	p, err := DefaultDBPath()
	if err != nil {
		t.Fatalf("DefaultDBPath: %v", err)
	}
	if p != dir+"/nested/x.db" {
		t.Errorf("path = %q", p)
	}

	t.Setenv("SATSLAB_DB", "")
	t.Setenv("XDG_DATA_HOME", dir)
	p, err = DefaultDBPath()
	if err != nil {
		t.Fatalf("DefaultDBPath: %v", err)
	}
	if p != dir+"/satslab/satslab.db" {
		t.Errorf("path = %q", p)
	}
}
