package progression

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/satslab/satslab/internal/catalog"
	"github.com/satslab/satslab/internal/progress"
	"github.com/satslab/satslab/internal/validation"
)

const goodTxID = "a1b2c3d4e5f6789012345678901234567890abcdef1234567890abcdef123456"

type fakeClock struct{ t time.Time }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func threeTaskModule() *catalog.Module {
	c, err := catalog.New([]catalog.Module{{
		ID:      "sample",
		Title:   "Sample",
		Version: "v1.0.0",
		Tasks: []catalog.Task{
			{ID: "tx", Title: "Tx", Kind: validation.KindTransaction, Hints: []string{"h1", "h2"}},
			{ID: "amount", Title: "Amount", Kind: validation.KindAmount, Hints: []string{"h1"}},
			{ID: "note", Title: "Note", Kind: validation.KindCustom},
		},
	}})
	if err != nil {
		panic(err)
	}
	m, _ := c.Get("sample")
	return m
}

func newEngine(t *testing.T) (*Engine, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	e := New(threeTaskModule(), validation.NewService(nil), WithClock(clock.Now))
	return e, clock
}

func assertInvariant(t *testing.T, e *Engine) {
	t.Helper()
	for i, st := range e.Tasks() {
		if st.Status == Completed && (st.LastResult == nil || !st.LastResult.Success) {
			t.Errorf("task %d completed without a successful result", i)
		}
		if st.Hints.Level > st.Hints.Total {
			t.Errorf("task %d hint level %d exceeds total %d", i, st.Hints.Level, st.Hints.Total)
		}
	}
	if e.Len() > 0 && (e.Current() < 0 || e.Current() >= e.Len()) {
		t.Errorf("current %d out of range", e.Current())
	}
}

func TestThreeTaskModuleScenario(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	res := e.Submit(ctx, 0, goodTxID)
	if !res.Success {
		t.Fatalf("task 0 rejected: %s", res.Message)
	}
	if !e.Advance() {
		t.Fatal("Advance() = false after completing task 0")
	}
	if e.IsModuleComplete() {
		t.Fatal("IsModuleComplete() = true with tasks 1 and 2 open")
	}
	if got := e.Complete(); got != (Tally{CompletedCount: 1, TotalTasks: 3}) {
		t.Errorf("Complete() = %+v, want 1/3", got)
	}

	if res := e.Submit(ctx, 1, "0.005"); !res.Success {
		t.Fatalf("task 1 rejected: %s", res.Message)
	}
	e.Advance()
	if res := e.Submit(ctx, 2, "done"); !res.Success {
		t.Fatalf("task 2 rejected: %s", res.Message)
	}

	if !e.IsModuleComplete() {
		t.Fatal("IsModuleComplete() = false after all tasks")
	}
	if got := e.Complete(); got != (Tally{CompletedCount: 3, TotalTasks: 3}) {
		t.Errorf("Complete() = %+v, want 3/3", got)
	}
	assertInvariant(t, e)
}

func TestAdvanceRequiresCompletion(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	if e.Advance() {
		t.Fatal("Advance() succeeded on an open task")
	}
	e.Submit(ctx, 0, "xyz")
	if e.Advance() {
		t.Fatal("Advance() succeeded after a rejected submission")
	}

	e.Submit(ctx, 0, goodTxID)
	e.Advance()
	e.Submit(ctx, 1, "1")
	e.Advance()
	e.Submit(ctx, 2, "ok")

	for range 5 {
		if e.Advance() {
			t.Error("Advance() moved past the last task")
		}
	}
	if e.Current() != 2 {
		t.Errorf("Current() = %d, want 2", e.Current())
	}
	assertInvariant(t, e)
}

func TestWhitespaceSubmitIsNoop(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	res := e.Submit(ctx, 0, "   ")
	if res.Success {
		t.Error("whitespace accepted")
	}
	st, _ := e.Task(0)
	if st.Attempts != 0 || st.LastResult != nil {
		t.Errorf("whitespace changed state: attempts=%d last=%v", st.Attempts, st.LastResult)
	}

	first := e.Submit(ctx, 0, "xyz")
	again := e.Submit(ctx, 0, "\t\n")
	if again.Message != first.Message {
		t.Errorf("whitespace returned %q, want previous %q", again.Message, first.Message)
	}
	st, _ = e.Task(0)
	if st.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", st.Attempts)
	}
}

func TestRejectedInputCountsAttempt(t *testing.T) {
	e, _ := newEngine(t)
	e.Submit(context.Background(), 0, "not-a-txid")
	st, _ := e.Task(0)
	if st.Attempts != 1 || st.Status != InProgress {
		t.Errorf("state = %+v", st)
	}
	if st.LastResult == nil || st.LastResult.Verdict != validation.VerdictRejected {
		t.Errorf("LastResult = %+v", st.LastResult)
	}
}

func TestSubmitMisuse(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	for _, i := range []int{-1, 3, 99} {
		if res := e.Submit(ctx, i, "x"); res.Success {
			t.Errorf("Submit(%d) succeeded", i)
		}
	}
	if res := e.Submit(ctx, 2, "skip ahead"); res.Success {
		t.Error("Submit to a later task succeeded")
	}
	st, _ := e.Task(2)
	if st.Attempts != 0 || st.Status != NotStarted {
		t.Errorf("later task changed: %+v", st)
	}
}

func TestSubmitToCompletedTaskKeepsResult(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	first := e.Submit(ctx, 0, goodTxID)
	again := e.Submit(ctx, 0, "xyz")
	if !again.Success || again.Message != first.Message {
		t.Errorf("resubmission changed result: %+v", again)
	}
	st, _ := e.Task(0)
	if st.Attempts != 1 || st.Status != Completed {
		t.Errorf("state = %+v", st)
	}
}

func TestAttemptTriggerRevealsSecondHint(t *testing.T) {
	e, clock := newEngine(t)
	ctx := context.Background()

	for range 3 {
		clock.Advance(5 * time.Second)
		e.Submit(ctx, 0, "bad")
	}
	st, _ := e.Task(0)
	if st.Hints.Level != 2 {
		t.Errorf("hint level = %d, want 2 after 3 attempts in 15s", st.Hints.Level)
	}
	if len(st.Hints.Revealed) != 2 {
		t.Errorf("Revealed = %v", st.Hints.Revealed)
	}
}

func TestTimeTriggersAndStaleTimers(t *testing.T) {
	e, clock := newEngine(t)

	deadline, epoch, ok := e.NextDeadline()
	if !ok {
		t.Fatal("NextDeadline() ok = false")
	}
	clock.Advance(deadline.Sub(clock.Now()))
	if !e.TimerFired(epoch, clock.Now()) {
		t.Fatal("TimerFired() did not reveal hint at T1")
	}

	e.Submit(context.Background(), 0, goodTxID)
	e.Advance()

	// A timer armed for task 0 must not touch task 1.
	clock.Advance(10 * time.Minute)
	if e.TimerFired(epoch, clock.Now()) {
		t.Error("stale timer changed state")
	}
	st, _ := e.Task(1)
	if st.Hints.Level != 0 {
		t.Errorf("task 1 hint level = %d, want 0", st.Hints.Level)
	}
	if !e.Tick(clock.Now()) {
		t.Error("Tick() did not reveal hint on task 1")
	}
}

func TestFreshSchedulerAfterAdvance(t *testing.T) {
	e, clock := newEngine(t)
	ctx := context.Background()

	clock.Advance(3 * time.Minute)
	e.Tick(clock.Now())
	e.Submit(ctx, 0, goodTxID)
	e.Advance()

	st, _ := e.Task(1)
	if st.Hints.Level != 0 || st.Attempts != 0 {
		t.Errorf("task 1 starts at level %d attempts %d", st.Hints.Level, st.Attempts)
	}
	if !st.StartedAt.Equal(clock.Now()) {
		t.Errorf("StartedAt = %v, want %v", st.StartedAt, clock.Now())
	}
	first, _ := e.Task(0)
	if first.Hints.Level != 2 {
		t.Errorf("task 0 hints hidden after completion: level %d", first.Hints.Level)
	}
}

func TestRequestHint(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	if e.RequestHint() {
		t.Fatal("RequestHint() before attempts succeeded")
	}
	e.Submit(ctx, 0, "bad")
	e.Submit(ctx, 0, "bad")
	if !e.RequestHint() {
		t.Fatal("RequestHint() after 2 attempts failed")
	}
	st, _ := e.Task(0)
	if st.Hints.Level != 1 {
		t.Errorf("level = %d, want 1", st.Hints.Level)
	}
}

func TestPriorValueFeedsAmountMessage(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()
	e.Submit(ctx, 0, goodTxID)
	e.Advance()
	res := e.Submit(ctx, 1, "0.5")
	if !res.Success {
		t.Fatalf("rejected: %s", res.Message)
	}
	if want := goodTxID[:8]; !strings.Contains(res.Message, want) {
		t.Errorf("Message = %q, want mention of %q", res.Message, want)
	}
}

func TestProgressAndRestore(t *testing.T) {
	e, clock := newEngine(t)
	ctx := context.Background()

	e.Submit(ctx, 0, "bad")
	e.Submit(ctx, 0, goodTxID)
	e.Advance()
	clock.Advance(90 * time.Second)

	rec := e.Progress("alice")
	if len(rec.CompletedTaskIDs) != 1 || rec.CompletedTaskIDs[0] != "tx" {
		t.Errorf("CompletedTaskIDs = %v", rec.CompletedTaskIDs)
	}
	if rec.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", rec.Attempts)
	}
	if rec.TimeSpent != 90*time.Second {
		t.Errorf("TimeSpent = %v, want 90s", rec.TimeSpent)
	}

	restored, _ := newEngine(t)
	restored.Restore(rec)
	if restored.Current() != 1 {
		t.Errorf("Current() = %d, want 1", restored.Current())
	}
	st, _ := restored.Task(0)
	if st.Status != Completed || st.LastResult == nil || !st.LastResult.Success {
		t.Errorf("task 0 after restore = %+v", st)
	}
	st, _ = restored.Task(1)
	if st.Status != InProgress || st.Hints.Level != 0 {
		t.Errorf("task 1 after restore = %+v", st)
	}
	again := restored.Progress("alice")
	if again.Attempts != 2 {
		t.Errorf("restored Attempts = %d, want 2", again.Attempts)
	}
	assertInvariant(t, restored)
}

func TestRestoreCountsResumedHintsOnce(t *testing.T) {
	e, clock := newEngine(t)
	ctx := context.Background()

	e.Submit(ctx, 0, goodTxID)
	e.Advance()
	e.Submit(ctx, 1, "lots")
	clock.Advance(90 * time.Second)
	e.Tick(clock.Now())

	rec := e.Progress("alice")
	if rec.HintsUsed != 1 || rec.CurrentHints != 1 {
		t.Fatalf("HintsUsed/CurrentHints = %d/%d, want 1/1", rec.HintsUsed, rec.CurrentHints)
	}
	if rec.PriorValue != goodTxID {
		t.Errorf("PriorValue = %q, want the accepted tx id", rec.PriorValue)
	}

	restored, rclock := newEngine(t)
	restored.Restore(rec)
	st, _ := restored.Task(1)
	if st.Hints.Level != 1 {
		t.Errorf("resumed level = %d, want 1", st.Hints.Level)
	}
	rclock.Advance(90 * time.Second)
	restored.Tick(rclock.Now())
	if got := restored.Progress("alice").HintsUsed; got != 1 {
		t.Errorf("HintsUsed after resume = %d, want 1", got)
	}

	res := restored.Submit(ctx, 1, "0.5")
	if !res.Success {
		t.Fatalf("rejected: %s", res.Message)
	}
	if want := goodTxID[:8]; !strings.Contains(res.Message, want) {
		t.Errorf("Message = %q, want mention of %q", res.Message, want)
	}
	assertInvariant(t, restored)
}

func TestRestoreAllComplete(t *testing.T) {
	e, _ := newEngine(t)
	e.Restore(progress.Record{CompletedTaskIDs: []string{"tx", "amount", "note", "gone"}})
	if !e.IsModuleComplete() {
		t.Error("IsModuleComplete() = false")
	}
	if e.Current() != 2 {
		t.Errorf("Current() = %d, want 2", e.Current())
	}
}

func TestResetStartsOver(t *testing.T) {
	e, _ := newEngine(t)
	e.Submit(context.Background(), 0, goodTxID)
	e.Advance()
	_, oldEpoch, _ := e.NextDeadline()

	e.Reset()
	if e.Current() != 0 || e.Complete().CompletedCount != 0 {
		t.Errorf("after Reset current=%d tally=%+v", e.Current(), e.Complete())
	}
	_, newEpoch, _ := e.NextDeadline()
	if newEpoch == oldEpoch {
		t.Error("Reset kept the old scheduler epoch")
	}
}

func TestEmptyModule(t *testing.T) {
	c, err := catalog.New([]catalog.Module{{ID: "empty", Title: "Empty", Version: "v1.0.0"}})
	if err != nil {
		t.Fatal(err)
	}
	m, _ := c.Get("empty")
	e := New(m, validation.NewService(nil))

	if !e.IsModuleComplete() {
		t.Error("empty module not complete")
	}
	if e.Advance() || e.RequestHint() || e.Tick(time.Now()) {
		t.Error("operations on empty module changed state")
	}
	if res := e.Submit(context.Background(), 0, "x"); res.Success {
		t.Error("Submit on empty module succeeded")
	}
	if got := e.Complete(); got != (Tally{}) {
		t.Errorf("Complete() = %+v", got)
	}
}
