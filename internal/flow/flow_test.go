package flow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/satslab/satslab/internal/badges"
	"github.com/satslab/satslab/internal/catalog"
	"github.com/satslab/satslab/internal/progress"
	"github.com/satslab/satslab/internal/store"
	"github.com/satslab/satslab/internal/validation"
)

const goodTxID = "a1b2c3d4e5f6789012345678901234567890abcdef1234567890abcdef123456"

type memTracker struct {
	recs  map[string]progress.Record
	saves int
	err   error
}

func newMemTracker() *memTracker {
	return &memTracker{recs: make(map[string]progress.Record)}
}

func (m *memTracker) Save(_ context.Context, rec progress.Record) error {
	m.saves++
	if m.err != nil {
		return m.err
	}
	m.recs[rec.UserID+"/"+rec.ModuleID] = rec
	return nil
}

func (m *memTracker) Load(_ context.Context, userID, moduleID string) (*progress.Record, error) {
	rec, ok := m.recs[userID+"/"+moduleID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

type recordingAwarder struct {
	calls    int
	failNext error
	awards   map[string]*badges.Award
}

func (r *recordingAwarder) Award(_ context.Context, userID string, b badges.Badge, stats badges.Stats) (*badges.Award, error) {
	r.calls++
	if err := r.failNext; err != nil {
		r.failNext = nil
		return nil, err
	}
	if r.awards == nil {
		r.awards = make(map[string]*badges.Award)
	}
	key := userID + "/" + b.ModuleID
	if a, ok := r.awards[key]; ok {
		return a, badges.ErrAlreadyAwarded
	}
	a := &badges.Award{UserID: userID, Badge: b, Stats: stats, Rarity: badges.RarityFor(stats)}
	r.awards[key] = a
	return a, nil
}

type recordingEvents struct {
	submissions []store.SubmissionEventData
	hints       []store.HintEventData
}

func (r *recordingEvents) AppendSubmission(_ context.Context, d store.SubmissionEventData) error {
	r.submissions = append(r.submissions, d)
	return nil
}

func (r *recordingEvents) AppendHint(_ context.Context, d store.HintEventData) error {
	r.hints = append(r.hints, d)
	return nil
}

func testModule(t *testing.T, version string) *catalog.Module {
	t.Helper()
	c, err := catalog.New([]catalog.Module{{
		ID:      "sample",
		Title:   "Sample",
		Version: version,
		Questions: []catalog.Question{
			{ID: "q1", Prompt: "?", Choices: []string{"a", "b"}, CorrectIndex: 0},
			{ID: "q2", Prompt: "?", Choices: []string{"a", "b"}, CorrectIndex: 1},
			{ID: "q3", Prompt: "?", Choices: []string{"a", "b"}, CorrectIndex: 1},
		},
		Tasks: []catalog.Task{
			{ID: "tx", Title: "Tx", Kind: validation.KindTransaction, Hints: []string{"first", "second"}},
			{ID: "note", Title: "Note", Kind: validation.KindCustom},
		},
		Badge: catalog.BadgeInfo{Name: "Sample Badge", Icon: "*"},
	}})
	if err != nil {
		t.Fatal(err)
	}
	m, _ := c.Get("sample")
	return m
}

type fixture struct {
	flow    *Flow
	tracker *memTracker
	awarder *recordingAwarder
	events  *recordingEvents
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fx := &fixture{
		tracker: newMemTracker(),
		awarder: &recordingAwarder{},
		events:  &recordingEvents{},
		now:     time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	fx.flow = New(testModule(t, "v1.0.0"), "alice", Deps{
		Validator: validation.NewService(nil),
		Tracker:   fx.tracker,
		Badges:    fx.awarder,
		Events:    fx.events,
	}, Settings{Now: func() time.Time { return fx.now }})
	return fx
}

func passQuiz(t *testing.T, f *Flow) {
	t.Helper()
	if !f.Start() {
		t.Fatal("Start() = false")
	}
	for i, q := range f.Module().Questions {
		if _, ok := f.Answer(i, q.CorrectIndex); !ok {
			t.Fatalf("Answer(%d) not applied", i)
		}
	}
	if !f.FinishQuiz(context.Background()) {
		t.Fatal("FinishQuiz() = false with all answers correct")
	}
}

func TestPhases(t *testing.T) {
	fx := newFixture(t)
	f := fx.flow
	ctx := context.Background()

	if f.Phase() != PhaseIntro {
		t.Fatalf("Phase() = %v, want intro", f.Phase())
	}
	if res := f.Submit(ctx, 0, goodTxID); res.Success {
		t.Error("Submit accepted during intro")
	}

	passQuiz(t, f)
	if f.Phase() != PhaseTasks || f.Engine() == nil {
		t.Fatalf("Phase() = %v after passing quiz", f.Phase())
	}
	if fx.tracker.saves == 0 {
		t.Error("progress not saved on entering tasks")
	}

	if _, err := f.FinishTasks(ctx); !errors.Is(err, badges.ErrIncomplete) {
		t.Errorf("FinishTasks() early error = %v, want ErrIncomplete", err)
	}

	f.Submit(ctx, 0, goodTxID)
	f.Advance()
	f.Submit(ctx, 1, "my note")

	award, err := f.FinishTasks(ctx)
	if err != nil {
		t.Fatalf("FinishTasks: %v", err)
	}
	if award == nil || award.Badge.Name != "Sample Badge" {
		t.Fatalf("award = %+v", award)
	}
	if f.Phase() != PhaseCompleted {
		t.Errorf("Phase() = %v, want completed", f.Phase())
	}

	again, err := f.FinishTasks(ctx)
	if err != nil || again != award {
		t.Errorf("second FinishTasks = %v, %v", again, err)
	}
	if fx.awarder.calls != 1 {
		t.Errorf("awarder called %d times, want 1", fx.awarder.calls)
	}

	saved, _ := fx.tracker.Load(ctx, "alice", "sample")
	if saved == nil || len(saved.CompletedTaskIDs) != 2 {
		t.Errorf("saved progress = %+v", saved)
	}
}

func TestQuizFailureClearsAnswers(t *testing.T) {
	fx := newFixture(t)
	f := fx.flow
	f.Start()

	f.Answer(0, 0) // correct
	f.Answer(1, 0) // wrong
	if f.FinishQuiz(context.Background()) {
		t.Fatal("FinishQuiz() passed with 1/3")
	}
	if f.Phase() != PhaseQuestions {
		t.Errorf("Phase() = %v, want questions", f.Phase())
	}
	for i, a := range f.Answers() {
		if a != -1 {
			t.Errorf("answer %d = %d after failure, want -1", i, a)
		}
	}
	if fx.tracker.saves != 0 {
		t.Error("progress saved after failed quiz")
	}
}

func TestQuizPassRatio(t *testing.T) {
	fx := newFixture(t)
	f := fx.flow
	f.Start()
	f.Answer(0, 0)
	f.Answer(1, 1)
	f.Answer(2, 0) // 2/3 < 0.7
	if f.FinishQuiz(context.Background()) {
		t.Error("2/3 passed with ratio 0.7")
	}

	lenient := New(testModule(t, "v1.0.0"), "bob", Deps{}, Settings{PassRatio: 0.6})
	lenient.Start()
	lenient.Answer(0, 0)
	lenient.Answer(1, 1)
	if !lenient.FinishQuiz(context.Background()) {
		t.Error("2/3 failed with ratio 0.6")
	}
}

func TestAnswerValidation(t *testing.T) {
	fx := newFixture(t)
	f := fx.flow
	if _, ok := f.Answer(0, 0); ok {
		t.Error("Answer applied during intro")
	}
	f.Start()
	if _, ok := f.Answer(5, 0); ok {
		t.Error("Answer applied to unknown question")
	}
	if _, ok := f.Answer(0, 9); ok {
		t.Error("Answer applied with unknown choice")
	}
	if correct, ok := f.Answer(1, 1); !ok || !correct {
		t.Errorf("Answer(1,1) = %v, %v", correct, ok)
	}
}

func TestEventsRecorded(t *testing.T) {
	fx := newFixture(t)
	f := fx.flow
	ctx := context.Background()
	passQuiz(t, f)

	f.Submit(ctx, 0, "   ")
	if len(fx.events.submissions) != 0 {
		t.Error("whitespace submission recorded")
	}
	for range 3 {
		f.Submit(ctx, 0, "bad")
	}
	if len(fx.events.submissions) != 3 {
		t.Errorf("submissions recorded = %d, want 3", len(fx.events.submissions))
	}
	if len(fx.events.hints) != 2 {
		t.Fatalf("hint events = %d, want 2 (levels 1 and 2)", len(fx.events.hints))
	}
	if fx.events.hints[1].Level != 2 || fx.events.hints[1].Manual {
		t.Errorf("hint event = %+v", fx.events.hints[1])
	}
	if got := f.HintTexts(0); len(got) != 2 || got[0] != "first" {
		t.Errorf("HintTexts(0) = %v", got)
	}
}

func TestTimerDrivenHints(t *testing.T) {
	fx := newFixture(t)
	f := fx.flow
	ctx := context.Background()
	passQuiz(t, f)

	deadline, epoch, ok := f.Engine().NextDeadline()
	if !ok {
		t.Fatal("no deadline")
	}
	fx.now = deadline
	if !f.TimerFired(ctx, epoch, fx.now) {
		t.Fatal("TimerFired() = false at deadline")
	}
	if f.TimerFired(ctx, epoch+100, fx.now.Add(time.Hour)) {
		t.Error("stale epoch changed state")
	}
	fx.now = fx.now.Add(time.Hour)
	if !f.Tick(ctx, fx.now) {
		t.Error("Tick() did not reveal second hint")
	}
}

func TestResume(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	passQuiz(t, fx.flow)
	fx.flow.Submit(ctx, 0, goodTxID)

	resumed := New(testModule(t, "v1.2.0"), "alice", Deps{Tracker: fx.tracker}, Settings{})
	ok, err := resumed.Resume(ctx)
	if err != nil || !ok {
		t.Fatalf("Resume() = %v, %v", ok, err)
	}
	if resumed.Phase() != PhaseTasks {
		t.Errorf("Phase() = %v, want tasks", resumed.Phase())
	}
	if resumed.Engine().Current() != 1 {
		t.Errorf("Current() = %d, want 1", resumed.Engine().Current())
	}

	bumped := New(testModule(t, "v2.0.0"), "alice", Deps{Tracker: fx.tracker}, Settings{})
	ok, err = bumped.Resume(ctx)
	if err != nil || ok {
		t.Errorf("Resume() across major version = %v, %v", ok, err)
	}
	if bumped.Phase() != PhaseIntro {
		t.Errorf("Phase() = %v, want intro", bumped.Phase())
	}

	fresh := New(testModule(t, "v1.0.0"), "nobody", Deps{Tracker: fx.tracker}, Settings{})
	if ok, _ := fresh.Resume(ctx); ok {
		t.Error("Resume() restored progress for an unknown learner")
	}
}

func TestSaveErrorsAreNotFatal(t *testing.T) {
	tracker := newMemTracker()
	tracker.err = errors.New("disk full")
	f := New(testModule(t, "v1.0.0"), "alice", Deps{Tracker: tracker}, Settings{})
	passQuiz(t, f)
	if res := f.Submit(context.Background(), 0, goodTxID); !res.Success {
		t.Errorf("Submit failed when saving failed: %s", res.Message)
	}
}

func TestFailedAwardIsRetried(t *testing.T) {
	fx := newFixture(t)
	f := fx.flow
	ctx := context.Background()
	passQuiz(t, f)
	f.Submit(ctx, 0, goodTxID)
	f.Advance()
	f.Submit(ctx, 1, "my note")

	locked := errors.New("database is locked")
	fx.awarder.failNext = locked
	award, err := f.FinishTasks(ctx)
	if !errors.Is(err, locked) || award != nil {
		t.Fatalf("first FinishTasks = %v, %v, want nil, %v", award, err, locked)
	}
	if f.Phase() != PhaseCompleted {
		t.Errorf("Phase() = %v, want completed", f.Phase())
	}

	award, err = f.FinishTasks(ctx)
	if err != nil {
		t.Fatalf("retry FinishTasks: %v", err)
	}
	if award == nil || f.Award() != award {
		t.Fatalf("retry award = %+v", award)
	}
	if fx.awarder.calls != 2 {
		t.Errorf("awarder called %d times, want 2", fx.awarder.calls)
	}

	if _, err := f.FinishTasks(ctx); err != nil {
		t.Fatalf("third FinishTasks: %v", err)
	}
	if fx.awarder.calls != 2 {
		t.Errorf("awarder called %d times after success, want 2", fx.awarder.calls)
	}
}

func TestGuestFlowHasNoBadge(t *testing.T) {
	f := New(testModule(t, "v1.0.0"), "guest-1", Deps{}, Settings{})
	ctx := context.Background()
	passQuiz(t, f)
	f.Submit(ctx, 0, goodTxID)
	f.Advance()
	f.Submit(ctx, 1, "x")
	award, err := f.FinishTasks(ctx)
	if err != nil || award != nil {
		t.Errorf("FinishTasks() = %v, %v, want nil, nil", award, err)
	}
	if f.Phase() != PhaseCompleted {
		t.Errorf("Phase() = %v", f.Phase())
	}
}

func TestRestart(t *testing.T) {
	fx := newFixture(t)
	passQuiz(t, fx.flow)
	fx.flow.Restart()
	if fx.flow.Phase() != PhaseIntro || fx.flow.Engine() != nil {
		t.Errorf("after Restart phase=%v engine=%v", fx.flow.Phase(), fx.flow.Engine())
	}
}
