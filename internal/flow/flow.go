// Package flow drives a learner through one module: intro, quiz, tasks and
// completion. It owns the progression engine for the task phase and talks
// to the progress and badge collaborators.
package flow

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satslab/satslab/internal/badges"
	"github.com/satslab/satslab/internal/catalog"
	"github.com/satslab/satslab/internal/hints"
	"github.com/satslab/satslab/internal/progress"
	"github.com/satslab/satslab/internal/progression"
	"github.com/satslab/satslab/internal/store"
	"github.com/satslab/satslab/internal/validation"
)

// DefaultPassRatio is the share of correct answers needed to pass a quiz.
const DefaultPassRatio = 0.7

// Phase is the stage of a module.
type Phase int

const (
	PhaseIntro Phase = iota
	PhaseQuestions
	PhaseTasks
	PhaseCompleted
)

func (p Phase) String() string {
	switch p {
	case PhaseIntro:
		return "intro"
	case PhaseQuestions:
		return "questions"
	case PhaseTasks:
		return "tasks"
	case PhaseCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// BadgeAwarder grants module badges.
type BadgeAwarder interface {
	Award(ctx context.Context, userID string, badge badges.Badge, stats badges.Stats) (*badges.Award, error)
}

// EventRecorder receives submission and hint events.
type EventRecorder interface {
	AppendSubmission(ctx context.Context, data store.SubmissionEventData) error
	AppendHint(ctx context.Context, data store.HintEventData) error
}

// Deps are the collaborators of a Flow. Tracker, Badges and Events may be
// nil: the flow then keeps state in memory only.
type Deps struct {
	Validator progression.Validator
	Tracker   progress.Tracker
	Badges    BadgeAwarder
	Events    EventRecorder
	Logger    *zap.Logger
}

// Settings tune a Flow.
type Settings struct {
	PassRatio float64
	Policy    hints.Policy
	Now       func() time.Time
}

// Flow is one learner's pass through one module. It is not safe for
// concurrent use.
type Flow struct {
	module   *catalog.Module
	userID   string
	deps     Deps
	settings Settings
	logger   *zap.Logger

	phase   Phase
	answers []int
	engine  *progression.Engine
	award   *badges.Award
}

// New creates a flow in the intro phase.
func New(module *catalog.Module, userID string, deps Deps, settings Settings) *Flow {
	if deps.Tracker == nil {
		deps.Tracker = progress.Guest{}
	}
	if deps.Validator == nil {
		deps.Validator = validation.NewService(nil)
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if settings.PassRatio <= 0 || settings.PassRatio > 1 {
		settings.PassRatio = DefaultPassRatio
	}
	if settings.Now == nil {
		settings.Now = time.Now
	}
	f := &Flow{
		module:   module,
		userID:   userID,
		deps:     deps,
		settings: settings,
		logger:   logger.With(zap.String("module", module.ID), zap.String("user", userID)),
	}
	f.clearAnswers()
	return f
}

// Module returns the module.
func (f *Flow) Module() *catalog.Module { return f.module }

// UserID returns the learner id.
func (f *Flow) UserID() string { return f.userID }

// Phase returns the current phase.
func (f *Flow) Phase() Phase { return f.phase }

// Engine returns the task engine, or nil before the task phase.
func (f *Flow) Engine() *progression.Engine { return f.engine }

// Award returns the badge awarded on completion, if any.
func (f *Flow) Award() *badges.Award { return f.award }

// Resume loads saved progress. A compatible record puts the flow straight
// into the task phase, since progress is only saved once the quiz passed.
// It reports whether progress was restored.
func (f *Flow) Resume(ctx context.Context) (bool, error) {
	rec, err := f.deps.Tracker.Load(ctx, f.userID, f.module.ID)
	if err != nil {
		return false, err
	}
	if rec == nil {
		return false, nil
	}
	if !catalog.CompatibleVersion(rec.ModuleVersion, f.module.Version) {
		f.logger.Info("discarding progress saved for incompatible module version",
			zap.String("saved", rec.ModuleVersion),
			zap.String("current", f.module.Version))
		return false, nil
	}

	f.engine = f.newEngine()
	f.engine.Restore(*rec)
	f.phase = PhaseTasks
	return true, nil
}

// Start leaves the intro.
func (f *Flow) Start() bool {
	if f.phase != PhaseIntro {
		return false
	}
	if len(f.module.Questions) == 0 {
		f.enterTasks(context.Background())
		return true
	}
	f.phase = PhaseQuestions
	return true
}

// Restart discards in-memory state and returns to the intro. Saved
// progress and awarded badges are kept.
func (f *Flow) Restart() {
	f.phase = PhaseIntro
	f.engine = nil
	f.award = nil
	f.clearAnswers()
}

// Answers returns the recorded choice per question, -1 when unanswered.
func (f *Flow) Answers() []int {
	return append([]int(nil), f.answers...)
}

// Answer records choice for question q and reports whether it is correct.
// ok is false when the call does not apply.
func (f *Flow) Answer(q, choice int) (correct, ok bool) {
	if f.phase != PhaseQuestions || q < 0 || q >= len(f.module.Questions) {
		return false, false
	}
	question := f.module.Questions[q]
	if choice < 0 || choice >= len(question.Choices) {
		return false, false
	}
	f.answers[q] = choice
	return choice == question.CorrectIndex, true
}

// Score returns the number of correct answers and the question count.
func (f *Flow) Score() (correct, total int) {
	for i, q := range f.module.Questions {
		if f.answers[i] == q.CorrectIndex {
			correct++
		}
	}
	return correct, len(f.module.Questions)
}

// FinishQuiz grades the quiz. Passing enters the task phase; failing
// clears the answers for another try. Unanswered questions count as wrong.
func (f *Flow) FinishQuiz(ctx context.Context) bool {
	if f.phase != PhaseQuestions {
		return false
	}
	correct, total := f.Score()
	passed := total == 0 || float64(correct)/float64(total) >= f.settings.PassRatio
	f.logger.Info("quiz finished",
		zap.Int("correct", correct),
		zap.Int("total", total),
		zap.Bool("passed", passed))

	if !passed {
		f.clearAnswers()
		return false
	}
	f.enterTasks(ctx)
	return true
}

func (f *Flow) enterTasks(ctx context.Context) {
	f.engine = f.newEngine()
	f.phase = PhaseTasks
	f.save(ctx)
}

func (f *Flow) newEngine() *progression.Engine {
	return progression.New(f.module, f.deps.Validator,
		progression.WithClock(f.settings.Now),
		progression.WithPolicy(f.settings.Policy),
		progression.WithLogger(f.logger))
}

// Submit validates input for task i.
func (f *Flow) Submit(ctx context.Context, i int, raw string) validation.Result {
	if f.phase != PhaseTasks {
		return validation.Reject("Tasks are not open yet.")
	}

	before, _ := f.engine.Task(i)
	res := f.engine.Submit(ctx, i, raw)
	after, _ := f.engine.Task(i)

	if after.Attempts > before.Attempts {
		f.recordSubmission(ctx, i, after.Attempts, res)
		f.recordHints(ctx, i, before.Hints.Level, after.Hints.Level, false)
		f.save(ctx)
	}
	return res
}

// Advance moves to the next task.
func (f *Flow) Advance() bool {
	return f.phase == PhaseTasks && f.engine.Advance()
}

// RequestHint reveals one more hint for the current task.
func (f *Flow) RequestHint(ctx context.Context) bool {
	if f.phase != PhaseTasks {
		return false
	}
	i := f.engine.Current()
	before, _ := f.engine.Task(i)
	if !f.engine.RequestHint() {
		return false
	}
	after, _ := f.engine.Task(i)
	f.recordHints(ctx, i, before.Hints.Level, after.Hints.Level, true)
	f.save(ctx)
	return true
}

// Tick evaluates hint timers of the current task at now.
func (f *Flow) Tick(ctx context.Context, now time.Time) bool {
	if f.phase != PhaseTasks {
		return false
	}
	return f.observe(ctx, func() bool { return f.engine.Tick(now) })
}

// TimerFired handles a hint timer armed for epoch.
func (f *Flow) TimerFired(ctx context.Context, epoch uint64, now time.Time) bool {
	if f.phase != PhaseTasks {
		return false
	}
	return f.observe(ctx, func() bool { return f.engine.TimerFired(epoch, now) })
}

func (f *Flow) observe(ctx context.Context, fn func() bool) bool {
	i := f.engine.Current()
	before, _ := f.engine.Task(i)
	if !fn() {
		return false
	}
	after, _ := f.engine.Task(i)
	f.recordHints(ctx, i, before.Hints.Level, after.Hints.Level, false)
	f.save(ctx)
	return true
}

// FinishTasks completes the module once every task is done, awarding the
// badge exactly once.
func (f *Flow) FinishTasks(ctx context.Context) (*badges.Award, error) {
	switch {
	case f.phase == PhaseCompleted:
		if f.award != nil || f.deps.Badges == nil {
			return f.award, nil
		}
		// An earlier award failed; try again.
	case f.phase != PhaseTasks || !f.engine.IsModuleComplete():
		return nil, badges.ErrIncomplete
	default:
		f.phase = PhaseCompleted
		f.save(ctx)
	}

	if f.deps.Badges == nil {
		return nil, nil
	}

	tally := f.engine.Complete()
	rec := f.engine.Progress(f.userID)
	award, err := f.deps.Badges.Award(ctx, f.userID, badges.Badge{
		ModuleID: f.module.ID,
		Name:     f.module.Badge.Name,
		Icon:     f.module.Badge.Icon,
	}, badges.Stats{
		CompletedCount: tally.CompletedCount,
		TotalTasks:     tally.TotalTasks,
		HintsUsed:      rec.HintsUsed,
		Attempts:       rec.Attempts,
	})
	if errors.Is(err, badges.ErrAlreadyAwarded) {
		f.award = award
		return award, nil
	}
	if err != nil {
		f.logger.Error("award badge", zap.Error(err))
		return nil, err
	}
	f.award = award
	return award, nil
}

// Progress returns the current progress snapshot, or nil before the task
// phase.
func (f *Flow) Progress() *progress.Record {
	if f.engine == nil {
		return nil
	}
	rec := f.engine.Progress(f.userID)
	return &rec
}

func (f *Flow) save(ctx context.Context) {
	if f.engine == nil {
		return
	}
	if err := f.deps.Tracker.Save(ctx, f.engine.Progress(f.userID)); err != nil {
		f.logger.Warn("save progress", zap.Error(err))
	}
}

func (f *Flow) recordSubmission(ctx context.Context, i, attempt int, res validation.Result) {
	if f.deps.Events == nil {
		return
	}
	_ = f.deps.Events.AppendSubmission(ctx, store.SubmissionEventData{
		UserID:   f.userID,
		ModuleID: f.module.ID,
		TaskID:   f.module.Tasks[i].ID,
		Attempt:  attempt,
		Verdict:  string(res.Verdict),
		Success:  res.Success,
		Message:  res.Message,
	})
}

func (f *Flow) recordHints(ctx context.Context, i, from, to int, manual bool) {
	if to <= from {
		return
	}
	task := f.module.Tasks[i]
	f.logger.Debug("hint revealed",
		zap.String("task", task.ID),
		zap.Int("level", to),
		zap.Bool("manual", manual))
	if f.deps.Events == nil {
		return
	}
	for level := from + 1; level <= to; level++ {
		_ = f.deps.Events.AppendHint(ctx, store.HintEventData{
			UserID:   f.userID,
			ModuleID: f.module.ID,
			TaskID:   task.ID,
			Level:    level,
			Manual:   manual,
		})
	}
}

func (f *Flow) clearAnswers() {
	f.answers = make([]int, len(f.module.Questions))
	for i := range f.answers {
		f.answers[i] = -1
	}
}

// HintTexts returns the visible hint texts of task i.
func (f *Flow) HintTexts(i int) []string {
	if f.engine == nil || i < 0 || i >= len(f.module.Tasks) {
		return nil
	}
	st, _ := f.engine.Task(i)
	out := make([]string, 0, len(st.Hints.Revealed))
	for _, idx := range st.Hints.Revealed {
		out = append(out, strings.TrimSpace(f.module.Tasks[i].Hints[idx]))
	}
	return out
}
