// Package progression runs the task phase of a module: it validates
// submissions, tracks per-task state and hints, and moves strictly forward
// through the task list.
package progression

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satslab/satslab/internal/catalog"
	"github.com/satslab/satslab/internal/hints"
	"github.com/satslab/satslab/internal/progress"
	"github.com/satslab/satslab/internal/validation"
)

// ErrEngineMisuse marks calls the UI should have prevented. The engine
// never returns it: misuse becomes a rejected Result or a false return.
var ErrEngineMisuse = errors.New("engine misuse")

// Validator checks one submission.
type Validator interface {
	Validate(ctx context.Context, kind validation.Kind, raw string, vctx validation.Context) validation.Result
}

// Engine owns the runtime state of one module's tasks for one learner.
// It is not safe for concurrent use.
type Engine struct {
	module    *catalog.Module
	validator Validator
	policy    hints.Policy
	now       func() time.Time
	logger    *zap.Logger

	tasks     []taskRuntime
	current   int
	epoch     uint64
	prior     string
	startedAt time.Time

	// Counters carried over from a restored record.
	baseHints    int
	baseAttempts int
	baseTime     time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock used for hint timing.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithPolicy sets the hint thresholds.
func WithPolicy(p hints.Policy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an engine positioned on the first task.
func New(module *catalog.Module, validator Validator, opts ...Option) *Engine {
	e := &Engine{
		module:    module,
		validator: validator,
		policy:    hints.DefaultPolicy(),
		now:       time.Now,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.Reset()
	return e
}

// Reset discards all task state and starts over at the first task.
func (e *Engine) Reset() {
	e.tasks = make([]taskRuntime, len(e.module.Tasks))
	e.current = 0
	e.prior = ""
	e.baseHints, e.baseAttempts, e.baseTime = 0, 0, 0
	e.startedAt = e.now()
	e.start(0)
}

// start begins task i with a fresh scheduler unless it is already underway.
func (e *Engine) start(i int) {
	if i < 0 || i >= len(e.tasks) {
		return
	}
	t := &e.tasks[i]
	if t.status != NotStarted {
		return
	}
	now := e.now()
	e.epoch++
	t.status = InProgress
	t.startedAt = now
	t.hints = hints.New(len(e.module.Tasks[i].Hints), now, e.epoch, e.policy)
}

// Module returns the module being run.
func (e *Engine) Module() *catalog.Module { return e.module }

// Len returns the number of tasks.
func (e *Engine) Len() int { return len(e.tasks) }

// Current returns the index of the current task.
func (e *Engine) Current() int { return e.current }

// Task returns a snapshot of task i.
func (e *Engine) Task(i int) (TaskState, bool) {
	if i < 0 || i >= len(e.tasks) {
		return TaskState{}, false
	}
	return e.tasks[i].snapshot(), true
}

// Tasks returns snapshots of every task.
func (e *Engine) Tasks() []TaskState {
	out := make([]TaskState, len(e.tasks))
	for i := range e.tasks {
		out[i] = e.tasks[i].snapshot()
	}
	return out
}

// Submit validates raw for task i.
//
// Whitespace-only input changes nothing and returns the previous result.
// Submitting to a completed task returns its stored result unchanged.
// Out-of-range or not-yet-reached indices return a rejected result.
func (e *Engine) Submit(ctx context.Context, i int, raw string) validation.Result {
	if i < 0 || i >= len(e.tasks) {
		e.misuse("submit to unknown task", i)
		return validation.Reject("That task does not exist.")
	}
	if i > e.current {
		e.misuse("submit ahead of current task", i)
		return validation.Reject("Finish the earlier tasks first.")
	}

	t := &e.tasks[i]
	if t.status == Completed {
		return *t.last
	}
	if strings.TrimSpace(raw) == "" {
		if t.last != nil {
			return *t.last
		}
		return validation.Reject("Nothing to submit.")
	}

	if t.hints == nil {
		e.start(i)
	}
	now := e.now()
	t.input = raw
	t.attempts++
	t.hints.RecordAttempt(now)

	task := e.module.Tasks[i]
	res := e.validator.Validate(ctx, task.Kind, raw, e.module.ValidationContext(i, e.prior))
	t.last = &res

	if res.Success {
		t.status = Completed
		t.completedAt = now
		t.hints.Complete()
		if task.Kind == validation.KindTransaction && res.Value != "" {
			e.prior = res.Value
		}
	}

	e.logger.Debug("task submission",
		zap.String("module", e.module.ID),
		zap.String("task", task.ID),
		zap.Int("attempt", t.attempts),
		zap.String("verdict", string(res.Verdict)))
	return res
}

// Advance moves to the next task. It only succeeds when the current task
// is completed and is not the last one.
func (e *Engine) Advance() bool {
	if len(e.tasks) == 0 {
		return false
	}
	if e.tasks[e.current].status != Completed || e.current >= len(e.tasks)-1 {
		return false
	}
	e.current++
	e.start(e.current)
	return true
}

// IsModuleComplete reports whether every task is completed. A module
// without tasks is complete.
func (e *Engine) IsModuleComplete() bool {
	for i := range e.tasks {
		if e.tasks[i].status != Completed {
			return false
		}
	}
	return true
}

// Complete returns the tally. It is safe to call at any time.
func (e *Engine) Complete() Tally {
	t := Tally{TotalTasks: len(e.tasks)}
	for i := range e.tasks {
		if e.tasks[i].status == Completed {
			t.CompletedCount++
		}
	}
	return t
}

// RequestHint reveals one more hint for the current task if allowed.
func (e *Engine) RequestHint() bool {
	s := e.currentHints()
	return s != nil && s.Request()
}

// Tick re-evaluates the time triggers of the current task. It reports
// whether a hint became visible.
func (e *Engine) Tick(now time.Time) bool {
	s := e.currentHints()
	return s != nil && s.Observe(now)
}

// TimerFired handles a timer armed for scheduler epoch. Timers from an
// earlier task or a reset engine are ignored.
func (e *Engine) TimerFired(epoch uint64, now time.Time) bool {
	s := e.currentHints()
	if s == nil || s.Epoch() != epoch {
		return false
	}
	return s.Observe(now)
}

// NextDeadline returns when the current task's next hint timer fires and
// the epoch to tag the timer with.
func (e *Engine) NextDeadline() (time.Time, uint64, bool) {
	s := e.currentHints()
	if s == nil {
		return time.Time{}, 0, false
	}
	d, ok := s.NextDeadline()
	return d, s.Epoch(), ok
}

func (e *Engine) currentHints() *hints.Scheduler {
	if len(e.tasks) == 0 {
		return nil
	}
	return e.tasks[e.current].hints
}

// Progress snapshots the engine for persistence.
func (e *Engine) Progress(userID string) progress.Record {
	rec := progress.Record{
		UserID:           userID,
		ModuleID:         e.module.ID,
		ModuleVersion:    e.module.Version,
		CompletedTaskIDs: []string{},
		HintsUsed:        e.baseHints,
		Attempts:         e.baseAttempts,
		TimeSpent:        e.baseTime + e.now().Sub(e.startedAt).Truncate(time.Second),
		UpdatedAt:        e.now(),
	}
	for i := range e.tasks {
		t := &e.tasks[i]
		if t.status == Completed {
			rec.CompletedTaskIDs = append(rec.CompletedTaskIDs, e.module.Tasks[i].ID)
		}
		if t.hints != nil {
			rec.HintsUsed += t.hints.Level()
			if i == e.current && t.status != Completed {
				rec.CurrentHints = t.hints.Level()
			}
		}
		rec.Attempts += t.attempts
	}
	rec.PriorValue = e.prior
	return rec
}

// Restore applies a saved record: listed tasks become completed and the
// pointer moves to the first incomplete task. Unknown task ids are ignored.
func (e *Engine) Restore(rec progress.Record) {
	e.Reset()

	done := make(map[string]bool, len(rec.CompletedTaskIDs))
	for _, id := range rec.CompletedTaskIDs {
		done[id] = true
	}

	// Undo the scheduler Reset started on task 0; it is re-created below.
	if len(e.tasks) > 0 {
		e.tasks[0] = taskRuntime{}
	}

	now := e.now()
	for i, task := range e.module.Tasks {
		if !done[task.ID] {
			continue
		}
		e.epoch++
		e.tasks[i] = taskRuntime{
			status: Completed,
			last: &validation.Result{
				Verdict: validation.VerdictConfirmed,
				Success: true,
				Message: "Completed in an earlier session.",
			},
			hints:       hints.Restored(len(task.Hints), 0, e.epoch),
			completedAt: now,
		}
	}

	e.baseAttempts = rec.Attempts
	e.baseTime = rec.TimeSpent
	e.prior = rec.PriorValue

	e.current = 0
	for e.current < len(e.tasks)-1 && e.tasks[e.current].status == Completed {
		e.current++
	}
	e.start(e.current)

	// Hints already seen on the unfinished task stay visible and are
	// counted once, by its scheduler.
	e.baseHints = rec.HintsUsed
	if t := e.currentHints(); t != nil && e.tasks[e.current].status == InProgress {
		e.baseHints -= t.Resume(rec.CurrentHints)
	}
	e.baseHints = max(e.baseHints, 0)
}

func (e *Engine) misuse(what string, index int) {
	e.logger.Debug(what,
		zap.String("module", e.module.ID),
		zap.Int("index", index),
		zap.Int("current", e.current),
		zap.Error(ErrEngineMisuse))
}
