// Package module runs one learner through a module: intro, quiz, tasks
// with hints and the tutor, and the completion summary.
package module

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/satslab/satslab/internal/catalog"
	"github.com/satslab/satslab/internal/flow"
	"github.com/satslab/satslab/internal/learner"
	"github.com/satslab/satslab/internal/progression"
	"github.com/satslab/satslab/internal/router"
	"github.com/satslab/satslab/internal/screen"
	"github.com/satslab/satslab/internal/tutor"
	"github.com/satslab/satslab/internal/ui/components"
	"github.com/satslab/satslab/internal/ui/layout"
	"github.com/satslab/satslab/internal/validation"
)

const (
	clockInterval = time.Second
	tutorInterval = 300 * time.Millisecond
	minTimerDelay = 10 * time.Millisecond
)

var screenIDs atomic.Uint64

// Options are the collaborators shared by module screens.
type Options struct {
	Catalog  *catalog.Catalog
	Registry *learner.Registry
	UserID   string
	Tutor    *tutor.Service
	Now      func() time.Time
}

// ModuleScreen implements screen.Screen for one module.
type ModuleScreen struct {
	opts   Options
	module *catalog.Module
	id     uint64

	sess   *learner.Session
	snap   snapshot
	errMsg string
	notice string

	// Quiz presentation.
	question int
	mc       components.MultiChoice
	answered bool
	failed   *quizScore

	// Task presentation. viewing may trail the engine's current task.
	viewing    int
	input      components.TextInput
	checking   bool
	finishing  bool
	awardErr   bool
	timerEpoch uint64
	timerAt    time.Time

	tutorKey     string
	tutorWaiting bool
	explanation  *tutor.Explanation
	tutorErr     string
}

type quizScore struct {
	correct, total int
}

var _ screen.Screen = (*ModuleScreen)(nil)
var _ screen.KeyHintProvider = (*ModuleScreen)(nil)
var _ screen.EscapeHandler = (*ModuleScreen)(nil)

// New creates a ModuleScreen for m.
func New(opts Options, m *catalog.Module) *ModuleScreen {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &ModuleScreen{
		opts:   opts,
		module: m,
		id:     screenIDs.Add(1),
		input:  components.NewTextInput("", 0),
	}
}

func (s *ModuleScreen) Init() tea.Cmd {
	reg, userID, moduleID := s.opts.Registry, s.opts.UserID, s.module.ID
	return tea.Batch(
		func() tea.Msg {
			sess, created, err := reg.Open(context.Background(), userID, moduleID)
			return openedMsg{Session: sess, Created: created, Err: err}
		},
		s.clockCmd(),
	)
}

func (s *ModuleScreen) Title() string {
	return s.module.Title
}

// HandlesEscape reports whether Esc should return to the current task
// instead of leaving the module.
func (s *ModuleScreen) HandlesEscape() bool {
	return s.snap.phase == flow.PhaseTasks && s.viewing != s.snap.current
}

func (s *ModuleScreen) KeyHints() []layout.KeyHint {
	switch s.snap.phase {
	case flow.PhaseIntro:
		return []layout.KeyHint{{Key: "Enter", Description: "Start"}, {Key: "Esc", Description: "Back"}}
	case flow.PhaseQuestions:
		if s.answered || s.failed != nil {
			return []layout.KeyHint{{Key: "Enter", Description: "Continue"}, {Key: "Esc", Description: "Back"}}
		}
		return []layout.KeyHint{{Key: "↑↓", Description: "Choose"}, {Key: "Enter", Description: "Answer"}, {Key: "Esc", Description: "Back"}}
	case flow.PhaseTasks:
		hints := []layout.KeyHint{
			{Key: "Enter", Description: "Submit"},
			{Key: "Tab", Description: "Hint"},
			{Key: "PgUp/PgDn", Description: "Browse"},
		}
		if s.opts.Tutor != nil {
			hints = append(hints, layout.KeyHint{Key: "Ctrl+T", Description: "Tutor"})
		}
		return append(hints, layout.KeyHint{Key: "Esc", Description: "Back"})
	case flow.PhaseCompleted:
		return []layout.KeyHint{{Key: "Enter", Description: "Next module"}, {Key: "R", Description: "Restart"}, {Key: "Esc", Description: "Home"}}
	}
	return nil
}

func (s *ModuleScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case openedMsg:
		return s.handleOpened(msg)
	case submittedMsg:
		return s.handleSubmitted(msg)
	case hintTimerMsg:
		return s.handleHintTimer(msg)
	case clockTickMsg:
		if msg.id != s.id {
			return s, nil
		}
		return s, s.clockCmd()
	case tutorPollMsg:
		return s.handleTutorPoll()
	case finishedMsg:
		return s.handleFinished(msg)
	case tea.KeyPressMsg:
		return s.handleKey(msg)
	}

	if s.taskInputActive() {
		var cmd tea.Cmd
		s.input, cmd = s.input.Update(msg)
		return s, cmd
	}
	return s, nil
}

// clockTickMsg redraws countdowns. It is tagged with the screen so a
// replaced screen's ticks die out.
type clockTickMsg struct{ id uint64 }

func (s *ModuleScreen) clockCmd() tea.Cmd {
	id := s.id
	return tea.Tick(clockInterval, func(time.Time) tea.Msg { return clockTickMsg{id: id} })
}

// do runs fn on the flow and refreshes the snapshot.
func (s *ModuleScreen) do(fn func(f *flow.Flow)) {
	if s.sess == nil {
		return
	}
	_ = s.sess.Do(func(f *flow.Flow) error {
		if fn != nil {
			fn(f)
		}
		s.snap = capture(f, s.opts.Tutor)
		return nil
	})
}

func (s *ModuleScreen) handleOpened(msg openedMsg) (screen.Screen, tea.Cmd) {
	if msg.Err != nil {
		s.errMsg = msg.Err.Error()
		return s, nil
	}
	s.sess = msg.Session
	s.do(nil)

	switch s.snap.phase {
	case flow.PhaseQuestions:
		s.resumeQuiz()
	case flow.PhaseTasks:
		if msg.Created {
			s.notice = "Welcome back! Your saved progress was restored."
		}
		s.syncTask()
	}
	return s, tea.Batch(s.input.Init(), s.armTimer())
}

func (s *ModuleScreen) handleKey(msg tea.KeyPressMsg) (screen.Screen, tea.Cmd) {
	if s.errMsg != "" {
		return s, func() tea.Msg { return router.PopScreenMsg{} }
	}
	if s.sess == nil {
		return s, nil
	}

	switch s.snap.phase {
	case flow.PhaseIntro:
		if msg.String() == "enter" {
			return s.start()
		}
	case flow.PhaseQuestions:
		return s.handleQuizKey(msg)
	case flow.PhaseTasks:
		return s.handleTaskKey(msg)
	case flow.PhaseCompleted:
		return s.handleCompletedKey(msg)
	}
	return s, nil
}

func (s *ModuleScreen) start() (screen.Screen, tea.Cmd) {
	s.do(func(f *flow.Flow) { f.Start() })
	switch s.snap.phase {
	case flow.PhaseQuestions:
		s.loadQuestion(0)
	case flow.PhaseTasks:
		s.syncTask()
		return s, s.armTimer()
	}
	return s, nil
}

// Quiz.

func (s *ModuleScreen) loadQuestion(i int) {
	q := s.module.Questions[i]
	s.question = i
	s.answered = false
	s.mc = components.NewMultiChoice(q.Prompt, q.Choices)
}

// resumeQuiz continues at the first unanswered question.
func (s *ModuleScreen) resumeQuiz() {
	for i, a := range s.snap.answers {
		if a < 0 {
			s.loadQuestion(i)
			return
		}
	}
	last := len(s.module.Questions) - 1
	s.loadQuestion(last)
	s.mc.Selected = s.snap.answers[last]
	s.mc.Submitted = true
	s.mc.ChosenIndex = s.snap.answers[last]
	s.mc.Reveal(s.module.Questions[last].CorrectIndex)
	s.answered = true
}

func (s *ModuleScreen) handleQuizKey(msg tea.KeyPressMsg) (screen.Screen, tea.Cmd) {
	if s.failed != nil {
		if msg.String() == "enter" {
			s.failed = nil
			s.loadQuestion(0)
		}
		return s, nil
	}

	if !s.answered {
		s.mc, _ = s.mc.Update(msg)
		if s.mc.Submitted {
			choice := s.mc.ChosenIndex
			s.do(func(f *flow.Flow) { f.Answer(s.question, choice) })
			s.mc.Reveal(s.module.Questions[s.question].CorrectIndex)
			s.answered = true
		}
		return s, nil
	}

	if msg.String() != "enter" {
		return s, nil
	}
	if s.question < len(s.module.Questions)-1 {
		s.loadQuestion(s.question + 1)
		return s, nil
	}

	var passed bool
	var score quizScore
	s.do(func(f *flow.Flow) {
		score.correct, score.total = f.Score()
		passed = f.FinishQuiz(context.Background())
	})
	if !passed {
		s.failed = &score
		return s, nil
	}
	s.notice = fmt.Sprintf("Quiz passed with %d of %d correct. Time for hands-on tasks!", score.correct, score.total)
	s.syncTask()
	return s, s.armTimer()
}

// Tasks.

func (s *ModuleScreen) taskInputActive() bool {
	if s.snap.phase != flow.PhaseTasks || s.checking || s.viewing != s.snap.current {
		return false
	}
	st, ok := s.snap.task(s.viewing)
	return ok && st.Status != progression.Completed
}

// syncTask points the view at the current task and loads its input.
// Earlier tasks are shown read-only, so only the current one has an input.
func (s *ModuleScreen) syncTask() {
	s.viewing = s.snap.current
	if s.viewing >= len(s.module.Tasks) {
		return
	}
	task := s.module.Tasks[s.viewing]
	s.input = components.NewTextInput(task.InputPlaceholder, 0)
	st, ok := s.snap.task(s.viewing)
	if !ok {
		return
	}
	s.input.SetValue(st.CurrentInput)
	if st.LastResult != nil {
		s.input.SetMark(markFor(*st.LastResult))
	}
}

func markFor(res validation.Result) components.Mark {
	switch res.Verdict {
	case validation.VerdictConfirmed:
		return components.MarkAccepted
	case validation.VerdictUnverified:
		return components.MarkUnverified
	case validation.VerdictRejected:
		return components.MarkRejected
	}
	return components.MarkNone
}

func (s *ModuleScreen) handleTaskKey(msg tea.KeyPressMsg) (screen.Screen, tea.Cmd) {
	if s.checking || s.finishing {
		return s, nil
	}

	switch msg.String() {
	case "esc":
		s.viewing = s.snap.current
		return s, nil
	case "pgup":
		if s.viewing > 0 {
			s.viewing--
		}
		return s, nil
	case "pgdown":
		if s.viewing < s.snap.current {
			s.viewing++
		}
		return s, nil
	case "tab":
		return s.requestHint()
	case "ctrl+t":
		return s.askTutor()
	case "enter":
		return s.enter()
	}

	if s.taskInputActive() {
		var cmd tea.Cmd
		s.input, cmd = s.input.Update(msg)
		return s, cmd
	}
	return s, nil
}

func (s *ModuleScreen) enter() (screen.Screen, tea.Cmd) {
	if s.viewing != s.snap.current {
		s.viewing = s.snap.current
		return s, nil
	}
	st, ok := s.snap.task(s.viewing)
	if !ok {
		return s, nil
	}

	if st.Status != progression.Completed {
		raw := s.input.Value()
		if strings.TrimSpace(raw) == "" {
			return s, nil
		}
		s.checking = true
		s.notice = ""
		return s, s.submitCmd(s.viewing, raw)
	}

	if s.snap.tally.Done() {
		s.finishing = true
		return s, s.finishCmd()
	}

	var advanced bool
	s.do(func(f *flow.Flow) { advanced = f.Advance() })
	if advanced {
		s.notice = ""
		s.explanation, s.tutorErr = nil, ""
		s.syncTask()
	}
	return s, s.armTimer()
}

func (s *ModuleScreen) submitCmd(index int, raw string) tea.Cmd {
	sess := s.sess
	return func() tea.Msg {
		var res validation.Result
		_ = sess.Do(func(f *flow.Flow) error {
			res = f.Submit(context.Background(), index, raw)
			return nil
		})
		return submittedMsg{Index: index, Result: res}
	}
}

func (s *ModuleScreen) handleSubmitted(msg submittedMsg) (screen.Screen, tea.Cmd) {
	s.checking = false
	s.do(nil)
	if msg.Index == s.snap.current {
		s.input.SetMark(markFor(msg.Result))
	}
	if msg.Result.Success {
		if s.snap.tally.Done() {
			s.notice = "Every task is done! Press Enter to claim your badge."
		} else {
			s.notice = "Task complete. Press Enter for the next one."
		}
	}
	return s, s.armTimer()
}

func (s *ModuleScreen) requestHint() (screen.Screen, tea.Cmd) {
	var revealed bool
	s.do(func(f *flow.Flow) { revealed = f.RequestHint(context.Background()) })
	if !revealed {
		s.notice = "No hint available yet. Hints unlock with time or after a couple of attempts."
		return s, nil
	}
	s.notice = ""
	s.viewing = s.snap.current
	return s, s.armTimer()
}

// armTimer schedules one tick for the current task's next hint deadline,
// unless that exact timer is already armed.
func (s *ModuleScreen) armTimer() tea.Cmd {
	if s.snap.phase != flow.PhaseTasks || !s.snap.hasDeadline {
		return nil
	}
	if s.snap.epoch == s.timerEpoch && s.snap.deadline.Equal(s.timerAt) {
		return nil
	}
	s.timerEpoch, s.timerAt = s.snap.epoch, s.snap.deadline

	delay := max(s.snap.deadline.Sub(s.opts.Now()), minTimerDelay)
	id, epoch, at := s.id, s.snap.epoch, s.snap.deadline
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return hintTimerMsg{id: id, epoch: epoch, at: at}
	})
}

func (s *ModuleScreen) handleHintTimer(msg hintTimerMsg) (screen.Screen, tea.Cmd) {
	if msg.id != s.id || msg.epoch != s.timerEpoch || !msg.at.Equal(s.timerAt) {
		return s, nil
	}
	s.timerAt = time.Time{}
	if s.checking || s.finishing {
		// The pending command's refresh re-arms.
		return s, nil
	}
	s.do(func(f *flow.Flow) { f.TimerFired(context.Background(), msg.epoch, s.opts.Now()) })
	return s, s.armTimer()
}

// Tutor.

func (s *ModuleScreen) askTutor() (screen.Screen, tea.Cmd) {
	if s.opts.Tutor == nil || s.tutorWaiting {
		return s, nil
	}
	var in tutor.Input
	var ok bool
	var taskID string
	s.do(func(f *flow.Flow) {
		current := f.Engine().Current()
		in, ok = s.opts.Tutor.InputFor(f, current)
		taskID = f.Module().Tasks[current].ID
	})
	if !ok {
		s.notice = "The tutor unlocks once you have seen every hint and tried a few times."
		return s, nil
	}

	s.tutorKey = strings.Join([]string{s.opts.UserID, s.module.ID, taskID}, "/")
	s.opts.Tutor.Request(context.Background(), s.tutorKey, in)
	s.tutorWaiting = true
	s.explanation, s.tutorErr = nil, ""
	return s, s.tutorPollCmd()
}

func (s *ModuleScreen) tutorPollCmd() tea.Cmd {
	return tea.Tick(tutorInterval, func(time.Time) tea.Msg { return tutorPollMsg{} })
}

func (s *ModuleScreen) handleTutorPoll() (screen.Screen, tea.Cmd) {
	if !s.tutorWaiting || s.opts.Tutor == nil {
		return s, nil
	}
	res, ok := s.opts.Tutor.Consume(s.tutorKey)
	if !ok {
		if s.opts.Tutor.Pending(s.tutorKey) {
			return s, s.tutorPollCmd()
		}
		s.tutorWaiting = false
		return s, nil
	}
	s.tutorWaiting = false
	if res.Err != nil {
		s.tutorErr = "The tutor could not answer right now. Try again in a moment."
		return s, nil
	}
	s.explanation = res.Explanation
	return s, nil
}

// Completion.

func (s *ModuleScreen) finishCmd() tea.Cmd {
	sess := s.sess
	return func() tea.Msg {
		var msg finishedMsg
		_ = sess.Do(func(f *flow.Flow) error {
			msg.Award, msg.Err = f.FinishTasks(context.Background())
			return nil
		})
		return msg
	}
}

func (s *ModuleScreen) handleFinished(msg finishedMsg) (screen.Screen, tea.Cmd) {
	s.finishing = false
	s.do(nil)
	s.notice = ""
	s.awardErr = msg.Err != nil
	if s.awardErr {
		s.notice = "Your badge could not be saved: " + msg.Err.Error() + ". Press Enter to try again."
	}
	return s, nil
}

func (s *ModuleScreen) handleCompletedKey(msg tea.KeyPressMsg) (screen.Screen, tea.Cmd) {
	if s.finishing {
		return s, nil
	}
	switch msg.String() {
	case "enter":
		if s.awardErr {
			s.finishing = true
			return s, s.finishCmd()
		}
		if s.opts.Catalog != nil {
			if next := s.opts.Catalog.Next(s.module.ID); next != nil {
				nextScreen := New(s.opts, next)
				return s, func() tea.Msg { return router.ReplaceScreenMsg{Screen: nextScreen} }
			}
		}
		return s, func() tea.Msg { return router.PopScreenMsg{} }
	case "r", "R":
		s.do(func(f *flow.Flow) { f.Restart() })
		s.notice, s.failed, s.answered, s.awardErr = "", nil, false, false
		s.explanation, s.tutorErr = nil, ""
		s.timerEpoch, s.timerAt = 0, time.Time{}
	}
	return s, nil
}
