package module

import (
	"time"

	"github.com/satslab/satslab/internal/badges"
	"github.com/satslab/satslab/internal/flow"
	"github.com/satslab/satslab/internal/progress"
	"github.com/satslab/satslab/internal/progression"
	"github.com/satslab/satslab/internal/tutor"
)

// snapshot is what the screen renders. It is captured under the session
// lock so View never touches the flow.
type snapshot struct {
	phase   flow.Phase
	answers []int
	correct int
	total   int

	current int
	tasks   []progression.TaskState
	hints   [][]string
	tally   progression.Tally
	award   *badges.Award
	record  *progress.Record

	deadline    time.Time
	epoch       uint64
	hasDeadline bool

	tutorEligible bool
}

func capture(f *flow.Flow, tut *tutor.Service) snapshot {
	snap := snapshot{
		phase:   f.Phase(),
		answers: f.Answers(),
		award:   f.Award(),
	}
	snap.correct, snap.total = f.Score()

	e := f.Engine()
	if e == nil {
		return snap
	}
	snap.current = e.Current()
	snap.tasks = e.Tasks()
	snap.hints = make([][]string, len(snap.tasks))
	for i := range snap.tasks {
		snap.hints[i] = f.HintTexts(i)
	}
	snap.tally = e.Complete()
	snap.record = f.Progress()
	snap.deadline, snap.epoch, snap.hasDeadline = e.NextDeadline()

	if tut != nil && snap.phase == flow.PhaseTasks {
		_, snap.tutorEligible = tut.InputFor(f, snap.current)
	}
	return snap
}

// task returns the snapshot of task i, or false when the engine has not
// started.
func (s snapshot) task(i int) (progression.TaskState, bool) {
	if i < 0 || i >= len(s.tasks) {
		return progression.TaskState{}, false
	}
	return s.tasks[i], true
}
