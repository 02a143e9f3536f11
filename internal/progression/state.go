package progression

import (
	"time"

	"github.com/satslab/satslab/internal/hints"
	"github.com/satslab/satslab/internal/validation"
)

// TaskStatus is the lifecycle state of one task.
type TaskStatus int

const (
	NotStarted TaskStatus = iota
	InProgress
	Completed
)

func (s TaskStatus) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case InProgress:
		return "in_progress"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status by name.
func (s TaskStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// HintView is the visible hint state of a task.
type HintView struct {
	Level      int    `json:"level"`
	Total      int    `json:"total"`
	Revealed   []int  `json:"revealed"`
	CanRequest bool   `json:"can_request"`
	Epoch      uint64 `json:"epoch"`
}

// TaskState is a snapshot of one task's runtime state.
type TaskState struct {
	Status       TaskStatus         `json:"status"`
	CurrentInput string             `json:"current_input,omitempty"`
	LastResult   *validation.Result `json:"last_result,omitempty"`
	Attempts     int                `json:"attempts"`
	Hints        HintView           `json:"hints"`
	StartedAt    time.Time          `json:"started_at,omitzero"`
	CompletedAt  time.Time          `json:"completed_at,omitzero"`
}

// Tally is the completion count of a module.
type Tally struct {
	CompletedCount int `json:"completed_count"`
	TotalTasks     int `json:"total_tasks"`
}

// Done reports whether every task is completed.
func (t Tally) Done() bool { return t.CompletedCount == t.TotalTasks }

// taskRuntime is the mutable per-task state owned by the Engine.
type taskRuntime struct {
	status      TaskStatus
	input       string
	last        *validation.Result
	attempts    int
	hints       *hints.Scheduler
	startedAt   time.Time
	completedAt time.Time
}

func (t *taskRuntime) snapshot() TaskState {
	st := TaskState{
		Status:       t.status,
		CurrentInput: t.input,
		Attempts:     t.attempts,
		StartedAt:    t.startedAt,
		CompletedAt:  t.completedAt,
	}
	if t.last != nil {
		r := *t.last
		st.LastResult = &r
	}
	if t.hints != nil {
		st.Hints = HintView{
			Level:      t.hints.Level(),
			Total:      t.hints.Total(),
			Revealed:   t.hints.Revealed(),
			CanRequest: t.hints.CanRequest(),
			Epoch:      t.hints.Epoch(),
		}
	}
	return st
}
