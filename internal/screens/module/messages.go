package module

import (
	"time"

	"github.com/satslab/satslab/internal/badges"
	"github.com/satslab/satslab/internal/learner"
	"github.com/satslab/satslab/internal/validation"
)

// openedMsg is sent when the learner's session for the module is ready.
type openedMsg struct {
	Session *learner.Session
	Created bool
	Err     error
}

// submittedMsg carries the result of an asynchronous task submission.
type submittedMsg struct {
	Index  int
	Result validation.Result
}

// hintTimerMsg fires at a hint deadline. epoch ties it to the scheduler
// that armed it and id to the screen.
type hintTimerMsg struct {
	id    uint64
	epoch uint64
	at    time.Time
}

// tutorPollMsg asks the screen to check for a tutor explanation.
type tutorPollMsg struct{}

// finishedMsg is sent when the module has been completed.
type finishedMsg struct {
	Award *badges.Award
	Err   error
}
