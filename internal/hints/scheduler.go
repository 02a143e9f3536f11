// Package hints decides when the hints of a task become visible.
//
// A Scheduler belongs to one task instance. The reveal level only grows:
// automatically after T1 and T2 elapse or after enough failed attempts, and
// manually when the learner asks once they have tried at least twice.
package hints

import "time"

// Policy holds the thresholds of a Scheduler.
type Policy struct {
	FirstDelay     time.Duration // elapsed time that reveals hint 1
	SecondDelay    time.Duration // elapsed time that reveals hint 2
	AttemptTrigger int           // attempts that reveal hint 2
	ManualAfter    int           // attempts before manual requests are allowed
}

// DefaultPolicy returns the standard thresholds.
func DefaultPolicy() Policy {
	return Policy{
		FirstDelay:     60 * time.Second,
		SecondDelay:    120 * time.Second,
		AttemptTrigger: 3,
		ManualAfter:    2,
	}
}

func (p Policy) normalized() Policy {
	d := DefaultPolicy()
	if p.FirstDelay <= 0 {
		p.FirstDelay = d.FirstDelay
	}
	if p.SecondDelay < p.FirstDelay {
		p.SecondDelay = p.FirstDelay
	}
	if p.AttemptTrigger <= 0 {
		p.AttemptTrigger = d.AttemptTrigger
	}
	if p.ManualAfter < 0 {
		p.ManualAfter = d.ManualAfter
	}
	return p
}

// maxAuto is the highest level reached without a manual request.
const maxAuto = 2

// Scheduler tracks the reveal level of one task instance.
type Scheduler struct {
	total    int
	origin   time.Time
	epoch    uint64
	policy   Policy
	level    int
	attempts int
	manual   int
	done     bool
}

// New starts a scheduler for a task with total hints. Elapsed time is
// measured from origin. epoch identifies this instance so timers armed for
// an older instance can be recognised and dropped.
func New(total int, origin time.Time, epoch uint64, policy Policy) *Scheduler {
	if total < 0 {
		total = 0
	}
	return &Scheduler{
		total:  total,
		origin: origin,
		epoch:  epoch,
		policy: policy.normalized(),
	}
}

// Restored builds a completed scheduler with level hints already shown.
func Restored(total, level int, epoch uint64) *Scheduler {
	s := New(total, time.Time{}, epoch, DefaultPolicy())
	s.level = min(max(level, 0), s.total)
	s.done = true
	return s
}

// Resume shows the first level hints at once, as seen in an earlier
// session. It never lowers the level and reports the level reached.
func (s *Scheduler) Resume(level int) int {
	if !s.done {
		s.level = max(s.level, min(level, s.total))
	}
	return s.level
}

// Epoch identifies this scheduler instance.
func (s *Scheduler) Epoch() uint64 { return s.epoch }

// Level returns the number of visible hints.
func (s *Scheduler) Level() int { return s.level }

// Total returns the number of hints of the task.
func (s *Scheduler) Total() int { return s.total }

// Attempts returns the attempts counted by this scheduler.
func (s *Scheduler) Attempts() int { return s.attempts }

// ManualRequests returns how many hints were revealed on request.
func (s *Scheduler) ManualRequests() int { return s.manual }

// Done reports whether the scheduler is frozen.
func (s *Scheduler) Done() bool { return s.done }

// Origin returns the instant elapsed time is measured from.
func (s *Scheduler) Origin() time.Time { return s.origin }

// Revealed returns the indices of the visible hints.
func (s *Scheduler) Revealed() []int {
	out := make([]int, s.level)
	for i := range out {
		out[i] = i
	}
	return out
}

// RecordAttempt counts a non-empty submission and re-evaluates the level.
// It reports whether the level changed.
func (s *Scheduler) RecordAttempt(now time.Time) bool {
	if s.done {
		return false
	}
	s.attempts++
	return s.Observe(now)
}

// Observe re-evaluates the automatic triggers at now. It reports whether
// the level changed.
func (s *Scheduler) Observe(now time.Time) bool {
	if s.done {
		return false
	}
	target := 0
	elapsed := now.Sub(s.origin)
	if elapsed >= s.policy.FirstDelay {
		target = 1
	}
	if elapsed >= s.policy.SecondDelay || s.attempts >= s.policy.AttemptTrigger {
		target = 2
	}
	target = min(target, maxAuto, s.total)
	if target <= s.level {
		return false
	}
	s.level = target
	return true
}

// CanRequest reports whether a manual request would reveal a hint.
func (s *Scheduler) CanRequest() bool {
	return !s.done && s.attempts >= s.policy.ManualAfter && s.level < s.total
}

// Request reveals exactly one more hint if allowed.
func (s *Scheduler) Request() bool {
	if !s.CanRequest() {
		return false
	}
	s.level++
	s.manual++
	return true
}

// Complete freezes the scheduler. Visible hints stay visible.
func (s *Scheduler) Complete() {
	s.done = true
}

// NextDeadline returns when the next time trigger fires. ok is false when
// no time trigger can raise the level any further.
func (s *Scheduler) NextDeadline() (deadline time.Time, ok bool) {
	if s.done {
		return time.Time{}, false
	}
	ceiling := min(maxAuto, s.total)
	switch {
	case s.level < 1 && ceiling >= 1:
		return s.origin.Add(s.policy.FirstDelay), true
	case s.level < 2 && ceiling >= 2:
		return s.origin.Add(s.policy.SecondDelay), true
	}
	return time.Time{}, false
}
