// Package badges awards a badge once per learner and module.
package badges

import (
	"errors"
	"time"
)

// ErrAlreadyAwarded is returned, together with the existing award, when a
// learner already holds the badge for a module.
var ErrAlreadyAwarded = errors.New("badge already awarded")

// ErrIncomplete is returned when the module tally is not complete.
var ErrIncomplete = errors.New("module not complete")

// Badge describes what is awarded for a module.
type Badge struct {
	ModuleID string
	Name     string
	Icon     string
}

// Stats summarises how the module was finished.
type Stats struct {
	CompletedCount int
	TotalTasks     int
	HintsUsed      int
	Attempts       int
}

// Complete reports whether every task was finished.
func (s Stats) Complete() bool {
	return s.CompletedCount == s.TotalTasks
}

// Award is a badge held by a learner.
type Award struct {
	UserID    string
	Badge     Badge
	Rarity    Rarity
	Stats     Stats
	Sequence  int64
	AwardedAt time.Time
}
