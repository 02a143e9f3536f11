// Package progress persists per-learner module progress.
package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/satslab/satslab/internal/store"
)

// Record is the saved progress of one learner in one module.
type Record struct {
	UserID           string        `json:"user_id"`
	ModuleID         string        `json:"module_id"`
	ModuleVersion    string        `json:"module_version"`
	CompletedTaskIDs []string      `json:"completed_task_ids"`
	HintsUsed        int           `json:"hints_used"`
	TimeSpent        time.Duration `json:"time_spent"`
	Attempts         int           `json:"attempts"`
	UpdatedAt        time.Time     `json:"updated_at"`

	// CurrentHints is the part of HintsUsed shown on the unfinished task.
	CurrentHints int    `json:"current_hints,omitempty"`
	// PriorValue is the last accepted transaction id, if any.
	PriorValue   string `json:"prior_value,omitempty"`
}

// Tracker saves and loads progress records.
type Tracker interface {
	// Save stores rec, replacing any previous record for the same
	// learner and module.
	Save(ctx context.Context, rec Record) error

	// Load returns the saved record, or (nil, nil) when there is none.
	Load(ctx context.Context, userID, moduleID string) (*Record, error)
}

// Guest is the Tracker for anonymous learners. It keeps nothing.
type Guest struct{}

func (Guest) Save(context.Context, Record) error { return nil }

func (Guest) Load(context.Context, string, string) (*Record, error) { return nil, nil }

// StoreTracker persists records in the SQLite store.
type StoreTracker struct {
	repo store.ProgressRepo
}

// NewStoreTracker creates a StoreTracker.
func NewStoreTracker(repo store.ProgressRepo) *StoreTracker {
	return &StoreTracker{repo: repo}
}

func (t *StoreTracker) Save(ctx context.Context, rec Record) error {
	if rec.UserID == "" {
		return fmt.Errorf("save progress: empty user id")
	}
	return t.repo.Upsert(ctx, store.ProgressRow{
		UserID:           rec.UserID,
		ModuleID:         rec.ModuleID,
		ModuleVersion:    rec.ModuleVersion,
		CompletedTaskIDs: rec.CompletedTaskIDs,
		HintsUsed:        rec.HintsUsed,
		TimeSpent:        rec.TimeSpent,
		Attempts:         rec.Attempts,
		UpdatedAt:        rec.UpdatedAt,
		CurrentHints:     rec.CurrentHints,
		PriorValue:       rec.PriorValue,
	})
}

func (t *StoreTracker) Load(ctx context.Context, userID, moduleID string) (*Record, error) {
	row, err := t.repo.Get(ctx, userID, moduleID)
	if err != nil || row == nil {
		return nil, err
	}
	rec := fromRow(*row)
	return &rec, nil
}

// List returns every saved record of a learner.
func (t *StoreTracker) List(ctx context.Context, userID string) ([]Record, error) {
	rows, err := t.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]Record, len(rows))
	for i, row := range rows {
		out[i] = fromRow(row)
	}
	return out, nil
}

func fromRow(row store.ProgressRow) Record {
	return Record{
		UserID:           row.UserID,
		ModuleID:         row.ModuleID,
		ModuleVersion:    row.ModuleVersion,
		CompletedTaskIDs: row.CompletedTaskIDs,
		HintsUsed:        row.HintsUsed,
		TimeSpent:        row.TimeSpent,
		Attempts:         row.Attempts,
		UpdatedAt:        row.UpdatedAt,
		CurrentHints:     row.CurrentHints,
		PriorValue:       row.PriorValue,
	}
}

// Done reports whether every id in taskIDs appears in the record.
func (r *Record) Done(taskIDs []string) bool {
	if r == nil {
		return false
	}
	have := make(map[string]bool, len(r.CompletedTaskIDs))
	for _, id := range r.CompletedTaskIDs {
		have[id] = true
	}
	for _, id := range taskIDs {
		if !have[id] {
			return false
		}
	}
	return true
}
