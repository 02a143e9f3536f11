package store

import (
	"context"
	"errors"
	"time"
)

// ErrDuplicate is returned when a unique (user, module) row already exists.
var ErrDuplicate = errors.New("store: duplicate record")

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	UserID   string    // exact match (empty = all users)
	ModuleID string    // exact match (empty = all modules)
	Limit    int       // max results (0 = unlimited)
	After    int64     // sequence > After
	Before   int64     // sequence < Before
	From     time.Time // timestamp >= From
	To       time.Time // timestamp <= To
}

// ProgressRow is the persisted progress of one learner in one module.
type ProgressRow struct {
	UserID           string
	ModuleID         string
	ModuleVersion    string
	CompletedTaskIDs []string
	HintsUsed        int
	TimeSpent        time.Duration
	Attempts         int
	UpdatedAt        time.Time

	// CurrentHints is the part of HintsUsed shown on the unfinished task.
	CurrentHints int
	PriorValue   string
}

// ProgressRepo stores one progress row per (user, module).
type ProgressRepo interface {
	// Upsert inserts or replaces the row for (UserID, ModuleID).
	Upsert(ctx context.Context, row ProgressRow) error

	// Get returns the row, or nil if none exists.
	Get(ctx context.Context, userID, moduleID string) (*ProgressRow, error)

	// ListByUser returns every row of a learner.
	ListByUser(ctx context.Context, userID string) ([]ProgressRow, error)

	// Delete removes the rows of a learner. An empty moduleID removes all.
	Delete(ctx context.Context, userID, moduleID string) error
}

// BadgeRow is a badge awarded to a learner for a module.
type BadgeRow struct {
	UserID         string
	ModuleID       string
	Name           string
	Icon           string
	Rarity         string
	CompletedCount int
	TotalTasks     int
	HintsUsed      int
	Attempts       int
	Sequence       int64
	AwardedAt      time.Time
}

// BadgeRepo stores at most one badge per (user, module).
type BadgeRepo interface {
	// Insert stores a new award. It returns ErrDuplicate when the learner
	// already holds the badge for the module.
	Insert(ctx context.Context, row BadgeRow) error

	// Get returns the award, or nil if none exists.
	Get(ctx context.Context, userID, moduleID string) (*BadgeRow, error)

	// List returns a learner's awards, newest first.
	List(ctx context.Context, userID string) ([]BadgeRow, error)

	// Delete removes a learner's awards. An empty moduleID removes all.
	Delete(ctx context.Context, userID, moduleID string) error
}

// SubmissionEventData captures one task submission.
type SubmissionEventData struct {
	UserID   string
	ModuleID string
	TaskID   string
	Attempt  int
	Verdict  string
	Success  bool
	Message  string
}

// SubmissionRecord is a stored submission event.
type SubmissionRecord struct {
	SubmissionEventData
	Sequence  int64
	Timestamp time.Time
}

// HintEventData captures a hint becoming visible.
type HintEventData struct {
	UserID   string
	ModuleID string
	TaskID   string
	Level    int
	Manual   bool
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
}

// LLMRequestRecord is a stored LLM request event.
type LLMRequestRecord struct {
	LLMRequestEventData
	ID        int
	Sequence  int64
	Timestamp time.Time
}

// ModelUsage aggregates LLM token usage for one model.
type ModelUsage struct {
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
}

// EventCounts summarises the event tables.
type EventCounts struct {
	Submissions int
	Accepted    int
	Hints       int
	LLMRequests int
}

// EventRepo provides append access to domain events.
type EventRepo interface {
	// AppendSubmission records a task submission event.
	AppendSubmission(ctx context.Context, data SubmissionEventData) error

	// AppendHint records a hint reveal event.
	AppendHint(ctx context.Context, data HintEventData) error

	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QuerySubmissions returns submission events, newest first.
	QuerySubmissions(ctx context.Context, opts QueryOpts) ([]SubmissionRecord, error)

	// QueryLLMRequests returns LLM request events, newest first. Only the
	// sequence, time and limit options apply.
	QueryLLMRequests(ctx context.Context, opts QueryOpts) ([]LLMRequestRecord, error)

	// LLMUsageByModel aggregates LLM token usage per model.
	LLMUsageByModel(ctx context.Context) ([]ModelUsage, error)

	// Counts summarises events, optionally for a single learner.
	Counts(ctx context.Context, userID string) (EventCounts, error)
}
