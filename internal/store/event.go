package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// sequenceCounter hands out the global monotonic sequence shared by the
// event tables and badge awards. Per-table auto-increment ids cannot order
// a hint against the submission that triggered it; this counter can.
//
// The mutex serializes within the process; the RETURNING clause makes the
// increment atomic at the database level.
type sequenceCounter struct {
	mu sync.Mutex
	db *sql.DB
}

// newSequenceCounter creates a counter and ensures the tracking table exists.
func newSequenceCounter(db *sql.DB) (*sequenceCounter, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS global_sequence (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		next_val INTEGER NOT NULL DEFAULT 1
	)`)
	if err != nil {
		return nil, fmt.Errorf("create sequence table: %w", err)
	}

	_, err = db.Exec(`INSERT OR IGNORE INTO global_sequence (id, next_val) VALUES (1, 1)`)
	if err != nil {
		return nil, fmt.Errorf("seed sequence: %w", err)
	}

	return &sequenceCounter{db: db}, nil
}

// Next atomically returns the next sequence number and increments the counter.
func (sc *sequenceCounter) Next(ctx context.Context) (int64, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	var seq int64
	err := sc.db.QueryRowContext(ctx,
		`UPDATE global_sequence SET next_val = next_val + 1 WHERE id = 1 RETURNING next_val - 1`,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return seq, nil
}

// nowFunc is the clock used for row timestamps.
var nowFunc = time.Now

// eventRepo implements EventRepo backed by the global sequence counter.
type eventRepo struct {
	db  *sql.DB
	seq *sequenceCounter
}

// appendEvent inserts a row into table with the next sequence and the
// current time prepended to the given columns.
func (r *eventRepo) appendEvent(ctx context.Context, table string, columns []string, values []any) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	cols := append([]string{"sequence", "timestamp"}, columns...)
	vals := append([]any{seqNum, nowFunc().UTC()}, values...)
	query, args := builder().Insert(table).Columns(cols...).Values(vals...).Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save %s: %w", table, err)
	}
	return nil
}

func (r *eventRepo) Counts(ctx context.Context, userID string) (EventCounts, error) {
	var c EventCounts

	count := func(table string, extra ...*entsql.Predicate) (int, error) {
		sel := builder().Select("COUNT(*)").From(builder().Table(table))
		preds := extra
		if userID != "" {
			preds = append(preds, entsql.EQ("user_id", userID))
		}
		if len(preds) > 0 {
			sel = sel.Where(entsql.And(preds...))
		}
		query, args := sel.Query()
		var n int
		if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
			return 0, fmt.Errorf("count %s: %w", table, err)
		}
		return n, nil
	}

	var err error
	if c.Submissions, err = count("submission_events"); err != nil {
		return c, err
	}
	if c.Accepted, err = count("submission_events", entsql.EQ("success", true)); err != nil {
		return c, err
	}
	if c.Hints, err = count("hint_events"); err != nil {
		return c, err
	}
	if userID == "" {
		if c.LLMRequests, err = count("llm_request_events"); err != nil {
			return c, err
		}
	}
	return c, nil
}
