package store

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

func (r *eventRepo) AppendSubmission(ctx context.Context, data SubmissionEventData) error {
	return r.appendEvent(ctx, "submission_events",
		[]string{"user_id", "module_id", "task_id", "attempt", "verdict", "success", "message"},
		[]any{data.UserID, data.ModuleID, data.TaskID, data.Attempt, data.Verdict, data.Success, data.Message},
	)
}

func (r *eventRepo) QuerySubmissions(ctx context.Context, opts QueryOpts) ([]SubmissionRecord, error) {
	sel := builder().Select("user_id", "module_id", "task_id", "attempt", "verdict", "success", "message", "sequence", "timestamp").
		From(builder().Table("submission_events")).
		OrderBy(entsql.Desc("sequence"))

	var preds []*entsql.Predicate
	if opts.UserID != "" {
		preds = append(preds, entsql.EQ("user_id", opts.UserID))
	}
	if opts.ModuleID != "" {
		preds = append(preds, entsql.EQ("module_id", opts.ModuleID))
	}
	if opts.After > 0 {
		preds = append(preds, entsql.GT("sequence", opts.After))
	}
	if opts.Before > 0 {
		preds = append(preds, entsql.LT("sequence", opts.Before))
	}
	if !opts.From.IsZero() {
		preds = append(preds, entsql.GTE("timestamp", opts.From.UTC()))
	}
	if !opts.To.IsZero() {
		preds = append(preds, entsql.LTE("timestamp", opts.To.UTC()))
	}
	if len(preds) > 0 {
		sel = sel.Where(entsql.And(preds...))
	}
	if opts.Limit > 0 {
		sel = sel.Limit(opts.Limit)
	}

	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query submission events: %w", err)
	}
	defer rows.Close()

	var records []SubmissionRecord
	for rows.Next() {
		var rec SubmissionRecord
		if err := rows.Scan(&rec.UserID, &rec.ModuleID, &rec.TaskID, &rec.Attempt, &rec.Verdict,
			&rec.Success, &rec.Message, &rec.Sequence, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("scan submission event: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
