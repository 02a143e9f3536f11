package store

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

func (r *eventRepo) AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error {
	return r.appendEvent(ctx, "llm_request_events",
		[]string{"provider", "model", "purpose", "input_tokens", "output_tokens", "latency_ms", "success", "error_message"},
		[]any{data.Provider, data.Model, data.Purpose, data.InputTokens, data.OutputTokens, data.LatencyMs, data.Success, data.ErrorMessage},
	)
}

func (r *eventRepo) QueryLLMRequests(ctx context.Context, opts QueryOpts) ([]LLMRequestRecord, error) {
	sel := builder().Select("id", "sequence", "timestamp", "provider", "model", "purpose",
		"input_tokens", "output_tokens", "latency_ms", "success", "error_message").
		From(builder().Table("llm_request_events")).
		OrderBy(entsql.Desc("sequence"))

	var preds []*entsql.Predicate
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
		return nil, fmt.Errorf("query llm events: %w", err)
	}
	defer rows.Close()

	var records []LLMRequestRecord
	for rows.Next() {
		var rec LLMRequestRecord
		if err := rows.Scan(&rec.ID, &rec.Sequence, &rec.Timestamp, &rec.Provider, &rec.Model, &rec.Purpose,
			&rec.InputTokens, &rec.OutputTokens, &rec.LatencyMs, &rec.Success, &rec.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scan llm event: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *eventRepo) LLMUsageByModel(ctx context.Context) ([]ModelUsage, error) {
	query, args := builder().
		Select("model", "COUNT(*)", "COALESCE(SUM(input_tokens), 0)", "COALESCE(SUM(output_tokens), 0)").
		From(builder().Table("llm_request_events")).
		GroupBy("model").
		OrderBy("model").
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query llm usage: %w", err)
	}
	defer rows.Close()

	var usage []ModelUsage
	for rows.Next() {
		var u ModelUsage
		if err := rows.Scan(&u.Model, &u.Calls, &u.InputTokens, &u.OutputTokens); err != nil {
			return nil, fmt.Errorf("scan llm usage: %w", err)
		}
		usage = append(usage, u)
	}
	return usage, rows.Err()
}
