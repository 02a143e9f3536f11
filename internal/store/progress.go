package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

type progressRepo struct {
	db *sql.DB
}

var progressSelectColumns = []string{
	"user_id", "module_id", "module_version", "completed_task_ids",
	"hints_used", "time_spent_secs", "attempts", "updated_at",
	"current_hints", "prior_value",
}

func (r *progressRepo) Upsert(ctx context.Context, row ProgressRow) error {
	ids := row.CompletedTaskIDs
	if ids == nil {
		ids = []string{}
	}
	idsJSON, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("marshal completed task ids: %w", err)
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = nowFunc()
	}

	query, args := builder().Insert("progress").
		Columns(progressSelectColumns...).
		Values(row.UserID, row.ModuleID, row.ModuleVersion, idsJSON,
			row.HintsUsed, int64(row.TimeSpent/time.Second), row.Attempts, row.UpdatedAt.UTC(),
			row.CurrentHints, row.PriorValue).
		OnConflict(
			entsql.ConflictColumns("user_id", "module_id"),
			entsql.ResolveWithNewValues(),
		).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}

func (r *progressRepo) Get(ctx context.Context, userID, moduleID string) (*ProgressRow, error) {
	query, args := builder().Select(progressSelectColumns...).
		From(builder().Table("progress")).
		Where(entsql.And(entsql.EQ("user_id", userID), entsql.EQ("module_id", moduleID))).
		Limit(1).
		Query()

	row, err := scanProgress(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	return row, nil
}

func (r *progressRepo) ListByUser(ctx context.Context, userID string) ([]ProgressRow, error) {
	query, args := builder().Select(progressSelectColumns...).
		From(builder().Table("progress")).
		Where(entsql.EQ("user_id", userID)).
		OrderBy("module_id").
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	defer rows.Close()

	var out []ProgressRow
	for rows.Next() {
		row, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		out = append(out, *row)
	}
	return out, rows.Err()
}

func (r *progressRepo) Delete(ctx context.Context, userID, moduleID string) error {
	pred := entsql.EQ("user_id", userID)
	if moduleID != "" {
		pred = entsql.And(pred, entsql.EQ("module_id", moduleID))
	}
	query, args := builder().Delete("progress").Where(pred).Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete progress: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProgress(s scanner) (*ProgressRow, error) {
	var (
		row     ProgressRow
		idsJSON []byte
		secs    int64
	)
	err := s.Scan(&row.UserID, &row.ModuleID, &row.ModuleVersion, &idsJSON,
		&row.HintsUsed, &secs, &row.Attempts, &row.UpdatedAt,
		&row.CurrentHints, &row.PriorValue)
	if err != nil {
		return nil, err
	}
	if len(idsJSON) > 0 {
		if err := json.Unmarshal(idsJSON, &row.CompletedTaskIDs); err != nil {
			return nil, fmt.Errorf("unmarshal completed task ids: %w", err)
		}
	}
	row.TimeSpent = time.Duration(secs) * time.Second
	return &row, nil
}
