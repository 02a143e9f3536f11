package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

type badgeRepo struct {
	db  *sql.DB
	seq *sequenceCounter
}

var badgeSelectColumns = []string{
	"user_id", "module_id", "name", "icon", "rarity",
	"completed_count", "total_tasks", "hints_used", "attempts", "sequence", "awarded_at",
}

func (r *badgeRepo) Insert(ctx context.Context, row BadgeRow) error {
	existing, err := r.Get(ctx, row.UserID, row.ModuleID)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrDuplicate
	}

	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}
	if row.AwardedAt.IsZero() {
		row.AwardedAt = nowFunc()
	}

	query, args := builder().Insert("badge_awards").
		Columns(badgeSelectColumns...).
		Values(row.UserID, row.ModuleID, row.Name, row.Icon, row.Rarity,
			row.CompletedCount, row.TotalTasks, row.HintsUsed, row.Attempts, seqNum, row.AwardedAt.UTC()).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		// Lost a race against a concurrent award.
		if again, gerr := r.Get(ctx, row.UserID, row.ModuleID); gerr == nil && again != nil {
			return ErrDuplicate
		}
		return fmt.Errorf("save badge award: %w", err)
	}
	return nil
}

func (r *badgeRepo) Get(ctx context.Context, userID, moduleID string) (*BadgeRow, error) {
	query, args := builder().Select(badgeSelectColumns...).
		From(builder().Table("badge_awards")).
		Where(entsql.And(entsql.EQ("user_id", userID), entsql.EQ("module_id", moduleID))).
		Limit(1).
		Query()

	row, err := scanBadge(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query badge award: %w", err)
	}
	return row, nil
}

func (r *badgeRepo) List(ctx context.Context, userID string) ([]BadgeRow, error) {
	query, args := builder().Select(badgeSelectColumns...).
		From(builder().Table("badge_awards")).
		Where(entsql.EQ("user_id", userID)).
		OrderBy(entsql.Desc("sequence")).
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query badge awards: %w", err)
	}
	defer rows.Close()

	var out []BadgeRow
	for rows.Next() {
		row, err := scanBadge(rows)
		if err != nil {
			return nil, fmt.Errorf("scan badge award: %w", err)
		}
		out = append(out, *row)
	}
	return out, rows.Err()
}

func (r *badgeRepo) Delete(ctx context.Context, userID, moduleID string) error {
	pred := entsql.EQ("user_id", userID)
	if moduleID != "" {
		pred = entsql.And(pred, entsql.EQ("module_id", moduleID))
	}
	query, args := builder().Delete("badge_awards").Where(pred).Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete badge awards: %w", err)
	}
	return nil
}

func scanBadge(s scanner) (*BadgeRow, error) {
	var row BadgeRow
	err := s.Scan(&row.UserID, &row.ModuleID, &row.Name, &row.Icon, &row.Rarity,
		&row.CompletedCount, &row.TotalTasks, &row.HintsUsed, &row.Attempts, &row.Sequence, &row.AwardedAt)
	if err != nil {
		return nil, err
	}
	return &row, nil
}
