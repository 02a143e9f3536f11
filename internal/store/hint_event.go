package store

import (
	"context"
)

func (r *eventRepo) AppendHint(ctx context.Context, data HintEventData) error {
	return r.appendEvent(ctx, "hint_events",
		[]string{"user_id", "module_id", "task_id", "level", "manual"},
		[]any{data.UserID, data.ModuleID, data.TaskID, data.Level, data.Manual},
	)
}
