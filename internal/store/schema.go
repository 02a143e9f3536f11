package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Table layout. Every event table carries a sequence column filled from
// the global_sequence counter so events order across tables.

var (
	progressColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "user_id", Type: field.TypeString},
		{Name: "module_id", Type: field.TypeString},
		{Name: "module_version", Type: field.TypeString},
		{Name: "completed_task_ids", Type: field.TypeJSON},
		{Name: "hints_used", Type: field.TypeInt, Default: 0},
		{Name: "time_spent_secs", Type: field.TypeInt64, Default: 0},
		{Name: "attempts", Type: field.TypeInt, Default: 0},
		{Name: "updated_at", Type: field.TypeTime},
		{Name: "current_hints", Type: field.TypeInt, Default: 0},
		{Name: "prior_value", Type: field.TypeString, Default: ""},
	}
	progressTable = &schema.Table{
		Name:       "progress",
		Columns:    progressColumns,
		PrimaryKey: []*schema.Column{progressColumns[0]},
		Indexes: []*schema.Index{
			{Name: "progress_user_module", Unique: true, Columns: []*schema.Column{progressColumns[1], progressColumns[2]}},
		},
	}

	badgeColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "user_id", Type: field.TypeString},
		{Name: "module_id", Type: field.TypeString},
		{Name: "name", Type: field.TypeString},
		{Name: "icon", Type: field.TypeString, Default: ""},
		{Name: "rarity", Type: field.TypeString},
		{Name: "completed_count", Type: field.TypeInt},
		{Name: "total_tasks", Type: field.TypeInt},
		{Name: "hints_used", Type: field.TypeInt, Default: 0},
		{Name: "attempts", Type: field.TypeInt, Default: 0},
		{Name: "sequence", Type: field.TypeInt64},
		{Name: "awarded_at", Type: field.TypeTime},
	}
	badgeTable = &schema.Table{
		Name:       "badge_awards",
		Columns:    badgeColumns,
		PrimaryKey: []*schema.Column{badgeColumns[0]},
		Indexes: []*schema.Index{
			{Name: "badge_awards_user_module", Unique: true, Columns: []*schema.Column{badgeColumns[1], badgeColumns[2]}},
		},
	}

	submissionColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "timestamp", Type: field.TypeTime},
		{Name: "user_id", Type: field.TypeString},
		{Name: "module_id", Type: field.TypeString},
		{Name: "task_id", Type: field.TypeString},
		{Name: "attempt", Type: field.TypeInt},
		{Name: "verdict", Type: field.TypeString},
		{Name: "success", Type: field.TypeBool},
		{Name: "message", Type: field.TypeString},
	}
	submissionTable = &schema.Table{
		Name:       "submission_events",
		Columns:    submissionColumns,
		PrimaryKey: []*schema.Column{submissionColumns[0]},
		Indexes: []*schema.Index{
			{Name: "submission_events_user_module", Columns: []*schema.Column{submissionColumns[3], submissionColumns[4]}},
		},
	}

	hintColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "timestamp", Type: field.TypeTime},
		{Name: "user_id", Type: field.TypeString},
		{Name: "module_id", Type: field.TypeString},
		{Name: "task_id", Type: field.TypeString},
		{Name: "level", Type: field.TypeInt},
		{Name: "manual", Type: field.TypeBool},
	}
	hintTable = &schema.Table{
		Name:       "hint_events",
		Columns:    hintColumns,
		PrimaryKey: []*schema.Column{hintColumns[0]},
	}

	llmColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "timestamp", Type: field.TypeTime},
		{Name: "provider", Type: field.TypeString},
		{Name: "model", Type: field.TypeString},
		{Name: "purpose", Type: field.TypeString},
		{Name: "input_tokens", Type: field.TypeInt},
		{Name: "output_tokens", Type: field.TypeInt},
		{Name: "latency_ms", Type: field.TypeInt64},
		{Name: "success", Type: field.TypeBool},
		{Name: "error_message", Type: field.TypeString, Default: ""},
	}
	llmTable = &schema.Table{
		Name:       "llm_request_events",
		Columns:    llmColumns,
		PrimaryKey: []*schema.Column{llmColumns[0]},
	}

	tables = []*schema.Table{progressTable, badgeTable, submissionTable, hintTable, llmTable}
)
