package catalog

import (
	"github.com/satslab/satslab/internal/validation"
)

// Link is an external reference shown next to a task.
type Link struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Task is one guided exercise. Tasks are immutable after load.
type Task struct {
	ID               string           `json:"id"`
	Title            string           `json:"title"`
	Description      string           `json:"description"`
	Instructions     []string         `json:"instructions"`
	InputLabel       string           `json:"input_label"`
	InputPlaceholder string           `json:"input_placeholder"`
	Kind             validation.Kind  `json:"validation"`
	Field            validation.Field `json:"field,omitempty"`
	Hints            []string         `json:"hints"`
	Links            []Link           `json:"links,omitempty"`
}

// Question is a multiple-choice quiz question.
type Question struct {
	ID           string   `json:"id"`
	Prompt       string   `json:"prompt"`
	Choices      []string `json:"choices"`
	CorrectIndex int      `json:"correct_index"`
	Explanation  string   `json:"explanation"`
}

// BadgeInfo describes the badge a module awards.
type BadgeInfo struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// Module is a lesson unit: an intro, a quiz and a sequence of tasks.
type Module struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Summary string   `json:"summary"`
	Intro   []string `json:"intro"`
	Version string   `json:"version"`

	// ProfileName selects a built-in validation profile. Override replaces
	// individual fields of it.
	ProfileName string                      `json:"profile,omitempty"`
	Override    *validation.ProfileOverride `json:"profile_override,omitempty"`

	Questions []Question `json:"questions"`
	Tasks     []Task     `json:"tasks"`
	Badge     BadgeInfo  `json:"badge"`

	profile validation.Profile
}

// ValidationProfile returns the resolved profile of the module.
func (m *Module) ValidationProfile() validation.Profile {
	return m.profile
}

// TaskIDs returns the task ids in order.
func (m *Module) TaskIDs() []string {
	ids := make([]string, len(m.Tasks))
	for i, t := range m.Tasks {
		ids[i] = t.ID
	}
	return ids
}

// ValidationContext builds the context for a task of this module.
func (m *Module) ValidationContext(taskIndex int, prior string) validation.Context {
	vctx := validation.Context{
		ModuleID:   m.ID,
		Profile:    m.profile,
		Field:      validation.FieldNormal,
		PriorValue: prior,
	}
	if taskIndex >= 0 && taskIndex < len(m.Tasks) && m.Tasks[taskIndex].Field != "" {
		vctx.Field = m.Tasks[taskIndex].Field
	}
	return vctx
}
