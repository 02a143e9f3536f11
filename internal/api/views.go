package api

import (
	"time"

	"github.com/satslab/satslab/internal/badges"
	"github.com/satslab/satslab/internal/catalog"
	"github.com/satslab/satslab/internal/flow"
	"github.com/satslab/satslab/internal/progress"
	"github.com/satslab/satslab/internal/progression"
	"github.com/satslab/satslab/internal/validation"
)

type moduleSummary struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Summary   string            `json:"summary"`
	Version   string            `json:"version"`
	Profile   string            `json:"profile"`
	Questions int               `json:"question_count"`
	Tasks     int               `json:"task_count"`
	Badge     catalog.BadgeInfo `json:"badge"`
}

func summarize(m *catalog.Module) moduleSummary {
	return moduleSummary{
		ID:        m.ID,
		Title:     m.Title,
		Summary:   m.Summary,
		Version:   m.Version,
		Profile:   m.ValidationProfile().Name,
		Questions: len(m.Questions),
		Tasks:     len(m.Tasks),
		Badge:     m.Badge,
	}
}

// questionView hides the correct answer.
type questionView struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Choices []string `json:"choices"`
}

// taskView hides hint texts; revealed ones come with the session.
type taskView struct {
	ID               string           `json:"id"`
	Title            string           `json:"title"`
	Description      string           `json:"description"`
	Instructions     []string         `json:"instructions"`
	InputLabel       string           `json:"input_label"`
	InputPlaceholder string           `json:"input_placeholder"`
	Kind             validation.Kind  `json:"validation"`
	Field            validation.Field `json:"field,omitempty"`
	HintCount        int              `json:"hint_count"`
	Links            []catalog.Link   `json:"links,omitempty"`
}

type moduleDetail struct {
	moduleSummary
	Intro     []string       `json:"intro"`
	Questions []questionView `json:"questions"`
	Tasks     []taskView     `json:"tasks"`
}

func detail(m *catalog.Module) moduleDetail {
	d := moduleDetail{
		moduleSummary: summarize(m),
		Intro:         m.Intro,
		Questions:     make([]questionView, 0, len(m.Questions)),
		Tasks:         make([]taskView, 0, len(m.Tasks)),
	}
	for _, q := range m.Questions {
		d.Questions = append(d.Questions, questionView{ID: q.ID, Prompt: q.Prompt, Choices: q.Choices})
	}
	for _, t := range m.Tasks {
		d.Tasks = append(d.Tasks, taskView{
			ID:               t.ID,
			Title:            t.Title,
			Description:      t.Description,
			Instructions:     t.Instructions,
			InputLabel:       t.InputLabel,
			InputPlaceholder: t.InputPlaceholder,
			Kind:             t.Kind,
			Field:            t.Field,
			HintCount:        len(t.Hints),
			Links:            t.Links,
		})
	}
	return d
}

type taskSession struct {
	ID string `json:"id"`
	progression.TaskState
	HintTexts []string `json:"hint_texts"`
}

type awardView struct {
	ModuleID   string        `json:"module_id"`
	Name       string        `json:"name"`
	Icon       string        `json:"icon"`
	Rarity     badges.Rarity `json:"rarity"`
	RarityName string        `json:"rarity_name"`
	HintsUsed  int           `json:"hints_used"`
	Attempts   int           `json:"attempts"`
	Sequence   int64         `json:"sequence"`
	AwardedAt  time.Time     `json:"awarded_at"`
}

func viewAward(a *badges.Award) *awardView {
	if a == nil {
		return nil
	}
	return &awardView{
		ModuleID:   a.Badge.ModuleID,
		Name:       a.Badge.Name,
		Icon:       a.Badge.Icon,
		Rarity:     a.Rarity,
		RarityName: a.Rarity.DisplayName(),
		HintsUsed:  a.Stats.HintsUsed,
		Attempts:   a.Stats.Attempts,
		Sequence:   a.Sequence,
		AwardedAt:  a.AwardedAt,
	}
}

type sessionView struct {
	ModuleID string             `json:"module_id"`
	Learner  string             `json:"learner"`
	Guest    bool               `json:"guest"`
	Phase    flow.Phase         `json:"phase"`
	Answers  []int              `json:"answers,omitempty"`
	Current  int                `json:"current_task"`
	Tasks    []taskSession      `json:"tasks,omitempty"`
	Tally    *progression.Tally `json:"tally,omitempty"`
	Progress *progress.Record   `json:"progress,omitempty"`
	Award    *awardView         `json:"award,omitempty"`
}

func viewSession(f *flow.Flow, guest bool) sessionView {
	v := sessionView{
		ModuleID: f.Module().ID,
		Learner:  f.UserID(),
		Guest:    guest,
		Phase:    f.Phase(),
		Award:    viewAward(f.Award()),
	}
	if f.Phase() == flow.PhaseQuestions {
		v.Answers = f.Answers()
	}
	if e := f.Engine(); e != nil {
		v.Current = e.Current()
		tally := e.Complete()
		v.Tally = &tally
		v.Progress = f.Progress()
		for i, st := range e.Tasks() {
			v.Tasks = append(v.Tasks, taskSession{
				ID:        f.Module().Tasks[i].ID,
				TaskState: st,
				HintTexts: f.HintTexts(i),
			})
		}
	}
	return v
}
