package module

import (
	"fmt"
	"strings"
	"time"

	"charm.land/lipgloss/v2"

	"github.com/satslab/satslab/internal/catalog"
	"github.com/satslab/satslab/internal/flow"
	"github.com/satslab/satslab/internal/progression"
	"github.com/satslab/satslab/internal/ui/components"
	"github.com/satslab/satslab/internal/ui/layout"
	"github.com/satslab/satslab/internal/ui/theme"
	"github.com/satslab/satslab/internal/validation"
)

// View renders the screen for the current phase.
func (s *ModuleScreen) View(width, height int) string {
	if s.errMsg != "" {
		return center(width, lipgloss.NewStyle().Foreground(theme.Error).
			Render("\n\n  Could not open this module: "+s.errMsg+"\n\n  Press any key to go back."))
	}
	if s.sess == nil {
		return center(width, lipgloss.NewStyle().Foreground(theme.TextDim).Render("\n\n  Loading module..."))
	}

	var body string
	switch s.snap.phase {
	case flow.PhaseIntro:
		body = s.renderIntro(width)
	case flow.PhaseQuestions:
		body = s.renderQuiz(width)
	case flow.PhaseTasks:
		body = s.renderTasks(width)
	case flow.PhaseCompleted:
		body = s.renderCompleted(width)
	}
	return lipgloss.NewStyle().MaxHeight(height).Render(body)
}

func center(width int, s string) string {
	return lipgloss.NewStyle().Width(width).Align(lipgloss.Center).Render(s)
}

func textWidth(width int) int {
	return min(max(width-8, 20), 90)
}

func (s *ModuleScreen) renderIntro(width int) string {
	m := s.module
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(center(width, theme.Title.Render(m.Title)))
	b.WriteString("\n")
	if m.Summary != "" {
		b.WriteString(center(width, theme.Subtitle.Render(m.Summary)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if len(m.Intro) > 0 {
		card := theme.Card.Width(textWidth(width)).Render(theme.Body.Render(strings.Join(m.Intro, "\n\n")))
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, card))
		b.WriteString("\n\n")
	}

	plan := fmt.Sprintf("%d questions  ·  %d hands-on tasks  ·  badge: %s %s",
		len(m.Questions), len(m.Tasks), m.Badge.Icon, m.Badge.Name)
	b.WriteString(center(width, lipgloss.NewStyle().Foreground(theme.TextDim).Render(plan)))
	b.WriteString("\n\n")
	b.WriteString(center(width, theme.ButtonActive.Render(" Start ")))
	return b.String()
}

func (s *ModuleScreen) renderQuiz(width int) string {
	var b strings.Builder
	total := len(s.module.Questions)

	if s.failed != nil {
		b.WriteString("\n\n")
		b.WriteString(center(width, theme.Incorrect.Render("Not quite there yet")))
		b.WriteString("\n\n")
		b.WriteString(center(width, theme.Body.Render(fmt.Sprintf(
			"You answered %d of %d correctly. Review the explanations and try again to unlock the tasks.",
			s.failed.correct, s.failed.total))))
		b.WriteString("\n\n")
		b.WriteString(center(width, theme.Hint.Render("Press Enter to try the quiz again.")))
		return b.String()
	}

	header := lipgloss.NewStyle().Foreground(theme.Secondary).Bold(true).
		Render(fmt.Sprintf("  Question %d of %d", s.question+1, total))
	b.WriteString(header)
	b.WriteString("\n")
	b.WriteString(layout.Divider(width - 4))
	b.WriteString("\n\n")

	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, s.mc.View()))

	if s.answered {
		q := s.module.Questions[s.question]
		b.WriteString("\n")
		verdict := theme.Correct.Render("Correct!")
		if !s.mc.IsCorrect() {
			verdict = theme.Incorrect.Render("Not quite")
		}
		b.WriteString(center(width, verdict))
		b.WriteString("\n")
		if q.Explanation != "" {
			card := theme.HintCard.Width(textWidth(width)).Render(theme.Body.Render(q.Explanation))
			b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, card))
			b.WriteString("\n")
		}
		next := "Press Enter for the next question."
		if s.question == total-1 {
			next = "Press Enter to see your score."
		}
		b.WriteString(center(width, theme.Hint.Render(next)))
	}
	return b.String()
}

func (s *ModuleScreen) renderTasks(width int) string {
	st, ok := s.snap.task(s.viewing)
	if !ok || s.viewing >= len(s.module.Tasks) {
		return ""
	}
	task := s.module.Tasks[s.viewing]
	tw := textWidth(width)

	var b strings.Builder

	steps := make([]components.Step, len(s.snap.tasks))
	for i, t := range s.snap.tasks {
		switch {
		case t.Status == progression.Completed:
			steps[i] = components.StepDone
		case i == s.snap.current:
			steps[i] = components.StepActive
		}
	}
	left := lipgloss.NewStyle().Foreground(theme.Secondary).Bold(true).
		Render(fmt.Sprintf("  Task %d of %d: %s", s.viewing+1, len(s.module.Tasks), task.Title))
	right := components.Steps(steps, s.viewing)
	line := left
	if pad := width - lipgloss.Width(left) - lipgloss.Width(right) - 4; pad > 0 {
		line += strings.Repeat(" ", pad) + right
	}
	b.WriteString(line)
	b.WriteString("\n")
	b.WriteString(layout.Divider(width - 4))
	b.WriteString("\n")

	if s.viewing != s.snap.current {
		b.WriteString(theme.Hint.Render("  Reviewing an earlier task. Esc returns to the current one."))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if task.Description != "" {
		b.WriteString(lipgloss.NewStyle().Width(tw).PaddingLeft(2).Foreground(theme.Text).Render(task.Description))
		b.WriteString("\n\n")
	}
	for i, step := range task.Instructions {
		b.WriteString(lipgloss.NewStyle().Width(tw).PaddingLeft(2).Foreground(theme.Text).
			Render(fmt.Sprintf("%d. %s", i+1, step)))
		b.WriteString("\n")
	}
	for _, link := range task.Links {
		b.WriteString(lipgloss.NewStyle().PaddingLeft(2).Foreground(theme.Lightning).
			Render(fmt.Sprintf("↗ %s: %s", link.Label, link.URL)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(s.renderAnswer(task, st))
	b.WriteString("\n")
	b.WriteString(s.renderHints(st, tw))
	b.WriteString(s.renderTutor(tw))

	if s.notice != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().PaddingLeft(2).Foreground(theme.Accent).Render(s.notice))
		b.WriteString("\n")
	}
	return b.String()
}

func (s *ModuleScreen) renderAnswer(task catalog.Task, st progression.TaskState) string {
	var b strings.Builder
	label := task.InputLabel
	if label == "" {
		label = "Answer"
	}
	b.WriteString(lipgloss.NewStyle().PaddingLeft(2).Foreground(theme.TextDim).Render(label + ":"))
	b.WriteString(" ")

	if s.viewing == s.snap.current && st.Status != progression.Completed {
		b.WriteString(s.input.View())
	} else {
		b.WriteString(theme.Body.Render(st.CurrentInput))
	}
	b.WriteString("\n")

	switch {
	case s.checking && s.viewing == s.snap.current:
		b.WriteString(lipgloss.NewStyle().PaddingLeft(2).Foreground(theme.TextDim).Render("Checking..."))
		b.WriteString("\n")
	case s.finishing:
		b.WriteString(lipgloss.NewStyle().PaddingLeft(2).Foreground(theme.TextDim).Render("Saving your badge..."))
		b.WriteString("\n")
	case st.LastResult != nil:
		b.WriteString(lipgloss.NewStyle().PaddingLeft(2).Render(resultLine(*st.LastResult)))
		b.WriteString("\n")
	}
	if st.Attempts > 0 {
		b.WriteString(lipgloss.NewStyle().PaddingLeft(2).Foreground(theme.TextDim).
			Render(fmt.Sprintf("Attempts: %d", st.Attempts)))
		b.WriteString("\n")
	}
	return b.String()
}

func resultLine(res validation.Result) string {
	switch res.Verdict {
	case validation.VerdictConfirmed:
		return theme.Correct.Render("✓ " + res.Message)
	case validation.VerdictUnverified:
		return theme.Pending.Render("✓? " + res.Message)
	}
	return theme.Incorrect.Render("✗ " + res.Message)
}

func (s *ModuleScreen) renderHints(st progression.TaskState, tw int) string {
	if st.Hints.Total == 0 {
		return ""
	}
	var b strings.Builder
	texts := s.snap.hints[s.viewing]
	if len(texts) > 0 {
		var hb strings.Builder
		for i, h := range texts {
			if i > 0 {
				hb.WriteString("\n")
			}
			hb.WriteString(fmt.Sprintf("Hint %d: %s", i+1, h))
		}
		b.WriteString(theme.HintCard.Width(tw).MarginLeft(2).Render(theme.Hint.Render(hb.String())))
		b.WriteString("\n")
	}

	status := fmt.Sprintf("Hints %d/%d", st.Hints.Level, st.Hints.Total)
	if s.viewing == s.snap.current && st.Status != progression.Completed {
		switch {
		case st.Hints.CanRequest:
			status += "  ·  Tab for another hint"
		case s.snap.hasDeadline:
			remaining := max(s.snap.deadline.Sub(s.opts.Now()), 0).Round(time.Second)
			status += fmt.Sprintf("  ·  next hint in %s", remaining)
		}
	}
	b.WriteString(lipgloss.NewStyle().PaddingLeft(2).Foreground(theme.TextDim).Render(status))
	b.WriteString("\n")
	return b.String()
}

func (s *ModuleScreen) renderTutor(tw int) string {
	if s.opts.Tutor == nil || s.viewing != s.snap.current {
		return ""
	}
	var b strings.Builder
	switch {
	case s.tutorWaiting:
		b.WriteString(lipgloss.NewStyle().PaddingLeft(2).Foreground(theme.Lightning).Render("The tutor is thinking..."))
		b.WriteString("\n")
	case s.tutorErr != "":
		b.WriteString(lipgloss.NewStyle().PaddingLeft(2).Foreground(theme.Error).Render(s.tutorErr))
		b.WriteString("\n")
	case s.explanation != nil:
		text := s.explanation.Explanation
		if s.explanation.NextStep != "" {
			text += "\n\nNext step: " + s.explanation.NextStep
		}
		card := theme.Card.BorderForeground(theme.Lightning).Width(tw).MarginLeft(2).
			Render(theme.Body.Render(text))
		b.WriteString(card)
		b.WriteString("\n")
	case s.snap.tutorEligible:
		b.WriteString(lipgloss.NewStyle().PaddingLeft(2).Foreground(theme.Lightning).
			Render("Still stuck? Press Ctrl+T to ask the tutor."))
		b.WriteString("\n")
	}
	return b.String()
}

func (s *ModuleScreen) renderCompleted(width int) string {
	var b strings.Builder
	m := s.module

	b.WriteString("\n")
	b.WriteString(center(width, theme.Title.Render("Module complete!")))
	b.WriteString("\n")
	b.WriteString(center(width, theme.Subtitle.Render(m.Title)))
	b.WriteString("\n\n")

	award := s.snap.award
	if award != nil {
		rarity := lipgloss.NewStyle().Foreground(components.RarityColor(award.Rarity)).Bold(true).
			Render(award.Rarity.DisplayName())
		badge := fmt.Sprintf("%s  %s\n%s", award.Badge.Icon, award.Badge.Name, rarity)
		card := theme.Card.BorderForeground(components.RarityColor(award.Rarity)).Align(lipgloss.Center).
			Width(min(40, textWidth(width))).Render(badge)
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, card))
		b.WriteString("\n\n")
	} else {
		b.WriteString(center(width, theme.Hint.Render("Guests finish modules without earning badges.")))
		b.WriteString("\n\n")
	}

	if rec := s.snap.record; rec != nil {
		stats := []string{
			fmt.Sprintf("Tasks      %d/%d", s.snap.tally.CompletedCount, s.snap.tally.TotalTasks),
			fmt.Sprintf("Attempts   %d", rec.Attempts),
			fmt.Sprintf("Hints      %d", rec.HintsUsed),
			fmt.Sprintf("Time       %s", rec.TimeSpent.Round(time.Second)),
		}
		block := lipgloss.NewStyle().Foreground(theme.Text).Render(strings.Join(stats, "\n"))
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, block))
		b.WriteString("\n\n")
	}

	if s.notice != "" {
		b.WriteString(center(width, lipgloss.NewStyle().Foreground(theme.Warning).Render(s.notice)))
		b.WriteString("\n\n")
	}

	next := "Press Enter to return home."
	if s.opts.Catalog != nil {
		if n := s.opts.Catalog.Next(m.ID); n != nil {
			next = "Press Enter to continue with " + n.Title + "."
		}
	}
	b.WriteString(center(width, theme.Hint.Render(next)))
	return b.String()
}
