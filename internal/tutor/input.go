package tutor

import (
	"strings"

	"github.com/satslab/satslab/internal/flow"
)

// InputFor describes task i of f for the tutor. ok is false outside the
// task phase or when the learner is not yet eligible.
func (s *Service) InputFor(f *flow.Flow, i int) (in Input, ok bool) {
	engine := f.Engine()
	if engine == nil {
		return Input{}, false
	}
	st, found := engine.Task(i)
	if !found {
		return Input{}, false
	}

	failures := st.Attempts
	if st.LastResult != nil && st.LastResult.Success && failures > 0 {
		failures--
	}
	if !s.Eligible(st.Hints.Level, st.Hints.Total, failures) {
		return Input{}, false
	}

	m := f.Module()
	task := m.Tasks[i]
	in = Input{
		ModuleTitle:  m.Title,
		TaskTitle:    task.Title,
		Instructions: strings.Join(task.Instructions, "\n"),
		Kind:         string(task.Kind),
		Hints:        f.HintTexts(i),
		LastInput:    st.CurrentInput,
		Failures:     failures,
	}
	if st.LastResult != nil {
		in.LastMessage = st.LastResult.Message
	}
	return in, true
}
