package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/satslab/satslab/internal/badges"
	"github.com/satslab/satslab/internal/catalog"
	"github.com/satslab/satslab/internal/flow"
	"github.com/satslab/satslab/internal/learner"
	"github.com/satslab/satslab/internal/tutor"
	"github.com/satslab/satslab/internal/validation"
)

// httpError carries a status code out of a session callback.
type httpError struct {
	status  int
	message string
}

func (e *httpError) Error() string { return e.message }

func conflict(msg string) error { return &httpError{status: http.StatusConflict, message: msg} }

func (s *Server) writeErr(w http.ResponseWriter, err error) {
	var he *httpError
	switch {
	case errors.As(err, &he):
		Error(w, he.status, he.message)
	case errors.Is(err, learner.ErrNoSession):
		Error(w, http.StatusNotFound, "no open session for this module")
	case errors.Is(err, catalog.ErrNotFound):
		Error(w, http.StatusNotFound, "module not found")
	default:
		s.logger.Error("session request", zap.Error(err))
		Error(w, http.StatusInternalServerError, "internal error")
	}
}

// withSession runs fn on the learner's open session after firing any hint
// timers that elapsed since the last request.
func (s *Server) withSession(w http.ResponseWriter, r *http.Request, fn func(f *flow.Flow) (any, error)) {
	userID := LearnerFromContext(r.Context())
	sess, err := s.registry.Get(userID, chi.URLParam(r, "moduleID"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	var body any
	err = sess.Do(func(f *flow.Flow) error {
		f.Tick(r.Context(), s.now())
		var ferr error
		body, ferr = fn(f)
		return ferr
	})
	if err != nil {
		s.writeErr(w, err)
		return
	}
	JSON(w, http.StatusOK, body)
}

func (s *Server) view(f *flow.Flow) sessionView {
	return viewSession(f, learner.IsGuest(f.UserID()))
}

func (s *Server) openSession(w http.ResponseWriter, r *http.Request) {
	userID := LearnerFromContext(r.Context())
	sess, created, err := s.registry.Open(r.Context(), userID, chi.URLParam(r, "moduleID"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	var v sessionView
	_ = sess.Do(func(f *flow.Flow) error {
		f.Tick(r.Context(), s.now())
		if f.Phase() == flow.PhaseIntro {
			f.Start()
		}
		v = s.view(f)
		return nil
	})
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	JSON(w, status, v)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(f *flow.Flow) (any, error) {
		return s.view(f), nil
	})
}

// restartSession returns the flow to its intro. Saved progress and badges
// are kept.
func (s *Server) restartSession(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(f *flow.Flow) (any, error) {
		f.Restart()
		return s.view(f), nil
	})
}

type answerRequest struct {
	Question int `json:"question"`
	Choice   int `json:"choice"`
}

type answerResponse struct {
	Correct     bool        `json:"correct"`
	Explanation string      `json:"explanation"`
	Session     sessionView `json:"session"`
}

func (s *Server) answerQuestion(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if !decode(w, r, &req) {
		return
	}
	s.withSession(w, r, func(f *flow.Flow) (any, error) {
		if f.Phase() != flow.PhaseQuestions {
			return nil, conflict("the quiz is not open")
		}
		correct, ok := f.Answer(req.Question, req.Choice)
		if !ok {
			return nil, &httpError{status: http.StatusBadRequest, message: "no such question or choice"}
		}
		return answerResponse{
			Correct:     correct,
			Explanation: f.Module().Questions[req.Question].Explanation,
			Session:     s.view(f),
		}, nil
	})
}

type quizResult struct {
	Passed  bool        `json:"passed"`
	Correct int         `json:"correct"`
	Total   int         `json:"total"`
	Session sessionView `json:"session"`
}

func (s *Server) finishQuiz(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(f *flow.Flow) (any, error) {
		if f.Phase() != flow.PhaseQuestions {
			return nil, conflict("the quiz is not open")
		}
		correct, total := f.Score()
		passed := f.FinishQuiz(r.Context())
		return quizResult{Passed: passed, Correct: correct, Total: total, Session: s.view(f)}, nil
	})
}

type submitRequest struct {
	Input string `json:"input"`
}

type submitResponse struct {
	Result  validation.Result `json:"result"`
	Session sessionView       `json:"session"`
}

func (s *Server) submitTask(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		Error(w, http.StatusBadRequest, "task index must be a number")
		return
	}
	var req submitRequest
	if !decode(w, r, &req) {
		return
	}
	s.withSession(w, r, func(f *flow.Flow) (any, error) {
		if f.Phase() != flow.PhaseTasks {
			return nil, conflict("tasks are not open")
		}
		e := f.Engine()
		if index < 0 || index >= e.Len() {
			return nil, &httpError{status: http.StatusNotFound, message: "task not found"}
		}
		if index > e.Current() {
			return nil, conflict("finish the earlier tasks first")
		}

		before, _ := e.Task(index)
		res := f.Submit(r.Context(), index, req.Input)
		if after, _ := e.Task(index); after.Attempts > before.Attempts {
			kind := f.Module().Tasks[index].Kind
			s.metrics.submissions.WithLabelValues(string(kind), string(res.Verdict)).Inc()
		}
		return submitResponse{Result: res, Session: s.view(f)}, nil
	})
}

func (s *Server) advanceTask(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(f *flow.Flow) (any, error) {
		if !f.Advance() {
			return nil, conflict("the current task is not complete or is the last one")
		}
		return s.view(f), nil
	})
}

func (s *Server) requestHint(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(f *flow.Flow) (any, error) {
		if !f.RequestHint(r.Context()) {
			return nil, conflict("no hint can be revealed right now")
		}
		s.metrics.hints.Inc()
		return s.view(f), nil
	})
}

type finishResponse struct {
	Award   *awardView  `json:"award,omitempty"`
	Session sessionView `json:"session"`
}

func (s *Server) finishTasks(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(f *flow.Flow) (any, error) {
		held := f.Award() != nil
		award, err := f.FinishTasks(r.Context())
		if errors.Is(err, badges.ErrIncomplete) {
			return nil, conflict("the module has unfinished tasks")
		}
		if err != nil {
			return nil, err
		}
		if award != nil && !held {
			s.metrics.awards.WithLabelValues(string(award.Rarity)).Inc()
		}
		return finishResponse{Award: viewAward(award), Session: s.view(f)}, nil
	})
}

// explainTask asks the tutor about the current task. The model call runs
// outside the session lock.
func (s *Server) explainTask(w http.ResponseWriter, r *http.Request) {
	if s.tutor == nil {
		Error(w, http.StatusServiceUnavailable, "the tutor is not configured")
		return
	}

	userID := LearnerFromContext(r.Context())
	sess, err := s.registry.Get(userID, chi.URLParam(r, "moduleID"))
	if err != nil {
		s.writeErr(w, err)
		return
	}

	var in tutor.Input
	err = sess.Do(func(f *flow.Flow) error {
		f.Tick(r.Context(), s.now())
		if f.Phase() != flow.PhaseTasks {
			return conflict("tasks are not open")
		}
		var ok bool
		in, ok = s.tutor.InputFor(f, f.Engine().Current())
		if !ok {
			return conflict("use the hints and a few more attempts first")
		}
		return nil
	})
	if err != nil {
		s.writeErr(w, err)
		return
	}

	exp, err := s.tutor.Explain(r.Context(), in)
	if err != nil {
		s.logger.Warn("tutor explanation failed", zap.String("user", userID), zap.Error(err))
		Error(w, http.StatusBadGateway, "the tutor could not answer")
		return
	}
	JSON(w, http.StatusOK, exp)
}
