package api

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/satslab/satslab/internal/validation"
)

func (s *Server) listModules(w http.ResponseWriter, r *http.Request) {
	all := s.catalog.All()
	out := make([]moduleSummary, 0, len(all))
	for _, m := range all {
		out = append(out, summarize(m))
	}
	JSON(w, http.StatusOK, out)
}

func (s *Server) getModule(w http.ResponseWriter, r *http.Request) {
	m, ok := s.module(w, r)
	if !ok {
		return
	}
	JSON(w, http.StatusOK, detail(m))
}

type validateRequest struct {
	Kind     string `json:"kind"`
	Input    string `json:"input"`
	ModuleID string `json:"module_id,omitempty"`
	Profile  string `json:"profile,omitempty"`
	Field    string `json:"field,omitempty"`
}

// validate checks an input without touching any session.
func (s *Server) validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if !decode(w, r, &req) {
		return
	}
	kind, err := validation.ParseKind(strings.TrimSpace(req.Kind))
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	vctx := validation.Context{Field: validation.FieldNormal}
	switch validation.Field(req.Field) {
	case "", validation.FieldNormal:
	case validation.FieldFee:
		vctx.Field = validation.FieldFee
	default:
		Error(w, http.StatusBadRequest, "unknown field "+req.Field)
		return
	}

	switch {
	case req.ModuleID != "":
		m, err := s.catalog.Get(req.ModuleID)
		if err != nil {
			Error(w, http.StatusNotFound, "module not found")
			return
		}
		vctx.ModuleID = m.ID
		vctx.Profile = m.ValidationProfile()
	default:
		p, ok := validation.ProfileByName(req.Profile)
		if !ok {
			Error(w, http.StatusBadRequest, "unknown profile "+req.Profile)
			return
		}
		vctx.Profile = p
	}

	res := s.validator.Validate(r.Context(), kind, req.Input, vctx)
	s.metrics.submissions.WithLabelValues(string(kind), string(res.Verdict)).Inc()
	JSON(w, http.StatusOK, res)
}

func (s *Server) listBadges(w http.ResponseWriter, r *http.Request) {
	if s.badges == nil {
		JSON(w, http.StatusOK, []awardView{})
		return
	}
	userID := LearnerFromContext(r.Context())
	awards, err := s.badges.List(r.Context(), userID)
	if err != nil {
		s.logger.Error("list badges", zap.String("user", userID), zap.Error(err))
		Error(w, http.StatusInternalServerError, "failed to list badges")
		return
	}
	out := make([]awardView, 0, len(awards))
	for i := range awards {
		out = append(out, *viewAward(&awards[i]))
	}
	JSON(w, http.StatusOK, out)
}
