package api

import (
	"context"
	"net/http"
	"regexp"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/satslab/satslab/internal/learner"
)

const (
	// LearnerHeader carries an explicit learner id.
	LearnerHeader = "X-Learner-ID"
	// LearnerCookie remembers the id handed to a browser.
	LearnerCookie = "satslab_learner"

	learnerCookieMaxAge = 30 * 24 * time.Hour
)

var learnerIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,80}$`)

type contextKey int

const learnerKey contextKey = iota

// LearnerFromContext returns the learner id set by the identity middleware.
func LearnerFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(learnerKey).(string); ok {
		return v
	}
	return ""
}

// identify resolves the learner from the header, then the cookie. Anyone
// else becomes a guest and gets a cookie with the new id.
func identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(LearnerHeader)
		if id != "" && !learnerIDPattern.MatchString(id) {
			Error(w, http.StatusBadRequest, "invalid learner id")
			return
		}
		if id == "" {
			if c, err := r.Cookie(LearnerCookie); err == nil && learnerIDPattern.MatchString(c.Value) {
				id = c.Value
			}
		}
		if id == "" {
			id = learner.NewGuestID()
			http.SetCookie(w, &http.Cookie{
				Name:     LearnerCookie,
				Value:    id,
				Path:     "/",
				MaxAge:   int(learnerCookieMaxAge.Seconds()),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), learnerKey, id)))
	})
}

// CORS returns middleware that handles CORS headers.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowed, explicit := false, false
			for _, o := range allowedOrigins {
				if o == origin && origin != "" {
					allowed, explicit = true, true
					break
				}
				if o == "*" {
					allowed = true
				}
			}

			if allowed && origin != "" {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+LearnerHeader)
				w.Header().Add("Vary", "Origin")
				if explicit {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestLogger logs one line per request and feeds the request metrics.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		s.metrics.observeRequest(r, status, elapsed)

		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", elapsed),
			zap.String("request_id", chiMiddleware.GetReqID(r.Context())),
			zap.String("remote", r.RemoteAddr))
	})
}
