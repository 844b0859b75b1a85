package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/camoslabs/camosai/internal/logging"
	"github.com/camoslabs/camosai/internal/session"
)

// sessionTokenHeader carries the session token issued by POST /api/login.
// "Authorization: Bearer <token>" is accepted as an alternative.
const sessionTokenHeader = "X-Session-Token"

// ctxKeySession is the context key under which the auth middleware stores
// the authenticated session.
type ctxKeySession struct{}

// sessionFrom returns the authenticated session stored by the auth
// middleware. Only valid inside handlers wrapped by auth.
func sessionFrom(ctx context.Context) session.Session {
	s, _ := ctx.Value(ctxKeySession{}).(session.Session)
	return s
}

// auth requires a valid session token on the request and stores the resolved
// session in the request context.
func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(sessionTokenHeader)
		if token == "" {
			if bearer := r.Header.Get("Authorization"); strings.HasPrefix(bearer, "Bearer ") {
				token = strings.TrimPrefix(bearer, "Bearer ")
			}
		}
		if token == "" {
			s.writeError(w, http.StatusUnauthorized, "login required")
			return
		}

		sess, err := s.sessions.Get(token)
		if err != nil {
			s.writeError(w, http.StatusUnauthorized, "invalid or expired session")
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeySession{}, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestLogger wraps the mux to:
//  1. Generate a unique request_id and inject a child logger carrying it
//     into the request context.
//  2. Log method, path, status code, and latency on completion.
//  3. Record the request in the HTTP metrics.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := s.log.With(
			slog.String("request_id", newRequestID()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)

		r = r.WithContext(logging.WithLogger(r.Context(), log))
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		start := time.Now()
		next.ServeHTTP(rw, r)
		elapsed := time.Since(start)

		s.metrics.httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rw.status)).Inc()
		s.metrics.httpDurationSeconds.WithLabelValues(r.Method, r.URL.Path).Observe(elapsed.Seconds())

		log.Info("request",
			slog.Int("status", rw.status),
			slog.Duration("duration", elapsed),
		)
	})
}

// responseWriter captures the status code written by the handler so the
// middleware can log and count it.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// newRequestID returns an 8-byte cryptographically random hex string.
func newRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "0000000000000000"
	}
	return hex.EncodeToString(b)
}
