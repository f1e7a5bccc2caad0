package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/claude/wlog/internal/auth"
	"github.com/claude/wlog/internal/metrics"
	"github.com/claude/wlog/internal/storage"
	"github.com/rs/cors"
)

type contextKey string

const sessionKey contextKey = "session"

// SessionAuth returns middleware that loads the caller's session and
// rejects requests without a live one.
func SessionAuth(authn *auth.Authenticator, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := authn.Session(r)
			if errors.Is(err, auth.ErrUnauthorized) {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not signed in"})
				return
			}
			if err != nil {
				log.Error("loading session failed", "error", err)
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "session lookup failed"})
				return
			}
			ctx := context.WithValue(r.Context(), sessionKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// sessionFromContext returns the session stored by SessionAuth.
func sessionFromContext(r *http.Request) *storage.Session {
	if sess, ok := r.Context().Value(sessionKey).(*storage.Session); ok {
		return sess
	}
	return &storage.Session{}
}

// RequestLogging returns middleware that logs each request and, when m is
// set, counts it.
func RequestLogging(log *slog.Logger, m *metrics.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			elapsed := time.Since(start)
			log.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration", elapsed.String(),
			)
			if m != nil {
				m.CounterRequests.WithLabelValues(r.Method, strconv.Itoa(sw.status)).Inc()
				m.HistRequestDuration.WithLabelValues(r.Method).Observe(elapsed.Seconds())
			}
		})
	}
}

// CORS allows credentialed requests from the given origins, for a UI served
// from another host.
func CORS(origins []string) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	}).Handler
}

// statusWriter wraps ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
