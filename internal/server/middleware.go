package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	requestIDKey    contextKey = "requestID"
	requestStartKey contextKey = "requestStart"
	userEmailKey    contextKey = "userEmail"
)

// withRequestContext stamps every request with an ID and a start time, and
// logs it on completion.
func (s *Server) withRequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), requestIDKey, reqID)
		ctx = context.WithValue(ctx, requestStartKey, time.Now())
		r = r.WithContext(ctx)

		w.Header().Set("X-Request-ID", reqID)

		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"request_id", reqID,
			"duration_ms", time.Since(requestStart(r.Context())).Milliseconds(),
		)
	})
}

// withAuth resolves the bearer token to a user email before the handler
// runs. Unauthenticated requests never reach the API.
func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if header == "" || token == header {
			s.writeJSON(w, http.StatusUnauthorized, Response{
				Success: false,
				Error:   &APIError{Code: "UNAUTHORIZED", Message: "missing bearer token"},
				Meta:    s.meta(r),
			})
			return
		}

		email, err := s.auth.Verify(token)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), userEmailKey, email)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestID retrieves the request ID from context
func requestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

func requestStart(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestStartKey).(time.Time); ok {
		return t
	}
	return time.Now()
}

// userEmail retrieves the authenticated user from context
func userEmail(ctx context.Context) string {
	if email, ok := ctx.Value(userEmailKey).(string); ok {
		return email
	}
	return ""
}

// statusWriter wraps http.ResponseWriter to capture the status code
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
