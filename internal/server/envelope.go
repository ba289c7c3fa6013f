package server

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"time"

	apperrors "portfolio/internal/errors"
)

// Response is the standard API response wrapper
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    Meta        `json:"meta"`
}

// APIError carries the stable error code and message
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Meta contains response metadata
type Meta struct {
	RequestID string `json:"requestId"`
	Duration  int64  `json:"duration"` // milliseconds
}

func (s *Server) meta(r *http.Request) Meta {
	return Meta{
		RequestID: requestID(r.Context()),
		Duration:  time.Since(requestStart(r.Context())).Milliseconds(),
	}
}

// writeData writes a success envelope.
func (s *Server) writeData(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	s.writeJSON(w, status, Response{Success: true, Data: data, Meta: s.meta(r)})
}

// writeError maps an error from the taxonomy onto an HTTP status and writes
// a failure envelope.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperrors.CodeOf(err)

	status := http.StatusInternalServerError
	switch code {
	case apperrors.ValidationFailed, apperrors.ReferenceNotFound:
		status = http.StatusBadRequest
	case apperrors.DuplicateName:
		status = http.StatusConflict
	case apperrors.NotFound:
		status = http.StatusNotFound
	case apperrors.Unauthorized:
		status = http.StatusUnauthorized
	}

	message := err.Error()
	var e *apperrors.Error
	if stderrors.As(err, &e) {
		message = e.Message
	}

	s.writeJSON(w, status, Response{
		Success: false,
		Error:   &APIError{Code: string(code), Message: message},
		Meta:    s.meta(r),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusMethodNotAllowed, Response{
		Success: false,
		Error:   &APIError{Code: "METHOD_NOT_ALLOWED", Message: "method not allowed"},
		Meta:    s.meta(r),
	})
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, apperrors.New(apperrors.NotFound, "no such resource"))
}
