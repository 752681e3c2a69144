package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/civicchat/orchestra/internal/sanitize"
	"github.com/civicchat/orchestra/pkg/domain"
)

var errMissingText = errors.New("text is required")

// runRequest is the body accepted by every run endpoint.
type runRequest struct {
	Text              string         `json:"text"`
	Language          string         `json:"language,omitempty"`
	ThreadID          string         `json:"threadId,omitempty"`
	ConversationID    string         `json:"conversationId,omitempty"`
	AdditionalContext map[string]any `json:"additionalContext,omitempty"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// decodeRun reads and validates a run request. The returned status is the one
// to answer with when err is not nil.
func (s *Server) decodeRun(r *http.Request) (runRequest, int, error) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return req, http.StatusRequestEntityTooLarge, fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)
		case errors.Is(err, io.EOF):
			return req, http.StatusBadRequest, errMissingText
		default:
			return req, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err)
		}
	}

	text, err := sanitize.Limit(req.Text, s.maxTextBytes)
	if err != nil {
		return req, http.StatusBadRequest, err
	}
	req.Text = strings.TrimSpace(text)
	if req.Text == "" {
		return req, http.StatusBadRequest, errMissingText
	}
	req.Language = strings.ToLower(strings.TrimSpace(req.Language))
	return req, 0, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeInternal(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusInternalServerError, errorResponse{
		Error:   "internal server error",
		Message: err.Error(),
	})
}

// writeFailure maps err onto a status code.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrThreadNotFound), errors.Is(err, domain.ErrUnknownAgent):
		writeError(w, http.StatusNotFound, err.Error())
	case r.Context().Err() != nil:
		s.logger.Debug("Request cancelled", "path", r.URL.Path, "error", err)
	default:
		s.logger.Error("Request failed", "path", r.URL.Path, "error", err)
		writeInternal(w, err)
	}
}
