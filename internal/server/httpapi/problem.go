package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/evidencevault/internal/common"
	"github.com/dmitrijs2005/evidencevault/internal/logging"
)

const (
	contentTypeJSON    = "application/json"
	contentTypeProblem = "application/problem+json"

	genericErrorDetail = "An unexpected error occurred."
)

// Problem is an RFC 7807 error body.
type Problem struct {
	Title   string   `json:"title"`
	Status  int      `json:"status"`
	Detail  string   `json:"detail"`
	Errors  []string `json:"errors"`
	TraceID string   `json:"traceId"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, r *http.Request, status int, title, detail string, errs []string) {
	if errs == nil {
		errs = []string{}
	}
	w.Header().Set("Content-Type", contentTypeProblem)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Problem{
		Title:   title,
		Status:  status,
		Detail:  detail,
		Errors:  errs,
		TraceID: logging.RequestIDFromContext(r.Context()),
	})
}

func badRequest(w http.ResponseWriter, r *http.Request, errs ...string) {
	detail := "One or more validation errors occurred."
	if len(errs) == 1 {
		detail = errs[0]
	}
	writeProblem(w, r, http.StatusBadRequest, "Validation error", detail, errs)
}

// statusFor maps an error kind to its HTTP status and problem title.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest, "Validation error"
	case errors.Is(err, common.ErrUnauthorized):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, common.ErrConflict):
		return http.StatusConflict, "Conflict"
	default:
		return http.StatusInternalServerError, "Server error"
	}
}

// writeError renders err as a problem. Server errors are logged and their
// text never reaches the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, title := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeProblem(w, r, status, title, genericErrorDetail, nil)
		return
	}

	detail := common.SafeMessage(err)
	if detail == "" {
		detail = title
	}
	var errs []string
	if status == http.StatusBadRequest {
		errs = []string{detail}
	}
	writeProblem(w, r, status, title, detail, errs)
}
