package client

import (
	"errors"
	"fmt"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrIntegrity    = errors.New("integrity check failed")
)

// Problem mirrors the server's problem+json body.
type Problem struct {
	Title   string   `json:"title"`
	Status  int      `json:"status"`
	Detail  string   `json:"detail"`
	Errors  []string `json:"errors"`
	TraceID string   `json:"traceId"`
}

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Problem    Problem
}

func (e *APIError) Error() string {
	msg := e.Problem.Detail
	if msg == "" {
		msg = e.Problem.Title
	}
	if e.Problem.TraceID != "" {
		return fmt.Sprintf("%d %s (trace %s)", e.StatusCode, msg, e.Problem.TraceID)
	}
	return fmt.Sprintf("%d %s", e.StatusCode, msg)
}

// Is lets callers match common statuses with errors.Is.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == 401
	case ErrForbidden:
		return e.StatusCode == 403
	case ErrNotFound:
		return e.StatusCode == 404
	}
	return false
}
