// Package server provides the HTTP REST API for the site auditor.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/site-auditor/internal/report"
)

// ErrValidation indicates request validation failure.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrUnsupportedProvider indicates a scan request naming an AI provider the
// server does not know.
type ErrUnsupportedProvider struct {
	Provider string
}

func (e *ErrUnsupportedProvider) Error() string {
	return fmt.Sprintf("unsupported ai provider: %s", e.Provider)
}

// HTTPStatus returns the appropriate HTTP status code for an error.
func HTTPStatus(err error) int {
	if errors.Is(err, report.ErrNotFound) {
		return http.StatusNotFound
	}
	switch err.(type) {
	case *ErrValidation, *ErrUnsupportedProvider:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
