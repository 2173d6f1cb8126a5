package api

import (
	"errors"
	"net/http"

	"github.com/felixgeelhaar/taskhub/internal/records"
)

const (
	msgOK             = "OK"
	msgUnknownFailure = "We don't know what happened!"
)

// envelope is the body of every resource response.
type envelope struct {
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// writeEnvelope writes {message, data}. Nil data is written as [].
func writeEnvelope(w http.ResponseWriter, status int, message string, data any) {
	if data == nil {
		data = []any{}
	}
	writeJSON(w, status, envelope{Message: message, Data: data})
}

// StatusPolicy maps failures to HTTP status codes.
type StatusPolicy string

const (
	// StatusStandard answers 400 for invalid input, 409 for conflicts,
	// 404 for unknown records and 500 for store failures.
	StatusStandard StatusPolicy = "standard"
	// StatusLegacy answers 500 for every validation and store failure.
	StatusLegacy StatusPolicy = "legacy"
)

// ParseStatusPolicy accepts "standard" and "legacy"; anything else is
// standard.
func ParseStatusPolicy(s string) StatusPolicy {
	if StatusPolicy(s) == StatusLegacy {
		return StatusLegacy
	}
	return StatusStandard
}

// Status returns the status code for err.
func (p StatusPolicy) Status(err error) int {
	if errors.Is(err, records.ErrNotFound) {
		return http.StatusNotFound
	}
	ve, ok := records.IsValidation(err)
	if !ok || p == StatusLegacy {
		return http.StatusInternalServerError
	}
	if ve.Kind == records.Conflict {
		return http.StatusConflict
	}
	return http.StatusBadRequest
}
