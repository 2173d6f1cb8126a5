package records

import (
	"errors"
)

var (
	// ErrNotFound is returned for unknown or malformed identifiers.
	ErrNotFound = errors.New("record not found")

	// ErrStoreFailure wraps every other store error. The cause is logged,
	// never shown to clients.
	ErrStoreFailure = errors.New("store failure")
)

// Kind classifies a ValidationError.
type Kind int

const (
	// Invalid covers missing or mistyped fields, malformed bodies and
	// malformed list queries.
	Invalid Kind = iota
	// Conflict is a uniqueness violation.
	Conflict
)

func (k Kind) String() string {
	switch k {
	case Invalid:
		return "invalid"
	case Conflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// ValidationError is a client-facing rejection. Message is returned verbatim
// in the response envelope.
type ValidationError struct {
	Message string
	Kind    Kind
	Err     error
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(message string) *ValidationError {
	return &ValidationError{Message: message, Kind: Invalid}
}

func conflict(message string) *ValidationError {
	return &ValidationError{Message: message, Kind: Conflict}
}

// IsValidation reports whether err is a ValidationError and returns it.
func IsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
