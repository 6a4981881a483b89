package project

import (
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("not found")

// ValidationError carries a message meant to be shown to the user as is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}

// ParseID parses a client-supplied id. Malformed ids cannot name any row, so
// they are reported as ErrNotFound.
func ParseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, ErrNotFound
	}

	return id, nil
}
