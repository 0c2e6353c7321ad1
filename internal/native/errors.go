package native

import (
	"errors"
	"fmt"

	"github.com/tgienger/yuflow/internal/storage"
)

// Kind classifies a command failure for the caller
type Kind string

const (
	KindNotFound   Kind = "not_found"
	KindValidation Kind = "validation"
	KindInternal   Kind = "internal"
)

// CommandError is the opaque failure returned across the command boundary.
// Only the kind and message survive; the underlying error chain does not.
type CommandError struct {
	Command string `json:"command"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Command, e.Message)
}

func commandError(command string, err error) *CommandError {
	var ce *CommandError
	if errors.As(err, &ce) {
		return ce
	}
	kind := KindInternal
	switch {
	case errors.Is(err, storage.ErrNotFound):
		kind = KindNotFound
	case errors.Is(err, storage.ErrValidation):
		kind = KindValidation
	}
	return &CommandError{Command: command, Kind: kind, Message: err.Error()}
}
