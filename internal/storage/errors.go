package storage

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
)

// InitializationError reports that a backend store could not be opened.
// It is fatal to the adapter instance that returned it.
type InitializationError struct {
	Backend string
	Err     error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("initialize %s storage: %v", e.Backend, e.Err)
}

func (e *InitializationError) Unwrap() error {
	return e.Err
}

// NotFound wraps ErrNotFound with the entity and id that were missing
func NotFound(entity string, id int64) error {
	return fmt.Errorf("%s %d: %w", entity, id, ErrNotFound)
}
