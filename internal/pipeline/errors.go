package pipeline

import (
	"errors"
	"fmt"
)

// SchemaViolationError marks oracle output that could not be coerced into
// a stage's schema. Unlike an unavailable oracle it is not retryable: the
// same input would produce the same rejection.
type SchemaViolationError struct {
	Stage string
	Err   error
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *SchemaViolationError) Unwrap() error { return e.Err }

// IsSchemaViolation reports whether err wraps a SchemaViolationError.
func IsSchemaViolation(err error) bool {
	var sv *SchemaViolationError
	return errors.As(err, &sv)
}
