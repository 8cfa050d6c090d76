package staff

import (
	"errors"
	"fmt"
	"strings"

	"staffsync/internal/model"
)

var (
	// ErrNotFound is returned when a record does not exist locally or remotely.
	ErrNotFound = errors.New("record not found")
	// ErrOffline is returned by operations that need the remote service while offline.
	ErrOffline = errors.New("remote service is offline")
	// ErrValidation is wrapped by every ValidationError.
	ErrValidation = errors.New("validation error")
)

// FieldError describes a validation error for a specific field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError contains a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s: %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	msgs := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		msgs[i] = fe.Field + ": " + fe.Message
	}
	return fmt.Sprintf("validation: %d errors: %s", len(e.Errors), strings.Join(msgs, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// FlushError reports the pending action that aborted a reconciliation pass.
// The action log is left intact when a FlushError is returned.
type FlushError struct {
	Index  int // position of the failing action in the drained log
	Action model.PendingAction
	Err    error
}

func (e *FlushError) Error() string {
	return fmt.Sprintf("replaying %s action %d (record %s): %v", e.Action.Kind, e.Index, e.Action.RecordID, e.Err)
}

func (e *FlushError) Unwrap() error { return e.Err }
