package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownPlugin indicates a step references a plugin name with no
	// registered handler.
	ErrUnknownPlugin = errors.New("unknown plugin")

	// ErrUnresolvedVariable indicates a ${namespace.key} token could not be
	// resolved against the variable table or the context.
	ErrUnresolvedVariable = errors.New("unresolved variable reference")

	// ErrCyclicDependency indicates the dependency relation over the
	// definition's steps contains a cycle.
	ErrCyclicDependency = errors.New("cyclic step dependency")

	// ErrDuplicateStepID indicates two steps share an id.
	ErrDuplicateStepID = errors.New("duplicate step id")

	// ErrUnknownDependency indicates a step depends on an id that does not
	// exist in the definition.
	ErrUnknownDependency = errors.New("unknown dependency")

	// ErrInvalidDefinition indicates the definition document is structurally
	// invalid.
	ErrInvalidDefinition = errors.New("invalid workflow definition")

	// ErrMissingParameter indicates a step handler required a parameter that
	// was not supplied.
	ErrMissingParameter = errors.New("missing parameter")
)

// Error is a structured engine error carrying a machine-readable code and
// the id of the step it concerns, when one applies.
type Error struct {
	// Code is a machine-readable error code
	Code string

	// StepID is the id of the step the error concerns, if any
	StepID string

	// Message is a human-readable error message
	Message string

	// Err is the underlying error, if any
	Err error
}

// Error implements the error interface
func (e *Error) Error() string {
	switch {
	case e.StepID != "" && e.Err != nil:
		return fmt.Sprintf("[%s] step %q: %s: %v", e.Code, e.StepID, e.Message, e.Err)
	case e.StepID != "":
		return fmt.Sprintf("[%s] step %q: %s", e.Code, e.StepID, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	default:
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new engine error.
func NewError(code, stepID, message string, err error) *Error {
	return &Error{Code: code, StepID: stepID, Message: message, Err: err}
}
