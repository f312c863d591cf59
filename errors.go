package resultshape

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a structure operation names a child edge
	// or binding that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnmatched is returned when a target binding cannot be located in the
	// source structure. Nothing may be compiled or executed for that pair.
	ErrUnmatched = errors.New("unmatched binding")

	// ErrShapeMismatch is yielded when the run-time kind of a data value
	// disagrees with what the plan expects at the cursor.
	ErrShapeMismatch = errors.New("shape mismatch")
)

// UnmatchedError reports which target node could not be matched.
type UnmatchedError struct {
	Binding Binding
	Label   string
	Source  string // summary of the source structure
}

func (e *UnmatchedError) Error() string {
	return fmt.Sprintf("%s: target %q (%s) has no counterpart in source %s",
		ErrUnmatched, e.Label, e.Binding, e.Source)
}

func (e *UnmatchedError) Unwrap() error { return ErrUnmatched }

// ShapeMismatchError reports a kind disagreement during plan execution.
type ShapeMismatchError struct {
	Step     string // the step that failed, e.g. descend(B)
	PC       int
	Expected string // "record", "list" or "scalar"
	Actual   string // summary of the offending value
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("%s: %s at step %d expects a %s but found %s",
		ErrShapeMismatch, e.Step, e.PC, e.Expected, e.Actual)
}

func (e *ShapeMismatchError) Unwrap() error { return ErrShapeMismatch }
