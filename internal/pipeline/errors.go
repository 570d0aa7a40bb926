package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies why a run failed.
type Kind string

const (
	KindNotFound      Kind = "not_found"
	KindSchemaInvalid Kind = "schema_invalid"
	KindParseFailure  Kind = "parse_failure"
	KindWriteFailure  Kind = "write_failure"
	KindTransform     Kind = "transform_failure"
	KindPublish       Kind = "publish_failure"
)

// Sentinels matched by errors.Is against a *StepError of the same kind.
var (
	ErrNotFound       = errors.New("input not found")
	ErrSchemaInvalid  = errors.New("schema invalid")
	ErrParseFailure   = errors.New("parse failure")
	ErrWriteFailure   = errors.New("write failure")
	ErrTransform      = errors.New("transform failure")
	ErrPublishFailure = errors.New("publish failure")
)

var sentinels = map[Kind]error{
	KindNotFound:      ErrNotFound,
	KindSchemaInvalid: ErrSchemaInvalid,
	KindParseFailure:  ErrParseFailure,
	KindWriteFailure:  ErrWriteFailure,
	KindTransform:     ErrTransform,
	KindPublish:       ErrPublishFailure,
}

// StepError is the fatal error of a run: the state being entered, the
// failure kind and the cause.
type StepError struct {
	State State
	Kind  Kind
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.State, e.Kind, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Is matches the sentinel of e.Kind, so callers can test
// errors.Is(err, pipeline.ErrSchemaInvalid).
func (e *StepError) Is(target error) bool {
	s, ok := sentinels[e.Kind]
	return ok && s == target
}

func fail(state State, kind Kind, err error) *StepError {
	return &StepError{State: state, Kind: kind, Err: err}
}

// MissingColumnsError lists required columns absent from the input.
type MissingColumnsError struct {
	Contract string
	Missing  []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("%s: missing required columns %q", e.Contract, e.Missing)
}
