package resolver

import (
	"errors"
	"fmt"
)

// ValidationError reports a problem with the caller's declarations or
// expressions, e.g. an ambiguous column or a malformed window alias.  The
// caller can fix these.
type ValidationError struct {
	msg string
	err error
}

func (e *ValidationError) Error() string { return e.msg }

func (e *ValidationError) Unwrap() error { return e.err }

func validationf(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

func validationWrapf(err error, format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...), err: err}
}

// ErrSystem marks internal consistency failures: a rule let an unresolved
// node escape, or the resolver itself misbehaved.  These indicate a defect in
// a rule or in this package, never in user input, and are detectable with
// errors.Is.
var ErrSystem = errors.New("system error")

func systemf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSystem, fmt.Sprintf(format, args...))
}
