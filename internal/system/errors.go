package system

import (
	"errors"
	"fmt"
)

// ErrorID is the one error code reported by every failing operation.
const ErrorID = -1

// OperationError is the single error kind surfaced to callers; only the
// message and the wrapped cause tell failures apart.
type OperationError struct {
	Code int
	Msg  string
	Err  error
}

func (e *OperationError) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return e.Msg + ": " + e.Err.Error()
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	}
	return "operation failed"
}

func (e *OperationError) Unwrap() error { return e.Err }

// Message is what callers see: the fixed message if one is set, otherwise
// the cause.
func (e *OperationError) Message() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "operation failed"
}

func fail(msg string, err error) error {
	return &OperationError{Code: ErrorID, Msg: msg, Err: err}
}

// IsOperationFailed reports whether err is an OperationError.
func IsOperationFailed(err error) bool {
	var oe *OperationError
	return errors.As(err, &oe)
}

// guard runs fn and turns both returned errors and panics into an
// OperationError carrying the underlying message.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fail("", fmt.Errorf("host panic: %v", r))
		}
	}()
	if ferr := fn(); ferr != nil {
		return fail("", ferr)
	}
	return nil
}
