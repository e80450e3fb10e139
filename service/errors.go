package service

import (
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrUnknownUser     = errors.New("unknown user")

	ErrEmailTaken = &InputError{Msg: "Email already registered"}
)

// InputError is an ErrInvalidInput carrying a user facing message and,
// optionally, the individual problems found.
type InputError struct {
	Msg    string
	Causes error
}

func invalidInput(msg string, causes ...error) *InputError {
	var merr *multierror.Error
	for _, c := range causes {
		merr = multierror.Append(merr, c)
	}
	if merr != nil {
		merr.ErrorFormat = joinErrors
	}
	return &InputError{Msg: msg, Causes: merr.ErrorOrNil()}
}

func (e *InputError) Error() string {
	if e.Causes == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Causes.Error()
}

func (e *InputError) Is(target error) bool {
	return target == ErrInvalidInput
}

func (e *InputError) Unwrap() error {
	return e.Causes
}

func joinErrors(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}
