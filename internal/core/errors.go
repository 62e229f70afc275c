package core

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Kind classifies a prediction failure so callers can branch on it without
// inspecting messages.
type Kind int

const (
	KindProcessing Kind = iota
	KindUnavailable
	KindValidation
	KindInference
)

func (k Kind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindValidation:
		return "validation"
	case KindInference:
		return "inference"
	default:
		return "processing"
	}
}

var ErrModelNotLoaded = errors.New("model is not loaded")

type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Format prints the wrapped error with its recorded stack trace for %+v.
func (e *Error) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') {
		fmt.Fprintf(s, "%s (%s): %+v", e.Op, e.Kind, e.Err)
		return
	}
	fmt.Fprint(s, e.Error())
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: pkgerrors.WithStack(err)}
}

// KindOf reports the kind of err, defaulting to KindProcessing for errors
// that did not originate in this package.
func KindOf(err error) Kind {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Kind
	}
	return KindProcessing
}
