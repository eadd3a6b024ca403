package guest

import (
	"errors"
	"fmt"
)

const errFmt = "%s: %s"

// Common errors for Guest service implementations and validations.
var (
	ErrInvalidGuest = errors.New("invalid guest")
	ErrNotFound     = errors.New("guest not found")
)

// Error wraps common Guest errors.
type Error struct {
	err error
	msg string
}

func (e Error) Error() string {
	return e.msg
}

// IsInvalidGuest indicates if err is ErrInvalidGuest.
func IsInvalidGuest(err error) bool {
	return unwrapError(err) == ErrInvalidGuest
}

// IsNotFound indicates if err is ErrNotFound.
func IsNotFound(err error) bool {
	return unwrapError(err) == ErrNotFound
}

func unwrapError(err error) error {
	switch e := err.(type) {
	case *Error:
		return e.err
	}

	return err
}

func wrapError(err error, format string, args ...interface{}) error {
	return &Error{
		err: err,
		msg: fmt.Sprintf(
			errFmt,
			err,
			fmt.Sprintf(format, args...),
		),
	}
}
