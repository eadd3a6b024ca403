package auditlog

import (
	"errors"
	"fmt"
)

const errFmt = "%s: %s"

// Common errors for audit Entry service implementations and validations.
var (
	ErrInvalidEntry = errors.New("invalid audit entry")
)

// Error wraps common audit Entry errors.
type Error struct {
	err error
	msg string
}

func (e Error) Error() string {
	return e.msg
}

// IsInvalidEntry indicates if err is ErrInvalidEntry.
func IsInvalidEntry(err error) bool {
	return unwrapError(err) == ErrInvalidEntry
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
