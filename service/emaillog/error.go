package emaillog

import (
	"errors"
	"fmt"
)

const errFmt = "%s: %s"

// Common errors for EmailLog service implementations and validations.
var (
	ErrInvalidEmailLog = errors.New("invalid email log")
)

// Error wraps common EmailLog errors.
type Error struct {
	err error
	msg string
}

func (e Error) Error() string {
	return e.msg
}

// IsInvalidEmailLog indicates if err is ErrInvalidEmailLog.
func IsInvalidEmailLog(err error) bool {
	return unwrapError(err) == ErrInvalidEmailLog
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
