package core

import (
	"errors"
	"fmt"
)

const errFmt = "%s: %s"

// Common errors
var (
	ErrDispatchFailed = errors.New("dispatch failed")
	ErrInvalidEntity  = errors.New("invalid entity")
	ErrMisconfigured  = errors.New("component misconfigured")
	ErrNotFound       = errors.New("resource not found")
	ErrRateLimited    = errors.New("rate limit exceeded")
	ErrUnauthorized   = errors.New("origin unauthorized")
)

// Error is a wrapper used to transport core specific errors.
type Error struct {
	Err error
	Msg string
}

func (e *Error) Error() string {
	return e.Msg
}

// IsDispatchFailed indicates if err is ErrDispatchFailed.
func IsDispatchFailed(err error) bool {
	return unwrapError(err) == ErrDispatchFailed
}

// IsInvalidEntity indicates if err is ErrInvalidEntity.
func IsInvalidEntity(err error) bool {
	return unwrapError(err) == ErrInvalidEntity
}

// IsMisconfigured indicates if err is ErrMisconfigured.
func IsMisconfigured(err error) bool {
	return unwrapError(err) == ErrMisconfigured
}

// IsNotFound indicates if err is ErrNotFound.
func IsNotFound(err error) bool {
	return unwrapError(err) == ErrNotFound
}

// IsRateLimited indicates if err is ErrRateLimited.
func IsRateLimited(err error) bool {
	return unwrapError(err) == ErrRateLimited
}

// IsUnauthorized indicates if err is ErrUnauthorized.
func IsUnauthorized(err error) bool {
	return unwrapError(err) == ErrUnauthorized
}

func unwrapError(err error) error {
	switch e := err.(type) {
	case *Error:
		return e.Err
	}

	return err
}

func wrapError(err error, format string, args ...interface{}) error {
	return &Error{
		Err: err,
		Msg: fmt.Sprintf(
			errFmt,
			err.Error(),
			fmt.Sprintf(format, args...),
		),
	}
}
