package service

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed operation so the transport layer can pick a
// status code. The human-readable message is part of the contract and is
// returned to the caller verbatim.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNotFound
	KindPermissionDenied
	KindInvalidArgument
	KindConflict
	KindUpstream
)

// Error is the typed error returned by every service operation.
type Error struct {
	Kind    ErrorKind
	Message string
	cause   error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.cause }

// KindOf extracts the kind from err, or KindUnknown for foreign errors.
func KindOf(err error) ErrorKind {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	return KindUnknown
}

func notFound(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func permissionDenied(format string, args ...interface{}) error {
	return &Error{Kind: KindPermissionDenied, Message: fmt.Sprintf(format, args...)}
}

func invalidArgument(format string, args ...interface{}) error {
	return &Error{Kind: KindInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

func conflict(format string, args ...interface{}) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func upstream(cause error, format string, args ...interface{}) error {
	return &Error{Kind: KindUpstream, Message: fmt.Sprintf(format, args...), cause: cause}
}
