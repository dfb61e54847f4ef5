// Package fserrors defines the tagged error model shared by every filesystem component.
//
// Only *Error crosses package boundaries: the authorizer, the file operations and the
// confirmation guard all return it, and lower-level I/O errors are re-wrapped through
// FromOS before they leave an operation.
package fserrors

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"
)

// Kind classifies a filesystem error. The set is closed.
type Kind int

const (
	KindUnknown Kind = iota
	KindPathNotAllowed
	KindFileNotFound
	KindFileAlreadyExists
	KindPermissionDenied
	KindSymlinkTargetInvalid
	KindDirectoryNotEmpty
	KindInvalidOperation
	KindOperationFailed
	KindValidation
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindPathNotAllowed:
		return "PATH_NOT_ALLOWED"
	case KindFileNotFound:
		return "FILE_NOT_FOUND"
	case KindFileAlreadyExists:
		return "FILE_ALREADY_EXISTS"
	case KindPermissionDenied:
		return "PERMISSION_DENIED"
	case KindSymlinkTargetInvalid:
		return "SYMLINK_TARGET_INVALID"
	case KindDirectoryNotEmpty:
		return "DIRECTORY_NOT_EMPTY"
	case KindInvalidOperation:
		return "INVALID_OPERATION"
	case KindOperationFailed:
		return "OPERATION_FAILED"
	case KindValidation:
		return "VALIDATION_ERROR"
	default:
		return "UNKNOWN"
	}
}

// Kinds lists every defined kind in declaration order.
func Kinds() []Kind {
	return []Kind{
		KindPathNotAllowed,
		KindFileNotFound,
		KindFileAlreadyExists,
		KindPermissionDenied,
		KindSymlinkTargetInvalid,
		KindDirectoryNotEmpty,
		KindInvalidOperation,
		KindOperationFailed,
		KindValidation,
	}
}

// Error is a filesystem error tagged with a Kind.
type Error struct {
	Kind    Kind
	Message string
	Path    string
	Details map[string]interface{}
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches another *Error by kind, so errors.Is(err, &Error{Kind: KindFileNotFound}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil {
		return false
	}
	return t.Kind == e.Kind
}

// WithPath records the offending path and returns the same error.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e.withDetail("path", path)
}

// WithDetail attaches a structured detail.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	return e.withDetail(key, value)
}

func (e *Error) withDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given kind that keeps err as its cause.
func Wrap(kind Kind, err error, message string) *Error {
	e := &Error{Kind: kind, Message: message, Err: err}
	if err != nil {
		e.withDetail("cause", err.Error())
	}
	return e
}

// FromOS converts an I/O error into a tagged error. Errors that are already tagged pass
// through unchanged.
func FromOS(op, path string, err error) *Error {
	if err == nil {
		return nil
	}
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged
	}

	var kind Kind
	var msg string
	switch {
	case errors.Is(err, fs.ErrNotExist):
		kind, msg = KindFileNotFound, fmt.Sprintf("%s: file not found: %s", op, path)
	// ENOTEMPTY also matches fs.ErrExist on unix.
	case errors.Is(err, syscall.ENOTEMPTY):
		kind, msg = KindDirectoryNotEmpty, fmt.Sprintf("%s: directory not empty: %s", op, path)
	case errors.Is(err, fs.ErrExist):
		kind, msg = KindFileAlreadyExists, fmt.Sprintf("%s: file already exists: %s", op, path)
	case errors.Is(err, fs.ErrPermission):
		kind, msg = KindPermissionDenied, fmt.Sprintf("%s: permission denied: %s", op, path)
	default:
		kind, msg = KindOperationFailed, fmt.Sprintf("%s failed for %s: %v", op, path, err)
	}
	return Wrap(kind, err, msg).WithPath(path)
}

// KindOf returns the kind of err, or KindUnknown when err is not tagged.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
