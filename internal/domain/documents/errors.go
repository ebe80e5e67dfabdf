package documents

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means an identifier does not name an existing entry.
	ErrNotFound = errors.New("document not found")
	// ErrInvalidRequest means a malformed identifier or an operation that does
	// not apply to the entry kind.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrOperationFailed means the filesystem refused a create, delete or open.
	ErrOperationFailed = errors.New("operation failed")
	// ErrExists refines ErrOperationFailed for name collisions on create.
	ErrExists = errors.New("document already exists")
	// ErrTooLarge means a write supplied more bytes than the caller allowed.
	ErrTooLarge = errors.New("document too large")
	// ErrFatal means the namespace could not be initialized.
	ErrFatal = errors.New("namespace unavailable")
)

// Error describes a failed namespace operation. It matches its Kind and its
// underlying cause with errors.Is.
type Error struct {
	Op   string
	ID   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.ID != "" {
		msg += " " + e.ID
	}
	msg += ": " + e.Kind.Error()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(op, id string, kind error, format string, args ...interface{}) *Error {
	var cause error
	if format != "" {
		cause = fmt.Errorf(format, args...)
	}
	return &Error{Op: op, ID: id, Kind: kind, Err: cause}
}

// KindOf returns the sentinel describing err, or nil when err did not come
// from this package.
func KindOf(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return ErrNotFound
	case errors.Is(err, ErrInvalidRequest):
		return ErrInvalidRequest
	case errors.Is(err, ErrTooLarge):
		return ErrTooLarge
	case errors.Is(err, ErrExists):
		return ErrExists
	case errors.Is(err, ErrOperationFailed):
		return ErrOperationFailed
	case errors.Is(err, ErrFatal):
		return ErrFatal
	}
	return nil
}
