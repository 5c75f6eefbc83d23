package promotion

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrNotFound     = errors.New("invitation code not found")
	ErrExhausted    = errors.New("invitation code exhausted")
	ErrUserNotFound = errors.New("user not found")
	ErrAlreadyAdmin = errors.New("user is already an admin")
	ErrThrottled    = errors.New("too many failed redemptions")
)

// StorageError is returned when the underlying persistence call failed.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageError(op string, err error) error {
	return &StorageError{Op: op, Err: errors.WithStack(err)}
}

// IsStorageError reports whether err is (or wraps) a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return "promoted"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrExhausted):
		return "exhausted"
	case errors.Is(err, ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, ErrAlreadyAdmin):
		return "already_admin"
	case errors.Is(err, ErrThrottled):
		return "throttled"
	default:
		return "storage_error"
	}
}
