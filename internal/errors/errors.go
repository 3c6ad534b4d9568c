// Package errors defines the failure taxonomy shared by the store, the core
// and the gRPC layer.
package errors

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrValidation marks malformed input or a self-referencing request. Never retried.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a missing User, Like or Conversation.
	ErrNotFound = errors.New("not found")
	// ErrStoreUnavailable marks a transient backend failure; safe to retry.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrConflict marks a concurrent write that lost a race; re-read and retry.
	ErrConflict = errors.New("conflict")
)

func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func Unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

func Conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// Retryable reports whether a re-read-and-retry may succeed.
func Retryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrConflict)
}

// FromStore classifies a raw gorm/driver error into the taxonomy.
// Errors already classified are returned unchanged; unknown errors pass through.
func FromStore(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) || Retryable(err) {
		return err
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)

	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %w", ErrConflict, err)

	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, driver.ErrBadConn):
		return Unavailable(err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return Unavailable(err)
	}

	// Lock contention reported by the drivers as plain text.
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "deadlock"):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	case strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "database table is locked"),
		strings.Contains(msg, "lock wait timeout"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "invalid connection"):
		return Unavailable(err)
	}
	return err
}
