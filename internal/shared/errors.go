// Package shared contains the error taxonomy and helpers used across
// the application, without domain-specific logic.
package shared

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Sentinel errors for conditions callers may want to handle.
var (
	// ErrNotFound indicates that a requested resource was not found.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates that input validation failed.
	ErrValidation = errors.New("validation failed")

	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrInternal indicates an internal error.
	ErrInternal = errors.New("internal error")

	// ErrDependencyFailure indicates that an external dependency failed.
	ErrDependencyFailure = errors.New("dependency failure")

	// ErrClosed indicates use of a component after it was shut down.
	ErrClosed = errors.New("already closed")
)

// Kind represents a category of error for classification and handling.
type Kind int

const (
	// KindUnknown represents an unclassified error.
	KindUnknown Kind = iota
	// KindNotFound represents resource not found errors.
	KindNotFound
	// KindValidation represents input validation errors.
	KindValidation
	// KindTimeout represents timeout errors.
	KindTimeout
	// KindInternal represents internal errors.
	KindInternal
	// KindDependencyFailure represents external dependency failures.
	KindDependencyFailure
	// KindClosed represents use-after-shutdown errors.
	KindClosed
	// KindCanceled represents context cancellation.
	KindCanceled
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindValidation:
		return "Validation"
	case KindTimeout:
		return "Timeout"
	case KindInternal:
		return "Internal"
	case KindDependencyFailure:
		return "DependencyFailure"
	case KindClosed:
		return "Closed"
	case KindCanceled:
		return "Canceled"
	default:
		return "Unknown"
	}
}

// kindPriorities defines the deterministic order of classification:
// cancellation and timeouts first, internal errors last. For errors
// carrying several kinds (errors.Join), the first match wins.
var kindPriorities = []struct {
	kind Kind
	err  error
}{
	{KindCanceled, nil},
	{KindTimeout, ErrTimeout},
	{KindClosed, ErrClosed},
	{KindNotFound, ErrNotFound},
	{KindValidation, ErrValidation},
	{KindDependencyFailure, ErrDependencyFailure},
	{KindInternal, ErrInternal},
}

// KindOf classifies err against the known sentinels, traversing the
// whole error chain. Returns KindUnknown for unrecognized errors.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	for _, p := range kindPriorities {
		switch p.kind {
		case KindCanceled:
			if IsCanceled(err) {
				return KindCanceled
			}
		case KindTimeout:
			if IsTimeout(err) {
				return KindTimeout
			}
		default:
			if errors.Is(err, p.err) {
				return p.kind
			}
		}
	}
	return KindUnknown
}

// HasKind reports whether err classifies as kind.
func HasKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// sentinelOf maps a Kind back to its sentinel, or nil for kinds
// without one.
func sentinelOf(kind Kind) error {
	switch kind {
	case KindNotFound:
		return ErrNotFound
	case KindValidation:
		return ErrValidation
	case KindTimeout:
		return ErrTimeout
	case KindInternal:
		return ErrInternal
	case KindDependencyFailure:
		return ErrDependencyFailure
	case KindClosed:
		return ErrClosed
	default:
		return nil
	}
}

// MarkKind wraps err with the sentinel for kind, so both
// KindOf(marked) == kind and errors.Is(marked, err) hold. Marking is
// idempotent; a nil err yields the bare sentinel.
func MarkKind(err error, kind Kind) error {
	sentinel := sentinelOf(kind)
	if sentinel == nil {
		return err
	}
	if err == nil {
		return sentinel
	}
	if KindOf(err) == kind {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

// Wrap adds context to err, preserving the original error. Returns nil
// for a nil err and err unchanged for empty context.
func Wrap(err error, context string) error {
	if err == nil {
		return nil
	}
	if context == "" {
		return err
	}
	return fmt.Errorf("%s: %w", context, err)
}

// Wrapf is Wrap with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// IsCanceled reports whether err indicates a canceled context.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}

// IsTimeout reports whether err indicates a timeout: our ErrTimeout,
// a context deadline, or a network timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrTimeout) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// IsNotFound reports whether err indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation reports whether err indicates failed input validation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsDependencyFailure reports whether err indicates a failed external
// dependency.
func IsDependencyFailure(err error) bool {
	return errors.Is(err, ErrDependencyFailure)
}

// IsClosed reports whether err indicates use after shutdown.
func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed)
}
