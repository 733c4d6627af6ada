package errors

import (
	"errors"
	"fmt"
)

// Error classes for the authority client. Every failure surfaced to the
// presentation layer wraps exactly one of these, so callers can decide how
// to present it without string matching.
var (
	// ErrTransport marks network/connectivity failures. The operation is
	// abandoned and no request state is mutated.
	ErrTransport = errors.New("transport failure")

	// ErrDecode marks a well-formed HTTP reply whose body did not have the
	// expected shape. Fatal for the call; the raw body travels with the
	// wrapping error for diagnostics.
	ErrDecode = errors.New("unexpected response shape")

	// ErrValidation marks caller-side field checks that block submission
	// before any network call is made.
	ErrValidation = errors.New("validation failed")

	// ErrCancelled marks an operation superseded by a newer one. Discarded
	// silently, never reported to the user.
	ErrCancelled = errors.New("operation superseded")

	// ErrNotLoggedOn is returned when an operation needs a bearer token and
	// no session is active.
	ErrNotLoggedOn = errors.New("not logged on")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
