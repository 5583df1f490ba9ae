// Package herr implements the error taxonomy of spec.md §7:
// ConfigError, ConfigWarning, ResponseLifecycle, InvalidBody,
// ClientGone, and InternalFilter. Each is a distinct type so callers
// can recover the taxonomy case with errors.As after a filter or
// writer has wrapped it with call-site context via
// github.com/pkg/errors (ground: docker-compose's dependency on
// pkg/errors for exactly this "wrap, preserve cause" pattern).
package herr

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// ConfigError signals a fatal startup-time configuration problem:
// bad address, bad port, missing/unreadable cert, cert without a
// private key, or an empty crypto_method bitmask.
type ConfigError struct{ msg string }

func (e *ConfigError) Error() string { return "config: " + e.msg }

// ConfigErrorf builds a ConfigError with a formatted message.
func ConfigErrorf(format string, args ...interface{}) error {
	return &ConfigError{msg: fmt.Sprintf(format, args...)}
}

// ConfigWarning signals a non-fatal configuration concern: a
// certificate CN/SAN mismatch, or an expired certificate. It must be
// logged and otherwise ignored (spec.md §7).
type ConfigWarning struct{ msg string }

func (e *ConfigWarning) Error() string { return "config warning: " + e.msg }

func ConfigWarningf(format string, args ...interface{}) error {
	return &ConfigWarning{msg: fmt.Sprintf(format, args...)}
}

// ResponseLifecycle signals a Response method called in a disallowed
// state (spec.md §4.4's precondition table). Always a programmer bug;
// synchronous and fatal to the current response only.
type ResponseLifecycle struct{ msg string }

func (e *ResponseLifecycle) Error() string { return "response lifecycle: " + e.msg }

func LifecycleErrorf(format string, args ...interface{}) error {
	return &ResponseLifecycle{msg: fmt.Sprintf(format, args...)}
}

// InvalidBody signals a body.Body the writer factory does not
// recognize: a programmer error, not a runtime condition.
type InvalidBody struct{ msg string }

func (e *InvalidBody) Error() string { return "invalid body: " + e.msg }

func InvalidBodyf(format string, args ...interface{}) error {
	return &InvalidBody{msg: fmt.Sprintf(format, args...)}
}

// ClientGone signals the underlying socket closed or reset during a
// write or read. Aborts the current writer and terminates further
// work on the connection; pending queued requests are dropped.
type ClientGone struct{ cause error }

func (e *ClientGone) Error() string {
	if e.cause == nil {
		return "client gone"
	}
	return "client gone: " + e.cause.Error()
}
func (e *ClientGone) Unwrap() error { return e.cause }

func NewClientGone(cause error) error { return &ClientGone{cause: cause} }

// InternalFilter signals a codec filter raised during header or body
// processing. Recoverable (the driver substitutes a synthetic 500)
// iff headers have not yet reached the writer.
type InternalFilter struct{ cause error }

func (e *InternalFilter) Error() string { return "internal filter: " + e.cause.Error() }
func (e *InternalFilter) Unwrap() error { return e.cause }

func NewInternalFilter(cause error) error { return &InternalFilter{cause: cause} }

// Wrap attaches call-site context to err while preserving the
// taxonomy type for errors.As.
func Wrap(err error, context string) error {
	if err == nil {
		return nil
	}
	return pkgerrors.Wrap(err, context)
}

// Is* helpers for callers that don't want to import errors.As at
// every call site.

func IsConfigError(err error) bool {
	var e *ConfigError
	return errors.As(err, &e)
}

func IsResponseLifecycle(err error) bool {
	var e *ResponseLifecycle
	return errors.As(err, &e)
}

func IsInvalidBody(err error) bool {
	var e *InvalidBody
	return errors.As(err, &e)
}

func IsClientGone(err error) bool {
	var e *ClientGone
	return errors.As(err, &e)
}

func IsInternalFilter(err error) bool {
	var e *InternalFilter
	return errors.As(err, &e)
}
