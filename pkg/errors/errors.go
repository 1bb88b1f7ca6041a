// Package errors provides the unified error type and factory functions for
// FreshGuard. Every layer (domain, application, infrastructure, interfaces)
// returns AppError so that HTTP responses, logs and metrics carry the same code.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// stackDepth is the maximum number of frames captured per error.
const stackDepth = 32

func captureStack(skip int) string {
	pcs := make([]uintptr, stackDepth)
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return ""
	}
	frames := runtime.CallersFrames(pcs[:n])
	var sb strings.Builder
	for {
		f, more := frames.Next()
		if !strings.Contains(f.File, "runtime/") {
			fmt.Fprintf(&sb, "\n\t%s:%d %s", f.File, f.Line, f.Function)
		}
		if !more {
			break
		}
	}
	return sb.String()
}

// ─────────────────────────────────────────────────────────────────────────────
// AppError
// ─────────────────────────────────────────────────────────────────────────────

// AppError is the single structured error type used throughout FreshGuard.
// It supports errors.Is / errors.As through Unwrap.
//
//	return errors.New(errors.ErrCodeProductNotFound, "product not found").WithDetail("id=" + id)
//	return errors.Wrap(err, errors.CodeDBQueryError, "failed to load ledger")
type AppError struct {
	// Code identifies the failure category.
	Code ErrorCode

	// Message is safe to return to API callers.
	Message string

	// Detail carries supplementary context such as entity ids.
	Detail string

	// Cause is the wrapped lower-level error.
	Cause error

	// Stack is the call stack captured at creation. It is not part of Error().
	Stack string
}

// Error implements the error interface.
// Format: "[<code>] <message>: <detail>"
func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetail returns a copy of the receiver with Detail set.
func (e *AppError) WithDetail(detail string) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Detail = detail
	return &clone
}

// WithCause returns a copy of the receiver with Cause set.
func (e *AppError) WithCause(err error) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Cause = err
	return &clone
}

// ─────────────────────────────────────────────────────────────────────────────
// Factories
// ─────────────────────────────────────────────────────────────────────────────

// New constructs an AppError with the given code and message.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Stack:   captureStack(1),
	}
}

// Wrap constructs an AppError around err. It returns nil for a nil err.
// With CodeUnknown the code of a wrapped AppError is preserved; a plain
// error becomes ErrCodeExpiryDependency.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	if code == CodeUnknown {
		code = ErrCodeExpiryDependency
		var ae *AppError
		if errors.As(err, &ae) {
			code = ae.Code
		}
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
		Stack:   captureStack(1),
	}
}

// Validation constructs an ErrCodeExpiryValidation error.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeExpiryValidation, Message: message, Stack: captureStack(1)}
}

// NotFound constructs a CodeNotFound error.
func NotFound(message string) *AppError {
	return &AppError{Code: CodeNotFound, Message: message, Stack: captureStack(1)}
}

// Domain constructs an ErrCodeExpiryDomain error for business rule violations.
func Domain(message string) *AppError {
	return &AppError{Code: ErrCodeExpiryDomain, Message: message, Stack: captureStack(1)}
}

// Dependency wraps a collaborator failure (storage, broker, object store).
func Dependency(err error, message string) *AppError {
	return &AppError{Code: ErrCodeExpiryDependency, Message: message, Cause: err, Stack: captureStack(1)}
}

// InvalidParam constructs a CodeInvalidParam error.
func InvalidParam(message string) *AppError {
	return &AppError{Code: CodeInvalidParam, Message: message, Stack: captureStack(1)}
}

// Unauthorized constructs a CodeUnauthorized error.
func Unauthorized(message string) *AppError {
	return &AppError{Code: CodeUnauthorized, Message: message, Stack: captureStack(1)}
}

// Internal constructs a CodeInternal error.
func Internal(message string) *AppError {
	return &AppError{Code: CodeInternal, Message: message, Stack: captureStack(1)}
}

// ─────────────────────────────────────────────────────────────────────────────
// Chain inspection
// ─────────────────────────────────────────────────────────────────────────────

// IsCode reports whether any error in err's chain is an *AppError with code.
func IsCode(err error, code ErrorCode) bool {
	var ae *AppError
	for err != nil {
		if errors.As(err, &ae) && ae.Code == code {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// GetCode extracts the code of the first *AppError in err's chain.
func GetCode(err error) ErrorCode {
	if err == nil {
		return CodeOK
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeUnknown
}

// KindOf returns the taxonomy kind of err. Plain errors are dependency
// failures since they can only originate from a collaborator.
func KindOf(err error) ErrorCode {
	if err == nil {
		return CodeOK
	}
	var ae *AppError
	for e := err; e != nil; e = errors.Unwrap(e) {
		if errors.As(e, &ae) {
			if k := KindForCode(ae.Code); k != CodeUnknown {
				return k
			}
			e = ae
		}
	}
	return ErrCodeExpiryDependency
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool { return KindOf(err) == ErrCodeExpiryValidation }

// IsNotFound reports whether err reports an unknown product or action.
func IsNotFound(err error) bool { return KindOf(err) == ErrCodeExpiryNotFound }

// IsDomain reports whether err is a business rule violation.
func IsDomain(err error) bool { return KindOf(err) == ErrCodeExpiryDomain }

// IsDependency reports whether err came from a collaborator.
func IsDependency(err error) bool { return KindOf(err) == ErrCodeExpiryDependency }
