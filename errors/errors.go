package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError carries a stable code alongside a readable message. Details are
// surfaced verbatim by the developer console.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause == nil {
		return string(e.Code) + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
}

func (e *AppError) Unwrap() error { return e.Cause }

// Is matches any AppError with the same code, so
// errors.Is(err, errors.NotFound("", "")) holds for every NOT_FOUND.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = value
	return e
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// newf builds an AppError whose details are given as alternating keys and
// values. Empty string values are left out.
func newf(code ErrorCode, kv []any, format string, args ...any) *AppError {
	e := New(code, fmt.Sprintf(format, args...))
	for i := 0; i+1 < len(kv); i += 2 {
		if s, ok := kv[i+1].(string); ok && s == "" {
			continue
		}
		e.WithDetail(kv[i].(string), kv[i+1])
	}
	return e
}

// NotFound reports a missing node, framebuffer, flag or pipeline.
func NotFound(resource, id string) *AppError {
	return newf(ErrCodeNotFound, []any{"resource", resource, "id", id}, "%s %q not found", resource, id)
}

// AlreadyExists reports a name registered twice.
func AlreadyExists(resource, id string) *AppError {
	return newf(ErrCodeAlreadyExists, []any{"resource", resource, "id", id}, "%s %q already exists", resource, id)
}

func InvalidInput(field, reason string) *AppError {
	return newf(ErrCodeInvalidInput, []any{"field", field}, "invalid input: %s", reason)
}

// Validation reports failed struct or field checks under INVALID_INPUT.
func Validation(message string) *AppError {
	return New(ErrCodeInvalidInput, message)
}

// MissingDependency reports a nil collaborator handed to a constructor.
func MissingDependency(owner, dependency string) *AppError {
	return newf(ErrCodeMissingDependency, []any{"owner", owner, "dependency", dependency},
		"%s requires a non-nil %s", owner, dependency)
}

// CycleDetected reports a dependency cycle found after ordering processed
// of total nodes.
func CycleDetected(processed, total int) *AppError {
	return newf(ErrCodeCycleDetected, []any{"processed", processed, "total", total},
		"cycle detected, processed %d of %d nodes", processed, total)
}

// ConditionFailed reports an enable predicate that panicked.
func ConditionFailed(node string, recovered any) *AppError {
	return newf(ErrCodeConditionFailed, []any{"node", node}, "condition of %s panicked: %v", node, recovered)
}

func Closed(resource string) *AppError {
	return newf(ErrCodeClosed, []any{"resource", resource}, "%s is closed", resource)
}

func Internal(cause error) *AppError {
	return New(ErrCodeInternal, "unexpected error").WithCause(cause)
}

func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	ok := stderrors.As(err, &appErr)
	return appErr, ok
}

// IsCode looks through wrapping for an AppError with code.
func IsCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// Wrap returns AppErrors unchanged and turns anything else into INTERNAL.
func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return Internal(err)
}
