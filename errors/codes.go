package errors

// ErrorCode is the machine-readable part of an AppError.
type ErrorCode string

const (
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"
	ErrCodeClosed        ErrorCode = "CLOSED" // used after Close

	ErrCodeInvalidInput      ErrorCode = "INVALID_INPUT"
	ErrCodeMissingDependency ErrorCode = "MISSING_DEPENDENCY"

	ErrCodeCycleDetected   ErrorCode = "CYCLE_DETECTED"
	ErrCodeConditionFailed ErrorCode = "CONDITION_FAILED" // enable predicate panicked

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)
