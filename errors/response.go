package errors

import "net/http"

// ErrorResponse is the JSON body returned by the developer console.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody contains the error details sent to clients.
type ErrorBody struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ToResponse converts an AppError to an ErrorResponse for JSON serialization.
func (e *AppError) ToResponse() ErrorResponse {
	return ErrorResponse{
		Error: ErrorBody{
			Code:    e.Code,
			Message: e.Message,
			Details: e.Details,
		},
	}
}

var httpStatus = map[ErrorCode]int{
	ErrCodeNotFound:          http.StatusNotFound,
	ErrCodeAlreadyExists:     http.StatusConflict,
	ErrCodeClosed:            http.StatusGone,
	ErrCodeInvalidInput:      http.StatusBadRequest,
	ErrCodeMissingDependency: http.StatusInternalServerError,
	ErrCodeCycleDetected:     http.StatusUnprocessableEntity,
	ErrCodeConditionFailed:   http.StatusInternalServerError,
}

// HTTPStatus maps the error code to an HTTP status for the console.
func (e *AppError) HTTPStatus() int {
	if s, ok := httpStatus[e.Code]; ok {
		return s
	}
	return http.StatusInternalServerError
}
