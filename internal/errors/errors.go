// Package errors defines the API error taxonomy and the JSON envelopes every
// endpoint answers with.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"sales-dashboard/internal/observability"
)

type ErrorCode string

const (
	CodeInternal       ErrorCode = "INTERNAL_ERROR"
	CodeNotFound       ErrorCode = "NOT_FOUND"
	CodeSourceNotFound ErrorCode = "SOURCE_NOT_FOUND"
	CodeInvalidData    ErrorCode = "INVALID_DATA"
	CodeRateLimit      ErrorCode = "RATE_LIMIT_EXCEEDED"
)

var statusCodes = map[ErrorCode]int{
	CodeInternal:       http.StatusInternalServerError,
	CodeNotFound:       http.StatusNotFound,
	CodeSourceNotFound: http.StatusNotFound,
	CodeInvalidData:    http.StatusUnprocessableEntity,
	CodeRateLimit:      http.StatusTooManyRequests,
}

type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"-"`
	Cause      error     `json:"-"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	status, ok := statusCodes[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: status,
		Timestamp:  time.Now().UTC(),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	appErr := New(code, message)
	appErr.Cause = err
	return appErr
}

func Internal(message string) *AppError {
	return New(CodeInternal, message)
}

func InternalWrap(err error, message string) *AppError {
	return Wrap(err, CodeInternal, message)
}

func NotFound(message string) *AppError {
	return New(CodeNotFound, message)
}

// SourceNotFound reports an expected input file that does not exist. The cause
// text is exposed as Details since it names the missing path.
func SourceNotFound(err error) *AppError {
	appErr := Wrap(err, CodeSourceNotFound, "Expected input file not found")
	appErr.Details = err.Error()
	return appErr
}

// InvalidData reports input that was found but could not be parsed or is too
// short to analyse.
func InvalidData(err error) *AppError {
	appErr := Wrap(err, CodeInvalidData, "Sales data could not be processed")
	appErr.Details = err.Error()
	return appErr
}

func RateLimit(message string) *AppError {
	return New(CodeRateLimit, message)
}

type ErrorResponse struct {
	Error   *AppError `json:"error"`
	Success bool      `json:"success"`
}

// WriteError answers with the error envelope. An error without an AppError in
// its chain is reported as INTERNAL_ERROR and its text is not exposed.
func WriteError(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		appErr = Internal("An unexpected error occurred")
		appErr.Cause = err
	}

	resp := *appErr
	resp.RequestID = observability.GetRequestID(ctx)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)

	if encodeErr := json.NewEncoder(w).Encode(ErrorResponse{Error: &resp}); encodeErr != nil {
		logger.ErrorContext(ctx, "failed to encode error response",
			"encode_error", encodeErr,
			"original_error", err,
		)
		return
	}

	level := slog.LevelError
	if resp.StatusCode < http.StatusInternalServerError {
		level = slog.LevelWarn
	}

	logger.Log(ctx, level, "request failed",
		"error_code", resp.Code,
		"error_message", resp.Message,
		"status_code", resp.StatusCode,
		"cause", resp.Cause,
	)
}

type SuccessResponse struct {
	Data    any  `json:"data"`
	Success bool `json:"success"`
}

func WriteSuccess(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	_ = json.NewEncoder(w).Encode(SuccessResponse{
		Data:    data,
		Success: true,
	})
}

func WriteSuccessWithHeaders(w http.ResponseWriter, data any, headers map[string]string) {
	for key, value := range headers {
		w.Header().Set(key, value)
	}
	WriteSuccess(w, data)
}
