package errors

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a class of application error.
type ErrorCode string

const (
	ErrCodeInternal   ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"
	ErrCodeNotFound   ErrorCode = "NOT_FOUND"

	// Access workflow
	ErrCodeAlreadyPending     ErrorCode = "ALREADY_PENDING"
	ErrCodeInvalidProfileName ErrorCode = "INVALID_PROFILE_NAME"

	// External collaborators
	ErrCodeGateway      ErrorCode = "GATEWAY_ERROR"
	ErrCodeProvisioning ErrorCode = "PROVISIONING_ERROR"
	ErrCodeTelegramAPI  ErrorCode = "TELEGRAM_API_ERROR"

	// Storage
	ErrCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
)

// AppError is a typed application error carrying a code and an optional cause.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates an AppError with the given code and message.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap creates an AppError with an underlying cause.
func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Cause: cause}
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// CodeOf extracts the error code from err, defaulting to ErrCodeInternal.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

func Validation(message string) *AppError {
	return New(ErrCodeValidation, message)
}

func NotFound(message string) *AppError {
	return New(ErrCodeNotFound, message)
}

func AlreadyPending(message string) *AppError {
	return New(ErrCodeAlreadyPending, message)
}

func InvalidProfileName(message string) *AppError {
	return New(ErrCodeInvalidProfileName, message)
}

func Gateway(message string, cause error) *AppError {
	return Wrap(ErrCodeGateway, message, cause)
}

func Provisioning(message string, cause error) *AppError {
	return Wrap(ErrCodeProvisioning, message, cause)
}

func StoreUnavailable(message string, cause error) *AppError {
	return Wrap(ErrCodeStoreUnavailable, message, cause)
}
