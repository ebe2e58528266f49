/*
Package errors - Custom Error Types for the Electronic Invoicing Backend

==============================================================================
FILE: internal/errors/errors.go
==============================================================================

DESCRIPTION:
    Provides typed error definitions for consistent error handling across the
    application. Replaces string-based error checking with type assertions,
    making error handling more robust and maintainable.

USAGE:
    // In service layer:
    return errors.ErrInvalidCredentials

    // In handler layer:
    if errors.Is(err, errors.ErrInvalidCredentials) {
        c.JSON(http.StatusUnauthorized, ...)
    }

    // For wrapped errors:
    return errors.Wrap(err, errors.ErrDatabaseOperation)

DEVELOPER GUIDELINES:
    OK to modify: Add new error types as needed
    CAUTION: Changing error messages may affect frontend error display
    DO NOT modify: Error interface implementation

==============================================================================
*/
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
)

// AppError represents an application-level error with HTTP status code
type AppError struct {
	Code       string // Machine-readable error code
	Message    string // Human-readable message
	HTTPStatus int    // HTTP status code for API responses
	Err        error  // Underlying error (optional)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is implements error matching for errors.Is()
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewAppError creates a new application error
func NewAppError(code string, message string, status int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: status,
	}
}

// Wrap wraps an underlying error with an AppError
func Wrap(err error, appErr *AppError) *AppError {
	return &AppError{
		Code:       appErr.Code,
		Message:    appErr.Message,
		HTTPStatus: appErr.HTTPStatus,
		Err:        err,
	}
}

// WithMessage creates a copy of the error with a custom message
func (e *AppError) WithMessage(msg string) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    msg,
		HTTPStatus: e.HTTPStatus,
		Err:        e.Err,
	}
}

// ============================================================================
// Authentication Errors
// ============================================================================

var (
	ErrInvalidCredentials = NewAppError(
		"AUTH_INVALID_CREDENTIALS",
		"Invalid email or password",
		http.StatusUnauthorized,
	)

	ErrAccountDeactivated = NewAppError(
		"AUTH_ACCOUNT_DEACTIVATED",
		"Account is deactivated",
		http.StatusUnauthorized,
	)

	ErrInvalidToken = NewAppError(
		"AUTH_INVALID_TOKEN",
		"Invalid or expired token",
		http.StatusUnauthorized,
	)

	ErrTokenExpired = NewAppError(
		"AUTH_TOKEN_EXPIRED",
		"Token has expired",
		http.StatusUnauthorized,
	)

	ErrRefreshTokenInvalid = NewAppError(
		"AUTH_REFRESH_TOKEN_INVALID",
		"Invalid refresh token",
		http.StatusUnauthorized,
	)

	ErrUnauthorized = NewAppError(
		"AUTH_UNAUTHORIZED",
		"Unauthorized access",
		http.StatusUnauthorized,
	)

	ErrForbidden = NewAppError(
		"AUTH_FORBIDDEN",
		"Insufficient permissions",
		http.StatusForbidden,
	)
)

// ============================================================================
// Validation Errors
// ============================================================================

var (
	ErrValidationFailed = NewAppError(
		"VALIDATION_FAILED",
		"Validation failed",
		http.StatusBadRequest,
	)

	ErrInvalidInput = NewAppError(
		"VALIDATION_INVALID_INPUT",
		"Invalid input provided",
		http.StatusBadRequest,
	)

	ErrMissingField = NewAppError(
		"VALIDATION_MISSING_FIELD",
		"Required field is missing",
		http.StatusBadRequest,
	)

	ErrInvalidEmail = NewAppError(
		"VALIDATION_INVALID_EMAIL",
		"Invalid email format",
		http.StatusBadRequest,
	)

	ErrPasswordTooWeak = NewAppError(
		"VALIDATION_PASSWORD_WEAK",
		"Password does not meet requirements",
		http.StatusBadRequest,
	)

	ErrPasswordMismatch = NewAppError(
		"VALIDATION_PASSWORD_MISMATCH",
		"Current password is incorrect",
		http.StatusBadRequest,
	)
)

// ============================================================================
// Resource Errors
// ============================================================================

var (
	ErrNotFound = NewAppError(
		"RESOURCE_NOT_FOUND",
		"Resource not found",
		http.StatusNotFound,
	)

	ErrAlreadyExists = NewAppError(
		"RESOURCE_ALREADY_EXISTS",
		"Resource already exists",
		http.StatusConflict,
	)

	ErrEmailAlreadyExists = NewAppError(
		"RESOURCE_EMAIL_EXISTS",
		"Email already registered",
		http.StatusConflict,
	)

	ErrRUCAlreadyExists = NewAppError(
		"RESOURCE_RUC_EXISTS",
		"RUC already registered",
		http.StatusConflict,
	)
)

// ============================================================================
// Database Errors
// ============================================================================

var (
	ErrDatabaseOperation = NewAppError(
		"DATABASE_ERROR",
		"Database operation failed",
		http.StatusInternalServerError,
	)

	ErrRecordNotFound = NewAppError(
		"DATABASE_RECORD_NOT_FOUND",
		"Record not found",
		http.StatusNotFound,
	)

	ErrDuplicateKey = NewAppError(
		"DATABASE_DUPLICATE_KEY",
		"Duplicate key violation",
		http.StatusConflict,
	)
)

// ============================================================================
// Business Logic Errors (SRI invoicing domain)
// ============================================================================

var (
	ErrInsufficientCredit = NewAppError(
		"CREDIT_INSUFFICIENT",
		"Issuer does not have enough credit to issue this invoice",
		http.StatusPaymentRequired,
	)

	ErrEmissionPointInactive = NewAppError(
		"EMISSION_POINT_INACTIVE",
		"Emission point is not active",
		http.StatusConflict,
	)

	ErrNoActiveSigningCredential = NewAppError(
		"SIGNING_CREDENTIAL_MISSING",
		"Issuer has no active signing credential on file",
		http.StatusConflict,
	)

	ErrSigningCredentialExpired = NewAppError(
		"SIGNING_CREDENTIAL_EXPIRED",
		"Issuer's signing certificate has expired",
		http.StatusConflict,
	)

	ErrInvoiceNotInDraftState = NewAppError(
		"INVOICE_INVALID_STATE",
		"Invoice is not in a state that allows this operation",
		http.StatusConflict,
	)

	ErrInvoiceRejectedBySRI = NewAppError(
		"INVOICE_REJECTED",
		"SRI rejected the invoice",
		http.StatusUnprocessableEntity,
	)

	ErrIdempotencyKeyConflict = NewAppError(
		"IDEMPOTENCY_KEY_CONFLICT",
		"A different invoice was already issued for this idempotency key",
		http.StatusConflict,
	)

	ErrInvalidAccessKey = NewAppError(
		"ACCESS_KEY_INVALID",
		"Generated access key failed check-digit validation",
		http.StatusInternalServerError,
	)

	ErrSRIUnavailable = NewAppError(
		"SRI_UNAVAILABLE",
		"SRI web services are temporarily unavailable",
		http.StatusBadGateway,
	)

	ErrRucMismatch = NewAppError(
		"CREDENTIAL_RUC_MISMATCH",
		"The RUC embedded in the certificate does not match the issuer",
		http.StatusBadRequest,
	)

	ErrCredentialUndecryptable = NewAppError(
		"CREDENTIAL_UNDECRYPTABLE",
		"Signing credential could not be decrypted",
		http.StatusBadRequest,
	)

	ErrUnknownEmissionPoint = NewAppError(
		"EMISSION_POINT_UNKNOWN",
		"No emission point matches the given establishment/point codes for this issuer",
		http.StatusNotFound,
	)

	ErrUnsupportedTaxTariff = NewAppError(
		"TAX_TARIFF_UNSUPPORTED",
		"Line item carries a tax tariff outside the supported codebook",
		http.StatusUnprocessableEntity,
	)

	ErrArtifactStoreUnavailable = NewAppError(
		"ARTIFACT_STORE_UNAVAILABLE",
		"Object storage for signed artifacts is temporarily unavailable",
		http.StatusBadGateway,
	)

	ErrArtifactNotFound = NewAppError(
		"ARTIFACT_NOT_FOUND",
		"Requested artifact does not exist in object storage",
		http.StatusNotFound,
	)
)

// ============================================================================
// File/Upload Errors
// ============================================================================

var (
	ErrFileTooLarge = NewAppError(
		"FILE_TOO_LARGE",
		"File size exceeds maximum allowed",
		http.StatusBadRequest,
	)

	ErrInvalidFileType = NewAppError(
		"FILE_INVALID_TYPE",
		"File type not allowed",
		http.StatusBadRequest,
	)

	ErrFileUploadFailed = NewAppError(
		"FILE_UPLOAD_FAILED",
		"Failed to upload file",
		http.StatusInternalServerError,
	)
)

// ============================================================================
// Rate Limiting Errors
// ============================================================================

var (
	ErrRateLimitExceeded = NewAppError(
		"RATE_LIMIT_EXCEEDED",
		"Too many requests, please try again later",
		http.StatusTooManyRequests,
	)
)

// ============================================================================
// Internal Errors
// ============================================================================

var (
	ErrInternal = NewAppError(
		"INTERNAL_ERROR",
		"An internal error occurred",
		http.StatusInternalServerError,
	)

	ErrServiceUnavailable = NewAppError(
		"SERVICE_UNAVAILABLE",
		"Service temporarily unavailable",
		http.StatusServiceUnavailable,
	)
)

// ============================================================================
// Helper Functions
// ============================================================================

// GetHTTPStatus returns the HTTP status code for an error
func GetHTTPStatus(err error) int {
	var appErr *AppError
	if As(err, &appErr) {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// GetErrorCode returns the error code for an error
func GetErrorCode(err error) string {
	var appErr *AppError
	if As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN_ERROR"
}

// GetErrorMessage returns the user-friendly message for an error
func GetErrorMessage(err error) string {
	var appErr *AppError
	if As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
