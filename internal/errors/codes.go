package errors

// ErrorCode represents a machine-readable error identifier for frontend error handling.
type ErrorCode string

// Authentication Errors (token verification failures)
const (
	// No usable credential in the Authorization header
	ErrCodeMissingCredential ErrorCode = "missing_credential"

	ErrCodeInvalidCredentials ErrorCode = "invalid_credentials"
	ErrCodeTokenExpired       ErrorCode = "token_expired"
	ErrCodeTokenMalformed     ErrorCode = "token_malformed"
	ErrCodeTokenRevoked       ErrorCode = "token_revoked"
	ErrCodeWrongTokenType     ErrorCode = "wrong_token_type"
)

// Authorization Errors
const (
	ErrCodePermissionDenied ErrorCode = "permission_denied"
	ErrCodeNotResourceOwner ErrorCode = "not_resource_owner"
)

// Validation Errors (request input validation)
const (
	ErrCodeValidationFailed ErrorCode = "validation_failed"
	ErrCodeMissingField     ErrorCode = "missing_field"
	ErrCodeInvalidField     ErrorCode = "invalid_field"
	ErrCodeEmptyBody        ErrorCode = "empty_body"
	ErrCodeInvalidJSON      ErrorCode = "invalid_json"
)

// Resource/State Errors (resource not found or in wrong state)
const (
	ErrCodeResourceNotFound ErrorCode = "resource_not_found"
	ErrCodeUserNotFound     ErrorCode = "user_not_found"
	ErrCodeProductNotFound  ErrorCode = "product_not_found"
	ErrCodeCartNotFound     ErrorCode = "cart_not_found"
	ErrCodeSaleNotFound     ErrorCode = "sale_not_found"
	ErrCodeInvoiceNotFound  ErrorCode = "invoice_not_found"
	ErrCodeAddressNotFound  ErrorCode = "address_not_found"

	ErrCodeEmailInUse       ErrorCode = "email_in_use"
	ErrCodeProductNameInUse ErrorCode = "product_name_in_use"
)

// Cart/Checkout Errors (business rule failures)
const (
	ErrCodeCartNotActive         ErrorCode = "cart_not_active"
	ErrCodeCartEmpty             ErrorCode = "cart_empty"
	ErrCodeInsufficientStock     ErrorCode = "insufficient_stock"
	ErrCodeInvalidCartTransition ErrorCode = "invalid_cart_transition"
	ErrCodeCartError             ErrorCode = "cart_error"
	ErrCodeSaleError             ErrorCode = "sale_error"
	ErrCodeCheckoutFailed        ErrorCode = "checkout_failed"
	ErrCodeInvoiceError          ErrorCode = "invoice_error"
)

// Rate Limiting
const (
	ErrCodeRateLimitExceeded ErrorCode = "rate_limit_exceeded"
)

// Internal/System Errors
const (
	ErrCodeInternalError      ErrorCode = "internal_error"
	ErrCodeDatabaseError      ErrorCode = "database_error"
	ErrCodeConfigError        ErrorCode = "config_error"
	ErrCodeServiceUnavailable ErrorCode = "service_unavailable"
)

// IsRetryable returns whether an error code represents a retryable error.
// Retryable errors are typically transient infrastructure issues, not validation failures.
func (e ErrorCode) IsRetryable() bool {
	switch e {
	case ErrCodeDatabaseError,
		ErrCodeServiceUnavailable,
		ErrCodeRateLimitExceeded:
		return true

	// Validation, authorization, and permanent failures are NOT retryable
	default:
		return false
	}
}

// HTTPStatus returns the appropriate HTTP status code for this error.
func (e ErrorCode) HTTPStatus() int {
	switch e {
	// 400 Bad Request - Client validation and business rule errors
	case ErrCodeValidationFailed,
		ErrCodeMissingField,
		ErrCodeInvalidField,
		ErrCodeEmptyBody,
		ErrCodeInvalidJSON,
		ErrCodeCartNotActive,
		ErrCodeCartEmpty,
		ErrCodeInsufficientStock,
		ErrCodeInvalidCartTransition,
		ErrCodeCartError,
		ErrCodeSaleError,
		ErrCodeCheckoutFailed,
		ErrCodeInvoiceError:
		return 400

	// 401 Unauthorized - Authentication failures
	case ErrCodeMissingCredential,
		ErrCodeInvalidCredentials,
		ErrCodeTokenExpired,
		ErrCodeTokenRevoked,
		ErrCodeWrongTokenType:
		return 401

	// 403 Forbidden - Authorization failures
	case ErrCodePermissionDenied,
		ErrCodeNotResourceOwner:
		return 403

	// 404 Not Found - Resource not found
	case ErrCodeResourceNotFound,
		ErrCodeUserNotFound,
		ErrCodeProductNotFound,
		ErrCodeCartNotFound,
		ErrCodeSaleNotFound,
		ErrCodeInvoiceNotFound,
		ErrCodeAddressNotFound:
		return 404

	// 409 Conflict - Uniqueness violations
	case ErrCodeEmailInUse,
		ErrCodeProductNameInUse:
		return 409

	// 422 Unprocessable Entity - Credential present but not decodable
	case ErrCodeTokenMalformed:
		return 422

	// 429 Too Many Requests
	case ErrCodeRateLimitExceeded:
		return 429

	// 503 Service Unavailable - Dependency outages
	case ErrCodeServiceUnavailable:
		return 503

	// 500 Internal Server Error - System/internal errors
	default:
		return 500
	}
}
