package dto

import "net/http"

// Error codes returned in the error envelope. Domain codes are passed
// through unchanged so clients see the same code the service raised.

// General error codes
const (
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "INTERNAL_ERROR"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "BAD_REQUEST"
	// ErrCodeValidation is used when request binding fails
	ErrCodeValidation = "VALIDATION_ERROR"
	// ErrCodeRequestTooLarge is used when the body exceeds the configured limit
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	// ErrCodeRequestTimeout is used when a handler exceeds the request deadline
	ErrCodeRequestTimeout = "REQUEST_TIMEOUT"
	// ErrCodeRateLimited is used when a store exceeds its request budget
	ErrCodeRateLimited = "RATE_LIMIT_EXCEEDED"
)

// Authentication error codes
const (
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeTokenExpired     = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid     = "INVALID_TOKEN"
	ErrCodeTokenNotYetValid = "TOKEN_NOT_VALID"
	ErrCodeTokenRevoked     = "TOKEN_REVOKED"
)

// Returns error codes
const (
	// ErrCodeReturnValidation carries the per-line violations in details
	ErrCodeReturnValidation   = "RETURN_VALIDATION_FAILED"
	ErrCodeInvalidTransition  = "INVALID_TRANSITION"
	ErrCodeStaleStatus        = "STALE_STATUS"
	ErrCodeCollaboratorFailed = "COLLABORATOR_FAILURE"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeSaleNotReturnable  = "SALE_NOT_RETURNABLE"
	ErrCodeInvalidRefundSplit = "INVALID_REFUND_SPLIT"
	ErrCodeInvalidActor       = "INVALID_ACTOR"
	ErrCodeInvalidStatus      = "INVALID_STATUS"
	ErrCodeInvalidReturn      = "INVALID_RETURN"
	ErrCodeInvalidTaxRate     = "INVALID_TAX_RATE"
	ErrCodeInvalidRefund      = "INVALID_REFUND"
	ErrCodeRefundConflict     = "REFUND_CONFLICT"
	ErrCodeReceiptsDisabled   = "RECEIPTS_DISABLED"
	ErrCodeInvalidState       = "INVALID_STATE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:        http.StatusInternalServerError,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeRequestTimeout:  http.StatusServiceUnavailable,
	ErrCodeRateLimited:     http.StatusTooManyRequests,

	ErrCodeUnauthorized:     http.StatusUnauthorized,
	ErrCodeForbidden:        http.StatusForbidden,
	ErrCodeTokenExpired:     http.StatusUnauthorized,
	ErrCodeTokenInvalid:     http.StatusUnauthorized,
	ErrCodeTokenNotYetValid: http.StatusUnauthorized,
	ErrCodeTokenRevoked:     http.StatusUnauthorized,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeReturnValidation:   http.StatusUnprocessableEntity,
	ErrCodeInvalidTransition:  http.StatusUnprocessableEntity,
	ErrCodeSaleNotReturnable:  http.StatusUnprocessableEntity,
	ErrCodeInvalidRefundSplit: http.StatusUnprocessableEntity,
	ErrCodeInvalidReturn:      http.StatusUnprocessableEntity,
	ErrCodeInvalidTaxRate:     http.StatusUnprocessableEntity,
	ErrCodeInvalidRefund:      http.StatusUnprocessableEntity,
	ErrCodeInvalidState:       http.StatusUnprocessableEntity,

	// Lost races -> 409 Conflict
	ErrCodeStaleStatus:    http.StatusConflict,
	ErrCodeRefundConflict: http.StatusConflict,

	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeCollaboratorFailed: http.StatusBadGateway,
	ErrCodeInvalidActor:       http.StatusBadRequest,
	ErrCodeInvalidStatus:      http.StatusBadRequest,
	ErrCodeReceiptsDisabled:   http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// LegacyErrorCodeMapping maps codes still raised by shared infrastructure
// onto the public codes
var LegacyErrorCodeMapping = map[string]string{
	"CONCURRENCY_CONFLICT":    ErrCodeStaleStatus,
	"CONCURRENT_MODIFICATION": ErrCodeStaleStatus,
	"VERSION_CONFLICT":        ErrCodeStaleStatus,
	"INVALID_INPUT":           ErrCodeBadRequest,
}

// NormalizeErrorCode converts a legacy error code to the public one.
// Unknown codes are returned as-is.
func NormalizeErrorCode(code string) string {
	if newCode, ok := LegacyErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
