package dto

import (
	"net/http"

	"github.com/liquorledger/backend/internal/domain/shared"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown            = "ERR_UNKNOWN"
	ErrCodeInternal           = "ERR_INTERNAL"
	ErrCodeServiceUnavailable = "ERR_SERVICE_UNAVAILABLE"
)

// Input error codes
const (
	ErrCodeValidation  = "ERR_VALIDATION"
	ErrCodeBadRequest  = "ERR_BAD_REQUEST"
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	ErrCodeForbidden   = "ERR_FORBIDDEN"
)

// Settlement rule error codes
const (
	ErrCodeEmptyLines        = "ERR_EMPTY_LINES"
	ErrCodeUnknownItem       = "ERR_UNKNOWN_ITEM"
	ErrCodeInsufficientStock = "ERR_INSUFFICIENT_STOCK"
	ErrCodeNegativeStock     = "ERR_NEGATIVE_STOCK"
)

// Resource error codes
const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeDuplicateReportDate = "ERR_DUPLICATE_REPORT_DATE"
	ErrCodeDuplicateSKU        = "ERR_DUPLICATE_SKU"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	// ErrCodeDuplicateRequest is returned when an Idempotency-Key is reused
	ErrCodeDuplicateRequest = "ERR_DUPLICATE_REQUEST"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:            http.StatusInternalServerError,
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,

	ErrCodeValidation:  http.StatusBadRequest,
	ErrCodeBadRequest:  http.StatusBadRequest,
	ErrCodeInvalidJSON: http.StatusBadRequest,
	ErrCodeForbidden:   http.StatusForbidden,

	// Settlement rejections are input problems the user can fix
	ErrCodeEmptyLines:        http.StatusBadRequest,
	ErrCodeUnknownItem:       http.StatusBadRequest,
	ErrCodeInsufficientStock: http.StatusBadRequest,
	ErrCodeNegativeStock:     http.StatusBadRequest,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeDuplicateReportDate: http.StatusConflict,
	ErrCodeDuplicateSKU:        http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeDuplicateRequest:    http.StatusConflict,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes
var DomainErrorCodeMapping = map[string]string{
	shared.CodeValidation:          ErrCodeValidation,
	shared.CodeEmptyLines:          ErrCodeEmptyLines,
	shared.CodeUnknownItem:         ErrCodeUnknownItem,
	shared.CodeInsufficientStock:   ErrCodeInsufficientStock,
	shared.CodeNegativeStock:       ErrCodeNegativeStock,
	shared.CodeNotFound:            ErrCodeNotFound,
	shared.CodeConflict:            ErrCodeConflict,
	shared.CodeDuplicateReportDate: ErrCodeDuplicateReportDate,
	shared.CodeDuplicateSKU:        ErrCodeDuplicateSKU,
	shared.CodeConcurrencyConflict: ErrCodeConcurrencyConflict,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Codes without a mapping fall back to their error kind.
func NormalizeErrorCode(err *shared.DomainError) string {
	if code, ok := DomainErrorCodeMapping[err.Code]; ok {
		return code
	}
	switch err.Kind() {
	case shared.KindValidation:
		return ErrCodeValidation
	case shared.KindNotFound:
		return ErrCodeNotFound
	case shared.KindConflict:
		return ErrCodeConflict
	default:
		return ErrCodeUnknown
	}
}
