package shared

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Kind reports which error category the code belongs to
func (e *DomainError) Kind() ErrorKind {
	if kind, ok := codeKinds[e.Code]; ok {
		return kind
	}
	return KindUnknown
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes raised by the settlement core
const (
	CodeValidation          = "VALIDATION_FAILED"
	CodeEmptyLines          = "EMPTY_LINES"
	CodeUnknownItem         = "UNKNOWN_ITEM"
	CodeInsufficientStock   = "INSUFFICIENT_STOCK"
	CodeNegativeStock       = "NEGATIVE_STOCK"
	CodeNotFound            = "NOT_FOUND"
	CodeConflict            = "CONFLICT"
	CodeDuplicateReportDate = "DUPLICATE_REPORT_DATE"
	CodeDuplicateSKU        = "DUPLICATE_SKU"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
)

// ErrorKind is the coarse category a caller (e.g. the HTTP layer) branches on
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindNotFound
	KindConflict
)

var codeKinds = map[string]ErrorKind{
	CodeValidation:          KindValidation,
	CodeEmptyLines:          KindValidation,
	CodeUnknownItem:         KindValidation,
	CodeInsufficientStock:   KindValidation,
	CodeNegativeStock:       KindValidation,
	CodeNotFound:            KindNotFound,
	CodeConflict:            KindConflict,
	CodeDuplicateReportDate: KindConflict,
	CodeDuplicateSKU:        KindConflict,
	CodeConcurrencyConflict: KindConflict,
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another transaction, retry the request")
)

// NewValidationError creates a validation error with the generic validation code
func NewValidationError(message string) *DomainError {
	return NewDomainError(CodeValidation, message)
}

// NewNotFoundError creates a not-found error naming the missing resource
func NewNotFoundError(resource, id string) *DomainError {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s %s not found", resource, id))
}

// NewConflictError creates a conflict error with a specific conflict code
func NewConflictError(code, message string) *DomainError {
	return NewDomainError(code, message)
}

// KindOf returns the error kind of err, unwrapping as needed
func KindOf(err error) ErrorKind {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Kind()
	}
	return KindUnknown
}

// IsValidation reports whether err is a validation error
func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}

// IsNotFound reports whether err is a not-found error
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsConflict reports whether err is a conflict error
func IsConflict(err error) bool {
	return KindOf(err) == KindConflict
}

// HasCode reports whether err is a DomainError with the given code
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
}
