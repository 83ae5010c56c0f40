package shared

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrorCategory represents different types of errors that can occur
type ErrorCategory string

const (
	ErrorCategoryConfiguration ErrorCategory = "configuration"
	ErrorCategoryNetwork       ErrorCategory = "network"
	ErrorCategoryDatabase      ErrorCategory = "database"
	ErrorCategoryValidation    ErrorCategory = "validation"
	ErrorCategoryProcessing    ErrorCategory = "processing"
	ErrorCategoryResource      ErrorCategory = "resource"
	ErrorCategoryTimeout       ErrorCategory = "timeout"
)

// Error codes shared by the listing sources, notifiers and stores
const (
	CodeRequestFailed   = "REQUEST_FAILED"
	CodeHTTPStatus      = "HTTP_STATUS"
	CodeDecodeFailed    = "DECODE_FAILED"
	CodeHandshakeFailed = "HANDSHAKE_FAILED"
	CodeBrowserFailed   = "BROWSER_FAILED"
	CodeNoTable         = "NO_TABLE"
	CodeDeliveryFailed  = "DELIVERY_FAILED"
	CodeNotFound        = "NOT_FOUND"
	CodeReadFailed      = "READ_FAILED"
	CodeCorrupt         = "CORRUPT"
	CodeQueryFailed     = "QUERY_FAILED"
	CodeRecordFailed    = "RECORD_FAILED"
	CodeMissingSetting  = "MISSING_SETTING"
	CodeInvalidSetting  = "INVALID_SETTING"
)

// ServiceError represents a standardized error with additional context
type ServiceError struct {
	Category    ErrorCategory `json:"category"`
	Code        string        `json:"code"`
	Message     string        `json:"message"`
	Timestamp   time.Time     `json:"timestamp"`
	ServiceName string        `json:"service_name"`
	Operation   string        `json:"operation"`
	Retryable   bool          `json:"retryable"`
	Cause       error         `json:"-"`
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// NewServiceError creates a new service error
func NewServiceError(category ErrorCategory, code, message, serviceName, operation string, retryable bool, cause error) *ServiceError {
	return &ServiceError{
		Category:    category,
		Code:        code,
		Message:     message,
		Timestamp:   time.Now(),
		ServiceName: serviceName,
		Operation:   operation,
		Retryable:   retryable,
		Cause:       cause,
	}
}

// Fields returns the structured log fields describing the error
func (e *ServiceError) Fields() logrus.Fields {
	return logrus.Fields{
		"error_category":   e.Category,
		"error_code":       e.Code,
		"error_message":    e.Message,
		"service_name":     e.ServiceName,
		"operation":        e.Operation,
		"retryable":        e.Retryable,
		"underlying_error": e.Cause,
	}
}

// WrapError wraps an existing error with service error context
func WrapError(err error, category ErrorCategory, code, serviceName, operation string, retryable bool) *ServiceError {
	if err == nil {
		return nil
	}

	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr
	}

	return NewServiceError(category, code, err.Error(), serviceName, operation, retryable, err)
}

// HasCode reports whether err is a ServiceError carrying code
func HasCode(err error, code string) bool {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Code == code
	}
	return false
}
