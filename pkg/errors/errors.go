package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNetwork represents connection and transport errors
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeStatus represents non-200 HTTP responses
	ErrorTypeStatus ErrorType = "status"
	// ErrorTypeRateLimit represents rate limiting errors
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeParsing represents HTML parsing errors
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeStructure represents an expected markup element that is absent
	ErrorTypeStructure ErrorType = "structure"
	// ErrorTypeNormalization represents an unparseable field value
	ErrorTypeNormalization ErrorType = "normalization"
	// ErrorTypeStorage represents sink errors
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeCache represents cache-related errors
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// ScrapeError represents a scraper-specific error
type ScrapeError struct {
	Type    ErrorType
	Source  string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Source, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Source, e.Message)
}

// Unwrap returns the underlying error
func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is retryable
func (e *ScrapeError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeNetwork, ErrorTypeStatus:
		return true
	default:
		return false
	}
}

// IsFatal reports whether the error should abort the whole run.
func (e *ScrapeError) IsFatal() bool {
	return e.Type == ErrorTypeConfiguration || e.Type == ErrorTypeStorage
}

// New creates a new ScrapeError
func New(errType ErrorType, source, message string, err error) *ScrapeError {
	return &ScrapeError{
		Type:    errType,
		Source:  source,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewNetwork creates a new network error
func NewNetwork(source, message string, err error) *ScrapeError {
	return New(ErrorTypeNetwork, source, message, err)
}

// NewStatus creates an error for an unexpected HTTP status code
func NewStatus(source string, code int) *ScrapeError {
	return New(ErrorTypeStatus, source, fmt.Sprintf("unexpected status code: %d", code), nil)
}

// NewRateLimit creates a new rate limit error. retryAfter is the raw
// Retry-After header value and may be empty.
func NewRateLimit(source, retryAfter string) *ScrapeError {
	message := "rate limited"
	if retryAfter != "" {
		message = fmt.Sprintf("rate limited; retry after %s", retryAfter)
	}
	return New(ErrorTypeRateLimit, source, message, nil)
}

// NewParsing creates a new parsing error
func NewParsing(source, message string, err error) *ScrapeError {
	return New(ErrorTypeParsing, source, message, err)
}

// NewStructure creates an error for a missing markup element
func NewStructure(source, selector string) *ScrapeError {
	return New(ErrorTypeStructure, source, fmt.Sprintf("missing element %q", selector), nil)
}

// NewNormalization creates a new normalization error
func NewNormalization(column, value string, err error) *ScrapeError {
	return New(ErrorTypeNormalization, column, fmt.Sprintf("cannot parse %q", value), err)
}

// NewStorage creates a new storage error
func NewStorage(path, message string, err error) *ScrapeError {
	return New(ErrorTypeStorage, path, message, err)
}

// NewCache creates a new cache error
func NewCache(source, message string, err error) *ScrapeError {
	return New(ErrorTypeCache, source, message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(source, message string, err error) *ScrapeError {
	return New(ErrorTypePublisher, source, message, err)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *ScrapeError {
	return New(ErrorTypeConfiguration, "config", message, err)
}

// TypeOf returns the ErrorType of the first ScrapeError in err's chain, or
// an empty string when there is none.
func TypeOf(err error) ErrorType {
	var se *ScrapeError
	if stderrors.As(err, &se) {
		return se.Type
	}
	return ""
}

// IsType reports whether err wraps a ScrapeError of the given type.
func IsType(err error, errType ErrorType) bool {
	return TypeOf(err) == errType
}
