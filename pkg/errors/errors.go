package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeUnauthorized represents a bad or missing trigger credential
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	// ErrorTypeTransport represents network errors and non-success upstream responses
	ErrorTypeTransport ErrorType = "transport"
	// ErrorTypeUpstreamRejected represents an upstream envelope reporting failure
	ErrorTypeUpstreamRejected ErrorType = "upstream_rejected"
	// ErrorTypeRateLimit represents an upstream that asked us to back off
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeUpstreamFailure represents an ingestion run that could not acquire listings
	ErrorTypeUpstreamFailure ErrorType = "upstream_failure"
	// ErrorTypePersistence represents an ingestion run that could not write its snapshot
	ErrorTypePersistence ErrorType = "persistence_failure"
	// ErrorTypeStore represents blob store errors
	ErrorTypeStore ErrorType = "store"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// ListingError represents an error raised anywhere in the listing pipeline
type ListingError struct {
	Type    ErrorType
	Source  string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *ListingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Source, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Source, e.Message)
}

// Unwrap returns the underlying error
func (e *ListingError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether re-triggering later may succeed
func (e *ListingError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeTransport, ErrorTypePersistence, ErrorTypeStore:
		return true
	case ErrorTypeUpstreamFailure:
		var cause *ListingError
		if stderrors.As(e.Err, &cause) {
			return cause.IsRetryable()
		}
		return true
	default:
		return false
	}
}

// New creates a new ListingError
func New(errType ErrorType, source, message string, err error) *ListingError {
	return &ListingError{
		Type:    errType,
		Source:  source,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewTransport creates a new transport error
func NewTransport(source, message string, err error) *ListingError {
	return New(ErrorTypeTransport, source, message, err)
}

// NewUpstreamRejected creates a new upstream rejection error
func NewUpstreamRejected(source, message string, err error) *ListingError {
	return New(ErrorTypeUpstreamRejected, source, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(source string, duration time.Duration) *ListingError {
	message := fmt.Sprintf("rate limited for %v", duration)
	return New(ErrorTypeRateLimit, source, message, nil)
}

// NewUnauthorized creates a new unauthorized error
func NewUnauthorized(source string) *ListingError {
	return New(ErrorTypeUnauthorized, source, "credential mismatch", nil)
}

// NewUpstreamFailure wraps an acquisition error for the ingestion caller
func NewUpstreamFailure(source string, err error) *ListingError {
	return New(ErrorTypeUpstreamFailure, source, "failed to acquire listings", err)
}

// NewPersistence wraps a store error for the ingestion caller
func NewPersistence(source string, err error) *ListingError {
	return New(ErrorTypePersistence, source, "failed to persist snapshot", err)
}

// NewStore creates a new store error
func NewStore(source, message string, err error) *ListingError {
	return New(ErrorTypeStore, source, message, err)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *ListingError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// KindOf returns the type of the outermost ListingError in err's chain, or "" if there is none
func KindOf(err error) ErrorType {
	var le *ListingError
	if stderrors.As(err, &le) {
		return le.Type
	}
	return ""
}

// IsType reports whether any ListingError in err's chain has the given type
func IsType(err error, errType ErrorType) bool {
	for err != nil {
		var le *ListingError
		if !stderrors.As(err, &le) {
			return false
		}
		if le.Type == errType {
			return true
		}
		err = le.Err
	}
	return false
}

// IsRetryable reports whether err carries a ListingError that may succeed when triggered again
func IsRetryable(err error) bool {
	var le *ListingError
	if stderrors.As(err, &le) {
		return le.IsRetryable()
	}
	return false
}

// IsAcquisition reports whether err is an error a source strategy may fail with
func IsAcquisition(err error) bool {
	switch KindOf(err) {
	case ErrorTypeTransport, ErrorTypeUpstreamRejected, ErrorTypeRateLimit:
		return true
	}
	return false
}
