// Package errors provides coded domain errors for the sensor node.
//
// Every failure the node reports (registry overflow, sensor read failures,
// bad CLI input) carries a stable ErrorCode so callers and tests can match on
// the code instead of the rendered message.
package errors

// ErrorCode is a stable identifier for each error type
type ErrorCode string

// Error represents a domain-specific error with context
type Error interface {
	error
	Code() ErrorCode
	WithMessage(msg string) Error
	WithData(data any) Error
	GetData() any
	Unwrap() error
}

// Factory defines methods for creating domain errors
type Factory interface {
	New(code ErrorCode) Error
	Wrap(code ErrorCode, err error) Error
	WithMessage(code ErrorCode, msg string) Error
	WithData(code ErrorCode, data any) Error
}
