package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyInput          = errors.New("empty input")
	ErrUnsupportedFormat   = errors.New("unsupported file format")
	ErrInsufficientRecords = errors.New("insufficient records")
	ErrServer              = errors.New("server error")
	ErrProtocol            = errors.New("protocol error")
	ErrBusy                = errors.New("operation already in flight")
)

// InsufficientRecordsError reports a batch below the minimum size
type InsufficientRecordsError struct {
	Count int
	Min   int
}

func (e *InsufficientRecordsError) Error() string {
	return fmt.Sprintf("need at least %d records, got %d", e.Min, e.Count)
}

func (e *InsufficientRecordsError) Is(target error) bool {
	return target == ErrInsufficientRecords
}

// ServerError is a non-success HTTP status from the service
type ServerError struct {
	StatusCode int
	Detail     string
}

func (e *ServerError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("service returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("service returned status %d: %s", e.StatusCode, e.Detail)
}

func (e *ServerError) Is(target error) bool {
	return target == ErrServer
}

// ProtocolError is a response body that does not have the expected shape
type ProtocolError struct {
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unexpected response: %s: %v", e.Reason, e.Err)
	}
	return "unexpected response: " + e.Reason
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

func (e *ProtocolError) Is(target error) bool {
	return target == ErrProtocol
}
