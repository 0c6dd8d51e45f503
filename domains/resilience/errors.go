package resilience

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrCircuitOpen reports a fail-fast rejection while a breaker is open.
// Callers must not treat it like an exhausted retry: it means stop hammering
// the dependency and degrade instead.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitOpenError wraps ErrCircuitOpen with the operation it protected.
type CircuitOpenError struct {
	OperationName string
}

func (e CircuitOpenError) Error() string {
	return fmt.Sprintf("operation %s rejected: %v", e.OperationName, ErrCircuitOpen)
}

func (e CircuitOpenError) Unwrap() error { return ErrCircuitOpen }

func (e CircuitOpenError) ErrCode() string { return "CIRCUIT_OPEN" }

func (e CircuitOpenError) StatusCode() int { return http.StatusServiceUnavailable }

// RetryExhaustedError carries the operation name and attempt count once every
// allowed attempt has failed.
type RetryExhaustedError struct {
	OperationName string
	Attempts      int
	Err           error
}

func (e RetryExhaustedError) Error() string {
	return fmt.Sprintf("operation %s failed after %d attempts: %v", e.OperationName, e.Attempts, e.Err)
}

func (e RetryExhaustedError) Unwrap() error { return e.Err }

func (e RetryExhaustedError) ErrCode() string { return "RETRY_EXHAUSTED" }

func (e RetryExhaustedError) StatusCode() int { return http.StatusBadGateway }

// NonRetryableError marks an error that must never be retried, e.g. a
// validation or auth failure, so retries cannot mask caller bugs.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string { return e.Err.Error() }

func (e NonRetryableError) Unwrap() error { return e.Err }

// MarkNonRetryable wraps err so the default classifier refuses to retry it.
func MarkNonRetryable(err error) error {
	if err == nil {
		return nil
	}
	return NonRetryableError{Err: err}
}

// RetryableError marks an error as explicitly retryable regardless of the
// default classification.
type RetryableError struct {
	Err error
}

func (e RetryableError) Error() string { return e.Err.Error() }

func (e RetryableError) Unwrap() error { return e.Err }

// MarkRetryable wraps err so the default classifier always retries it.
func MarkRetryable(err error) error {
	if err == nil {
		return nil
	}
	return RetryableError{Err: err}
}
