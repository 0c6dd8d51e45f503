package resilience

import (
	"context"
	"time"
)

// Operation is an arbitrary wrapped call against an external dependency.
type Operation func(ctx context.Context) (any, error)

// RetryOptions configures one WithRetry call. Zero fields fall back to the
// configured defaults.
type RetryOptions struct {
	MaxAttempts   int
	Delay         time.Duration
	OperationName string
	// IsRetryable overrides the default error classifier for this call.
	IsRetryable func(error) bool
}

// BreakerOptions configures the named breaker guarding one operation. The
// breaker is created on first use and persists process-wide.
type BreakerOptions struct {
	OperationName    string
	FailureThreshold int
	ResetTimeout     time.Duration
}

// Defaults are the fallback retry/breaker knobs applied when call options
// leave a field zero.
type Defaults struct {
	MaxAttempts      int
	Delay            time.Duration
	FailureThreshold int
	ResetTimeout     time.Duration
}

// BreakerStats is the admin-surface snapshot of one breaker.
type BreakerStats struct {
	Name                 string `json:"name"`
	State                string `json:"state"`
	Requests             uint32 `json:"requests"`
	TotalSuccesses       uint32 `json:"total_successes"`
	TotalFailures        uint32 `json:"total_failures"`
	ConsecutiveFailures  uint32 `json:"consecutive_failures"`
	ConsecutiveSuccesses uint32 `json:"consecutive_successes"`
}

type IResilienceUsecase interface {
	// WithRetry invokes op up to MaxAttempts times with linear backoff,
	// skipping further attempts for non-retryable errors and honoring ctx
	// cancellation between attempts.
	WithRetry(ctx context.Context, op Operation, opts RetryOptions) (any, error)
	// WithCircuitBreaker invokes op through the named breaker, failing fast
	// with ErrCircuitOpen while the breaker is open.
	WithCircuitBreaker(ctx context.Context, op Operation, opts BreakerOptions) (any, error)
	IsRetryableError(err error) bool
	BreakerStats() []BreakerStats
}
