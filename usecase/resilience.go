package usecase

import (
	"context"
	"errors"
	"net"
	"sort"
	"sync"
	"syscall"
	"time"

	domainRes "github.com/AzielCF/az-shield/domains/resilience"
	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

type resilienceService struct {
	defaults domainRes.Defaults

	mu       sync.RWMutex
	breakers map[string]*gobreaker.CircuitBreaker
}

func NewResilienceService(defaults domainRes.Defaults) domainRes.IResilienceUsecase {
	if defaults.MaxAttempts <= 0 {
		defaults.MaxAttempts = 3
	}
	if defaults.Delay <= 0 {
		defaults.Delay = 1 * time.Second
	}
	if defaults.FailureThreshold <= 0 {
		defaults.FailureThreshold = 5
	}
	if defaults.ResetTimeout <= 0 {
		defaults.ResetTimeout = 60 * time.Second
	}

	return &resilienceService{
		defaults: defaults,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

// linearBackOff waits delay * attempt between attempts.
type linearBackOff struct {
	delay   time.Duration
	attempt int
}

func (b *linearBackOff) Reset() { b.attempt = 0 }

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return time.Duration(b.attempt) * b.delay
}

func (s *resilienceService) WithRetry(ctx context.Context, op domainRes.Operation, opts domainRes.RetryOptions) (any, error) {
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = s.defaults.MaxAttempts
	}
	delay := opts.Delay
	if delay <= 0 {
		delay = s.defaults.Delay
	}
	classifier := opts.IsRetryable
	if classifier == nil {
		classifier = s.IsRetryableError
	}

	var attempts int
	var lastErr error
	var result any
	nonRetryable := false

	operation := func() error {
		attempts++
		value, err := op(ctx)
		if err == nil {
			result = value
			return nil
		}
		lastErr = err

		if !classifier(err) {
			nonRetryable = true
			return backoff.Permanent(err)
		}

		logrus.Warnf("[RESILIENCE] Operation %s attempt %d/%d failed: %v",
			opts.OperationName, attempts, maxAttempts, err)
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(&linearBackOff{delay: delay}, uint64(maxAttempts-1)),
		ctx,
	)

	if err := backoff.Retry(operation, policy); err != nil {
		// A cancelled caller gets the context error, not a retry wrapper: no
		// further attempt was owed.
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return nil, err
		}
		if nonRetryable {
			return nil, lastErr
		}
		return nil, domainRes.RetryExhaustedError{
			OperationName: opts.OperationName,
			Attempts:      attempts,
			Err:           lastErr,
		}
	}
	return result, nil
}

func (s *resilienceService) WithCircuitBreaker(ctx context.Context, op domainRes.Operation, opts domainRes.BreakerOptions) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cb := s.breaker(opts)
	result, err := cb.Execute(func() (any, error) {
		return op(ctx)
	})
	if err != nil {
		// Both rejections mean the same thing to the caller: the breaker is
		// shedding load, do not keep hammering the dependency.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, domainRes.CircuitOpenError{OperationName: opts.OperationName}
		}
		return nil, err
	}
	return result, nil
}

// breaker returns the named breaker, creating it on first use. Breakers
// persist process-wide for the life of the operation name.
func (s *resilienceService) breaker(opts domainRes.BreakerOptions) *gobreaker.CircuitBreaker {
	s.mu.RLock()
	cb, ok := s.breakers[opts.OperationName]
	s.mu.RUnlock()
	if ok {
		return cb
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another caller may have created it while we waited for the lock.
	if cb, ok := s.breakers[opts.OperationName]; ok {
		return cb
	}

	threshold := opts.FailureThreshold
	if threshold <= 0 {
		threshold = s.defaults.FailureThreshold
	}
	resetTimeout := opts.ResetTimeout
	if resetTimeout <= 0 {
		resetTimeout = s.defaults.ResetTimeout
	}

	settings := gobreaker.Settings{
		Name: opts.OperationName,
		// Exactly one trial call while half-open.
		MaxRequests: 1,
		Timeout:     resetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(threshold)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logrus.Warnf("[RESILIENCE] Circuit breaker %s: %s -> %s", name, from, to)
		},
	}

	cb = gobreaker.NewCircuitBreaker(settings)
	s.breakers[opts.OperationName] = cb
	return cb
}

// IsRetryableError is the default classifier: transient network/timeout
// failures and 5xx-grade responses retry; anything explicitly marked
// non-retryable, a validation-grade (4xx) failure, or an abandoned context
// never does, so retries cannot mask caller bugs.
func (s *resilienceService) IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var nonRetryable domainRes.NonRetryableError
	if errors.As(err, &nonRetryable) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var retryable domainRes.RetryableError
	if errors.As(err, &retryable) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return true
	}

	var coded interface{ StatusCode() int }
	if errors.As(err, &coded) {
		return coded.StatusCode() >= 500
	}

	// Unclassified failures from external dependencies are assumed transient.
	return true
}

func (s *resilienceService) BreakerStats() []domainRes.BreakerStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make([]domainRes.BreakerStats, 0, len(s.breakers))
	for name, cb := range s.breakers {
		counts := cb.Counts()
		stats = append(stats, domainRes.BreakerStats{
			Name:                 name,
			State:                cb.State().String(),
			Requests:             counts.Requests,
			TotalSuccesses:       counts.TotalSuccesses,
			TotalFailures:        counts.TotalFailures,
			ConsecutiveFailures:  counts.ConsecutiveFailures,
			ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
		})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats
}
