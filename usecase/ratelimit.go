package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	domainRL "github.com/AzielCF/az-shield/domains/ratelimit"
	"github.com/sirupsen/logrus"
)

type rateCounter struct {
	count       int
	windowStart time.Time
}

type rateLimitService struct {
	mu       sync.Mutex
	policies map[domainRL.Scope]domainRL.Policy
	counters map[string]*rateCounter

	gcRetention time.Duration
	gcInterval  time.Duration
	now         func() time.Time
}

// NewRateLimitService validates every policy up front; limits and windows are
// configuration, not literals.
func NewRateLimitService(policies map[domainRL.Scope]domainRL.Policy, gcRetention, gcInterval time.Duration) (domainRL.IRateLimitUsecase, error) {
	if len(policies) == 0 {
		return nil, fmt.Errorf("ratelimit: at least one scope policy is required")
	}
	for scope, policy := range policies {
		if err := validateRatePolicy(scope, policy); err != nil {
			return nil, err
		}
	}
	if gcRetention <= 0 {
		return nil, fmt.Errorf("ratelimit: gc retention must be positive, got %v", gcRetention)
	}
	if gcInterval <= 0 {
		return nil, fmt.Errorf("ratelimit: gc interval must be positive, got %v", gcInterval)
	}

	copied := make(map[domainRL.Scope]domainRL.Policy, len(policies))
	for scope, policy := range policies {
		copied[scope] = policy
	}

	return &rateLimitService{
		policies:    copied,
		counters:    make(map[string]*rateCounter),
		gcRetention: gcRetention,
		gcInterval:  gcInterval,
		now:         time.Now,
	}, nil
}

func validateRatePolicy(scope domainRL.Scope, policy domainRL.Policy) error {
	if policy.Limit <= 0 {
		return fmt.Errorf("ratelimit: scope %s: limit must be positive, got %d", scope, policy.Limit)
	}
	if policy.Window <= 0 {
		return fmt.Errorf("ratelimit: scope %s: window must be positive, got %v", scope, policy.Window)
	}
	return nil
}

// policy panics on an unrecognized scope: that is a programmer error, and
// silently falling back to "always allow" would defeat the limiter.
func (s *rateLimitService) policy(scope domainRL.Scope) domainRL.Policy {
	policy, ok := s.policies[scope]
	if !ok {
		panic(fmt.Sprintf("ratelimit: unknown scope %q", scope))
	}
	return policy
}

func counterKey(scope domainRL.Scope, identifier string) string {
	return string(scope) + "|" + identifier
}

func (s *rateLimitService) CheckAndIncrement(scope domainRL.Scope, identifier string) bool {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	policy := s.policy(scope)
	key := counterKey(scope, identifier)

	counter, ok := s.counters[key]
	if !ok || now.Sub(counter.windowStart) >= policy.Window {
		counter = &rateCounter{windowStart: now}
		s.counters[key] = counter
	}

	if counter.count < policy.Limit {
		counter.count++
		return true
	}

	logrus.Debugf("[RATE_LIMIT] Rejected %s request for %s (limit %d per %v)",
		scope, identifier, policy.Limit, policy.Window)
	return false
}

func (s *rateLimitService) Remaining(scope domainRL.Scope, identifier string) int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	policy := s.policy(scope)
	counter, ok := s.counters[counterKey(scope, identifier)]
	if !ok || now.Sub(counter.windowStart) >= policy.Window {
		return policy.Limit
	}
	if remaining := policy.Limit - counter.count; remaining > 0 {
		return remaining
	}
	return 0
}

func (s *rateLimitService) ResetTime(scope domainRL.Scope, identifier string) time.Time {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	policy := s.policy(scope)
	counter, ok := s.counters[counterKey(scope, identifier)]
	if !ok || now.Sub(counter.windowStart) >= policy.Window {
		// No live window, the caller may retry immediately.
		return now
	}
	return counter.windowStart.Add(policy.Window)
}

// Status snapshots limit, remaining and reset time under one lock so the
// reported window is internally consistent.
func (s *rateLimitService) Status(scope domainRL.Scope, identifier string) domainRL.Status {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	policy := s.policy(scope)
	status := domainRL.Status{
		Scope:      scope,
		Identifier: identifier,
		Limit:      policy.Limit,
		Remaining:  policy.Limit,
		ResetAt:    now,
	}

	counter, ok := s.counters[counterKey(scope, identifier)]
	if ok && now.Sub(counter.windowStart) < policy.Window {
		remaining := policy.Limit - counter.count
		if remaining < 0 {
			remaining = 0
		}
		status.Remaining = remaining
		status.ResetAt = counter.windowStart.Add(policy.Window)
	}
	return status
}

func (s *rateLimitService) CheckGlobal() bool {
	return s.CheckAndIncrement(domainRL.ScopeGlobal, domainRL.GlobalIdentifier)
}

func (s *rateLimitService) CheckCustomer(phone string) bool {
	return s.CheckAndIncrement(domainRL.ScopeCustomer, phone)
}

func (s *rateLimitService) CheckBusinessOwner(phone string) bool {
	return s.CheckAndIncrement(domainRL.ScopeBusinessOwner, phone)
}

func (s *rateLimitService) CheckMediaUpload(phone string) bool {
	return s.CheckAndIncrement(domainRL.ScopeMediaUpload, phone)
}

func (s *rateLimitService) Policies() map[domainRL.Scope]domainRL.Policy {
	s.mu.Lock()
	defer s.mu.Unlock()

	policies := make(map[domainRL.Scope]domainRL.Policy, len(s.policies))
	for scope, policy := range s.policies {
		policies[scope] = policy
	}
	return policies
}

func (s *rateLimitService) UpdatePolicy(scope domainRL.Scope, policy domainRL.Policy) error {
	if err := validateRatePolicy(scope, policy); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.policies[scope]; !ok {
		return fmt.Errorf("ratelimit: unknown scope %q", scope)
	}
	s.policies[scope] = policy
	return nil
}

func (s *rateLimitService) StartBackgroundGC(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.gcInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := s.gcStaleCounters(); removed > 0 {
					logrus.Infof("[RATE_LIMIT] GC removed %d stale counters", removed)
				}
			}
		}
	}()
}

// gcStaleCounters drops counters whose window ended longer than the
// retention horizon ago. Identifiers seen once (spam numbers) would
// otherwise grow the map without bound.
func (s *rateLimitService) gcStaleCounters() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, counter := range s.counters {
		var window time.Duration
		for scope, policy := range s.policies {
			if len(key) > len(scope) && key[:len(scope)] == string(scope) && key[len(scope)] == '|' {
				window = policy.Window
				break
			}
		}
		windowEnd := counter.windowStart.Add(window)
		if now.Sub(windowEnd) > s.gcRetention {
			delete(s.counters, key)
			removed++
		}
	}
	return removed
}
