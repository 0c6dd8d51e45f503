package usecase

import (
	"sync"
	"testing"
	"time"

	domainRL "github.com/AzielCF/az-shield/domains/ratelimit"
)

func newTestRateLimitService(t *testing.T) (*rateLimitService, *fakeClock) {
	t.Helper()

	svc, err := NewRateLimitService(map[domainRL.Scope]domainRL.Policy{
		domainRL.ScopeGlobal:        {Limit: 500, Window: time.Hour},
		domainRL.ScopeCustomer:      {Limit: 10, Window: time.Hour},
		domainRL.ScopeBusinessOwner: {Limit: 30, Window: time.Hour},
		domainRL.ScopeMediaUpload:   {Limit: 5, Window: time.Hour},
	}, 24*time.Hour, 10*time.Minute)
	if err != nil {
		t.Fatalf("NewRateLimitService() unexpected error: %v", err)
	}
	rs, ok := svc.(*rateLimitService)
	if !ok {
		t.Fatalf("NewRateLimitService() did not return *rateLimitService, got %T", svc)
	}

	clock := newFakeClock()
	rs.now = clock.Now
	return rs, clock
}

func TestNewRateLimitService_RejectsInvalidPolicy(t *testing.T) {
	_, err := NewRateLimitService(map[domainRL.Scope]domainRL.Policy{
		domainRL.ScopeCustomer: {Limit: 0, Window: time.Hour},
	}, 24*time.Hour, 10*time.Minute)
	if err == nil {
		t.Fatalf("NewRateLimitService() expected error for limit 0, got nil")
	}

	_, err = NewRateLimitService(map[domainRL.Scope]domainRL.Policy{
		domainRL.ScopeCustomer: {Limit: 10, Window: 0},
	}, 24*time.Hour, 10*time.Minute)
	if err == nil {
		t.Fatalf("NewRateLimitService() expected error for window 0, got nil")
	}
}

func TestRateLimitService_FixedWindowReset(t *testing.T) {
	svc, clock := newTestRateLimitService(t)
	phone := "+15551234567"

	for i := 0; i < 10; i++ {
		if !svc.CheckAndIncrement(domainRL.ScopeCustomer, phone) {
			t.Fatalf("CheckAndIncrement() call %d rejected within the window", i+1)
		}
	}
	if svc.CheckAndIncrement(domainRL.ScopeCustomer, phone) {
		t.Fatalf("CheckAndIncrement() call 11 allowed past the limit")
	}
	if remaining := svc.Remaining(domainRL.ScopeCustomer, phone); remaining != 0 {
		t.Fatalf("Remaining() = %d at the limit, want 0", remaining)
	}

	wantReset := clock.Now().Add(time.Hour)
	if reset := svc.ResetTime(domainRL.ScopeCustomer, phone); !reset.Equal(wantReset) {
		t.Fatalf("ResetTime() = %v, want %v", reset, wantReset)
	}

	// Past the window boundary the counter starts fresh.
	clock.Advance(time.Hour)
	if !svc.CheckAndIncrement(domainRL.ScopeCustomer, phone) {
		t.Fatalf("CheckAndIncrement() rejected after the window rolled over")
	}
	if remaining := svc.Remaining(domainRL.ScopeCustomer, phone); remaining != 9 {
		t.Fatalf("Remaining() = %d in the fresh window, want 9", remaining)
	}
}

func TestRateLimitService_RejectionDoesNotIncrement(t *testing.T) {
	svc, clock := newTestRateLimitService(t)
	phone := "+15550000001"

	for i := 0; i < 5; i++ {
		svc.CheckAndIncrement(domainRL.ScopeMediaUpload, phone)
	}
	for i := 0; i < 100; i++ {
		if svc.CheckAndIncrement(domainRL.ScopeMediaUpload, phone) {
			t.Fatalf("CheckAndIncrement() allowed over-limit call")
		}
	}

	// Rejections must not have extended or restarted the window.
	clock.Advance(time.Hour)
	if !svc.CheckAndIncrement(domainRL.ScopeMediaUpload, phone) {
		t.Fatalf("CheckAndIncrement() rejected after window rollover")
	}
}

func TestRateLimitService_IdentifiersAreIsolated(t *testing.T) {
	svc, _ := newTestRateLimitService(t)

	for i := 0; i < 10; i++ {
		svc.CheckAndIncrement(domainRL.ScopeCustomer, "+15551111111")
	}
	if svc.CheckAndIncrement(domainRL.ScopeCustomer, "+15551111111") {
		t.Fatalf("CheckAndIncrement() allowed exhausted identifier")
	}
	if !svc.CheckAndIncrement(domainRL.ScopeCustomer, "+15552222222") {
		t.Fatalf("CheckAndIncrement() rejected a different identifier")
	}
	// The same phone number under a different scope is a separate budget.
	if !svc.CheckAndIncrement(domainRL.ScopeBusinessOwner, "+15551111111") {
		t.Fatalf("CheckAndIncrement() rejected same identifier under another scope")
	}
}

func TestRateLimitService_ConvenienceWrappers(t *testing.T) {
	svc, _ := newTestRateLimitService(t)

	if !svc.CheckGlobal() {
		t.Fatalf("CheckGlobal() rejected first call")
	}
	if !svc.CheckCustomer("+15553333333") {
		t.Fatalf("CheckCustomer() rejected first call")
	}
	if !svc.CheckBusinessOwner("+15553333333") {
		t.Fatalf("CheckBusinessOwner() rejected first call")
	}
	if !svc.CheckMediaUpload("+15553333333") {
		t.Fatalf("CheckMediaUpload() rejected first call")
	}

	status := svc.Status(domainRL.ScopeCustomer, "+15553333333")
	if status.Remaining != 9 || status.Limit != 10 {
		t.Fatalf("Status() = remaining %d of %d, want 9 of 10", status.Remaining, status.Limit)
	}
}

func TestRateLimitService_UnknownScopePanics(t *testing.T) {
	svc, _ := newTestRateLimitService(t)

	defer func() {
		if recover() == nil {
			t.Fatalf("CheckAndIncrement() with unknown scope must panic")
		}
	}()
	svc.CheckAndIncrement(domainRL.Scope("bogus"), "id")
}

func TestRateLimitService_ConcurrentStatusAndRetune(t *testing.T) {
	svc, _ := newTestRateLimitService(t)
	phone := "+15557777777"
	svc.CheckCustomer(phone)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			limit := 10 + i%5
			if err := svc.UpdatePolicy(domainRL.ScopeCustomer, domainRL.Policy{Limit: limit, Window: time.Hour}); err != nil {
				t.Errorf("UpdatePolicy() unexpected error: %v", err)
				return
			}
		}
	}()

	for i := 0; i < 1000; i++ {
		status := svc.Status(domainRL.ScopeCustomer, phone)
		// The snapshot must be internally consistent even while the policy
		// is being retuned: one admitted call, so remaining = limit - 1.
		if status.Remaining != status.Limit-1 {
			t.Fatalf("Status() = remaining %d with limit %d, want limit-1", status.Remaining, status.Limit)
		}
		svc.CheckAndIncrement(domainRL.ScopeBusinessOwner, phone)
		svc.Remaining(domainRL.ScopeCustomer, phone)
		svc.ResetTime(domainRL.ScopeCustomer, phone)
	}
	close(stop)
	wg.Wait()
}

func TestRateLimitService_GCDropsStaleCounters(t *testing.T) {
	svc, clock := newTestRateLimitService(t)

	svc.CheckAndIncrement(domainRL.ScopeCustomer, "+15554444444")
	svc.CheckAndIncrement(domainRL.ScopeCustomer, "+15555555555")

	// Still within retention after the window ends: nothing to collect.
	clock.Advance(2 * time.Hour)
	if removed := svc.gcStaleCounters(); removed != 0 {
		t.Fatalf("gcStaleCounters() removed %d counters within retention, want 0", removed)
	}

	clock.Advance(24 * time.Hour)
	if removed := svc.gcStaleCounters(); removed != 2 {
		t.Fatalf("gcStaleCounters() removed %d counters, want 2", removed)
	}

	// A collected counter behaves like a first use.
	if !svc.CheckAndIncrement(domainRL.ScopeCustomer, "+15554444444") {
		t.Fatalf("CheckAndIncrement() rejected after counter GC")
	}
}

func TestRateLimitService_UpdatePolicy(t *testing.T) {
	svc, _ := newTestRateLimitService(t)

	if err := svc.UpdatePolicy(domainRL.ScopeCustomer, domainRL.Policy{Limit: 2, Window: time.Hour}); err != nil {
		t.Fatalf("UpdatePolicy() unexpected error: %v", err)
	}
	phone := "+15556666666"
	svc.CheckCustomer(phone)
	svc.CheckCustomer(phone)
	if svc.CheckCustomer(phone) {
		t.Fatalf("CheckCustomer() allowed call past the retuned limit")
	}

	if err := svc.UpdatePolicy(domainRL.Scope("bogus"), domainRL.Policy{Limit: 1, Window: time.Hour}); err == nil {
		t.Fatalf("UpdatePolicy() expected error for unknown scope, got nil")
	}
	if err := svc.UpdatePolicy(domainRL.ScopeCustomer, domainRL.Policy{Limit: 0, Window: time.Hour}); err == nil {
		t.Fatalf("UpdatePolicy() expected error for limit 0, got nil")
	}
}
