package ratelimit

import (
	"context"
	"time"
)

// Scope is the closed set of limit classes. An unknown scope at call time is
// a programmer error and panics.
type Scope string

const (
	ScopeGlobal        Scope = "global"
	ScopeCustomer      Scope = "customer"
	ScopeBusinessOwner Scope = "businessOwner"
	ScopeMediaUpload   Scope = "mediaUpload"
)

// GlobalIdentifier is the single shared identifier of the global scope.
const GlobalIdentifier = "*"

// Policy is the fixed-window budget of one scope.
type Policy struct {
	Limit  int           `json:"limit"`
	Window time.Duration `json:"window_seconds"`
}

// Status reports the current window of one (scope, identifier) pair so a
// throttled caller can be told when to retry.
type Status struct {
	Scope      Scope     `json:"scope"`
	Identifier string    `json:"identifier"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
}

type IRateLimitUsecase interface {
	// CheckAndIncrement admits and counts one request, or rejects it without
	// counting when the window budget is spent. Rejection is expected control
	// flow, never an error.
	CheckAndIncrement(scope Scope, identifier string) bool
	Remaining(scope Scope, identifier string) int
	ResetTime(scope Scope, identifier string) time.Time
	Status(scope Scope, identifier string) Status

	CheckGlobal() bool
	CheckCustomer(phone string) bool
	CheckBusinessOwner(phone string) bool
	CheckMediaUpload(phone string) bool

	Policies() map[Scope]Policy
	UpdatePolicy(scope Scope, policy Policy) error
	// StartBackgroundGC drops counters whose window has been stale beyond the
	// retention horizon, bounding memory under unbounded identifier cardinality.
	StartBackgroundGC(ctx context.Context)
}
