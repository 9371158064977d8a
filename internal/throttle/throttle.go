// Package throttle implements the per-caller fixed-window admission control
// shared by every public endpoint. Each endpoint owns a named Policy; state
// lives in a pluggable Store so single-process deployments use the in-memory
// store while multi-instance ones can point at Redis.
//
// The window is a sequence of fixed spans, not a sliding log: the first
// request after expiry resets the count before admission is evaluated.
// Without a shared store the limit is best-effort per process instance.
package throttle

import (
	"context"
	"time"
)

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Store applies one caller key against a policy window atomically.
type Store interface {
	Allow(ctx context.Context, key string, policy Policy) (Decision, error)
}

// Throttle answers whether a request may proceed under a named policy.
type Throttle struct {
	store    Store
	policies map[string]Policy
}

// New builds a throttle over the given store. Policies are keyed by endpoint
// name; endpoints without a policy are never throttled.
func New(store Store, policies map[string]Policy) *Throttle {
	return &Throttle{store: store, policies: policies}
}

// Policy returns the configured policy for an endpoint.
func (t *Throttle) Policy(endpoint string) (Policy, bool) {
	if t == nil {
		return Policy{}, false
	}
	p, ok := t.policies[endpoint]
	return p, ok
}

// Allow admits or denies a caller identified by ip/session for an endpoint.
// With the ip_session strategy both buckets must have quota. Store errors
// fail open: a broken shared store must not take the endpoints down.
func (t *Throttle) Allow(ctx context.Context, endpoint, ip, session string) (Decision, error) {
	if t == nil || t.store == nil {
		return Decision{Allowed: true}, nil
	}
	policy, ok := t.policies[endpoint]
	if !ok {
		return Decision{Allowed: true}, nil
	}

	decision := Decision{Allowed: true}
	for i, key := range policy.Keys(ip, session) {
		d, err := t.store.Allow(ctx, endpoint+":"+key, policy)
		if err != nil {
			return Decision{Allowed: true}, err
		}
		if !d.Allowed {
			return d, nil
		}
		// Remaining reports the tightest bucket.
		if i == 0 || d.Remaining < decision.Remaining {
			decision.Remaining = d.Remaining
		}
	}
	return decision, nil
}
