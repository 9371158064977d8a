package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Target is one delivery channel.
type Target interface {
	Name() string
	Send(ctx context.Context, event Event) error
}

// Result records one target's delivery outcome.
type Result struct {
	Sent bool
	Err  error
}

// Results maps target names to their outcomes.
type Results map[string]Result

// Succeeded reports whether at least one target accepted the event.
func (r Results) Succeeded() bool {
	for _, res := range r {
		if res.Sent {
			return true
		}
	}
	return false
}

// SentTo lists the targets that accepted the event.
func (r Results) SentTo() []string {
	var names []string
	for name, res := range r {
		if res.Sent {
			names = append(names, name)
		}
	}
	return names
}

// Err aggregates all target failures into one error, or nil when every
// target succeeded.
func (r Results) Err() error {
	var parts []string
	for name, res := range r {
		if res.Err != nil {
			parts = append(parts, fmt.Sprintf("%s: %v", name, res.Err))
		}
	}
	if len(parts) == 0 {
		return nil
	}
	return errors.New(strings.Join(parts, "; "))
}

// Relay fans an event out to a set of targets.
type Relay struct {
	targets []Target
	timeout time.Duration
}

// New builds a relay over the given targets.
func New(timeout time.Duration, targets ...Target) *Relay {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Relay{targets: targets, timeout: timeout}
}

// Targets returns the configured target names.
func (r *Relay) Targets() []string {
	names := make([]string, 0, len(r.targets))
	for _, t := range r.targets {
		names = append(names, t.Name())
	}
	return names
}

// Deliver attempts every target. A failing target never prevents the
// others from being tried; the caller decides what a partial result
// means for its response.
func (r *Relay) Deliver(ctx context.Context, event Event) Results {
	results := make(Results, len(r.targets))
	for _, target := range r.targets {
		sendCtx, cancel := context.WithTimeout(ctx, r.timeout)
		err := target.Send(sendCtx, event)
		cancel()
		results[target.Name()] = Result{Sent: err == nil, Err: err}
	}
	return results
}

// DeliverTo attempts only the named targets. An unknown name is
// reported as a failed result rather than an error so that callers can
// pass client-supplied platform selectors straight through.
func (r *Relay) DeliverTo(ctx context.Context, event Event, names ...string) Results {
	if len(names) == 0 {
		return r.Deliver(ctx, event)
	}
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[strings.ToLower(strings.TrimSpace(n))] = true
	}
	if wanted["all"] {
		return r.Deliver(ctx, event)
	}

	results := make(Results, len(names))
	for name := range wanted {
		results[name] = Result{Err: fmt.Errorf("unknown target %q", name)}
	}
	for _, target := range r.targets {
		if !wanted[target.Name()] {
			continue
		}
		sendCtx, cancel := context.WithTimeout(ctx, r.timeout)
		err := target.Send(sendCtx, event)
		cancel()
		results[target.Name()] = Result{Sent: err == nil, Err: err}
	}
	return results
}
