package throttle

import (
	"fmt"
	"strings"
	"time"
)

// KeyStrategy selects which request attributes compose the caller key.
type KeyStrategy string

const (
	// KeyIP buckets callers by client IP address.
	KeyIP KeyStrategy = "ip"
	// KeySession buckets callers by the session id supplied in the body.
	KeySession KeyStrategy = "session"
	// KeyIPOrSession buckets by IP and session independently; a request is
	// admitted only when both buckets have quota, so whichever trips first
	// blocks the caller.
	KeyIPOrSession KeyStrategy = "ip_session"
)

// Policy configures one endpoint's admission window.
type Policy struct {
	Window      time.Duration
	MaxRequests int
	KeyStrategy KeyStrategy
}

// Validate reports a configuration error for an unusable policy.
func (p Policy) Validate() error {
	if p.Window <= 0 {
		return fmt.Errorf("throttle window must be positive, got %s", p.Window)
	}
	if p.MaxRequests < 1 {
		return fmt.Errorf("throttle max_requests must be at least 1, got %d", p.MaxRequests)
	}
	switch p.KeyStrategy {
	case KeyIP, KeySession, KeyIPOrSession, "":
	default:
		return fmt.Errorf("unknown key strategy %q", p.KeyStrategy)
	}
	return nil
}

// Keys derives the bucket keys for a caller. An empty attribute still yields
// a key; unknown callers share one bucket per strategy, which is an accepted
// weakness of header-derived identity.
func (p Policy) Keys(ip, session string) []string {
	ip = orUnknown(ip)
	session = orUnknown(session)
	switch p.KeyStrategy {
	case KeySession:
		return []string{"session:" + session}
	case KeyIPOrSession:
		return []string{"ip:" + ip, "session:" + session}
	default:
		return []string{"ip:" + ip}
	}
}

func orUnknown(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	return s
}
