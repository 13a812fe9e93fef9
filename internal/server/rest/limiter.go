package rest

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LimiterStore keeps one token bucket per client key and forgets keys that
// have been idle for longer than idleTTL.
type LimiterStore struct {
	mu           sync.Mutex
	entries      map[string]*limiterEntry
	rps          rate.Limit
	burst        int
	idleTTL      time.Duration
	cleanupEvery time.Duration
	now          func() time.Time
}

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewLimiterStore allows rps requests per second per key with bursts of
// burst. rps <= 0 disables limiting.
func NewLimiterStore(rps float64, burst int) *LimiterStore {
	if burst < 1 {
		burst = 1
	}
	return &LimiterStore{
		entries:      make(map[string]*limiterEntry),
		rps:          rate.Limit(rps),
		burst:        burst,
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
		now:          time.Now,
	}
}

// Allow consumes one token of key's bucket.
func (s *LimiterStore) Allow(key string) bool {
	if s.rps <= 0 {
		return true
	}
	now := s.now()

	s.mu.Lock()
	ent, ok := s.entries[key]
	if !ok {
		ent = &limiterEntry{lim: rate.NewLimiter(s.rps, s.burst)}
		s.entries[key] = ent
	}
	ent.lastSeen = now
	s.mu.Unlock()

	return ent.lim.AllowN(now, 1)
}

// Cleanup drops buckets idle for longer than the TTL.
func (s *LimiterStore) Cleanup() {
	cutoff := s.now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, ent := range s.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(s.entries, k)
		}
	}
}

// StartJanitor runs Cleanup periodically until ctx is done.
func (s *LimiterStore) StartJanitor(ctx context.Context) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Cleanup()
			}
		}
	}()
}

func (s *LimiterStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// ClientIPFunc returns the caller's IP: the first X-Forwarded-For hop when
// trustXFF is set and the header is present, otherwise the host part of
// RemoteAddr.
func ClientIPFunc(trustXFF bool) func(r *http.Request) string {
	return func(r *http.Request) string {
		if trustXFF {
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				first, _, _ := strings.Cut(xff, ",")
				if ip := strings.TrimSpace(first); ip != "" {
					return ip
				}
			}
		}

		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return host
		}
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
}
