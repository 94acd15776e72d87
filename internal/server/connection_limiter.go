package server

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const limiterIdleEviction = 10 * time.Minute

// LimitReason describes why a connection was rejected.
type LimitReason string

const (
	LimitReasonGlobal LimitReason = "global_limit"
	LimitReasonRate   LimitReason = "rate_limit"
)

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ConnectionLimits caps concurrent WebSocket connections per instance and
// rate-limits new connections per source IP with a token bucket.
type ConnectionLimits struct {
	current atomic.Int64
	max     int64

	mu        sync.Mutex
	perIP     map[string]*ipLimiter
	rate      rate.Limit
	burst     int
	cleanupAt time.Time
}

// NewConnectionLimits creates a limiter allowing max concurrent connections
// and perSecond new connections (burst allowed) per IP.
func NewConnectionLimits(max int64, perSecond float64, burst int) *ConnectionLimits {
	return &ConnectionLimits{
		max:       max,
		perIP:     make(map[string]*ipLimiter),
		rate:      rate.Limit(perSecond),
		burst:     burst,
		cleanupAt: time.Now().Add(limiterIdleEviction),
	}
}

// Acquire reserves a connection slot for ip. On rejection the returned reason
// says which limit fired; nothing is held and Release must not be called.
func (l *ConnectionLimits) Acquire(ip string) (bool, LimitReason) {
	if !l.allow(ip) {
		return false, LimitReasonRate
	}

	for {
		current := l.current.Load()
		if current >= l.max {
			return false, LimitReasonGlobal
		}
		if l.current.CompareAndSwap(current, current+1) {
			return true, ""
		}
	}
}

// Release frees a previously acquired slot.
func (l *ConnectionLimits) Release() {
	l.current.Add(-1)
}

// Current returns the number of held connection slots.
func (l *ConnectionLimits) Current() int64 {
	return l.current.Load()
}

func (l *ConnectionLimits) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.After(l.cleanupAt) {
		cutoff := now.Add(-limiterIdleEviction)
		for addr, entry := range l.perIP {
			if entry.lastSeen.Before(cutoff) {
				delete(l.perIP, addr)
			}
		}
		l.cleanupAt = now.Add(limiterIdleEviction)
	}

	entry, ok := l.perIP[ip]
	if !ok {
		entry = &ipLimiter{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.perIP[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter.Allow()
}
