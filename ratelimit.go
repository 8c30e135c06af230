// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Filipe Johansson

package mdcollab

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type RateLimiter interface {
	// AllowConnection is checked once per upgrade request.
	AllowConnection(ip string) bool

	// AllowEvent is checked for every event read from a connection.
	AllowEvent(connectionID, ip string) bool

	MaxViolations() int

	// Forget drops state kept for a closed connection.
	Forget(connectionID string)

	Stop()
}

// RateLimiterManager keeps one token bucket per connection and one per client
// IP. Buckets unused for EntryTTL are dropped by a background loop.
type RateLimiterManager struct {
	config RateLimiterConfig

	mu    sync.Mutex
	conns map[string]*limiterEntry
	ips   map[string]*limiterEntry

	quit     chan struct{}
	stopOnce sync.Once
}

func NewRateLimiterManager(config RateLimiterConfig) *RateLimiterManager {
	rl := &RateLimiterManager{
		config: config,
		conns:  make(map[string]*limiterEntry),
		ips:    make(map[string]*limiterEntry),
		quit:   make(chan struct{}),
	}

	if config.CleanupInterval > 0 {
		safeGoroutine("RateLimiterCleanup", rl.cleanupLoop)
	}

	return rl
}

func (r *RateLimiterManager) AllowConnection(ip string) bool {
	if ip == "" {
		ip = "__unknown_ip__"
	}

	r.mu.Lock()
	lim := r.entry(r.ips, ip, r.config.PerIPRate, r.config.PerIPBurst)
	r.mu.Unlock()

	return lim.Allow()
}

// AllowEvent takes a token from both the connection and the IP bucket. Both
// must have one available.
func (r *RateLimiterManager) AllowEvent(connectionID, ip string) bool {
	if connectionID == "" {
		connectionID = "__empty__"
	}
	if ip == "" {
		ip = "__unknown_ip__"
	}

	r.mu.Lock()
	connLim := r.entry(r.conns, connectionID, r.config.PerClientRate, r.config.PerClientBurst)
	ipLim := r.entry(r.ips, ip, r.config.PerIPRate, r.config.PerIPBurst)
	r.mu.Unlock()

	return connLim.Allow() && ipLim.Allow()
}

func (r *RateLimiterManager) MaxViolations() int {
	return r.config.MaxRateLimitViolations
}

func (r *RateLimiterManager) Forget(connectionID string) {
	r.mu.Lock()
	delete(r.conns, connectionID)
	r.mu.Unlock()
}

func (r *RateLimiterManager) Stop() {
	r.stopOnce.Do(func() {
		close(r.quit)
	})
}

// entry must be called with r.mu held.
func (r *RateLimiterManager) entry(m map[string]*limiterEntry, key string, limit float64, burst int) *rate.Limiter {
	e, ok := m[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(limit), burst)}
		m[key] = e
	}
	e.lastSeen = time.Now()
	return e.limiter
}

func (r *RateLimiterManager) cleanupLoop() {
	t := time.NewTicker(r.config.CleanupInterval)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			r.cleanup(time.Now())
		case <-r.quit:
			return
		}
	}
}

func (r *RateLimiterManager) cleanup(now time.Time) {
	threshold := now.Add(-r.config.EntryTTL)

	r.mu.Lock()
	defer r.mu.Unlock()

	for k, v := range r.conns {
		if v.lastSeen.Before(threshold) {
			delete(r.conns, k)
		}
	}
	for k, v := range r.ips {
		if v.lastSeen.Before(threshold) {
			delete(r.ips, k)
		}
	}
}
