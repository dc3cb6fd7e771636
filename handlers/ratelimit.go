package handlers

import (
	"net"
	"net/http"
	"sync"
	"time"
)

type attemptData struct {
	count        int
	firstAttempt time.Time
}

type rateLimiter struct {
	sync.Mutex
	attempts map[string]*attemptData
	blocked  map[string]time.Time
	now      func() time.Time
}

func newRateLimiter() *rateLimiter {
	return &rateLimiter{
		attempts: make(map[string]*attemptData),
		blocked:  make(map[string]time.Time),
		now:      time.Now,
	}
}

const (
	maxAttempts    = 5
	blockDuration  = 15 * time.Minute
	windowDuration = 15 * time.Minute
	maxTracked     = 10000
)

// Allow returns false if the IP is currently blocked.
// It also cleans up expired blocks.
func (r *rateLimiter) Allow(ip string) bool {
	r.Lock()
	defer r.Unlock()

	if unblockTime, ok := r.blocked[ip]; ok {
		if r.now().Before(unblockTime) {
			return false
		}
		// Block expired
		delete(r.blocked, ip)
		delete(r.attempts, ip)
	}
	return true
}

// RecordFailure increments the failure count and blocks if threshold reached.
func (r *rateLimiter) RecordFailure(ip string) {
	r.Lock()
	defer r.Unlock()

	now := r.now()
	if len(r.attempts) > maxTracked {
		r.prune(now)
	}

	data, exists := r.attempts[ip]
	if !exists || now.Sub(data.firstAttempt) > windowDuration {
		data = &attemptData{firstAttempt: now}
		r.attempts[ip] = data
	}
	data.count++
	if data.count >= maxAttempts {
		r.blocked[ip] = now.Add(blockDuration)
	}
}

// prune drops windows and blocks that have already expired.
func (r *rateLimiter) prune(now time.Time) {
	for ip, data := range r.attempts {
		if now.Sub(data.firstAttempt) > windowDuration {
			delete(r.attempts, ip)
		}
	}
	for ip, until := range r.blocked {
		if !now.Before(until) {
			delete(r.blocked, ip)
		}
	}
}

// Reset clears the counter for an IP (used on successful login).
func (r *rateLimiter) Reset(ip string) {
	r.Lock()
	defer r.Unlock()
	delete(r.attempts, ip)
	delete(r.blocked, ip)
}

func getClientIP(r *http.Request) string {
	// Standard library method to get IP (handles IP:Port)
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
