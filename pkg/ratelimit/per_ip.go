// Package ratelimit limits inbound gateway requests per client IP.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Default limiter values.
const (
	DefaultCleanupInterval = time.Minute
	DefaultEntryTTL        = time.Minute
)

// Config configures a PerIP limiter.
type Config struct {
	Rate  float64 // requests per second
	Burst int
	// TrustedProxies are CIDR ranges or single IPs whose X-Forwarded-For
	// header is honoured.
	TrustedProxies  []string
	CleanupInterval time.Duration
	EntryTTL        time.Duration
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// PerIP keeps one token bucket per client IP and evicts idle clients.
type PerIP struct {
	limit   rate.Limit
	burst   int
	ttl     time.Duration
	proxies []*net.IPNet

	mu      sync.Mutex
	clients map[string]*client

	stop    chan struct{}
	stopped chan struct{}
}

// NewPerIP creates a limiter and starts its cleanup goroutine. Call Stop when
// done.
func NewPerIP(cfg Config) *PerIP {
	rps := cfg.Rate
	if rps <= 0 {
		rps = 100
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = int(rps * 2)
	}
	interval := cfg.CleanupInterval
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	ttl := cfg.EntryTTL
	if ttl <= 0 {
		ttl = DefaultEntryTTL
	}

	l := &PerIP{
		limit:   rate.Limit(rps),
		burst:   burst,
		ttl:     ttl,
		proxies: parseProxies(cfg.TrustedProxies),
		clients: make(map[string]*client),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go l.cleanup(interval)
	return l
}

func parseProxies(entries []string) []*net.IPNet {
	var out []*net.IPNet
	for _, e := range entries {
		if !strings.Contains(e, "/") {
			if ip := net.ParseIP(e); ip != nil {
				if ip.To4() != nil {
					e += "/32"
				} else {
					e += "/128"
				}
			}
		}
		if _, network, err := net.ParseCIDR(e); err == nil {
			out = append(out, network)
		}
	}
	return out
}

// Burst returns the bucket capacity.
func (l *PerIP) Burst() int {
	return l.burst
}

// Allow consumes one token for ip. It returns whether the request may
// proceed and, when it may not, how long until a token is available.
func (l *PerIP) Allow(ip string) (bool, time.Duration) {
	now := time.Now()

	l.mu.Lock()
	c, ok := l.clients[ip]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = c
	}
	c.lastSeen = now
	l.mu.Unlock()

	r := c.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// ClientIP returns the request's client address. X-Forwarded-For is used
// only when the direct peer is a trusted proxy.
func (l *PerIP) ClientIP(r *http.Request) string {
	remote := r.RemoteAddr
	if host, _, err := net.SplitHostPort(remote); err == nil {
		remote = host
	}
	if !l.trusted(remote) {
		return remote
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(first) != nil {
			return first
		}
	}
	return remote
}

func (l *PerIP) trusted(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, n := range l.proxies {
		if n.Contains(parsed) {
			return true
		}
	}
	return false
}

// Stop ends the cleanup goroutine.
func (l *PerIP) Stop() {
	close(l.stop)
	<-l.stopped
}

func (l *PerIP) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer close(l.stopped)

	for {
		select {
		case <-ticker.C:
			l.evict(time.Now().Add(-l.ttl))
		case <-l.stop:
			return
		}
	}
}

func (l *PerIP) evict(cutoff time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, c := range l.clients {
		if c.lastSeen.Before(cutoff) {
			delete(l.clients, ip)
		}
	}
}
