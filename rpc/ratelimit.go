package rpc

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"idregistry/observability"
)

const (
	visitorIdleTTL     = 5 * time.Minute
	visitorSweepPeriod = time.Minute
)

// RateLimit bounds the request rate of a single client.
type RateLimit struct {
	RequestsPerMinute float64
	Burst             int
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter applies a token bucket per client address.
type RateLimiter struct {
	limit     RateLimit
	clients   *clientResolver
	mu        sync.Mutex
	visitors  map[string]*visitor
	lastSweep time.Time
	now       func() time.Time
}

// NewRateLimiter returns a limiter enforcing limit per client. A zero
// RequestsPerMinute disables limiting. Forwarding headers are only honoured
// when the peer is one of trustedProxies.
func NewRateLimiter(limit RateLimit, trustedProxies []string) *RateLimiter {
	return &RateLimiter{
		limit:    limit,
		clients:  newClientResolver(trustedProxies),
		visitors: make(map[string]*visitor),
		now:      time.Now,
	}
}

// Middleware rejects requests over the client's budget with HTTP 429.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l == nil || l.limit.RequestsPerMinute <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		if !l.allow(l.clients.clientID(r)) {
			observability.ModuleMetrics().RecordThrottle("rate_limit")
			w.Header().Set("Content-Type", "application/json")
			writeError(w, http.StatusTooManyRequests, nil, codeRateLimited, "rate limit exceeded", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *RateLimiter) allow(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= visitorSweepPeriod {
		l.sweepLocked(now)
	}
	v, ok := l.visitors[id]
	if !ok {
		burst := l.limit.Burst
		if burst <= 0 {
			burst = 1
		}
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(l.limit.RequestsPerMinute/60.0), burst)}
		l.visitors[id] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

func (l *RateLimiter) sweepLocked(now time.Time) {
	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) > visitorIdleTTL {
			delete(l.visitors, key)
		}
	}
	l.lastSweep = now
}

func (l *RateLimiter) visitorCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// clientResolver derives the rate limit key for a request. Entries may be
// single addresses or CIDR ranges; unparsable entries are ignored.
type clientResolver struct {
	trusted []*net.IPNet
}

func newClientResolver(proxies []string) *clientResolver {
	resolver := &clientResolver{}
	for _, entry := range proxies {
		if network, ok := parseProxy(entry); ok {
			resolver.trusted = append(resolver.trusted, network)
		}
	}
	return resolver
}

// parseProxy accepts "10.0.0.1" or "10.0.0.0/8".
func parseProxy(entry string) (*net.IPNet, bool) {
	trimmed := strings.TrimSpace(entry)
	if trimmed == "" {
		return nil, false
	}
	if _, network, err := net.ParseCIDR(trimmed); err == nil {
		return network, true
	}
	ip := net.ParseIP(trimmed)
	if ip == nil {
		return nil, false
	}
	bits := 128
	if v4 := ip.To4(); v4 != nil {
		ip, bits = v4, 32
	}
	return &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)}, true
}

func (c *clientResolver) isTrusted(ip net.IP) bool {
	if c == nil || ip == nil {
		return false
	}
	for _, network := range c.trusted {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

func (c *clientResolver) clientID(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if !c.isTrusted(net.ParseIP(host)) {
		return host
	}
	if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
		return ip.String()
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip.String()
		}
	}
	return host
}
