package rpc

import (
	"net"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// clientLimiter throttles requests per client identity using a token bucket
// for each observed source address.
type clientLimiter struct {
	mu       sync.Mutex
	visitors map[string]*rate.Limiter
	perSec   rate.Limit
	burst    int
}

func newClientLimiter(requestsPerMinute int) *clientLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 600
	}
	perSec := rate.Limit(float64(requestsPerMinute) / 60.0)
	burst := requestsPerMinute / 10
	if burst < 1 {
		burst = 1
	}
	return &clientLimiter{
		visitors: make(map[string]*rate.Limiter),
		perSec:   perSec,
		burst:    burst,
	}
}

func (c *clientLimiter) allow(r *http.Request) bool {
	id := clientID(r)
	c.mu.Lock()
	limiter, ok := c.visitors[id]
	if !ok {
		limiter = rate.NewLimiter(c.perSec, c.burst)
		c.visitors[id] = limiter
	}
	c.mu.Unlock()
	return limiter.Allow()
}

// clientID resolves a stable identity for the request source, honouring
// proxy headers before falling back to the socket address.
func clientID(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if raw := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); raw != "" {
		first := raw
		if comma := strings.IndexByte(raw, ','); comma >= 0 {
			first = strings.TrimSpace(raw[:comma])
		}
		if parsed := net.ParseIP(first); parsed != nil {
			return parsed.String()
		}
		return first
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
