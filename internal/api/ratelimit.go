// Fixed-window request limiting keyed by client address.
package api

import (
	"fmt"
	"math"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Limiter allows each client a fixed number of requests per window.
//
// X-Forwarded-For is only consulted when the direct peer is a trusted proxy;
// otherwise any client could pick a fresh identity per request.
type Limiter struct {
	limit   int
	window  time.Duration
	trusted []netip.Prefix
	now     func() time.Time

	mu      sync.Mutex
	clients map[string]*quota
	sweepAt time.Time
}

type quota struct {
	start time.Time
	used  int
}

// NewLimiter creates a limiter allowing limit requests per window per client.
func NewLimiter(limit int, window time.Duration, trusted []netip.Prefix) *Limiter {
	return &Limiter{
		limit:   limit,
		window:  window,
		trusted: trusted,
		now:     time.Now,
		clients: make(map[string]*quota),
	}
}

// ParseTrustedProxies parses a comma-separated list of addresses or CIDR
// prefixes, e.g. "127.0.0.1,10.0.0.0/8".
func ParseTrustedProxies(s string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.Contains(part, "/") {
			p, err := netip.ParsePrefix(part)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", part, err)
			}
			out = append(out, p.Masked())
			continue
		}
		a, err := netip.ParseAddr(part)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", part, err)
		}
		a = a.Unmap()
		out = append(out, netip.PrefixFrom(a, a.BitLen()))
	}
	return out, nil
}

// take consumes one request for key. When the client is over its limit it
// reports how long until its window resets.
func (l *Limiter) take(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.After(l.sweepAt) {
		for k, q := range l.clients {
			if now.Sub(q.start) >= l.window {
				delete(l.clients, k)
			}
		}
		l.sweepAt = now.Add(2 * l.window)
	}

	q, ok := l.clients[key]
	if !ok || now.Sub(q.start) >= l.window {
		l.clients[key] = &quota{start: now, used: 1}
		return true, 0
	}
	if q.used < l.limit {
		q.used++
		return true, 0
	}
	return false, q.start.Add(l.window).Sub(now)
}

func (l *Limiter) isTrusted(a netip.Addr) bool {
	for _, p := range l.trusted {
		if p.Contains(a) {
			return true
		}
	}
	return false
}

// ClientIP identifies the client behind r. Behind trusted proxies it is the
// rightmost X-Forwarded-For hop that is not itself a trusted proxy.
func (l *Limiter) ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	peer, err := netip.ParseAddr(host)
	if err != nil {
		return host
	}
	peer = peer.Unmap()
	if !l.isTrusted(peer) {
		return peer.String()
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	client := peer
	for i := len(hops) - 1; i >= 0; i-- {
		a, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			break
		}
		client = a.Unmap()
		if !l.isTrusted(client) {
			break
		}
	}
	return client.String()
}

// Middleware rejects over-limit clients with 429 and a Retry-After header.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, retry := l.take(l.ClientIP(r))
		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
