package middleware

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/diagnosis/venue-bookings/pkg/logger"
	"github.com/diagnosis/venue-bookings/pkg/response"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per client IP. X-Forwarded-For is only
// read when the peer is one of the trusted proxies.
type RateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*visitor
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	trusted   []netip.Prefix
	now       func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(perMinute, burst int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*visitor),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    burst,
		idleTTL:  10 * time.Minute,
		now:      time.Now,
	}
}

// TrustProxies sets the peers whose X-Forwarded-For is believed. Entries are
// CIDRs or bare IPs.
func (rl *RateLimiter) TrustProxies(entries []string) error {
	trusted := make([]netip.Prefix, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if p, err := netip.ParsePrefix(e); err == nil {
			trusted = append(trusted, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(e)
		if err != nil {
			return fmt.Errorf("trusted proxy %q: not an IP or CIDR", e)
		}
		addr = addr.Unmap()
		trusted = append(trusted, netip.PrefixFrom(addr, addr.BitLen()))
	}

	rl.mu.Lock()
	rl.trusted = trusted
	rl.mu.Unlock()
	return nil
}

// Allow reports whether key may proceed. Buckets idle past idleTTL are
// evicted, at most once per idleTTL.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= rl.idleTTL {
		for k, v := range rl.limiters {
			if now.Sub(v.lastSeen) > rl.idleTTL {
				delete(rl.limiters, k)
			}
		}
		rl.lastSweep = now
	}

	v, ok := rl.limiters[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := rl.ClientIP(r)
		if !rl.Allow(ip) {
			logger.WarnContext(r.Context(), "Rate limit exceeded", "client_ip", ip, "path", r.URL.Path)
			response.RateLimit(w, "Too many requests. Try again later.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP returns the TCP peer unless it is a trusted proxy. Behind trusted
// proxies it walks X-Forwarded-For from the right and returns the first hop
// that is not itself trusted.
func (rl *RateLimiter) ClientIP(r *http.Request) string {
	peer := PeerIP(r)

	rl.mu.Lock()
	trusted := rl.trusted
	rl.mu.Unlock()

	if !isTrusted(trusted, peer) {
		return peer
	}

	hops := strings.Split(strings.Join(r.Header.Values("X-Forwarded-For"), ","), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		addr, err := netip.ParseAddr(hop)
		if err != nil {
			break
		}
		if !isTrusted(trusted, hop) {
			return addr.Unmap().String()
		}
	}
	return peer
}

func isTrusted(trusted []netip.Prefix, ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// PeerIP is the host part of r.RemoteAddr.
func PeerIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
