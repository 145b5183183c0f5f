package middleware

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIP resolves the caller identity used for rate limiting. Forwarding
// headers are honoured only when the direct peer is a trusted proxy, so a
// client cannot pick its own identity.
type ClientIP struct {
	trusted []netip.Prefix
}

// NewClientIP parses trusted proxy CIDRs. A bare address is treated as a
// single-host prefix.
func NewClientIP(trustedProxies []string) (*ClientIP, error) {
	c := &ClientIP{}
	for _, raw := range trustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}

		if !strings.Contains(raw, "/") {
			addr, err := netip.ParseAddr(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", raw, err)
			}
			c.trusted = append(c.trusted, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}

		prefix, err := netip.ParsePrefix(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", raw, err)
		}
		c.trusted = append(c.trusted, prefix.Masked())
	}
	return c, nil
}

// Resolve returns the client address of r. X-Forwarded-For is walked from the
// right, skipping trusted hops; the first untrusted address is the client.
// Entries left of it were supplied by the client and are ignored.
func (c *ClientIP) Resolve(r *http.Request) string {
	peer := remoteIP(r.RemoteAddr)
	if !c.isTrusted(peer) {
		return peer
	}

	if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
		hops := strings.Split(strings.Join(xff, ","), ",")
		for i := len(hops) - 1; i >= 0; i-- {
			ip := strings.TrimSpace(hops[i])
			if net.ParseIP(ip) == nil {
				return peer
			}
			if !c.isTrusted(ip) {
				return ip
			}
		}
		return peer
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" && net.ParseIP(xri) != nil {
		return xri
	}

	return peer
}

func (c *ClientIP) isTrusted(ip string) bool {
	if len(c.trusted) == 0 {
		return false
	}

	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()

	for _, prefix := range c.trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

func remoteIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
