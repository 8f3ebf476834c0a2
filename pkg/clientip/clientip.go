package clientip

import (
	"net"
	"net/http"
	"strings"
)

// RealClientIP returns the peer address of r without its port. Proxy headers
// are not read here; behind a trusted proxy chi's RealIP middleware rewrites
// RemoteAddr before this runs (TRUST_PROXY=true).
func RealClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return strings.Trim(strings.TrimSpace(host), "[]")
}

// LimiterKey is the rate limit bucket for r. IPv6 clients are grouped by
// their /64, since a single host usually controls the whole prefix.
func LimiterKey(r *http.Request) string {
	ip := RealClientIP(r)
	parsed := net.ParseIP(ip)
	if parsed == nil || parsed.To4() != nil {
		return ip
	}
	return parsed.Mask(net.CIDRMask(64, 128)).String() + "/64"
}
