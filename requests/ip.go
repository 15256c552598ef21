package requests

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// GetClientIP is the address a request is attributed to, e.g. for throttling.
// X-Forwarded-For (first entry) and X-Real-IP are honored only when the direct
// peer is a loopback or private address: the reverse proxy in front of the app
func GetClientIP(r *http.Request) string {
	peer := r.RemoteAddr
	if host, _, err := net.SplitHostPort(peer); err == nil {
		peer = host
	}
	if !trustedProxy(peer) {
		return peer
	}
	if xForwardedFor := r.Header.Get("X-Forwarded-For"); xForwardedFor != "" {
		first, _, _ := strings.Cut(xForwardedFor, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if xRealIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); xRealIP != "" {
		return xRealIP
	}
	return peer
}

func trustedProxy(host string) bool {
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	return addr.IsLoopback() || addr.IsPrivate()
}
