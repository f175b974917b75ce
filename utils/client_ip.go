package utils

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the originating client address. Proxied deployments put
// the real address first in X-Forwarded-For; without the header we fall back
// to the transport-level peer.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
