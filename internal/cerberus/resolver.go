package cerberus

import (
	"net"
	"net/http"
	"strings"
)

// DefaultForwardHeader is the proxy header consulted when none is configured.
const DefaultForwardHeader = "X-Forwarded-For"

// ClientIP returns the originating client address. The first entry of the
// forward header wins when it is non-empty; otherwise the connection address
// is used with any port removed. It never fails: no signal at all yields "",
// which callers treat as an unknown client.
func ClientIP(header http.Header, forwardHeader, remoteAddr string) string {
	if forwardHeader == "" {
		forwardHeader = DefaultForwardHeader
	}
	if fwd := header.Get(forwardHeader); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	return hostOnly(remoteAddr)
}

// hostOnly strips the port from a host:port connection address. Bare
// addresses, including IPv6 without brackets, are returned unchanged.
func hostOnly(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}
