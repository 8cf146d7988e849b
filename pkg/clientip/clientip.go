package clientip

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// Unknown is returned when no valid address can be found.
const Unknown = "0.0.0.0"

// proxyHeaders are checked in order before RemoteAddr.
var proxyHeaders = []string{
	"CF-Connecting-IP",
	"X-Forwarded-For",
	"X-Real-IP",
}

// GetIP returns the normalised client address of r. The first valid entry of
// CF-Connecting-IP, X-Forwarded-For or X-Real-IP wins; RemoteAddr is the
// fallback and Unknown is returned when nothing parses.
func GetIP(r *http.Request) string {
	for _, h := range proxyHeaders {
		value := r.Header.Get(h)
		if value == "" {
			continue
		}
		for candidate := range strings.SplitSeq(value, ",") {
			if ip := parseIP(candidate); ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if ip := parseIP(host); ip != "" {
		return ip
	}
	return Unknown
}

func parseIP(s string) string {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return ""
	}
	return addr.Unmap().WithZone("").String()
}
