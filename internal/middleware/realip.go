package middleware

import (
	"net"
	"net/http"
	"strings"
)

// RealIP rewrites RemoteAddr from X-Forwarded-For when the service runs behind
// trustedHops reverse proxies. Each proxy appends the address it received the
// request from, so the client is the entry trustedHops positions from the
// right; anything further left is client controlled and ignored. With
// trustedHops <= 0 the header is never read.
func RealIP(trustedHops int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if trustedHops <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ip := forwardedClient(r.Header.Values("X-Forwarded-For"), trustedHops); ip != "" {
				r.RemoteAddr = ip
			}
			next.ServeHTTP(w, r)
		})
	}
}

func forwardedClient(headers []string, trustedHops int) string {
	var hops []string
	for _, h := range headers {
		for _, part := range strings.Split(h, ",") {
			hops = append(hops, strings.TrimSpace(part))
		}
	}
	if len(hops) < trustedHops {
		return ""
	}
	ip := net.ParseIP(hops[len(hops)-trustedHops])
	if ip == nil {
		return ""
	}
	return ip.String()
}
