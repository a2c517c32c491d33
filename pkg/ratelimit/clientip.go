package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

// ClientKey derives the counting key for a request: the authenticated
// user id when present, else the resolved source IP.
func ClientKey(userID, ip string) string {
	if userID != "" {
		return "user:" + userID
	}
	return "ip:" + ip
}

// ClientIP resolves the request's source IP. The first X-Forwarded-For
// entry wins, then X-Real-Ip, then the transport peer address.
//
// Forwarded headers are trusted without a proxy allow-list, which is
// spoofable by direct clients. This matches the deployed behavior;
// hardening would require a trusted-proxy configuration.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if realIP := r.Header.Get("X-Real-Ip"); realIP != "" {
		return realIP
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
