package util

import (
	"net"
	"net/http"
	"strings"
)

const maxClientIPLength = 64

// ClientIP returns the caller address as reported by the first
// X-Forwarded-For entry, then X-Real-IP, then the socket peer. The value is
// client-controlled and only lightly sanitized; callers must not trust it.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := sanitizeIP(first); ip != "" {
			return ip
		}
	}
	if ip := sanitizeIP(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return sanitizeIP(r.RemoteAddr)
}

func sanitizeIP(raw string) string {
	s := strings.TrimSpace(raw)
	if len(s) > maxClientIPLength {
		s = s[:maxClientIPLength]
	}
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	return strings.Trim(s, "[]")
}
