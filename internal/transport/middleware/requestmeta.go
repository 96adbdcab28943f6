package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/satriajat/helpdesk-management/internal"
)

// RequestMeta captures the request facts audit entries record: path, method,
// client ip and user agent. It runs early so every guard denial downstream
// sees them.
func RequestMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		meta := internal.RequestMeta{
			Path:      r.URL.Path,
			Method:    r.Method,
			IP:        clientIP(r),
			UserAgent: r.UserAgent(),
		}
		next.ServeHTTP(w, r.WithContext(internal.ContextWithRequestMeta(r.Context(), meta)))
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.Index(fwd, ","); idx >= 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
