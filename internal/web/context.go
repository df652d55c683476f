package web

import (
	"net"
	"net/http"
	"strings"

	"github.com/JonMunkholm/tamween/internal/core"
)

// Change origins recorded on events.
const (
	originWeb = "web"
	originAPI = "api"
)

// requestSource tags the request context with the origin, client IP and
// User-Agent so that change events say who made them. RemoteAddr has already
// been resolved by TrustedRealIP.
func requestSource(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := originWeb
		if isAPI(r) {
			origin = originAPI
		}
		ctx := core.ContextWithOrigin(r.Context(), origin)
		ctx = core.ContextWithIPAddress(ctx, clientIP(r))
		ctx = core.ContextWithUserAgent(ctx, r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// clientIP strips the port from RemoteAddr.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func isAPI(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/")
}
