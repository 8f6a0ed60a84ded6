package web

import (
	"net/http"

	"github.com/JonMunkholm/dataquality/internal/core"
)

// withRequestMetadata adds the client IP and User-Agent to the request
// context for the service's audit log lines.
func withRequestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := core.ContextWithRequestMeta(r.Context(), core.RequestMeta{
			IPAddress: r.RemoteAddr, // already resolved by TrustedRealIP
			UserAgent: r.Header.Get("User-Agent"),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
