package middleware

import (
	"fmt"
	"net/http"

	"github.com/mssola/useragent"

	"chrona/pkg/requestcontext"
)

// Device normalizes the User-Agent header into a short browser/OS summary.
// Authorization denials are logged with it so the security audit stream can
// distinguish a stolen token from the owner's usual device.
func Device(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("User-Agent")
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}

		ua := useragent.New(raw)
		name, version := ua.Browser()
		summary := fmt.Sprintf("%s %s (%s)", name, version, ua.OS())
		if ua.Bot() {
			summary = "bot: " + name
		}

		ctx := requestcontext.WithUserAgent(r.Context(), summary)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
