// Package requesttime pins one "now" per request, so the age check, the
// expiry check and the audit timestamp of a submission all see the same
// instant.
package requesttime

import (
	"net/http"
	"time"

	"idintake/pkg/requestcontext"
)

// Middleware stamps requests with the wall clock.
var Middleware = WithClock(time.Now)

// WithClock stamps requests with clock().
func WithClock(clock func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(requestcontext.WithTime(r.Context(), clock())))
		})
	}
}
