// Package requesttime gives every request a single "now". All work within one
// request (admission timestamps, event times) reads the same instant.
package requesttime

import (
	"net/http"
	"time"

	"caseintake/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
