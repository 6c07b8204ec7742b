package middleware

import (
	"net/http"
)

// DefaultMaxBodySize caps JSON request bodies at 1MB.
const DefaultMaxBodySize int64 = 1 << 20

// RequestSize wraps the body with http.MaxBytesReader. Reads past maxBytes
// fail with *http.MaxBytesError, which handlers report as 413.
func RequestSize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
