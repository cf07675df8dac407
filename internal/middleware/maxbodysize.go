package middleware

import (
	"fmt"
	"net/http"
)

// NewMaxBodySizeHandler caps request bodies at limit bytes. A declared
// Content-Length over the limit is refused with 413 up front; otherwise the
// body is wrapped in http.MaxBytesReader, so an oversized edit fails to
// decode in the handler.
func NewMaxBodySizeHandler(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large",
					fmt.Sprintf("request body exceeds %d bytes", limit))
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
