package middleware

import (
	"net/http"

	"github.com/unrolled/secure"
)

// SecureHeaders adds the standard security headers to every response.
func SecureHeaders(isDevelopment bool) func(http.Handler) http.Handler {
	return secure.New(secure.Options{
		IsDevelopment:      isDevelopment,
		ContentTypeNosniff: true,
		FrameDeny:          true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}).Handler
}
