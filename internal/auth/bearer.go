package auth

import (
	"net/http"
	"strings"
	"unicode/utf8"
)

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header value. The scheme is case-insensitive. Missing or malformed values
// report false.
func BearerToken(authHeader string) (string, bool) {
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" || !utf8.ValidString(token) {
		return "", false
	}
	return token, true
}

// BearerTokenFromRequest is BearerToken applied to the request's
// Authorization header.
func BearerTokenFromRequest(r *http.Request) (string, bool) {
	if r == nil {
		return "", false
	}
	return BearerToken(r.Header.Get("Authorization"))
}
