package auth

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
)

// AccessTokenAuthorizer guards the admin endpoints with a static bearer
// token supplied through configuration. End-user identity is handled
// upstream; only the operator surface needs a check here.
type AccessTokenAuthorizer struct {
	token string
}

func NewAccessTokenAuthorizer(token string) *AccessTokenAuthorizer {
	return &AccessTokenAuthorizer{token: token}
}

// Enabled reports whether a token was configured at all. With no token the
// admin endpoints refuse every request rather than allowing anonymous access.
func (a *AccessTokenAuthorizer) Enabled() bool {
	return a.token != ""
}

// CheckToken compares the presented token in constant time.
func (a *AccessTokenAuthorizer) CheckToken(accessTokenValue string) bool {
	if !a.Enabled() {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a.token), []byte(accessTokenValue)) == 1
}

// CheckRequest extracts and validates the Authorization header of r.
func (a *AccessTokenAuthorizer) CheckRequest(r *http.Request) (bool, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return false, fmt.Errorf("authorization header is missing")
	}

	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == authHeader {
		return false, fmt.Errorf("invalid Authorization header format")
	}

	return a.CheckToken(token), nil
}
