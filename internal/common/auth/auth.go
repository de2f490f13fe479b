package auth

import (
	"context"
	"strings"
)

// Principal is the authenticated vendor behind a request. Token is the raw
// bearer token, forwarded to the vendor API on the vendor's behalf.
type Principal struct {
	VendorID string
	Email    string
	Username string
	Token    string
}

// Verifier turns a bearer token into a Principal or an authentication error.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Principal, error)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
