package auth

import (
	"context"
	"fmt"
	"time"

	"vendor-onboarding/internal/common/errors"

	"github.com/golang-jwt/jwt/v5"
)

// VendorClaims is the token body issued to vendors by the portal.
type VendorClaims struct {
	Email    string `json:"email,omitempty"`
	Username string `json:"preferred_username,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HS256 tokens signed with a shared secret.
type JWTVerifier struct {
	secret []byte
	issuer string
}

func NewJWTVerifier(secret, issuer string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), issuer: issuer}
}

var _ Verifier = (*JWTVerifier)(nil)

func (v *JWTVerifier) Verify(_ context.Context, token string) (*Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &VendorClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, errors.NewAuthenticationError(err.Error())
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, errors.NewAuthenticationError("token has no subject")
	}

	return &Principal{
		VendorID: claims.Subject,
		Email:    claims.Email,
		Username: claims.Username,
		Token:    token,
	}, nil
}

// Sign issues a token for vendorID. Used by vendorctl and tests.
func (v *JWTVerifier) Sign(vendorID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := VendorClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   vendorID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
