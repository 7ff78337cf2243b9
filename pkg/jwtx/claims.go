package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token use values carried in the "token_use" claim. Access and refresh
// tokens are signed with independent keys, but the claim guarantees one
// class can never pass the other's verifier even if keys were ever shared.
const (
	TokenUseAccess  = "access"
	TokenUseRefresh = "refresh"
)

// Claims are the claims embedded in every token the service mints.
type Claims struct {
	jwt.RegisteredClaims

	// TokenUse distinguishes the access and refresh token classes.
	TokenUse string `json:"token_use,omitempty"`
}

// NewClaims builds minimally-correct claims for a subject.
func NewClaims(subject, tokenUse, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		TokenUse: tokenUse,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
