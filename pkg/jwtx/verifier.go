package jwtx

import (
	"crypto/ed25519"
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed  = errors.New("jwtx: malformed token")
	ErrInvalidSig = errors.New("jwtx: invalid signature")
	ErrUnknownKID = errors.New("jwtx: unknown kid")
	ErrExpired    = errors.New("jwtx: token expired")
	ErrIssuer     = errors.New("jwtx: issuer mismatch")
	ErrTokenUse   = errors.New("jwtx: token use mismatch")
)

// Verifier validates EdDSA-signed JWTs against a fixed key and token class.
type Verifier struct {
	kid      string
	pub      ed25519.PublicKey
	issuer   string
	tokenUse string
}

// NewVerifier builds a verifier for the given signer's public key. Tokens
// must carry the matching kid header, issuer and token_use claim.
func NewVerifier(s *Signer, issuer, tokenUse string) *Verifier {
	return &Verifier{
		kid:      s.KID(),
		pub:      s.Public(),
		issuer:   issuer,
		tokenUse: tokenUse,
	}
}

// Verify validates the JWT string and returns its parsed Claims. Failures
// are collapsed into the package sentinel errors so callers can branch on
// expiry versus everything else without inspecting library error strings.
func (v *Verifier) Verify(tokenStr string) (Claims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}))

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" || kid != v.kid {
			return nil, ErrUnknownKID
		}
		return v.pub, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrExpired
		case errors.Is(err, ErrUnknownKID):
			return Claims{}, ErrUnknownKID
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, ErrInvalidSig
		default:
			return Claims{}, ErrMalformed
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Claims{}, ErrMalformed
	}

	if v.issuer != "" && claims.Issuer != v.issuer {
		return Claims{}, ErrIssuer
	}
	if claims.TokenUse != v.tokenUse {
		return Claims{}, ErrTokenUse
	}

	return *claims, nil
}
