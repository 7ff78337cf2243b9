package service

import (
	"errors"
	"time"

	"github.com/pandamarket/market/internal/market/domain"
	"github.com/pandamarket/market/pkg/jwtx"
)

var (
	// ErrInvalidToken covers forged, malformed and wrong-class tokens.
	ErrInvalidToken = errors.New("invalid_token")
	// ErrExpiredToken is returned for structurally valid tokens past expiry.
	ErrExpiredToken = errors.New("expired_token")
)

// Codec mints and verifies the two token classes. It is stateless: validity
// of an access token is proven purely by signature and expiry, which keeps
// the per-request check free of store lookups. Each class has its own
// signing key and TTL.
type Codec struct {
	accessSigner    *jwtx.Signer
	refreshSigner   *jwtx.Signer
	accessVerifier  *jwtx.Verifier
	refreshVerifier *jwtx.Verifier

	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewCodec builds a codec from two Ed25519 private keys in PEM (PKCS8)
// format, one per token class.
func NewCodec(accessKeyPEM, refreshKeyPEM []byte, issuer string, accessTTL, refreshTTL time.Duration) (*Codec, error) {
	accessSigner, err := jwtx.NewSigner("access-1", accessKeyPEM)
	if err != nil {
		return nil, err
	}
	refreshSigner, err := jwtx.NewSigner("refresh-1", refreshKeyPEM)
	if err != nil {
		return nil, err
	}

	return &Codec{
		accessSigner:    accessSigner,
		refreshSigner:   refreshSigner,
		accessVerifier:  jwtx.NewVerifier(accessSigner, issuer, jwtx.TokenUseAccess),
		refreshVerifier: jwtx.NewVerifier(refreshSigner, issuer, jwtx.TokenUseRefresh),
		issuer:          issuer,
		accessTTL:       accessTTL,
		refreshTTL:      refreshTTL,
	}, nil
}

// RefreshTTL reports the refresh token lifetime; stored records share it.
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

// AccessTTL reports the access token lifetime.
func (c *Codec) AccessTTL() time.Duration { return c.accessTTL }

// Mint produces a fresh token pair for the subject. No side effects; the
// caller is responsible for persisting the refresh token's fingerprint.
func (c *Codec) Mint(userID string) (domain.TokenPair, error) {
	return c.MintAt(userID, time.Now().UTC())
}

// MintAt is Mint with an explicit issue time, for tests.
func (c *Codec) MintAt(userID string, now time.Time) (domain.TokenPair, error) {
	access, err := c.accessSigner.Sign(
		jwtx.NewClaims(userID, jwtx.TokenUseAccess, c.issuer, c.accessTTL, now))
	if err != nil {
		return domain.TokenPair{}, err
	}

	refresh, err := c.refreshSigner.Sign(
		jwtx.NewClaims(userID, jwtx.TokenUseRefresh, c.issuer, c.refreshTTL, now))
	if err != nil {
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// VerifyAccess checks an access token and returns the embedded subject.
func (c *Codec) VerifyAccess(token string) (string, error) {
	return verify(c.accessVerifier, token)
}

// VerifyRefresh checks a refresh token's signature and expiry and returns
// the embedded subject. Store presence is the session manager's concern.
func (c *Codec) VerifyRefresh(token string) (string, error) {
	return verify(c.refreshVerifier, token)
}

func verify(v *jwtx.Verifier, token string) (string, error) {
	claims, err := v.Verify(token)
	switch {
	case err == nil:
		return claims.Subject, nil
	case errors.Is(err, jwtx.ErrExpired):
		return "", ErrExpiredToken
	default:
		return "", ErrInvalidToken
	}
}
