package domain

import "time"

// TokenPair is what a successful login or refresh produces: the short-lived
// access token (stateless JWT) and the long-lived refresh token (a JWT whose
// validity additionally requires a live store record).
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// RefreshToken models the stored refresh token record. A refresh token is
// valid only while a record for its fingerprint exists; rotation deletes the
// old record and creates the new one in a single transaction.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string // base64url SHA-256 fingerprint of the token value
	ExpiresAt time.Time
	CreatedAt time.Time
}
