package service

import (
	"context"
	"errors"
	"time"

	"github.com/pandamarket/market/internal/market/domain"
	"github.com/pandamarket/market/internal/market/store"
	"github.com/pandamarket/market/pkg/cryptox"
	"github.com/pandamarket/market/pkg/idx"
	"github.com/pandamarket/market/pkg/slogx"
)

var (
	ErrValidation = errors.New("missing_required_fields")
	ErrEmailTaken = errors.New("email_already_registered")

	// ErrInvalidCredentials deliberately covers both "unknown email" and
	// "wrong password" so login failures don't leak which one it was.
	ErrInvalidCredentials = errors.New("invalid_credentials")

	// ErrUnauthenticated covers every refresh failure: missing, forged,
	// expired, already rotated, or a failed rotation transaction.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// SessionService orchestrates signup, login, refresh and logout. It owns no
// state of its own: tokens come from the Codec, persistence goes through the
// injected Store.
type SessionService struct {
	Store store.Store
	Codec *Codec
}

type SignupInput struct {
	Email    string
	Nickname string
	Password string
	Image    string
}

// Signup registers a new user and returns the created record. It does not
// establish a session; the client logs in afterwards.
func (s *SessionService) Signup(ctx context.Context, in SignupInput) (domain.User, error) {
	if in.Email == "" || in.Nickname == "" || in.Password == "" {
		return domain.User{}, ErrValidation
	}

	hash, err := cryptox.HashPassword(in.Password)
	if err != nil {
		return domain.User{}, err
	}

	u := domain.User{
		ID:           idx.New().String(),
		Email:        in.Email,
		Nickname:     in.Nickname,
		PasswordHash: hash,
		Image:        in.Image,
	}

	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, err
	}

	// Re-read so callers see the store-assigned timestamps.
	return s.Store.Users().GetUserByID(ctx, u.ID)
}

// Login verifies the credentials, mints a token pair and persists the
// refresh token's fingerprint.
func (s *SessionService) Login(ctx context.Context, email, password string) (domain.TokenPair, error) {
	u, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, ErrInvalidCredentials
		}
		return domain.TokenPair{}, err
	}

	if err := cryptox.VerifyPassword(password, u.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			return domain.TokenPair{}, ErrInvalidCredentials
		}
		return domain.TokenPair{}, err
	}

	pair, err := s.Codec.Mint(u.ID)
	if err != nil {
		return domain.TokenPair{}, err
	}

	err = s.Store.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    u.ID,
		TokenHash: cryptox.FingerprintToken(pair.RefreshToken),
		ExpiresAt: time.Now().UTC().Add(s.Codec.RefreshTTL()),
	})
	if err != nil {
		// A fingerprint collision would land here; the session was never
		// established so surface it as an internal failure.
		return domain.TokenPair{}, err
	}

	return pair, nil
}

// Refresh exchanges a valid refresh token for a new pair, atomically
// rotating the stored record. Every failure mode is ErrUnauthenticated: the
// client's only recovery is to log in again, and the response must not
// reveal whether the token was forged, expired or already spent.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	log := slogx.FromContext(ctx)

	if refreshToken == "" {
		return domain.TokenPair{}, ErrUnauthenticated
	}

	userID, err := s.Codec.VerifyRefresh(refreshToken)
	if err != nil {
		return domain.TokenPair{}, ErrUnauthenticated
	}

	now := time.Now().UTC()
	oldHash := cryptox.FingerprintToken(refreshToken)

	rec, err := s.Store.RefreshTokens().GetRefreshTokenByHash(ctx, oldHash)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Error("refresh token lookup failed", "err", err)
		}
		return domain.TokenPair{}, ErrUnauthenticated
	}
	if rec.UserID != userID || now.After(rec.ExpiresAt) {
		return domain.TokenPair{}, ErrUnauthenticated
	}

	pair, err := s.Codec.MintAt(userID, now)
	if err != nil {
		log.Error("minting rotated token pair failed", "err", err)
		return domain.TokenPair{}, ErrUnauthenticated
	}

	newRec := domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    userID,
		TokenHash: cryptox.FingerprintToken(pair.RefreshToken),
		ExpiresAt: now.Add(s.Codec.RefreshTTL()),
	}

	// Delete-then-create in one transaction. Of two concurrent rotations of
	// the same token, the loser's delete affects zero rows and the whole
	// transaction rolls back, so the old token is spendable exactly once
	// and no half-rotated state is ever visible.
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.RefreshTokens().DeleteRefreshToken(ctx, oldHash); err != nil {
			return err
		}
		return tx.RefreshTokens().CreateRefreshToken(ctx, newRec)
	})
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Error("refresh token rotation failed", "err", err)
		}
		return domain.TokenPair{}, ErrUnauthenticated
	}

	return pair, nil
}

// Logout discards the stored refresh token, if any. It never fails from the
// client's perspective: an unknown token and a store hiccup both end the
// session as far as the client can tell, so problems are only logged.
func (s *SessionService) Logout(ctx context.Context, refreshToken string) {
	if refreshToken == "" {
		return
	}

	hash := cryptox.FingerprintToken(refreshToken)
	err := s.Store.RefreshTokens().DeleteRefreshToken(ctx, hash)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		slogx.FromContext(ctx).Error("logout token delete failed", "err", err)
	}
}
