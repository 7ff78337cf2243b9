package service

import (
	"context"
	"errors"

	"github.com/pandamarket/market/internal/market/domain"
	"github.com/pandamarket/market/internal/market/store"
	"github.com/pandamarket/market/pkg/cryptox"
)

type UserService struct {
	Store store.Store
}

// GetUserByID fetches a user by id.
func (s *UserService) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	return s.Store.Users().GetUserByID(ctx, userID)
}

// UpdateProfile changes nickname and/or image. Empty fields keep their
// current value. Returns the updated record.
func (s *UserService) UpdateProfile(ctx context.Context, userID, nickname, image string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}

	if nickname == "" {
		nickname = u.Nickname
	}
	if image == "" {
		image = u.Image
	}

	if err := s.Store.Users().UpdateProfile(ctx, userID, nickname, image); err != nil {
		return domain.User{}, err
	}

	return s.Store.Users().GetUserByID(ctx, userID)
}

// ChangePassword verifies the current password, stores the new hash and
// revokes every live refresh token for the user in the same transaction, so
// a stolen session cannot outlive a password change.
func (s *UserService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if currentPassword == "" || newPassword == "" {
		return ErrValidation
	}

	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := cryptox.VerifyPassword(currentPassword, u.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			return ErrInvalidCredentials
		}
		return err
	}

	newHash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdatePasswordHash(ctx, userID, newHash); err != nil {
			return err
		}
		return tx.RefreshTokens().DeleteAllUserRefreshTokens(ctx, userID)
	})
}
