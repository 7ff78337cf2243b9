package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/pandamarket/market/internal/market/domain"
	"github.com/pandamarket/market/internal/market/store"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	st, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	return st
}

func seedUser(t *testing.T, st *Store, id, email string) domain.User {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, st.Users().CreateUser(ctx, domain.User{
		ID:           id,
		Email:        email,
		Nickname:     "nick",
		PasswordHash: "argon2-hash",
	}))

	u, err := st.Users().GetUserByID(ctx, id)
	require.NoError(t, err)
	return u
}

func TestUsersRepo(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	ctx := context.Background()

	t.Run("get unknown user", func(t *testing.T) {
		_, err := st.Users().GetUserByID(ctx, "nope")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	u := seedUser(t, st, "u1", "a@example.com")
	require.False(t, u.CreatedAt.IsZero())
	require.Equal(t, u.CreatedAt, u.UpdatedAt)

	t.Run("email lookup", func(t *testing.T) {
		byEmail, err := st.Users().GetUserByEmail(ctx, "a@example.com")
		require.NoError(t, err)
		require.Equal(t, u.ID, byEmail.ID)

		_, err = st.Users().GetUserByEmail(ctx, "b@example.com")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("duplicate email is a conflict", func(t *testing.T) {
		err := st.Users().CreateUser(ctx, domain.User{
			ID: "u2", Email: "a@example.com", Nickname: "x", PasswordHash: "h",
		})
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("profile update bumps updated_at", func(t *testing.T) {
		require.NoError(t, st.Users().UpdateProfile(ctx, u.ID, "newnick", "img.png"))

		after, err := st.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, "newnick", after.Nickname)
		require.Equal(t, "img.png", after.Image)
		require.False(t, after.UpdatedAt.Before(u.UpdatedAt))
	})

	t.Run("updates on unknown users report not found", func(t *testing.T) {
		require.ErrorIs(t, st.Users().UpdateProfile(ctx, "nope", "n", ""), store.ErrNotFound)
		require.ErrorIs(t, st.Users().UpdatePasswordHash(ctx, "nope", "h"), store.ErrNotFound)
	})
}

func TestRefreshTokensRepo(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	ctx := context.Background()
	seedUser(t, st, "u1", "a@example.com")

	rec := domain.RefreshToken{
		ID:        "t1",
		UserID:    "u1",
		TokenHash: "hash-1",
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}
	require.NoError(t, st.RefreshTokens().CreateRefreshToken(ctx, rec))

	t.Run("fingerprints are unique", func(t *testing.T) {
		dup := rec
		dup.ID = "t2"
		require.ErrorIs(t, st.RefreshTokens().CreateRefreshToken(ctx, dup), store.ErrAlreadyExists)
	})

	t.Run("lookup by hash", func(t *testing.T) {
		got, err := st.RefreshTokens().GetRefreshTokenByHash(ctx, "hash-1")
		require.NoError(t, err)
		require.Equal(t, "u1", got.UserID)
		require.False(t, got.ExpiresAt.IsZero())

		_, err = st.RefreshTokens().GetRefreshTokenByHash(ctx, "hash-x")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("delete reports whether a row died", func(t *testing.T) {
		require.NoError(t, st.RefreshTokens().DeleteRefreshToken(ctx, "hash-1"))
		require.ErrorIs(t, st.RefreshTokens().DeleteRefreshToken(ctx, "hash-1"), store.ErrNotFound)
	})

	t.Run("bulk revocation", func(t *testing.T) {
		for _, hash := range []string{"hash-a", "hash-b"} {
			require.NoError(t, st.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
				ID: "id-" + hash, UserID: "u1", TokenHash: hash,
				ExpiresAt: time.Now().UTC().Add(time.Hour),
			}))
		}

		require.NoError(t, st.RefreshTokens().DeleteAllUserRefreshTokens(ctx, "u1"))

		_, err := st.RefreshTokens().GetRefreshTokenByHash(ctx, "hash-a")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("expired sweep keeps live rows", func(t *testing.T) {
		require.NoError(t, st.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
			ID: "live", UserID: "u1", TokenHash: "hash-live",
			ExpiresAt: time.Now().UTC().Add(time.Hour),
		}))
		require.NoError(t, st.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
			ID: "dead", UserID: "u1", TokenHash: "hash-dead",
			ExpiresAt: time.Now().UTC().Add(-time.Hour),
		}))

		require.NoError(t, st.RefreshTokens().DeleteExpiredRefreshTokens(ctx))

		_, err := st.RefreshTokens().GetRefreshTokenByHash(ctx, "hash-live")
		require.NoError(t, err)
		_, err = st.RefreshTokens().GetRefreshTokenByHash(ctx, "hash-dead")
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestWithTxRollsBackOnError(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	ctx := context.Background()
	seedUser(t, st, "u1", "a@example.com")

	require.NoError(t, st.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
		ID: "t1", UserID: "u1", TokenHash: "hash-1",
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}))

	sentinel := errors.New("boom")
	err := st.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.RefreshTokens().DeleteRefreshToken(ctx, "hash-1"); err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	// The delete inside the failed transaction must not stick.
	_, err = st.RefreshTokens().GetRefreshTokenByHash(ctx, "hash-1")
	require.NoError(t, err)
}

func TestWithTxCommits(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	ctx := context.Background()
	seedUser(t, st, "u1", "a@example.com")

	err := st.WithTx(ctx, func(tx store.Tx) error {
		return tx.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
			ID: "t1", UserID: "u1", TokenHash: "hash-1",
			ExpiresAt: time.Now().UTC().Add(time.Hour),
		})
	})
	require.NoError(t, err)

	_, err = st.RefreshTokens().GetRefreshTokenByHash(ctx, "hash-1")
	require.NoError(t, err)
}

func TestForeignKeysCascade(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	ctx := context.Background()
	seedUser(t, st, "u1", "a@example.com")

	require.NoError(t, st.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
		ID: "t1", UserID: "u1", TokenHash: "hash-1",
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}))

	// Token rows must not survive their user. Enforced by ON DELETE CASCADE,
	// which only works if the foreign_keys pragma reached this connection.
	_, err := st.db.ExecContext(ctx, `DELETE FROM users WHERE id = 'u1'`)
	require.NoError(t, err)

	_, err = st.RefreshTokens().GetRefreshTokenByHash(ctx, "hash-1")
	require.ErrorIs(t, err, store.ErrNotFound)
}
