package store

import (
	"context"
	"errors"

	"github.com/pandamarket/market/internal/market/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable.
type Store interface {
	Users() Users
	RefreshTokens() RefreshTokens
	Products() Products

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed. Refresh token
	// rotation depends on this being a single atomic unit.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases the underlying database handle.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail is used during login.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by the app via ULID).
	// Returns ErrAlreadyExists when the email is already registered.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateProfile mutates nickname/image and bumps updated_at.
	UpdateProfile(ctx context.Context, userID, nickname, image string) error

	// UpdatePasswordHash sets the password_hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID, newHash string) error
}

type RefreshTokens interface {
	// CreateRefreshToken stores a new refresh token record. Returns
	// ErrAlreadyExists if a record with the same fingerprint exists.
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByHash returns the record for a token fingerprint.
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// DeleteRefreshToken removes the record for a token fingerprint.
	// Returns ErrNotFound when no record was deleted; rotation relies on
	// this so that of two concurrent rotations of the same token exactly
	// one observes the record.
	DeleteRefreshToken(ctx context.Context, hash string) error

	// DeleteAllUserRefreshTokens bulk-revokes every session of a user
	// (e.g. after a password change).
	DeleteAllUserRefreshTokens(ctx context.Context, userID string) error

	// DeleteExpiredRefreshTokens is housekeeping.
	DeleteExpiredRefreshTokens(ctx context.Context) error
}

type Products interface {
	// CreateProduct inserts a new product (id is ULID).
	CreateProduct(ctx context.Context, p domain.Product) error

	// GetProductByID returns a product with like count, and the liked flag
	// relative to viewerID when viewerID is non-empty.
	GetProductByID(ctx context.Context, id, viewerID string) (domain.Product, error)

	// ListProducts returns a page of products newest-first, optionally
	// filtered by a keyword over title/description. The liked flag is
	// relative to viewerID when viewerID is non-empty.
	ListProducts(ctx context.Context, q ProductQuery) ([]domain.Product, error)

	// ListProductsByAuthor returns the author's products newest-first.
	ListProductsByAuthor(ctx context.Context, authorID string) ([]domain.Product, error)

	// ListLikedProducts returns the products a user has liked, newest-first.
	ListLikedProducts(ctx context.Context, userID string) ([]domain.Product, error)

	// LikeProduct inserts a (user, product) like row. Returns
	// ErrAlreadyExists when the pair already exists.
	LikeProduct(ctx context.Context, productID, userID string) error

	// UnlikeProduct deletes the like row; absence is not an error.
	UnlikeProduct(ctx context.Context, productID, userID string) error
}

// ProductQuery captures the list endpoint's filters.
type ProductQuery struct {
	Keyword  string
	Page     int
	PageSize int
	ViewerID string
}
