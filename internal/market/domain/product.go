package domain

import "time"

type Product struct {
	ID          string
	AuthorID    string
	Title       string
	Description string
	Price       int64
	Image       string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Denormalized per-request fields filled by list/get queries.
	AuthorNickname string
	LikeCount      int64
	Liked          bool // true when the requesting user has liked this product
}
