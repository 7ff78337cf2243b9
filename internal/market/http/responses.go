package http

import (
	"time"

	"github.com/pandamarket/market/internal/market/domain"
)

// userResponse is the public view of a user. The password hash never leaves
// the service boundary.
type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Nickname  string    `json:"nickname"`
	Image     string    `json:"image,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Nickname:  u.Nickname,
		Image:     u.Image,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

type productAuthor struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
}

type productResponse struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Price       int64         `json:"price"`
	Image       string        `json:"image,omitempty"`
	Author      productAuthor `json:"author"`
	LikeCount   int64         `json:"likeCount"`
	IsLiked     bool          `json:"isLiked"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

func newProductResponse(p domain.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Price:       p.Price,
		Image:       p.Image,
		Author:      productAuthor{ID: p.AuthorID, Nickname: p.AuthorNickname},
		LikeCount:   p.LikeCount,
		IsLiked:     p.Liked,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func newProductListResponse(ps []domain.Product) []productResponse {
	out := make([]productResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, newProductResponse(p))
	}
	return out
}
