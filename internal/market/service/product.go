package service

import (
	"context"
	"errors"

	"github.com/pandamarket/market/internal/market/domain"
	"github.com/pandamarket/market/internal/market/store"
	"github.com/pandamarket/market/pkg/idx"
)

// ErrAlreadyLiked is returned when a user likes a product twice.
var ErrAlreadyLiked = errors.New("already_liked")

// ProductService is the resource collaborator that consumes the identity
// established by the session subsystem. Handlers pass the viewer's user id
// (possibly empty, through the optional gate) so listings can carry the
// per-viewer liked flag.
type ProductService struct {
	Store store.Store
}

type CreateProductInput struct {
	Title       string
	Description string
	Price       int64
	Image       string
}

func (s *ProductService) Create(ctx context.Context, authorID string, in CreateProductInput) (domain.Product, error) {
	if in.Title == "" || in.Description == "" || in.Price <= 0 {
		return domain.Product{}, ErrValidation
	}

	p := domain.Product{
		ID:          idx.New().String(),
		AuthorID:    authorID,
		Title:       in.Title,
		Description: in.Description,
		Price:       in.Price,
		Image:       in.Image,
	}

	if err := s.Store.Products().CreateProduct(ctx, p); err != nil {
		return domain.Product{}, err
	}

	return s.Store.Products().GetProductByID(ctx, p.ID, authorID)
}

func (s *ProductService) Get(ctx context.Context, id, viewerID string) (domain.Product, error) {
	return s.Store.Products().GetProductByID(ctx, id, viewerID)
}

func (s *ProductService) List(ctx context.Context, q store.ProductQuery) ([]domain.Product, error) {
	return s.Store.Products().ListProducts(ctx, q)
}

func (s *ProductService) ListByAuthor(ctx context.Context, authorID string) ([]domain.Product, error) {
	return s.Store.Products().ListProductsByAuthor(ctx, authorID)
}

func (s *ProductService) ListLiked(ctx context.Context, userID string) ([]domain.Product, error) {
	return s.Store.Products().ListLikedProducts(ctx, userID)
}

// Like records that the user likes the product. The existence check keeps a
// like on a vanished product a 404 rather than a foreign key error.
func (s *ProductService) Like(ctx context.Context, productID, userID string) error {
	if _, err := s.Store.Products().GetProductByID(ctx, productID, ""); err != nil {
		return err
	}

	err := s.Store.Products().LikeProduct(ctx, productID, userID)
	if errors.Is(err, store.ErrAlreadyExists) {
		return ErrAlreadyLiked
	}
	return err
}

// Unlike removes the like row; unliking something never liked is fine.
func (s *ProductService) Unlike(ctx context.Context, productID, userID string) error {
	if _, err := s.Store.Products().GetProductByID(ctx, productID, ""); err != nil {
		return err
	}
	return s.Store.Products().UnlikeProduct(ctx, productID, userID)
}
