package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/pandamarket/market/internal/market/domain"
	"github.com/pandamarket/market/internal/market/store"
)

type productsRepo struct {
	db dbtx
}

// productSelect returns one row per product with author nickname, like count
// and the viewer's liked flag. An empty viewer id never matches any like row.
const productSelect = `
SELECT p.id, p.author_id, p.title, p.description, p.price, p.image,
       p.created_at, p.updated_at,
       u.nickname,
       (SELECT COUNT(*) FROM product_likes pl WHERE pl.product_id = p.id),
       EXISTS(SELECT 1 FROM product_likes pl WHERE pl.product_id = p.id AND pl.user_id = ?)
FROM products p
JOIN users u ON u.id = p.author_id`

func scanProduct(row interface{ Scan(...any) error }) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(
		&p.ID, &p.AuthorID, &p.Title, &p.Description, &p.Price, &p.Image,
		&p.CreatedAt, &p.UpdatedAt,
		&p.AuthorNickname, &p.LikeCount, &p.Liked,
	)
	if err != nil {
		return domain.Product{}, mapNotFound(err)
	}
	return p, nil
}

func collectProducts(rows *sql.Rows) ([]domain.Product, error) {
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *productsRepo) CreateProduct(ctx context.Context, p domain.Product) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO products (id, author_id, title, description, price, image, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.AuthorID, p.Title, p.Description, p.Price, p.Image, now, now,
	)
	return err
}

func (r *productsRepo) GetProductByID(ctx context.Context, id, viewerID string) (domain.Product, error) {
	return scanProduct(r.db.QueryRowContext(ctx,
		productSelect+` WHERE p.id = ?`, viewerID, id))
}

func (r *productsRepo) ListProducts(ctx context.Context, q store.ProductQuery) ([]domain.Product, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	pageSize := q.PageSize
	if pageSize < 1 {
		pageSize = 10
	}

	rows, err := r.db.QueryContext(ctx,
		productSelect+`
		 WHERE (? = '' OR p.title LIKE '%' || ? || '%' OR p.description LIKE '%' || ? || '%')
		 ORDER BY p.created_at DESC, p.id DESC
		 LIMIT ? OFFSET ?`,
		q.ViewerID, q.Keyword, q.Keyword, q.Keyword, pageSize, (page-1)*pageSize,
	)
	if err != nil {
		return nil, err
	}
	return collectProducts(rows)
}

func (r *productsRepo) ListProductsByAuthor(ctx context.Context, authorID string) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx,
		productSelect+`
		 WHERE p.author_id = ?
		 ORDER BY p.created_at DESC, p.id DESC`,
		authorID, authorID,
	)
	if err != nil {
		return nil, err
	}
	return collectProducts(rows)
}

func (r *productsRepo) ListLikedProducts(ctx context.Context, userID string) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx,
		productSelect+`
		 JOIN product_likes viewer_likes
		   ON viewer_likes.product_id = p.id AND viewer_likes.user_id = ?
		 ORDER BY p.created_at DESC, p.id DESC`,
		userID, userID,
	)
	if err != nil {
		return nil, err
	}
	return collectProducts(rows)
}

func (r *productsRepo) LikeProduct(ctx context.Context, productID, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO product_likes (product_id, user_id, created_at) VALUES (?, ?, ?)`,
		productID, userID, time.Now().UTC(),
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *productsRepo) UnlikeProduct(ctx context.Context, productID, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM product_likes WHERE product_id = ? AND user_id = ?`,
		productID, userID,
	)
	return err
}
