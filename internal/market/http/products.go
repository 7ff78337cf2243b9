package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/pandamarket/market/internal/market/service"
	"github.com/pandamarket/market/internal/market/store"
	"github.com/pandamarket/market/pkg/httpx"
	"github.com/pandamarket/market/pkg/slogx"
)

// ProductsHandler is the resource collaborator surface. Listing and reading
// go through the optional gate so anonymous requests work but a logged-in
// viewer gets the isLiked flag; everything that writes requires identity.
type ProductsHandler struct {
	Products *service.ProductService
}

type createProductRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Image       string `json:"image"`
}

func (h *ProductsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u, _ := UserFromContext(ctx)

	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	p, err := h.Products.Create(ctx, u.ID, service.CreateProductInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Image:       req.Image,
	})
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			httpx.WriteMessage(w, http.StatusBadRequest, "Missing required fields")
			return
		}
		slogx.FromContext(ctx).Error("product creation failed", "err", err)
		httpx.WriteMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, newProductResponse(p))
}

func (h *ProductsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Identity is optional here; an anonymous viewer just never sees
	// isLiked set.
	var viewerID string
	if u, ok := UserFromContext(ctx); ok {
		viewerID = u.ID
	}

	q := store.ProductQuery{
		Keyword:  r.URL.Query().Get("keyword"),
		Page:     queryInt(r, "page", 1),
		PageSize: queryInt(r, "pageSize", 10),
		ViewerID: viewerID,
	}

	products, err := h.Products.List(ctx, q)
	if err != nil {
		slogx.FromContext(ctx).Error("product listing failed", "err", err)
		httpx.WriteMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, newProductListResponse(products))
}

func (h *ProductsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var viewerID string
	if u, ok := UserFromContext(ctx); ok {
		viewerID = u.ID
	}

	p, err := h.Products.Get(ctx, r.PathValue("id"), viewerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteMessage(w, http.StatusNotFound, "Product not found")
			return
		}
		slogx.FromContext(ctx).Error("product fetch failed", "err", err)
		httpx.WriteMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, newProductResponse(p))
}

func (h *ProductsHandler) HandleLike(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u, _ := UserFromContext(ctx)

	err := h.Products.Like(ctx, r.PathValue("id"), u.ID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			httpx.WriteMessage(w, http.StatusNotFound, "Product not found")
		case errors.Is(err, service.ErrAlreadyLiked):
			httpx.WriteMessage(w, http.StatusConflict, "Already liked")
		default:
			slogx.FromContext(ctx).Error("product like failed", "err", err)
			httpx.WriteMessage(w, http.StatusInternalServerError, "Internal Server Error")
		}
		return
	}

	httpx.WriteMessage(w, http.StatusCreated, "Liked")
}

func (h *ProductsHandler) HandleUnlike(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u, _ := UserFromContext(ctx)

	err := h.Products.Unlike(ctx, r.PathValue("id"), u.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteMessage(w, http.StatusNotFound, "Product not found")
			return
		}
		slogx.FromContext(ctx).Error("product unlike failed", "err", err)
		httpx.WriteMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	httpx.WriteMessage(w, http.StatusOK, "Unliked")
}

func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}
