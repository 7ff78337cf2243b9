package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pandamarket/market/internal/market/service"
	"github.com/pandamarket/market/pkg/httpx"
	"github.com/pandamarket/market/pkg/slogx"
)

// UsersHandler serves the /users/me endpoints. All of them sit behind the
// required gate, so UserFromContext always succeeds here.
type UsersHandler struct {
	Users    *service.UserService
	Products *service.ProductService
}

func (h *UsersHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	u, _ := UserFromContext(r.Context())
	httpx.WriteJSON(w, http.StatusOK, newUserResponse(u))
}

type updateMeRequest struct {
	Nickname string `json:"nickname"`
	Image    string `json:"image"`
}

func (h *UsersHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u, _ := UserFromContext(ctx)

	var req updateMeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := h.Users.UpdateProfile(ctx, u.ID, req.Nickname, req.Image)
	if err != nil {
		slogx.FromContext(ctx).Error("profile update failed", "err", err)
		httpx.WriteMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, newUserResponse(updated))
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (h *UsersHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u, _ := UserFromContext(ctx)

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.Users.ChangePassword(ctx, u.ID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			httpx.WriteMessage(w, http.StatusBadRequest, "Missing required fields")
		case errors.Is(err, service.ErrInvalidCredentials):
			httpx.WriteMessage(w, http.StatusUnauthorized, "Invalid current password")
		default:
			slogx.FromContext(ctx).Error("password change failed", "err", err)
			httpx.WriteMessage(w, http.StatusInternalServerError, "Internal Server Error")
		}
		return
	}

	httpx.WriteMessage(w, http.StatusOK, "Password updated successfully")
}

func (h *UsersHandler) HandleMyProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u, _ := UserFromContext(ctx)

	products, err := h.Products.ListByAuthor(ctx, u.ID)
	if err != nil {
		slogx.FromContext(ctx).Error("listing own products failed", "err", err)
		httpx.WriteMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, newProductListResponse(products))
}

func (h *UsersHandler) HandleMyLikes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u, _ := UserFromContext(ctx)

	products, err := h.Products.ListLiked(ctx, u.ID)
	if err != nil {
		slogx.FromContext(ctx).Error("listing liked products failed", "err", err)
		httpx.WriteMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, newProductListResponse(products))
}
