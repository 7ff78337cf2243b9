package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pandamarket/market/internal/market/service"
	"github.com/pandamarket/market/pkg/httpx"
	"github.com/pandamarket/market/pkg/slogx"
)

// AuthHandler serves the session endpoints. It is the only place that
// reads or writes session cookies; the service layer deals purely in
// token values.
type AuthHandler struct {
	Sessions *service.SessionService
	Cookies  CookieWriter
}

type signupRequest struct {
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
	Password string `json:"password"`
	Image    string `json:"image"`
}

func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	u, err := h.Sessions.Signup(ctx, service.SignupInput{
		Email:    req.Email,
		Nickname: req.Nickname,
		Password: req.Password,
		Image:    req.Image,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			httpx.WriteMessage(w, http.StatusBadRequest, "Missing required fields")
		case errors.Is(err, service.ErrEmailTaken):
			httpx.WriteMessage(w, http.StatusConflict, "Email already exists")
		default:
			log.Error("signup failed", "err", err)
			httpx.WriteMessage(w, http.StatusInternalServerError, "Internal Server Error")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, newUserResponse(u))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	pair, err := h.Sessions.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			httpx.WriteMessage(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		log.Error("login failed", "err", err)
		httpx.WriteMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	httpx.NoCache(w)
	h.Cookies.SetSession(w, pair)
	httpx.WriteMessage(w, http.StatusOK, "Login successful")
}

func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pair, err := h.Sessions.Refresh(ctx, cookieValue(r, RefreshTokenCookie))
	if err != nil {
		// Refresh only ever fails as unauthenticated; the 401 body stays
		// identical for missing, forged, expired and already-spent tokens.
		httpx.WriteMessage(w, http.StatusUnauthorized, "Invalid or expired refresh token")
		return
	}

	httpx.NoCache(w)
	h.Cookies.SetSession(w, pair)
	httpx.WriteMessage(w, http.StatusOK, "Token refreshed")
}

func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.Sessions.Logout(r.Context(), cookieValue(r, RefreshTokenCookie))

	// Cookies are cleared unconditionally; logout never fails.
	httpx.NoCache(w)
	h.Cookies.ClearSession(w)
	httpx.WriteMessage(w, http.StatusOK, "Logged out successfully")
}
