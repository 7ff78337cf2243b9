package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/pandamarket/market/internal/market/service"
	"github.com/pandamarket/market/internal/market/store"
	"github.com/pandamarket/market/pkg/httpx"
	"github.com/pandamarket/market/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store   store.Store
	gate    *IdentityGate
	cookies CookieWriter

	SessionService *service.SessionService
	UserService    *service.UserService
	ProductService *service.ProductService
}

func NewRouter(
	buildVersion string,
	st store.Store,
	codec *service.Codec,
	cookies CookieWriter,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		gate:         &IdentityGate{Codec: codec, Store: st},
		cookies:      cookies,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerUsers()
	r.registerProducts()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{
		Sessions: r.SessionService,
		Cookies:  r.cookies,
	}

	r.Mux.Handle("POST /auth/signup", http.HandlerFunc(h.HandleSignup))
	r.Mux.Handle("POST /auth/login", http.HandlerFunc(h.HandleLogin))

	// Refresh and logout live under /auth so the path-scoped refresh
	// cookie reaches them.
	r.Mux.Handle("POST /auth/refresh", http.HandlerFunc(h.HandleRefresh))
	r.Mux.Handle("POST /auth/logout", http.HandlerFunc(h.HandleLogout))
}

func (r *Router) registerUsers() {
	h := &UsersHandler{
		Users:    r.UserService,
		Products: r.ProductService,
	}

	required := r.gate.Require()

	r.Mux.Handle("GET /users/me",
		httpx.Chain(http.HandlerFunc(h.HandleMe), required))
	r.Mux.Handle("PATCH /users/me",
		httpx.Chain(http.HandlerFunc(h.HandleUpdateMe), required))
	r.Mux.Handle("PATCH /users/me/password",
		httpx.Chain(http.HandlerFunc(h.HandleChangePassword), required))
	r.Mux.Handle("GET /users/me/products",
		httpx.Chain(http.HandlerFunc(h.HandleMyProducts), required))
	r.Mux.Handle("GET /users/me/likes",
		httpx.Chain(http.HandlerFunc(h.HandleMyLikes), required))
}

func (r *Router) registerProducts() {
	h := &ProductsHandler{Products: r.ProductService}

	required := r.gate.Require()
	optional := r.gate.Optional()

	r.Mux.Handle("POST /products",
		httpx.Chain(http.HandlerFunc(h.HandleCreate), required))
	r.Mux.Handle("GET /products",
		httpx.Chain(http.HandlerFunc(h.HandleList), optional))
	r.Mux.Handle("GET /products/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleGet), optional))
	r.Mux.Handle("POST /products/{id}/like",
		httpx.Chain(http.HandlerFunc(h.HandleLike), required))
	r.Mux.Handle("DELETE /products/{id}/like",
		httpx.Chain(http.HandlerFunc(h.HandleUnlike), required))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))
}
