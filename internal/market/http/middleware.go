package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/pandamarket/market/internal/market/domain"
	"github.com/pandamarket/market/internal/market/service"
	"github.com/pandamarket/market/internal/market/store"
	"github.com/pandamarket/market/pkg/httpx"
	"github.com/pandamarket/market/pkg/slogx"
)

type userCtxKey struct{}

// UserFromContext returns the identity the gate attached to the request, if
// any. Handlers behind the required gate can rely on ok being true.
func UserFromContext(ctx context.Context) (domain.User, bool) {
	u, ok := ctx.Value(userCtxKey{}).(domain.User)
	return u, ok
}

// IdentityGate resolves the access token cookie into a user and attaches it
// to the request context. The required variant rejects the request on any
// failure; the optional variant lets it through anonymously.
type IdentityGate struct {
	Codec *service.Codec
	Store store.Store
}

// Require rejects the request with 401 unless a valid access token resolves
// to an existing user. The response never says why: signature, expiry and a
// deleted account all look the same to the client.
func (g *IdentityGate) Require() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, err := g.resolve(r)
			if err != nil {
				if errors.Is(err, errGateInternal) {
					httpx.WriteMessage(w, http.StatusInternalServerError, "Internal Server Error")
					return
				}
				httpx.WriteMessage(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), u)))
		})
	}
}

// Optional performs the same resolution but swallows every failure: the
// downstream handler simply sees an anonymous request.
func (g *IdentityGate) Optional() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, err := g.resolve(r)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), u)))
		})
	}
}

var (
	errGateUnauthorized = errors.New("gate: unauthorized")
	errGateInternal     = errors.New("gate: internal")
)

func (g *IdentityGate) resolve(r *http.Request) (domain.User, error) {
	token := cookieValue(r, AccessTokenCookie)
	if token == "" {
		return domain.User{}, errGateUnauthorized
	}

	userID, err := g.Codec.VerifyAccess(token)
	if err != nil {
		return domain.User{}, errGateUnauthorized
	}

	u, err := g.Store.Users().GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, errGateUnauthorized
		}
		slogx.FromContext(r.Context()).Error("identity resolution failed", "err", err)
		return domain.User{}, errGateInternal
	}

	return u, nil
}

func withUser(ctx context.Context, u domain.User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}
