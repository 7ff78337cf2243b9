package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/pandamarket/market/internal/market/service"
	"github.com/pandamarket/market/internal/market/store/drivers/sqlite"
	"github.com/pandamarket/market/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) *Router {
	t.Helper()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	accessKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)
	refreshKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)

	codec, err := service.NewCodec(accessKey, refreshKey, "test-issuer", time.Hour, 7*24*time.Hour)
	require.NoError(t, err)

	cookies := CookieWriter{
		AccessTTL:  codec.AccessTTL(),
		RefreshTTL: codec.RefreshTTL(),
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := NewRouter("test", st, codec, cookies, logger)
	r.SessionService = &service.SessionService{Store: st, Codec: codec}
	r.UserService = &service.UserService{Store: st}
	r.ProductService = &service.ProductService{Store: st}
	r.ApplyRoutes()

	return r
}

// testClient wraps an httptest server with a cookie jar so session cookies
// flow between requests like they would in a browser.
type testClient struct {
	t      *testing.T
	server *httptest.Server
	http   *http.Client
}

func newTestClient(t *testing.T) *testClient {
	t.Helper()

	server := httptest.NewServer(newTestRouter(t))
	t.Cleanup(server.Close)

	jar := newCookieJar(t)
	return &testClient{
		t:      t,
		server: server,
		http:   &http.Client{Jar: jar},
	}
}

func newCookieJar(t *testing.T) http.CookieJar {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return jar
}

func (c *testClient) do(method, path string, body any) *http.Response {
	c.t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequest(method, c.server.URL+path, reader)
	require.NoError(c.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	return resp
}

func (c *testClient) decode(resp *http.Response, out any) {
	c.t.Helper()
	defer resp.Body.Close()
	require.NoError(c.t, json.NewDecoder(resp.Body).Decode(out))
}

func (c *testClient) signup(email, nickname, password string) {
	c.t.Helper()
	resp := c.do("POST", "/auth/signup", map[string]string{
		"email": email, "nickname": nickname, "password": password,
	})
	defer resp.Body.Close()
	require.Equal(c.t, http.StatusCreated, resp.StatusCode)
}

func (c *testClient) login(email, password string) *http.Response {
	c.t.Helper()
	return c.do("POST", "/auth/login", map[string]string{
		"email": email, "password": password,
	})
}

func (c *testClient) cookies(path string) []*http.Cookie {
	c.t.Helper()
	u, err := url.Parse(c.server.URL + path)
	require.NoError(c.t, err)
	return c.http.Jar.Cookies(u)
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, ck := range cookies {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

func TestSignupEndpoint(t *testing.T) {
	t.Parallel()

	c := newTestClient(t)

	t.Run("missing fields", func(t *testing.T) {
		resp := c.do("POST", "/auth/signup", map[string]string{"email": "a@b.c"})
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("creates user without leaking the hash", func(t *testing.T) {
		resp := c.do("POST", "/auth/signup", map[string]string{
			"email": "panda@example.com", "nickname": "panda", "password": "Secret123!",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var body map[string]any
		c.decode(resp, &body)
		require.Equal(t, "panda@example.com", body["email"])
		require.NotContains(t, body, "password")
		require.NotContains(t, body, "passwordHash")
	})

	t.Run("duplicate email", func(t *testing.T) {
		resp := c.do("POST", "/auth/signup", map[string]string{
			"email": "panda@example.com", "nickname": "panda2", "password": "Secret123!",
		})
		defer resp.Body.Close()
		require.Equal(t, http.StatusConflict, resp.StatusCode)
	})
}

func TestLoginSetsSessionCookies(t *testing.T) {
	t.Parallel()

	c := newTestClient(t)
	c.signup("panda@example.com", "panda", "Secret123!")

	t.Run("bad credentials", func(t *testing.T) {
		resp := c.login("panda@example.com", "wrong")
		defer resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("cookie attributes", func(t *testing.T) {
		resp := c.login("panda@example.com", "Secret123!")
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var access, refresh *http.Cookie
		for _, ck := range resp.Cookies() {
			switch ck.Name {
			case AccessTokenCookie:
				access = ck
			case RefreshTokenCookie:
				refresh = ck
			}
		}

		require.NotNil(t, access)
		require.True(t, access.HttpOnly)
		require.Equal(t, "/", access.Path)
		require.Equal(t, http.SameSiteLaxMode, access.SameSite)

		require.NotNil(t, refresh)
		require.True(t, refresh.HttpOnly)
		require.Equal(t, "/auth", refresh.Path)
		require.Equal(t, http.SameSiteLaxMode, refresh.SameSite)

		// The refresh token must never ride along on non-/auth requests.
		require.Nil(t, findCookie(c.cookies("/products"), RefreshTokenCookie))
		require.NotNil(t, findCookie(c.cookies("/auth/refresh"), RefreshTokenCookie))
	})
}

func TestIdentityGate(t *testing.T) {
	t.Parallel()

	c := newTestClient(t)
	c.signup("panda@example.com", "panda", "Secret123!")

	t.Run("required rejects anonymous", func(t *testing.T) {
		resp := c.do("GET", "/users/me", nil)
		defer resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("optional admits anonymous", func(t *testing.T) {
		resp := c.do("GET", "/products", nil)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("corrupted access token", func(t *testing.T) {
		// The same garbage cookie is a 401 through the required gate and
		// a pass-through anonymous request through the optional gate.
		for path, want := range map[string]int{
			"/users/me": http.StatusUnauthorized,
			"/products": http.StatusOK,
		} {
			req, err := http.NewRequest("GET", c.server.URL+path, nil)
			require.NoError(t, err)
			req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "garbage"})

			resp, err := c.server.Client().Do(req)
			require.NoError(t, err)
			resp.Body.Close()
			require.Equal(t, want, resp.StatusCode, path)
		}
	})

	t.Run("required admits a session", func(t *testing.T) {
		login := c.login("panda@example.com", "Secret123!")
		login.Body.Close()
		require.Equal(t, http.StatusOK, login.StatusCode)

		resp := c.do("GET", "/users/me", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]any
		c.decode(resp, &body)
		require.Equal(t, "panda", body["nickname"])
	})
}

func TestRefreshEndpointRotates(t *testing.T) {
	t.Parallel()

	c := newTestClient(t)
	c.signup("panda@example.com", "panda", "Secret123!")

	login := c.login("panda@example.com", "Secret123!")
	login.Body.Close()
	require.Equal(t, http.StatusOK, login.StatusCode)

	before := findCookie(c.cookies("/auth/refresh"), RefreshTokenCookie)
	require.NotNil(t, before)

	resp := c.do("POST", "/auth/refresh", nil)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	after := findCookie(c.cookies("/auth/refresh"), RefreshTokenCookie)
	require.NotNil(t, after)
	require.NotEqual(t, before.Value, after.Value)

	t.Run("replaying the old token fails", func(t *testing.T) {
		req, err := http.NewRequest("POST", c.server.URL+"/auth/refresh", nil)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: before.Value})

		// Bypass the jar so only the stale cookie is sent.
		replay, err := c.server.Client().Do(req)
		require.NoError(t, err)
		replay.Body.Close()
		require.Equal(t, http.StatusUnauthorized, replay.StatusCode)
	})

	t.Run("refresh without a cookie fails", func(t *testing.T) {
		resp, err := c.server.Client().Post(c.server.URL+"/auth/refresh", "application/json", nil)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestLogoutEndpoint(t *testing.T) {
	t.Parallel()

	c := newTestClient(t)
	c.signup("panda@example.com", "panda", "Secret123!")

	login := c.login("panda@example.com", "Secret123!")
	login.Body.Close()

	resp := c.do("POST", "/auth/logout", nil)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	t.Run("cookies are gone", func(t *testing.T) {
		require.Nil(t, findCookie(c.cookies("/"), AccessTokenCookie))
		require.Nil(t, findCookie(c.cookies("/auth/refresh"), RefreshTokenCookie))
	})

	t.Run("session is dead server side", func(t *testing.T) {
		resp := c.do("POST", "/auth/refresh", nil)
		defer resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("logout while logged out still succeeds", func(t *testing.T) {
		resp := c.do("POST", "/auth/logout", nil)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestProductEndpoints(t *testing.T) {
	t.Parallel()

	c := newTestClient(t)
	c.signup("seller@example.com", "seller", "Secret123!")
	login := c.login("seller@example.com", "Secret123!")
	login.Body.Close()

	t.Run("create requires identity", func(t *testing.T) {
		resp, err := c.server.Client().Post(c.server.URL+"/products", "application/json", nil)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	var productID string

	t.Run("create", func(t *testing.T) {
		resp := c.do("POST", "/products", map[string]any{
			"title": "Chair", "description": "Wooden chair", "price": 15000,
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var body map[string]any
		c.decode(resp, &body)
		productID = body["id"].(string)
		require.NotEmpty(t, productID)
	})

	t.Run("get unknown product", func(t *testing.T) {
		resp := c.do("GET", "/products/does-not-exist", nil)
		defer resp.Body.Close()
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("like and double like", func(t *testing.T) {
		resp := c.do("POST", "/products/"+productID+"/like", nil)
		resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		dup := c.do("POST", "/products/"+productID+"/like", nil)
		dup.Body.Close()
		require.Equal(t, http.StatusConflict, dup.StatusCode)
	})

	t.Run("liked flag reflects viewer", func(t *testing.T) {
		resp := c.do("GET", "/products/"+productID, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]any
		c.decode(resp, &body)
		require.Equal(t, true, body["isLiked"])

		anon, err := c.server.Client().Get(c.server.URL + "/products/" + productID)
		require.NoError(t, err)
		var anonBody map[string]any
		require.NoError(t, json.NewDecoder(anon.Body).Decode(&anonBody))
		anon.Body.Close()
		require.Equal(t, false, anonBody["isLiked"])
	})

	t.Run("unlike is idempotent", func(t *testing.T) {
		resp := c.do("DELETE", "/products/"+productID+"/like", nil)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		again := c.do("DELETE", "/products/"+productID+"/like", nil)
		again.Body.Close()
		require.Equal(t, http.StatusOK, again.StatusCode)
	})
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	c := newTestClient(t)

	for _, path := range []string{"/livez", "/readyz"} {
		resp := c.do("GET", path, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]any
		c.decode(resp, &body)
		require.Equal(t, "ok", body["status"])
	}
}
