package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/caza2026/panel/internal/auth"
	"github.com/caza2026/panel/internal/gate"
	"github.com/caza2026/panel/internal/shared"
	"github.com/caza2026/panel/internal/view"
	_ "github.com/caza2026/panel/testing"
)

type harness struct {
	mr       *miniredis.Miniredis
	sessions *shared.SessionManager
	router   http.Handler

	mu        sync.Mutex
	tornDown  []string
	cookie    *http.Cookie
	csrfToken string
}

func newHarness(t *testing.T, loginLimit int) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	hash, err := bcrypt.GenerateFromPassword([]byte("clave-segura"), bcrypt.MinCost)
	require.NoError(t, err)
	verifier, err := gate.NewBcryptVerifier(map[string]string{"ana": string(hash)})
	require.NoError(t, err)

	templates, err := view.NewEngine()
	require.NoError(t, err)

	h := &harness{mr: mr}
	h.sessions = shared.NewSessionManager(client, "panel_session", "0123456789abcdef0123456789abcdef", time.Hour, false)
	csrf := shared.NewCSRFManager("csrfsecret")
	guard := gate.NewGuard(gate.GuardConfig{
		Verifier: verifier,
		Duration: time.Hour,
		Loading:  auth.LoadingPage(templates, nil),
		Teardown: func(id string) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.tornDown = append(h.tornDown, id)
		},
	})

	r := chi.NewRouter()
	auth.NewHandler(nil, guard, templates, h.sessions, csrf, loginLimit).MountRoutes(r)
	r.With(guard.Require).Get("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("hola " + shared.OperatorFromContext(r.Context())))
	})
	h.router = r
	return h
}

// do runs a request through the router with the session loaded and committed
// around it, the way the application middleware does.
func (h *harness) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	if h.cookie != nil {
		req.AddCookie(h.cookie)
	}
	ctx := context.Background()
	sess, _ := h.sessions.Load(ctx, req)
	require.NotNil(t, sess)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	inner := httptest.NewRecorder()
	h.router.ServeHTTP(inner, req)

	out := httptest.NewRecorder()
	require.NoError(t, h.sessions.Commit(ctx, out, req, sess))
	for k, vs := range inner.Header() {
		for _, v := range vs {
			out.Header().Add(k, v)
		}
	}
	out.WriteHeader(inner.Code)
	_, _ = out.Write(inner.Body.Bytes())

	for _, c := range out.Result().Cookies() {
		if c.Name == h.sessions.CookieName() {
			h.cookie = c
		}
	}
	if token := sess.Get(shared.CSRFSessionKey); token != "" {
		h.csrfToken = token
	}
	return out
}

func (h *harness) postLogin(t *testing.T, user, pass string) *httptest.ResponseRecorder {
	form := url.Values{}
	form.Set("username", user)
	form.Set("password", pass)
	form.Set("csrf_token", h.csrfToken)
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return h.do(t, req)
}

func TestLoginPage(t *testing.T) {
	h := newHarness(t, 0)
	res := h.do(t, httptest.NewRequest(http.MethodGet, "/login", nil))

	assert.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "<form")
	assert.NotEmpty(t, h.csrfToken)
}

func TestLoginInvalidCredentials(t *testing.T) {
	h := newHarness(t, 0)
	h.do(t, httptest.NewRequest(http.MethodGet, "/login", nil))

	res := h.postLogin(t, "ana", "incorrecta")
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "Usuario o contraseña incorrectos")
	assert.NotContains(t, res.Body.String(), "incorrecta\"")
}

func TestLoginMissingFields(t *testing.T) {
	h := newHarness(t, 0)
	h.do(t, httptest.NewRequest(http.MethodGet, "/login", nil))

	res := h.postLogin(t, "", "")
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "Ingresá tu usuario.")
}

func TestLoginThenLogout(t *testing.T) {
	h := newHarness(t, 0)
	h.do(t, httptest.NewRequest(http.MethodGet, "/login", nil))
	anonymous := h.cookie.Value

	res := h.postLogin(t, "ana", "clave-segura")
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, gate.MainView, res.Header().Get("Location"))
	assert.NotEqual(t, anonymous, h.cookie.Value, "session id must change on login")

	res = h.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "hola ana", res.Body.String())

	res = h.do(t, httptest.NewRequest(http.MethodGet, "/login", nil))
	assert.Equal(t, http.StatusSeeOther, res.Code)

	res = h.do(t, httptest.NewRequest(http.MethodPost, "/logout", nil))
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, gate.LoginView, res.Header().Get("Location"))
	h.mu.Lock()
	assert.Len(t, h.tornDown, 1)
	h.mu.Unlock()

	res = h.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusSeeOther, res.Code)
}

func TestLoginRateLimited(t *testing.T) {
	h := newHarness(t, 1)
	h.do(t, httptest.NewRequest(http.MethodGet, "/login", nil))

	res := h.postLogin(t, "ana", "incorrecta")
	assert.Equal(t, http.StatusBadRequest, res.Code)
	res = h.postLogin(t, "ana", "clave-segura")
	assert.Equal(t, http.StatusTooManyRequests, res.Code)
	assert.Contains(t, res.Body.String(), "Demasiados intentos")
}

func TestLoginPageWhileStoreUnavailable(t *testing.T) {
	h := newHarness(t, 0)
	h.do(t, httptest.NewRequest(http.MethodGet, "/login", nil))
	h.mr.Close()

	res := h.do(t, httptest.NewRequest(http.MethodGet, "/login", nil))
	assert.Equal(t, http.StatusServiceUnavailable, res.Code)
	assert.Contains(t, res.Body.String(), "Cargando")
	assert.NotContains(t, res.Body.String(), "<form")
}
