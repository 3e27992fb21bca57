package gate

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/caza2026/panel/internal/shared"
)

// SessionStore persists the login inside the redis-backed cookie session.
type SessionStore struct {
	sess *shared.Session
}

// NewSessionStore wraps sess.
func NewSessionStore(sess *shared.Session) SessionStore {
	return SessionStore{sess: sess}
}

// Read implements Store.
func (s SessionStore) Read(context.Context) (Persisted, error) {
	if s.sess == nil {
		return Persisted{}, ErrNoSession
	}
	if err := s.sess.Unavailable(); err != nil {
		return Persisted{}, err
	}
	user, at, ok := s.sess.Login()
	if !ok {
		return Persisted{}, ErrNoSession
	}
	return Persisted{Username: user, LoginTimestamp: at}, nil
}

// Write implements Store.
func (s SessionStore) Write(_ context.Context, p Persisted) error {
	if s.sess == nil {
		return shared.ErrSessionMissing
	}
	if err := s.sess.Unavailable(); err != nil {
		return err
	}
	s.sess.SetLogin(p.Username, p.LoginTimestamp)
	return nil
}

// Clear implements Store.
func (s SessionStore) Clear(context.Context) error {
	if s.sess == nil {
		return nil
	}
	s.sess.ClearLogin()
	return nil
}

// Guard builds per-request gates and protects routes with them.
type Guard struct {
	verifier Verifier
	duration time.Duration
	logger   *slog.Logger
	loading  http.Handler
	teardown func(sessionID string)
	now      func() time.Time
}

// GuardConfig wires a Guard.
type GuardConfig struct {
	Verifier Verifier
	Duration time.Duration
	Logger   *slog.Logger
	// Loading renders the neutral page shown while the gate is Checking.
	Loading http.Handler
	// Teardown runs when the login of a session ends.
	Teardown func(sessionID string)
}

// NewGuard constructs a Guard.
func NewGuard(cfg GuardConfig) *Guard {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	loading := cfg.Loading
	if loading == nil {
		loading = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Retry-After", "2")
			http.Error(w, "Cargando…", http.StatusServiceUnavailable)
		})
	}
	return &Guard{
		verifier: cfg.Verifier,
		duration: cfg.Duration,
		logger:   logger,
		loading:  loading,
		teardown: cfg.Teardown,
		now:      time.Now,
	}
}

// Duration returns the session lifetime.
func (g *Guard) Duration() time.Duration {
	if g.duration <= 0 {
		return DefaultDuration
	}
	return g.duration
}

// For builds the gate of the request's session, already initialised.
func (g *Guard) For(r *http.Request) *Gate {
	sess := shared.SessionFromContext(r.Context())
	opts := []Option{WithLogger(g.logger)}
	if g.teardown != nil && sess != nil {
		id := sess.ID
		opts = append(opts, WithTeardown(func(string) { g.teardown(id) }))
	}
	gt := New(NewSessionStore(sess), g.verifier, g.duration, opts...)
	gt.Init(r.Context(), g.now())
	return gt
}

// Now returns the guard clock.
func (g *Guard) Now() time.Time {
	return g.now()
}

// Require lets Authenticated requests through with the operator in context, redirects
// Anonymous ones to the login view and answers Checking with the loading page.
func (g *Guard) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gt := g.For(r)
		switch gt.State() {
		case Authenticated:
			ctx := shared.ContextWithOperator(r.Context(), gt.User())
			next.ServeHTTP(w, r.WithContext(ctx))
		case Checking:
			g.loading.ServeHTTP(w, r)
		default:
			http.Redirect(w, r, LoginView, http.StatusSeeOther)
		}
	})
}
