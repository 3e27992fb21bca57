// Package gate decides whether a request belongs to an authenticated operator.
//
// A Gate moves Uninitialized -> Checking -> Authenticated | Anonymous. It reads the
// persisted {username, login timestamp} pair from a Store and treats it as valid for
// a fixed duration after login. Credentials are checked by a pluggable Verifier.
package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// State of a Gate.
type State int

const (
	Uninitialized State = iota
	Checking
	Authenticated
	Anonymous
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Checking:
		return "checking"
	case Authenticated:
		return "authenticated"
	case Anonymous:
		return "anonymous"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Navigation targets signalled by Login and Logout.
const (
	MainView  = "/"
	LoginView = "/login"
)

// DefaultDuration is the session lifetime after login.
const DefaultDuration = 2 * time.Hour

var (
	// ErrNoSession is returned by a Store with nothing persisted.
	ErrNoSession = errors.New("gate: no persisted session")
	// ErrInvalidCredentials is returned when the verifier rejects the login.
	ErrInvalidCredentials = errors.New("gate: invalid credentials")
	// ErrMissingCredentials is returned when username or secret is blank.
	ErrMissingCredentials = errors.New("gate: missing credentials")
)

// Persisted is the state kept across requests.
type Persisted struct {
	Username       string
	LoginTimestamp time.Time
}

// Store persists the login across requests.
type Store interface {
	Read(ctx context.Context) (Persisted, error)
	Write(ctx context.Context, p Persisted) error
	Clear(ctx context.Context) error
}

// Verifier checks operator credentials.
type Verifier interface {
	Verify(ctx context.Context, username, secret string) (bool, error)
}

// Option customises a Gate.
type Option func(*Gate)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gate) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithTeardown registers fn to run when a login ends (logout or expiry).
func WithTeardown(fn func(username string)) Option {
	return func(g *Gate) {
		if fn != nil {
			g.teardown = append(g.teardown, fn)
		}
	}
}

// Gate is the explicit, owned authentication state of one browser session.
type Gate struct {
	store    Store
	verifier Verifier
	duration time.Duration
	logger   *slog.Logger
	teardown []func(string)

	mu      sync.Mutex
	state   State
	user    string
	loginAt time.Time
}

// New builds an uninitialised gate.
func New(store Store, verifier Verifier, duration time.Duration, opts ...Option) *Gate {
	if duration <= 0 {
		duration = DefaultDuration
	}
	g := &Gate{
		store:    store,
		verifier: verifier,
		duration: duration,
		logger:   slog.Default(),
		state:    Uninitialized,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// State returns the current state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// User returns the authenticated operator, or "".
func (g *Gate) User() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != Authenticated {
		return ""
	}
	return g.user
}

// ExpiresAt returns when the current login lapses.
func (g *Gate) ExpiresAt() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != Authenticated {
		return time.Time{}
	}
	return g.loginAt.Add(g.duration)
}

// Init re-validates the persisted login. A store read error leaves the gate in
// Checking; callers render a neutral loading state for it.
func (g *Gate) Init(ctx context.Context, now time.Time) State {
	g.mu.Lock()
	g.state = Checking
	g.mu.Unlock()

	p, err := g.store.Read(ctx)
	switch {
	case errors.Is(err, ErrNoSession):
		return g.settle(Anonymous, "", time.Time{})
	case err != nil:
		g.logger.Warn("session gate check deferred", slog.Any("error", err))
		return Checking
	case p.Username == "" || p.LoginTimestamp.IsZero():
		return g.settle(Anonymous, "", time.Time{})
	case now.Sub(p.LoginTimestamp) > g.duration:
		if err := g.store.Clear(ctx); err != nil {
			g.logger.Warn("clear expired session", slog.Any("error", err))
		}
		g.logger.Info("session expired", slog.String("operator", p.Username), slog.Time("login_at", p.LoginTimestamp))
		g.runTeardown(p.Username)
		return g.settle(Anonymous, "", time.Time{})
	default:
		return g.settle(Authenticated, p.Username, p.LoginTimestamp)
	}
}

// Login verifies the credentials and persists {username, now}. It returns the view to
// navigate to on success.
func (g *Gate) Login(ctx context.Context, username, secret string, now time.Time) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || secret == "" {
		return "", ErrMissingCredentials
	}
	ok, err := g.verifier.Verify(ctx, username, secret)
	if err != nil {
		return "", fmt.Errorf("gate: verify: %w", err)
	}
	if !ok {
		g.settle(Anonymous, "", time.Time{})
		return "", ErrInvalidCredentials
	}
	if err := g.store.Write(ctx, Persisted{Username: username, LoginTimestamp: now}); err != nil {
		return "", fmt.Errorf("gate: persist login: %w", err)
	}
	g.settle(Authenticated, username, now)
	return MainView, nil
}

// Logout clears the persisted login and returns the view to navigate to.
func (g *Gate) Logout(ctx context.Context) (string, error) {
	g.mu.Lock()
	user := g.user
	g.mu.Unlock()

	if err := g.store.Clear(ctx); err != nil {
		return "", fmt.Errorf("gate: clear session: %w", err)
	}
	g.settle(Anonymous, "", time.Time{})
	if user != "" {
		g.runTeardown(user)
	}
	return LoginView, nil
}

func (g *Gate) settle(s State, user string, at time.Time) State {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = s
	g.user = user
	g.loginAt = at
	return s
}

func (g *Gate) runTeardown(user string) {
	for _, fn := range g.teardown {
		fn(user)
	}
}
