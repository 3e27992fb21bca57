// Package workspace keeps one set of list controllers and a statistics panel per
// operator session.
package workspace

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/caza2026/panel/internal/records"
	"github.com/caza2026/panel/internal/stats"
)

// Workspace is the server-held view state of one session.
type Workspace struct {
	SessionID string
	Operator  string
	Records   *records.Set
	Stats     *stats.Panel

	createdAt time.Time
	lastSeen  time.Time
}

// CreatedAt returns the creation time.
func (w *Workspace) CreatedAt() time.Time { return w.createdAt }

// Config configures a Registry.
type Config struct {
	Deps            records.Deps
	Stats           stats.Loader
	RefreshInterval time.Duration
	IdleTTL         time.Duration
	Logger          *slog.Logger
}

// Registry maps session IDs to workspaces.
type Registry struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	items map[string]*Workspace
}

// NewRegistry constructs an empty registry.
func NewRegistry(cfg Config) *Registry {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 2 * time.Hour
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "workspace")),
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
		items:  make(map[string]*Workspace),
	}
}

// Get returns the workspace for sessionID, creating it on first use. A
// workspace owned by a different operator is replaced.
func (r *Registry) Get(sessionID, operator string) *Workspace {
	now := r.now()
	r.mu.Lock()
	ws, ok := r.items[sessionID]
	if ok && ws.Operator == operator {
		ws.lastSeen = now
		r.mu.Unlock()
		return ws
	}
	var stale *Workspace
	if ok {
		stale = ws
	}
	ws = r.build(sessionID, operator, now)
	r.items[sessionID] = ws
	r.mu.Unlock()

	if stale != nil {
		stale.Stats.Stop()
	}
	ws.Stats.Start(r.ctx)
	r.logger.Info("workspace opened", slog.String("operator", operator))
	return ws
}

// Lookup returns an existing workspace without creating one.
func (r *Registry) Lookup(sessionID string) (*Workspace, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ws, ok := r.items[sessionID]
	return ws, ok
}

func (r *Registry) build(sessionID, operator string, now time.Time) *Workspace {
	deps := r.cfg.Deps
	deps.Logger = r.logger.With(slog.String("operator", operator))
	return &Workspace{
		SessionID: sessionID,
		Operator:  operator,
		Records:   records.NewSet(deps),
		Stats:     stats.NewPanel(r.cfg.Stats, r.cfg.RefreshInterval, deps.Logger),
		createdAt: now,
		lastSeen:  now,
	}
}

// Close tears down the workspace of sessionID.
func (r *Registry) Close(sessionID string) bool {
	r.mu.Lock()
	ws, ok := r.items[sessionID]
	delete(r.items, sessionID)
	r.mu.Unlock()
	if !ok {
		return false
	}
	ws.Stats.Stop()
	r.logger.Info("workspace closed", slog.String("operator", ws.Operator))
	return true
}

// Sweep closes workspaces idle for longer than the configured TTL.
func (r *Registry) Sweep(now time.Time) int {
	var idle []*Workspace
	r.mu.Lock()
	for id, ws := range r.items {
		if now.Sub(ws.lastSeen) > r.cfg.IdleTTL {
			idle = append(idle, ws)
			delete(r.items, id)
		}
	}
	r.mu.Unlock()
	for _, ws := range idle {
		ws.Stats.Stop()
	}
	return len(idle)
}

// CloseAll tears down every workspace; used on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	items := r.items
	r.items = make(map[string]*Workspace)
	r.mu.Unlock()
	for _, ws := range items {
		ws.Stats.Stop()
	}
	r.cancel()
}

// Len reports the number of open workspaces.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}
