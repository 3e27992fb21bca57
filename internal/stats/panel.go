package stats

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/caza2026/panel/internal/listview"
)

// Loader is implemented by Service.
type Loader interface {
	Load(ctx context.Context) (Snapshot, error)
	Refresh(ctx context.Context) (Snapshot, error)
}

// PanelState is what the home page renders.
type PanelState struct {
	Snapshot Snapshot
	Ready    bool
	Loading  bool
	Err      error
	Interval time.Duration
}

// Panel is the per-operator statistics view. It refreshes itself on an interval
// while started and keeps the last good counters when a refresh fails.
type Panel struct {
	loader Loader
	auto   *listview.AutoRefresh

	mu    sync.Mutex
	state PanelState
	token uint64
}

// NewPanel builds a stopped panel.
func NewPanel(loader Loader, interval time.Duration, logger *slog.Logger) *Panel {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Panel{loader: loader}
	p.auto = listview.NewAutoRefresh(interval, p.Refresh, logger.With(slog.String("view", "stats")))
	return p
}

// Load fetches counters, cached when possible.
func (p *Panel) Load(ctx context.Context) error {
	return p.run(ctx, p.loader.Load)
}

// Refresh bypasses the cache.
func (p *Panel) Refresh(ctx context.Context) error {
	return p.run(ctx, p.loader.Refresh)
}

func (p *Panel) run(ctx context.Context, fn func(context.Context) (Snapshot, error)) error {
	p.mu.Lock()
	p.token++
	token := p.token
	p.state.Loading = true
	p.mu.Unlock()

	snap, err := fn(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	if token != p.token {
		return nil
	}
	p.state.Loading = false
	if err != nil {
		p.state.Err = err
		return err
	}
	p.state.Snapshot = snap
	p.state.Ready = true
	p.state.Err = nil
	return nil
}

// State copies the current state.
func (p *Panel) State() PanelState {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.state
	st.Interval = p.auto.Interval()
	return st
}

// Start begins the auto refresh. ctx should outlive the request that triggers it.
func (p *Panel) Start(ctx context.Context) {
	p.auto.Start(ctx)
}

// Stop cancels the auto refresh; the panel must not be updated afterwards.
func (p *Panel) Stop() {
	p.auto.Stop()
}

// Running reports whether the auto refresh is active.
func (p *Panel) Running() bool {
	return p.auto.Running()
}
