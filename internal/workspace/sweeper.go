package workspace

import (
	"log/slog"
	"sync"
	"time"
)

// Sweeper is a background worker that evicts idle workspaces.
type Sweeper struct {
	registry *Registry
	log      *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
	once     sync.Once
	wg       sync.WaitGroup
}

// NewSweeper creates a sweeper running every interval.
func NewSweeper(registry *Registry, logger *slog.Logger, interval time.Duration) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Sweeper{
		registry: registry,
		log:      logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background loop.
func (s *Sweeper) Start() {
	s.wg.Add(1)
	go s.run()
	s.log.Info("workspace sweeper started",
		slog.Duration("interval", s.interval),
		slog.Duration("idle_ttl", s.registry.cfg.IdleTTL))
}

// Stop signals the worker to stop and waits for it to finish.
func (s *Sweeper) Stop() {
	s.once.Do(func() { close(s.stopCh) })
	s.wg.Wait()
	s.log.Info("workspace sweeper stopped")
}

func (s *Sweeper) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case now := <-ticker.C:
			if n := s.registry.Sweep(now); n > 0 {
				s.log.Info("evicted idle workspaces", slog.Int("count", n))
			}
		}
	}
}
