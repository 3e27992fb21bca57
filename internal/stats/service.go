// Package stats loads the aggregate counters shown on the dashboard home.
package stats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/caza2026/panel/internal/api"
)

// Source is the subset of the REST client that serves counters.
type Source interface {
	TotalInscripciones(ctx context.Context) (api.TotalInscripciones, error)
	PermisoStats(ctx context.Context) (api.PermisoStats, error)
	Recaudaciones(ctx context.Context) (api.Recaudaciones, error)
}

// Snapshot aggregates the three counter endpoints.
type Snapshot struct {
	Inscripciones int               `json:"inscripciones"`
	Permisos      api.PermisoStats  `json:"permisos"`
	Recaudaciones api.Recaudaciones `json:"recaudaciones"`
	FetchedAt     time.Time         `json:"fetched_at"`
}

// Service fetches counters in parallel, collapses concurrent loads and caches them.
type Service struct {
	source Source
	cache  *Cache
	group  singleflight.Group
	logger *slog.Logger
	now    func() time.Time
}

// NewService wires a Source with a Cache helper.
func NewService(source Source, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: source, cache: cache, logger: logger, now: time.Now}
}

// Load returns the cached snapshot or fetches a fresh one.
func (s *Service) Load(ctx context.Context) (Snapshot, error) {
	v, err, _ := s.group.Do("stats", func() (any, error) {
		key, err := s.cache.BuildKey(ctx, "panel", "stats")
		if err != nil {
			s.logger.Warn("stats cache key", slog.Any("error", err))
			return s.fetch(ctx)
		}
		var out Snapshot
		err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
			return s.fetch(ctx)
		})
		return out, err
	})
	if err != nil {
		return Snapshot{}, err
	}
	return v.(Snapshot), nil
}

// Refresh invalidates the cache and fetches again.
func (s *Service) Refresh(ctx context.Context) (Snapshot, error) {
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("stats cache bump", slog.Any("error", err))
	}
	return s.Load(ctx)
}

// Invalidate drops cached counters, e.g. after a link-data run.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

func (s *Service) fetch(ctx context.Context) (Snapshot, error) {
	var out Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := s.source.TotalInscripciones(gctx)
		if err != nil {
			return fmt.Errorf("total inscripciones: %w", err)
		}
		out.Inscripciones = v.Total
		return nil
	})
	g.Go(func() error {
		v, err := s.source.PermisoStats(gctx)
		if err != nil {
			return fmt.Errorf("permisos stats: %w", err)
		}
		out.Permisos = v
		return nil
	})
	g.Go(func() error {
		v, err := s.source.Recaudaciones(gctx)
		if err != nil {
			return fmt.Errorf("recaudaciones: %w", err)
		}
		out.Recaudaciones = v
		return nil
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	out.FetchedAt = s.now().UTC()
	return out, nil
}
