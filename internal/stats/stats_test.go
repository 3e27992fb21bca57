package stats

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/caza2026/panel/internal/api"
)

type mockSource struct {
	total   atomic.Int64
	calls   atomic.Int64
	failRec atomic.Bool
}

func (m *mockSource) TotalInscripciones(ctx context.Context) (api.TotalInscripciones, error) {
	m.calls.Add(1)
	return api.TotalInscripciones{Total: int(m.total.Load())}, nil
}

func (m *mockSource) PermisoStats(ctx context.Context) (api.PermisoStats, error) {
	return api.PermisoStats{Total: 10, Pagados: 7, Pendientes: 3}, nil
}

func (m *mockSource) Recaudaciones(ctx context.Context) (api.Recaudaciones, error) {
	if m.failRec.Load() {
		return api.Recaudaciones{}, &api.NetworkError{Op: "stats recaudaciones", StatusCode: 500}
	}
	return api.Recaudaciones{Total: 150000, Inscripciones: 100000, Permisos: 50000}, nil
}

func newTestService(t *testing.T, src Source) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(src, NewCache(client, time.Minute), nil)
}

func TestServiceLoadCaches(t *testing.T) {
	src := &mockSource{}
	src.total.Store(42)
	svc := newTestService(t, src)
	ctx := context.Background()

	snap, err := svc.Load(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Inscripciones != 42 || snap.Permisos.Pagados != 7 || snap.Recaudaciones.Total != 150000 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	src.total.Store(43)
	snap, err = svc.Load(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Inscripciones != 42 || src.calls.Load() != 1 {
		t.Fatalf("expected cached result, got %d after %d calls", snap.Inscripciones, src.calls.Load())
	}

	snap, err = svc.Refresh(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Inscripciones != 43 || src.calls.Load() != 2 {
		t.Fatalf("expected refresh to bypass cache, got %d after %d calls", snap.Inscripciones, src.calls.Load())
	}
}

func TestServiceLoadFailsWhenAnyCounterFails(t *testing.T) {
	src := &mockSource{}
	src.failRec.Store(true)
	svc := newTestService(t, src)

	_, err := svc.Load(context.Background())
	if !api.IsNetwork(err) {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestServiceWithoutRedis(t *testing.T) {
	src := &mockSource{}
	svc := NewService(src, NewCache(nil, time.Minute), nil)
	for i := 0; i < 2; i++ {
		if _, err := svc.Load(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if src.calls.Load() != 2 {
		t.Fatalf("expected uncached loads, got %d calls", src.calls.Load())
	}
}

type stubLoader struct {
	snap Snapshot
	err  error
}

func (s *stubLoader) Load(ctx context.Context) (Snapshot, error)    { return s.snap, s.err }
func (s *stubLoader) Refresh(ctx context.Context) (Snapshot, error) { return s.snap, s.err }

func TestPanelKeepsLastCountersOnFailure(t *testing.T) {
	loader := &stubLoader{snap: Snapshot{Inscripciones: 5}}
	panel := NewPanel(loader, time.Minute, nil)

	if err := panel.Load(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	loader.err = errors.New("down")
	if err := panel.Refresh(context.Background()); err == nil {
		t.Fatalf("expected refresh error")
	}
	st := panel.State()
	if !st.Ready || st.Snapshot.Inscripciones != 5 || st.Err == nil || st.Loading {
		t.Fatalf("unexpected state %+v", st)
	}
	if st.Interval != time.Minute {
		t.Fatalf("expected interval 1m, got %s", st.Interval)
	}
}

func TestPanelStartStop(t *testing.T) {
	panel := NewPanel(&stubLoader{}, 10*time.Millisecond, nil)
	panel.Start(context.Background())
	panel.Start(context.Background())
	if !panel.Running() {
		t.Fatalf("expected running panel")
	}
	panel.Stop()
	if panel.Running() {
		t.Fatalf("expected stopped panel")
	}
}
