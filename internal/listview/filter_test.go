package listview

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestMatch(t *testing.T) {
	cases := []struct {
		term   string
		fields []string
		want   bool
	}{
		{"", []string{"anything"}, true},
		{"  ", nil, true},
		{"garcía", []string{"Estancia GARCÍA"}, true},
		{"20-123", []string{"", "20-12345678-9"}, true},
		{"ciervo", []string{"jabalí", "puma"}, false},
	}
	for _, tc := range cases {
		if got := Match(tc.term, tc.fields...); got != tc.want {
			t.Errorf("Match(%q, %v) = %v, want %v", tc.term, tc.fields, got, tc.want)
		}
	}
}

func TestFilterEmptyTermIsIdentity(t *testing.T) {
	items := []testRow{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}, {ID: 3, Name: "c"}}
	idx := Filter(items, "", func(r testRow) []string { return []string{r.Name} })
	if len(idx) != len(items) {
		t.Fatalf("expected %d indexes, got %d", len(items), len(idx))
	}
	for i, v := range idx {
		if v != i {
			t.Fatalf("order changed: %v", idx)
		}
	}
}

func TestAutoRefreshStopsOnTeardown(t *testing.T) {
	var ticks atomic.Int32
	ar := NewAutoRefresh(5*time.Millisecond, func(context.Context) error {
		ticks.Add(1)
		return nil
	}, nil)

	ar.Start(context.Background())
	ar.Start(context.Background())
	if !ar.Running() {
		t.Fatalf("expected running")
	}
	deadline := time.Now().Add(2 * time.Second)
	for ticks.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if ticks.Load() < 2 {
		t.Fatalf("expected at least two ticks, got %d", ticks.Load())
	}

	ar.Stop()
	if ar.Running() {
		t.Fatalf("expected stopped")
	}
	after := ticks.Load()
	time.Sleep(20 * time.Millisecond)
	if got := ticks.Load(); got != after {
		t.Fatalf("ticked after stop: %d -> %d", after, got)
	}
	ar.Stop()
}
