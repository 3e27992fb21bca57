package listview

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRow struct {
	ID     int
	Name   string
	Email  string
	IsPaid bool
	Sent   []string
}

// memoryBackend serves pages out of a fixed slice, like the remote API would.
type memoryBackend struct {
	mu    sync.Mutex
	rows  []testRow
	calls []PageRequest
	err   error
}

func newMemoryBackend(n int) *memoryBackend {
	rows := make([]testRow, n)
	for i := range rows {
		rows[i] = testRow{ID: i + 1, Name: fmt.Sprintf("Establecimiento %d", i+1), Email: fmt.Sprintf("e%d@test.local", i+1)}
	}
	return &memoryBackend{rows: rows}
}

func (b *memoryBackend) FetchPage(_ context.Context, req PageRequest) (PageResult[testRow], error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, req)
	if b.err != nil {
		return PageResult[testRow]{}, b.err
	}
	total := len(b.rows)
	pages := (total + req.Limit - 1) / req.Limit
	start := (req.Page - 1) * req.Limit
	items := []testRow{}
	if start < total {
		end := start + req.Limit
		if end > total {
			end = total
		}
		items = append(items, b.rows[start:end]...)
	}
	return PageResult[testRow]{Items: items, TotalRecords: total, TotalPages: pages}, nil
}

func (b *memoryBackend) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

func testBinding(size int) Binding[testRow] {
	return Binding[testRow]{
		Resource: "inscripciones",
		PageSize: size,
		Key:      func(r testRow) string { return strconv.Itoa(r.ID) },
		SearchFields: func(r testRow) []string {
			return []string{r.Name, r.Email}
		},
	}
}

func newTestController(t *testing.T, backend Fetcher[testRow], actions ...Action[testRow]) *Controller[testRow] {
	t.Helper()
	d := NewDispatcher[testRow]("inscripciones", nil, nil, actions...)
	return NewController(testBinding(10), backend, d, nil)
}

func TestControllerPagingScenario(t *testing.T) {
	backend := newMemoryBackend(25)
	c := newTestController(t, backend)

	require.NoError(t, c.Load(context.Background()))
	snap := c.Snapshot()
	assert.Equal(t, 1, snap.Page)
	assert.Equal(t, 25, snap.TotalRecords)
	assert.Equal(t, 3, snap.TotalPages)
	assert.Len(t, snap.Rows, 10)
	assert.False(t, snap.CanPrev(), "previous disabled on first page")
	assert.True(t, snap.CanNext())

	require.NoError(t, c.ChangePage(context.Background(), 3))
	snap = c.Snapshot()
	assert.Equal(t, 3, snap.Page)
	assert.Len(t, snap.Rows, 5)
	assert.False(t, snap.CanNext(), "next disabled on last page")
	assert.True(t, snap.CanPrev())
}

func TestControllerChangePageOutOfRangeIssuesNoRequest(t *testing.T) {
	backend := newMemoryBackend(25)
	c := newTestController(t, backend)
	require.NoError(t, c.Load(context.Background()))
	calls := backend.callCount()

	for _, n := range []int{0, -1, 4, 100} {
		err := c.ChangePage(context.Background(), n)
		assert.ErrorIs(t, err, ErrPageOutOfRange, "page %d", n)
	}
	assert.Equal(t, calls, backend.callCount())

	// Same page is a no-op.
	require.NoError(t, c.ChangePage(context.Background(), 1))
	assert.Equal(t, calls, backend.callCount())
}

func TestControllerFetchIsIdempotent(t *testing.T) {
	backend := newMemoryBackend(25)
	c := newTestController(t, backend)
	require.NoError(t, c.Load(context.Background()))
	first := c.Snapshot()

	require.NoError(t, c.Refresh(context.Background()))
	second := c.Snapshot()

	assert.Equal(t, first.Rows, second.Rows)
	assert.Equal(t, first.TotalPages, second.TotalPages)
}

func TestControllerFailedFetchKeepsStaleData(t *testing.T) {
	backend := newMemoryBackend(25)
	c := newTestController(t, backend)
	require.NoError(t, c.Load(context.Background()))
	before := c.Snapshot()

	backend.err = errors.New("connection refused")
	err := c.ChangePage(context.Background(), 2)
	require.Error(t, err)

	after := c.Snapshot()
	assert.Equal(t, before.Rows, after.Rows)
	assert.Equal(t, 1, after.Page)
	assert.False(t, after.Loading)
	require.Error(t, after.Err)

	backend.err = nil
	require.NoError(t, c.Refresh(context.Background()))
	assert.NoError(t, c.Snapshot().Err)
}

func TestControllerSearchDoesNotTouchTotals(t *testing.T) {
	backend := newMemoryBackend(25)
	c := newTestController(t, backend)
	require.NoError(t, c.Load(context.Background()))
	full := c.Snapshot()

	c.SetSearch("ESTABLECIMIENTO 1")
	filtered := c.Snapshot()
	assert.Equal(t, full.TotalRecords, filtered.TotalRecords)
	assert.Equal(t, full.TotalPages, filtered.TotalPages)
	// 1 and 10 on the first page.
	assert.Len(t, filtered.Rows, 2)
	assert.True(t, filtered.Filtered())

	c.SetSearch("")
	assert.Equal(t, full.Rows, c.Snapshot().Rows)
	assert.Equal(t, 1, backend.callCount())
}

func TestControllerExpandResetsOnFetch(t *testing.T) {
	backend := newMemoryBackend(25)
	c := newTestController(t, backend)
	require.NoError(t, c.Load(context.Background()))

	require.NoError(t, c.ToggleExpand("2"))
	require.NoError(t, c.ToggleExpand("3"))
	assert.ErrorIs(t, c.ToggleExpand("99"), ErrRowNotFound)

	expanded := 0
	for _, r := range c.Snapshot().Rows {
		if r.Expanded {
			expanded++
		}
	}
	assert.Equal(t, 2, expanded)

	require.NoError(t, c.ToggleExpand("3"))
	require.NoError(t, c.Refresh(context.Background()))
	for _, r := range c.Snapshot().Rows {
		assert.False(t, r.Expanded, "row %s still expanded", r.Key)
	}
}

// gatedBackend blocks page 1 until released so a later request can overtake it.
type gatedBackend struct {
	*memoryBackend
	release chan struct{}
	entered chan struct{}
}

func (g *gatedBackend) FetchPage(ctx context.Context, req PageRequest) (PageResult[testRow], error) {
	if req.Page == 1 {
		g.entered <- struct{}{}
		<-g.release
	}
	return g.memoryBackend.FetchPage(ctx, req)
}

func TestControllerDiscardsSupersededResponse(t *testing.T) {
	inner := newMemoryBackend(25)
	c := newTestController(t, inner)
	require.NoError(t, c.Load(context.Background()))
	require.NoError(t, c.ChangePage(context.Background(), 2))

	gated := &gatedBackend{memoryBackend: inner, release: make(chan struct{}), entered: make(chan struct{}, 1)}
	c.fetcher = gated

	done := make(chan error, 1)
	go func() { done <- c.ChangePage(context.Background(), 1) }()
	<-gated.entered

	require.NoError(t, c.ChangePage(context.Background(), 3))
	close(gated.release)
	require.NoError(t, <-done)

	snap := c.Snapshot()
	assert.Equal(t, 3, snap.Page)
	assert.Len(t, snap.Rows, 5)
}

func paymentAction(fail error) Action[testRow] {
	return Action[testRow]{
		Kind: ActionSendPaymentLink,
		Validate: func(r testRow, _ Payload) error {
			return RequirePaymentTarget(strconv.Itoa(r.ID), r.Name, r.Email)
		},
		Call: func(context.Context, testRow, Payload) (ActionResult, error) {
			if fail != nil {
				return ActionResult{}, fail
			}
			return ActionResult{Message: "ok"}, nil
		},
		Apply: func(r *testRow, _ Payload, _ time.Time) {
			r.Sent = append(r.Sent, "cobro")
		},
	}
}

func TestControllerSendPaymentLinkPatchesOnlyTarget(t *testing.T) {
	backend := newMemoryBackend(25)
	c := newTestController(t, backend, paymentAction(nil))
	require.NoError(t, c.Load(context.Background()))
	before := c.Snapshot()

	_, err := c.Dispatch(context.Background(), ActionSendPaymentLink, "4", nil)
	require.NoError(t, err)

	after := c.Snapshot()
	for i, rv := range after.Rows {
		if rv.Key == "4" {
			assert.Equal(t, []string{"cobro"}, rv.Row.Sent)
			continue
		}
		assert.Equal(t, before.Rows[i].Row, rv.Row)
	}
	assert.Equal(t, 1, backend.callCount(), "no re-fetch after an action")
}

func TestControllerFailedActionLeavesRowUntouched(t *testing.T) {
	backend := newMemoryBackend(25)
	c := newTestController(t, backend, paymentAction(errors.New("smtp down")))
	require.NoError(t, c.Load(context.Background()))
	before, ok := c.Row("4")
	require.True(t, ok)

	_, err := c.Dispatch(context.Background(), ActionSendPaymentLink, "4", nil)
	require.Error(t, err)

	after, _ := c.Row("4")
	assert.Equal(t, before, after)
	for _, rv := range c.Snapshot().Rows {
		if rv.Key == "4" {
			assert.Contains(t, rv.Error, "smtp down")
			assert.False(t, rv.Busy(string(ActionSendPaymentLink)))
		} else {
			assert.Empty(t, rv.Error)
		}
	}
}

func TestControllerToggleStatusOnlyTargetRow(t *testing.T) {
	backend := newMemoryBackend(50)
	toggle := Action[testRow]{
		Kind: ActionToggleStatus,
		Call: func(context.Context, testRow, Payload) (ActionResult, error) { return ActionResult{}, nil },
		Apply: func(r *testRow, p Payload, _ time.Time) {
			r.IsPaid = p.Bool("is_paid")
		},
	}
	d := NewDispatcher[testRow]("reses", nil, nil, toggle)
	c := NewController(testBinding(15), Fetcher[testRow](backend), d, nil)
	require.NoError(t, c.Load(context.Background()))
	require.NoError(t, c.ChangePage(context.Background(), 3))

	_, err := c.Dispatch(context.Background(), ActionToggleStatus, "42", Payload{"is_paid": "true"})
	require.NoError(t, err)

	for _, rv := range c.Snapshot().Rows {
		assert.Equal(t, rv.Key == "42", rv.Row.IsPaid, "row %s", rv.Key)
	}
}

func TestControllerDispatchUnknownRow(t *testing.T) {
	backend := newMemoryBackend(5)
	c := newTestController(t, backend, paymentAction(nil))
	require.NoError(t, c.Load(context.Background()))

	_, err := c.Dispatch(context.Background(), ActionSendPaymentLink, "77", nil)
	assert.ErrorIs(t, err, ErrRowNotFound)
}
