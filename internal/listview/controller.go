package listview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Binding describes how a resource's rows are identified and searched.
type Binding[R any] struct {
	Resource     Resource
	PageSize     int
	Key          func(R) string
	SearchFields func(R) []string
}

// Controller owns the page state of one list view. Its mutex serialises events the
// way a UI event loop would; it is never held across a network call.
type Controller[R any] struct {
	binding    Binding[R]
	fetcher    Fetcher[R]
	dispatcher *Dispatcher[R]
	logger     *slog.Logger
	recorder   Recorder

	mu           sync.Mutex
	items        []R
	page         int
	totalRecords int
	totalPages   int
	loaded       bool
	loading      bool
	token        uint64
	err          error
	search       string
	expanded     map[string]bool
	rowErrors    map[string]string
}

// ControllerOption customises a Controller.
type ControllerOption[R any] func(*Controller[R])

// WithRecorder attaches a Recorder for fetch outcomes.
func WithRecorder[R any](rec Recorder) ControllerOption[R] {
	return func(c *Controller[R]) {
		if rec != nil {
			c.recorder = rec
		}
	}
}

// NewController composes a fetcher and dispatcher for one resource.
func NewController[R any](binding Binding[R], fetcher Fetcher[R], dispatcher *Dispatcher[R], logger *slog.Logger, opts ...ControllerOption[R]) *Controller[R] {
	if logger == nil {
		logger = slog.Default()
	}
	if binding.PageSize <= 0 {
		binding.PageSize = 10
	}
	if binding.SearchFields == nil {
		binding.SearchFields = func(R) []string { return nil }
	}
	if dispatcher == nil {
		dispatcher = NewDispatcher[R](binding.Resource, logger, nil)
	}
	c := &Controller[R]{
		binding:    binding,
		fetcher:    fetcher,
		dispatcher: dispatcher,
		logger:     logger.With(slog.String("resource", string(binding.Resource))),
		recorder:   nopRecorder{},
		page:       1,
		expanded:   make(map[string]bool),
		rowErrors:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resource returns the bound resource.
func (c *Controller[R]) Resource() Resource {
	return c.binding.Resource
}

// Loaded reports whether a fetch has ever succeeded.
func (c *Controller[R]) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// Load fetches the first page.
func (c *Controller[R]) Load(ctx context.Context) error {
	return c.fetch(ctx, 1)
}

// Refresh re-fetches the current page.
func (c *Controller[R]) Refresh(ctx context.Context) error {
	c.mu.Lock()
	page := c.page
	c.mu.Unlock()
	return c.fetch(ctx, page)
}

// ChangePage moves to page n. It is a no-op when n is the current page and
// fails with ErrPageOutOfRange when n is outside [1, totalPages].
func (c *Controller[R]) ChangePage(ctx context.Context, n int) error {
	c.mu.Lock()
	current, total := c.page, c.totalPages
	c.mu.Unlock()
	if n == current {
		return nil
	}
	if n < 1 || n > total {
		return fmt.Errorf("%w: %d not in [1, %d]", ErrPageOutOfRange, n, total)
	}
	return c.fetch(ctx, n)
}

func (c *Controller[R]) fetch(ctx context.Context, page int) error {
	req := PageRequest{Resource: c.binding.Resource, Page: page, Limit: c.binding.PageSize}
	if err := req.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	c.token++
	token := c.token
	c.loading = true
	c.mu.Unlock()

	res, err := c.fetcher.FetchPage(ctx, req)
	c.recorder.ObserveFetch(c.binding.Resource, err)

	c.mu.Lock()
	defer c.mu.Unlock()
	if token != c.token {
		c.logger.Debug("discarding superseded page response", slog.Int("page", page), slog.Uint64("token", token))
		return nil
	}
	c.loading = false
	if err != nil {
		c.err = err
		c.logger.Warn("fetch page", slog.Int("page", page), slog.Any("error", err))
		return err
	}
	c.items = res.Items
	c.page = page
	c.totalRecords = res.TotalRecords
	c.totalPages = res.TotalPages
	c.loaded = true
	c.err = nil
	c.expanded = make(map[string]bool)
	c.rowErrors = make(map[string]string)
	return nil
}

// SetSearch updates the local filter term. It never triggers a fetch.
func (c *Controller[R]) SetSearch(term string) {
	c.mu.Lock()
	c.search = term
	c.mu.Unlock()
}

// ToggleExpand flips the expanded flag of a loaded row.
func (c *Controller[R]) ToggleExpand(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.indexOf(key) < 0 {
		return ErrRowNotFound
	}
	c.expanded[key] = !c.expanded[key]
	if !c.expanded[key] {
		delete(c.expanded, key)
	}
	return nil
}

// Row returns a copy of the loaded row with key.
func (c *Controller[R]) Row(key string) (R, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(key)
	if i < 0 {
		var zero R
		return zero, false
	}
	return c.items[i], true
}

// Supports reports whether the resource binds kind.
func (c *Controller[R]) Supports(kind ActionKind) bool {
	return c.dispatcher.Supports(kind)
}

// Dispatch runs an action against the row with key. The row is patched locally on
// success only; the page is not re-fetched.
func (c *Controller[R]) Dispatch(ctx context.Context, kind ActionKind, key string, p Payload) (ActionResult, error) {
	row, ok := c.Row(key)
	if !ok {
		return ActionResult{}, ErrRowNotFound
	}
	c.mu.Lock()
	delete(c.rowErrors, key)
	c.mu.Unlock()

	res, err := c.dispatcher.Dispatch(ctx, kind, key, row, p, func(patch func(*R)) {
		c.mu.Lock()
		defer c.mu.Unlock()
		// The page may have changed while the call was in flight.
		if i := c.indexOf(key); i >= 0 {
			patch(&c.items[i])
		}
	})
	if err != nil && !errors.Is(err, ErrActionInFlight) {
		c.mu.Lock()
		if c.indexOf(key) >= 0 {
			c.rowErrors[key] = err.Error()
		}
		c.mu.Unlock()
	}
	return res, err
}

func (c *Controller[R]) indexOf(key string) int {
	for i := range c.items {
		if c.binding.Key(c.items[i]) == key {
			return i
		}
	}
	return -1
}

// View is the type-erased surface of a Controller used by generic handlers.
type View interface {
	Resource() Resource
	Loaded() bool
	Load(ctx context.Context) error
	Refresh(ctx context.Context) error
	ChangePage(ctx context.Context, n int) error
	SetSearch(term string)
	ToggleExpand(key string) error
	Supports(kind ActionKind) bool
	Dispatch(ctx context.Context, kind ActionKind, key string, p Payload) (ActionResult, error)
	Summary() Summary
	State() any
}

// State returns Snapshot as an untyped value for templates.
func (c *Controller[R]) State() any {
	return c.Snapshot()
}

var _ View = (*Controller[struct{}])(nil)
