package listview

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type flightKey struct {
	row  string
	kind ActionKind
}

// Dispatcher runs per-row actions and tracks their in-flight flags.
type Dispatcher[R any] struct {
	resource Resource
	actions  map[ActionKind]Action[R]
	logger   *slog.Logger
	recorder Recorder
	now      func() time.Time

	mu       sync.Mutex
	inFlight map[flightKey]struct{}
}

// NewDispatcher builds a dispatcher for the given actions.
func NewDispatcher[R any](resource Resource, logger *slog.Logger, recorder Recorder, actions ...Action[R]) *Dispatcher[R] {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	d := &Dispatcher[R]{
		resource: resource,
		actions:  make(map[ActionKind]Action[R], len(actions)),
		logger:   logger,
		recorder: recorder,
		now:      time.Now,
		inFlight: make(map[flightKey]struct{}),
	}
	for _, a := range actions {
		d.actions[a.Kind] = a
	}
	return d
}

// Supports reports whether kind is bound for this resource.
func (d *Dispatcher[R]) Supports(kind ActionKind) bool {
	_, ok := d.actions[kind]
	return ok
}

// InFlight reports whether kind is running for the row.
func (d *Dispatcher[R]) InFlight(rowKey string, kind ActionKind) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.inFlight[flightKey{row: rowKey, kind: kind}]
	return ok
}

// InFlightKinds lists the kinds currently running for a row.
func (d *Dispatcher[R]) InFlightKinds(rowKey string) map[ActionKind]bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out map[ActionKind]bool
	for k := range d.inFlight {
		if k.row != rowKey {
			continue
		}
		if out == nil {
			out = make(map[ActionKind]bool)
		}
		out[k.kind] = true
	}
	return out
}

func (d *Dispatcher[R]) begin(key flightKey) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, busy := d.inFlight[key]; busy {
		return false
	}
	d.inFlight[key] = struct{}{}
	return true
}

func (d *Dispatcher[R]) end(key flightKey) {
	d.mu.Lock()
	delete(d.inFlight, key)
	d.mu.Unlock()
}

// Dispatch validates and runs kind against row. On success commit receives the
// patch to apply to the caller's copy of the row; on failure commit is not called.
// Best-effort actions never return an error.
func (d *Dispatcher[R]) Dispatch(ctx context.Context, kind ActionKind, rowKey string, row R, p Payload, commit func(patch func(*R))) (ActionResult, error) {
	action, ok := d.actions[kind]
	if !ok {
		return ActionResult{}, fmt.Errorf("%w: %s on %s", ErrUnknownAction, kind, d.resource)
	}
	if action.Validate != nil {
		if err := action.Validate(row, p); err != nil {
			d.recorder.ObserveAction(d.resource, kind, err)
			if action.BestEffort {
				d.logger.Warn("best-effort action skipped", slog.String("resource", string(d.resource)), slog.String("row", rowKey), slog.String("action", string(kind)), slog.Any("error", err))
				return ActionResult{}, nil
			}
			return ActionResult{}, err
		}
	}

	key := flightKey{row: rowKey, kind: kind}
	if !d.begin(key) {
		return ActionResult{}, ErrActionInFlight
	}
	defer d.end(key)

	res, err := action.Call(ctx, row, p)
	d.recorder.ObserveAction(d.resource, kind, err)
	if err != nil {
		if action.BestEffort {
			d.logger.Warn("best-effort action failed", slog.String("resource", string(d.resource)), slog.String("row", rowKey), slog.String("action", string(kind)), slog.Any("error", err))
			return ActionResult{}, nil
		}
		return ActionResult{}, err
	}
	if action.Apply != nil && commit != nil {
		at := d.now()
		commit(func(r *R) { action.Apply(r, p, at) })
	}
	return res, nil
}
