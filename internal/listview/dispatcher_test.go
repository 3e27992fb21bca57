package listview

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRecorder struct {
	fetches int
	actions map[ActionKind]int
	failed  int
}

func (r *countingRecorder) ObserveFetch(Resource, error) { r.fetches++ }

func (r *countingRecorder) ObserveAction(_ Resource, kind ActionKind, err error) {
	if r.actions == nil {
		r.actions = make(map[ActionKind]int)
	}
	r.actions[kind]++
	if err != nil {
		r.failed++
	}
}

func TestDispatcherValidationNeverCallsNetwork(t *testing.T) {
	called := false
	d := NewDispatcher[testRow]("inscripciones", nil, nil, Action[testRow]{
		Kind: ActionSendEmail,
		Validate: func(r testRow, _ Payload) error {
			return RequireContact(r.Email)
		},
		Call: func(context.Context, testRow, Payload) (ActionResult, error) {
			called = true
			return ActionResult{}, nil
		},
	})

	_, err := d.Dispatch(context.Background(), ActionSendEmail, "1", testRow{ID: 1, Email: "  "}, nil, nil)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.False(t, called)
}

func TestDispatcherInFlightIsExclusivePerRowAndKind(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	d := NewDispatcher[testRow]("permisos", nil, nil, Action[testRow]{
		Kind: ActionSendCredential,
		Call: func(context.Context, testRow, Payload) (ActionResult, error) {
			started <- struct{}{}
			<-release
			return ActionResult{}, errors.New("backend rejected")
		},
	})

	done := make(chan error, 1)
	go func() {
		_, err := d.Dispatch(context.Background(), ActionSendCredential, "7", testRow{ID: 7}, nil, nil)
		done <- err
	}()
	<-started

	assert.True(t, d.InFlight("7", ActionSendCredential))
	assert.Equal(t, map[ActionKind]bool{ActionSendCredential: true}, d.InFlightKinds("7"))
	assert.Nil(t, d.InFlightKinds("8"))

	_, err := d.Dispatch(context.Background(), ActionSendCredential, "7", testRow{ID: 7}, nil, nil)
	assert.ErrorIs(t, err, ErrActionInFlight)

	close(release)
	require.Error(t, <-done)
	// Flag cleared on the failure path too.
	assert.False(t, d.InFlight("7", ActionSendCredential))
}

func TestDispatcherBestEffortSwallowsFailure(t *testing.T) {
	rec := &countingRecorder{}
	d := NewDispatcher[testRow]("inscripciones", nil, rec, Action[testRow]{
		Kind:       ActionLogView,
		BestEffort: true,
		Call: func(context.Context, testRow, Payload) (ActionResult, error) {
			return ActionResult{}, errors.New("log endpoint down")
		},
	})

	_, err := d.Dispatch(context.Background(), ActionLogView, "1", testRow{ID: 1}, nil, nil)
	assert.NoError(t, err)
	assert.Equal(t, 1, rec.actions[ActionLogView])
	assert.Equal(t, 1, rec.failed)
	assert.False(t, d.InFlight("1", ActionLogView))
}

func TestDispatcherUnknownAction(t *testing.T) {
	d := NewDispatcher[testRow]("logs", nil, nil)
	assert.False(t, d.Supports(ActionSendEmail))
	_, err := d.Dispatch(context.Background(), ActionSendEmail, "1", testRow{}, nil, nil)
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestDispatcherApplyUsesClock(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	var stamped time.Time
	d := NewDispatcher[testRow]("reses", nil, nil, Action[testRow]{
		Kind: ActionSaveAmount,
		Validate: func(_ testRow, p Payload) error {
			return RequireAmount(p.Get("amount"))
		},
		Call: func(context.Context, testRow, Payload) (ActionResult, error) { return ActionResult{}, nil },
		Apply: func(r *testRow, p Payload, when time.Time) {
			r.Name = p.Get("amount")
			stamped = when
		},
	})
	d.now = func() time.Time { return at }

	_, err := d.Dispatch(context.Background(), ActionSaveAmount, "1", testRow{}, Payload{"amount": "abc"}, nil)
	require.True(t, IsValidation(err))

	row := testRow{}
	_, err = d.Dispatch(context.Background(), ActionSaveAmount, "1", row, Payload{"amount": " 1500 "}, func(patch func(*testRow)) {
		patch(&row)
	})
	require.NoError(t, err)
	assert.Equal(t, "1500", row.Name)
	assert.Equal(t, at, stamped)
}

func TestParseActionKind(t *testing.T) {
	k, err := ParseActionKind(" Send-Payment-Link ")
	require.NoError(t, err)
	assert.Equal(t, ActionSendPaymentLink, k)

	_, err = ParseActionKind("delete")
	assert.ErrorIs(t, err, ErrUnknownAction)
}
