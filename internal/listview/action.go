package listview

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ActionKind is a category of per-row asynchronous operation.
type ActionKind string

const (
	ActionSendEmail       ActionKind = "send-email"
	ActionSendPaymentLink ActionKind = "send-payment-link"
	ActionSendCredential  ActionKind = "send-credential"
	ActionViewCredential  ActionKind = "view-credential"
	ActionToggleStatus    ActionKind = "toggle-status"
	ActionSaveAmount      ActionKind = "save-amount"
	ActionLogView         ActionKind = "log-view"
)

var actionKinds = []ActionKind{
	ActionSendEmail,
	ActionSendPaymentLink,
	ActionSendCredential,
	ActionViewCredential,
	ActionToggleStatus,
	ActionSaveAmount,
	ActionLogView,
}

// ParseActionKind maps a route segment to an ActionKind.
func ParseActionKind(s string) (ActionKind, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	for _, k := range actionKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

// Payload carries action specific form fields (amount, is_paid, ...).
type Payload map[string]string

// Get returns the trimmed value for key.
func (p Payload) Get(key string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(p[key])
}

// Bool interprets key as a checkbox style boolean.
func (p Payload) Bool(key string) bool {
	switch strings.ToLower(p.Get(key)) {
	case "1", "true", "on", "yes", "si", "sí":
		return true
	default:
		return false
	}
}

// ActionResult is what a successful action hands back to the caller.
type ActionResult struct {
	Message string
	HTML    string
}

// Action binds one ActionKind to a resource.
//
// Validate runs before the network call; Call issues exactly one request; Apply
// patches the row in place after a successful Call. Apply may be nil for
// actions that do not change row state (viewCredential, logView).
type Action[R any] struct {
	Kind       ActionKind
	Validate   func(row R, p Payload) error
	Call       func(ctx context.Context, row R, p Payload) (ActionResult, error)
	Apply      func(row *R, p Payload, at time.Time)
	BestEffort bool
}
