// Package notify carries the short user-facing messages ("toasts") that the
// storefront emits after cart and auth operations.
package notify

import (
	"context"
	"time"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

type Notification struct {
	Kind    Kind      `json:"kind"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Notifier receives notifications. Implementations must not block for long
// and must be safe for concurrent use.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification)

func (f NotifierFunc) Notify(ctx context.Context, n Notification) {
	f(ctx, n)
}

// Success sends a success notification; a nil notifier is ignored.
func Success(ctx context.Context, n Notifier, message string) {
	send(ctx, n, KindSuccess, message)
}

// Error sends an error notification; a nil notifier is ignored.
func Error(ctx context.Context, n Notifier, message string) {
	send(ctx, n, KindError, message)
}

func send(ctx context.Context, n Notifier, kind Kind, message string) {
	if n == nil {
		return
	}
	n.Notify(ctx, Notification{Kind: kind, Message: message, At: time.Now().UTC()})
}

type multi []Notifier

// Multi fans a notification out to every non-nil notifier in order.
func Multi(notifiers ...Notifier) Notifier {
	out := make(multi, 0, len(notifiers))
	for _, n := range notifiers {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

func (m multi) Notify(ctx context.Context, n Notification) {
	for _, target := range m {
		target.Notify(ctx, n)
	}
}
