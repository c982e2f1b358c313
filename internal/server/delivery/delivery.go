// Package delivery defines the outbound boundary of the relay: handing
// finished messages to a front-end adapter and notifying operators. The relay
// core never talks to a messenger platform directly.
package delivery

import (
	"context"

	"github.com/dmitrijs2005/anonrelay/internal/server/models"
)

// Content is one outbound payload. Exactly one of Text or Media carries the
// body; the remaining fields decorate the delivery.
type Content struct {
	Text  string
	Media *models.MediaRef

	// MediaURL is a short-lived download URL for Media, when one was issued.
	MediaURL string

	// DeepLink is an opaque payload the recipient can follow to answer
	// anonymously. Empty when no reply path is offered.
	DeepLink string

	// ThreadRef is the external reference of an earlier delivery this one
	// continues, so the adapter can thread them.
	ThreadRef string
}

// Deliverer hands a payload to the front-end adapter for a single recipient
// or channel. It returns the adapter's external reference for the delivery.
// Calls are attempted at most once; the relay never retries.
type Deliverer interface {
	Deliver(ctx context.Context, targetExternalID string, content Content) (string, error)
}

// Notifier pushes a short operator notification (new pending message, urgent
// alert, auto-block). Best effort; failures are logged by callers.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}
