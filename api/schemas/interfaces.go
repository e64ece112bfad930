// File: api/schemas/interfaces.go
package schemas

import (
	"context"
)

// -- Page Interface --

// Page is the contract for controlling the host page that embeds the booking
// widget. The production implementation drives a real browser over the Chrome
// DevTools Protocol; tests substitute a fake. Detectors only ever observe the
// page through this interface, which keeps the cross-origin boundary intact:
// nothing here can read the embedded document's content directly.
type Page interface {
	// Navigate loads a URL in the host page. It is used both for the initial
	// attach to the booking page and for the terminal redirect.
	Navigate(ctx context.Context, url string) error

	// WaitReady blocks until the host document is ready for instrumentation.
	// Detector setup is deferred behind this condition.
	WaitReady(ctx context.Context) error

	// InjectPersistent installs a script that runs in the current document and
	// in every future document loaded by the page.
	InjectPersistent(ctx context.Context, script string) error

	// Bind exposes a named page-to-Go callback channel. The injected observers
	// call window[name](payload) with a JSON string; fn receives that payload.
	// Callbacks are delivered asynchronously and must not be assumed to arrive
	// on any particular goroutine.
	Bind(ctx context.Context, name string, fn func(payload string)) error

	// OnFrameNavigated registers fn for load/navigation completions of
	// embedded frames. frameURL may be empty when the protocol does not expose
	// the new address (the usual cross-origin case); callers fall back to a
	// best-effort FrameURL read.
	OnFrameNavigated(fn func(frameURL string))

	// FrameURL attempts to read the current address of the embedded frame
	// matched by selector. Cross-origin denial is expected and reported as
	// ok=false, never as an error.
	FrameURL(ctx context.Context, selector string) (url string, ok bool)

	// Eval runs a JavaScript expression in the host document, decoding the
	// result into out when out is non-nil.
	Eval(ctx context.Context, expression string, out any) error

	// ShowOverlay toggles the optional loading overlay element into its
	// visible state. A missing element is tolerated and reported as ok=false.
	ShowOverlay(ctx context.Context, selector string) (ok bool, err error)

	// Close releases the underlying browser resources.
	Close() error
}

// Navigator is the minimal slice of Page the dispatcher needs to perform the
// terminal redirect.
type Navigator interface {
	Navigate(ctx context.Context, url string) error
}

// OverlayToggler is the minimal slice of Page the dispatcher needs to flip
// the host page into its loading/redirecting visual state.
type OverlayToggler interface {
	ShowOverlay(ctx context.Context, selector string) (ok bool, err error)
}
