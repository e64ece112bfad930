// File: internal/dispatch/dispatcher.go
// Description: The arbitration point of the system. Every detector reports
// candidate successes here; the dispatcher enforces the attempt ceiling,
// fires best-effort side effects, and guarantees at most one navigation.

package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/framewatch/api/schemas"
	"github.com/xkilldash9x/framewatch/internal/analytics"
)

// Hook is a "before redirect" callback invoked with the detecting method once
// per accepted detection, before the navigation is scheduled. Hook failures
// (including panics) never prevent the redirect.
type Hook func(method schemas.Method)

// Config carries the dispatcher's immutable settings.
type Config struct {
	// Target is the redirect destination. Captured at schedule time: a hook
	// cannot alter an already-scheduled navigation.
	Target string
	// Delay is the grace period between accepting a detection and navigating.
	Delay time.Duration
	// MaxAttempts caps accepted detections. It bounds dispatcher work under
	// runaway signal storms; the navigated guard, not this ceiling, is what
	// prevents double navigation.
	MaxAttempts int
	// OverlaySelector locates the optional loading overlay. Empty disables
	// the visual transition.
	OverlaySelector string
}

// Dispatcher arbitrates DetectionEvents into at most one navigation. It is
// re-entrant: detectors call HandleDetection from independent asynchronous
// callbacks, so the two state fields are guarded by a mutex. Scheduled
// navigation timers are never cancelled; each one re-checks the navigated
// flag when it fires, which keeps bursts of near-simultaneous detections
// correct without cross-callback timer bookkeeping.
type Dispatcher struct {
	cfg     Config
	nav     schemas.Navigator
	overlay schemas.OverlayToggler
	hub     *analytics.Hub
	logger  *zap.Logger

	// ctx bounds the delayed navigation call; it should live as long as the
	// page session.
	ctx context.Context

	mu        sync.Mutex
	attempts  int
	navigated bool
	hooks     []Hook

	done     chan struct{}
	doneOnce sync.Once
}

// New creates a Dispatcher. nav is required; overlay and hub are optional
// collaborators and may be nil.
func New(ctx context.Context, cfg Config, nav schemas.Navigator, hub *analytics.Hub, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		cfg:     cfg,
		nav:     nav,
		hub:     hub,
		logger:  logger.Named("dispatcher"),
		ctx:     ctx,
		done:    make(chan struct{}),
		hooks:   nil,
		overlay: nil,
	}
}

// SetOverlay wires the optional overlay collaborator.
func (d *Dispatcher) SetOverlay(overlay schemas.OverlayToggler) {
	d.overlay = overlay
}

// AddBeforeRedirect registers a before-redirect hook. Must be called before
// detectors start reporting.
func (d *Dispatcher) AddBeforeRedirect(h Hook) {
	if h == nil {
		return
	}
	d.hooks = append(d.hooks, h)
}

// HandleDetection implements schemas.Sink.
//
// The ceiling check and increment happen atomically up front; everything
// after is side effects plus scheduling. Each accepted detection schedules
// its own delayed navigation, and whichever timer fires first wins the
// navigated flag.
func (d *Dispatcher) HandleDetection(event schemas.DetectionEvent) {
	d.mu.Lock()
	if d.attempts >= d.cfg.MaxAttempts {
		d.mu.Unlock()
		d.logger.Debug("Detection discarded, attempt ceiling reached",
			zap.String("method", string(event.Method)),
			zap.Int("max_attempts", d.cfg.MaxAttempts))
		return
	}
	d.attempts++
	attempt := d.attempts
	d.mu.Unlock()

	d.logger.Info("Detection accepted",
		zap.String("event_id", event.ID),
		zap.String("method", string(event.Method)),
		zap.Int("attempt", attempt),
		zap.String("payload", event.Payload))

	// 1. Before-redirect hooks (external callbacks). Contained.
	for i, h := range d.hooks {
		d.runHook(i, h, event.Method)
	}

	// 2. Analytics fan-out. The hub contains its own failures.
	if d.hub != nil {
		d.hub.Dispatch(event.Method, d.cfg.Target)
	}

	// 3. Visual transition on the optional overlay collaborator.
	d.showOverlay()

	// 4. Schedule the navigation. The destination is captured now.
	target := d.cfg.Target
	method := event.Method
	time.AfterFunc(d.cfg.Delay, func() {
		d.navigate(target, method)
	})
}

// TriggerManual forces a manual-tagged detection through the identical
// arbitration path, so fallback buttons and debug tooling are subject to the
// same attempt ceiling as real detectors.
func (d *Dispatcher) TriggerManual(reason string) {
	d.HandleDetection(schemas.DetectionEvent{
		ID:      uuid.New().String(),
		Method:  schemas.MethodManual,
		Payload: reason,
		Time:    time.Now(),
	})
}

// navigate performs the delayed navigation if no earlier timer has already
// done so.
func (d *Dispatcher) navigate(target string, method schemas.Method) {
	d.mu.Lock()
	if d.navigated {
		d.mu.Unlock()
		return
	}
	d.navigated = true
	d.mu.Unlock()

	d.logger.Info("Navigating to redirect target",
		zap.String("target", target),
		zap.String("method", string(method)))

	if err := d.nav.Navigate(d.ctx, target); err != nil {
		// The page may be gone or the browser closing; there is nothing left
		// to retry against, and the guard stays set so no second timer fires.
		d.logger.Error("Redirect navigation failed", zap.String("target", target), zap.Error(err))
	}

	d.doneOnce.Do(func() { close(d.done) })
}

// runHook invokes one before-redirect hook inside a failure boundary.
func (d *Dispatcher) runHook(index int, h Hook, method schemas.Method) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Warn("Before-redirect hook panicked; redirect proceeds",
				zap.Int("hook", index),
				zap.Any("panic", r))
		}
	}()
	h(method)
}

// showOverlay toggles the loading overlay if one is configured and present.
func (d *Dispatcher) showOverlay() {
	if d.overlay == nil || d.cfg.OverlaySelector == "" {
		return
	}
	ok, err := d.overlay.ShowOverlay(d.ctx, d.cfg.OverlaySelector)
	if err != nil {
		d.logger.Warn("Overlay toggle failed; redirect proceeds", zap.Error(err))
		return
	}
	if !ok {
		d.logger.Debug("Overlay element not found; skipping visual transition",
			zap.String("selector", d.cfg.OverlaySelector))
	}
}

// Done is closed once the navigation has been issued (successfully or not).
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

// Attempts returns how many detections have been accepted so far.
func (d *Dispatcher) Attempts() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.attempts
}

// Navigated reports whether the navigation has been issued.
func (d *Dispatcher) Navigated() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.navigated
}

var _ schemas.Sink = (*Dispatcher)(nil)
