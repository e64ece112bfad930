// File: internal/analytics/hub.go
// Description: Best-effort fan-out to externally provided tracking functions.
// The hub is a side-effect boundary: an absent, slow, or broken analytics
// provider must never block or fail the redirect path.

package analytics

import (
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/framewatch/api/schemas"
)

// Tracker is a single externally provided tracking function. It receives the
// detection method and the redirect destination.
type Tracker func(method schemas.Method, destination string) error

// Hub fans a dispatch out to zero or more registered trackers. Failures and
// panics are contained and logged; Dispatch always returns.
type Hub struct {
	mu       sync.RWMutex
	trackers []Tracker
	logger   *zap.Logger
}

// NewHub creates an empty Hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{logger: logger.Named("analytics")}
}

// Register adds a tracker. Safe to call concurrently with Dispatch.
func (h *Hub) Register(t Tracker) {
	if t == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.trackers = append(h.trackers, t)
}

// Dispatch invokes every registered tracker. Having no trackers is not an
// error; a provider simply was not wired in.
func (h *Hub) Dispatch(method schemas.Method, destination string) {
	h.mu.RLock()
	trackers := make([]Tracker, len(h.trackers))
	copy(trackers, h.trackers)
	h.mu.RUnlock()

	for i, t := range trackers {
		h.call(i, t, method, destination)
	}
}

// call runs one tracker inside its own failure boundary.
func (h *Hub) call(index int, t Tracker, method schemas.Method, destination string) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Warn("Tracker panicked; continuing",
				zap.Int("tracker", index),
				zap.Any("panic", r))
		}
	}()
	if err := t(method, destination); err != nil {
		h.logger.Warn("Tracker returned an error; continuing",
			zap.Int("tracker", index),
			zap.String("method", string(method)),
			zap.Error(err))
	}
}

// LogTracker returns a Tracker that records the redirect event to the
// application log. It is registered by default so every build has at least
// one observable trace of the redirect decision.
func LogTracker(logger *zap.Logger) Tracker {
	return func(method schemas.Method, destination string) error {
		logger.Info("Redirect event",
			zap.String("method", string(method)),
			zap.String("destination", destination))
		return nil
	}
}
