// File: internal/detect/detector.go
// Description: The detector contract and the Set that manages a group of
// concurrently running detection strategies. Detectors are deliberately
// redundant: each one watches a different side channel of the embedded
// widget, and any one of them reporting is enough.

package detect

import (
	"context"

	"go.uber.org/zap"

	"github.com/xkilldash9x/framewatch/api/schemas"
)

// Detector is a single completion detection strategy. Implementations report
// candidate successes to their Sink and are otherwise independent of each
// other; coordination (attempt ceiling, single navigation) lives entirely in
// the Sink.
type Detector interface {
	// Name identifies the strategy for logs and DetectionEvents.
	Name() schemas.Method

	// Start installs the detector's instrumentation and begins watching. It
	// returns once the detector is armed; reports arrive asynchronously until
	// Stop or the detector retires itself.
	Start(ctx context.Context) error

	// Stop tears the detector down. Idempotent.
	Stop()
}

// Set runs a group of detectors as a unit. A strategy that fails to arm is
// logged and skipped rather than failing the group: losing one side channel
// degrades coverage, it does not make the remaining channels useless.
type Set struct {
	detectors []Detector
	logger    *zap.Logger
}

// NewSet creates a Set over the given detectors.
func NewSet(logger *zap.Logger, detectors ...Detector) *Set {
	return &Set{
		detectors: detectors,
		logger:    logger.Named("detect"),
	}
}

// Start arms every detector. It returns an error only when no detector could
// be armed at all, since a watcher with zero live strategies can never
// succeed.
func (s *Set) Start(ctx context.Context) error {
	armed := 0
	for _, d := range s.detectors {
		if err := d.Start(ctx); err != nil {
			s.logger.Warn("Detector failed to start; continuing without it",
				zap.String("detector", string(d.Name())),
				zap.Error(err))
			continue
		}
		s.logger.Debug("Detector armed", zap.String("detector", string(d.Name())))
		armed++
	}
	if armed == 0 {
		return ErrNoDetectors
	}
	s.logger.Info("Detection active", zap.Int("armed", armed), zap.Int("configured", len(s.detectors)))
	return nil
}

// Stop tears down every detector, including ones that never armed (Stop is
// idempotent on all implementations).
func (s *Set) Stop() {
	for _, d := range s.detectors {
		d.Stop()
	}
}
