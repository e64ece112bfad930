// File: internal/detect/navigation.go
// Description: The frame navigation detector. Load and navigation signals
// from the embedded frame hint that the widget moved to a new step; each
// signal prompts a best-effort read of the frame's new address.

package detect

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/framewatch/api/schemas"
	"github.com/xkilldash9x/framewatch/internal/classify"
)

// NavigationDetector classifies the embedded frame's address whenever the
// frame loads or navigates. Unlike the other strategies it never retires
// itself on a match: a widget can navigate through several matching
// confirmation pages, and discarding duplicates is the sink's job.
type NavigationDetector struct {
	page       schemas.Page
	sink       schemas.Sink
	classifier *classify.Classifier
	selector   string
	logger     *zap.Logger
	retired    atomic.Bool

	// ctx from Start, used for the fallback frame address read inside event
	// callbacks.
	ctx context.Context
}

// NewNavigationDetector creates a NavigationDetector.
func NewNavigationDetector(page schemas.Page, sink schemas.Sink, classifier *classify.Classifier, selector string, logger *zap.Logger) *NavigationDetector {
	return &NavigationDetector{
		page:       page,
		sink:       sink,
		classifier: classifier,
		selector:   selector,
		logger:     logger.Named("navigation"),
	}
}

// Name implements Detector.
func (d *NavigationDetector) Name() schemas.Method { return schemas.MethodNavigation }

// Start subscribes to frame navigation signals.
func (d *NavigationDetector) Start(ctx context.Context) error {
	d.ctx = ctx
	d.page.OnFrameNavigated(d.handle)
	return nil
}

// Stop retires the detector. The subscription itself lives as long as the
// page session.
func (d *NavigationDetector) Stop() {
	d.retired.Store(true)
}

// handle classifies one navigation signal. When the protocol withheld the new
// address (the usual cross-origin case) it falls back to a direct read, which
// may itself come back denied; a denied read on a navigation signal is not a
// detection.
func (d *NavigationDetector) handle(frameURL string) {
	if d.retired.Load() {
		return
	}

	if frameURL == "" {
		read, ok := d.page.FrameURL(d.ctx, d.selector)
		if !ok {
			return
		}
		frameURL = read
	}

	if !d.classifier.MatchURL(frameURL) {
		return
	}

	d.logger.Info("Completion URL detected on frame navigation", zap.String("url", frameURL))
	d.sink.HandleDetection(schemas.DetectionEvent{
		ID:      uuid.New().String(),
		Method:  schemas.MethodNavigation,
		Payload: frameURL,
		Time:    time.Now(),
	})
}
