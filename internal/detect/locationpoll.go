// File: internal/detect/locationpoll.go
// Description: The frame address poller. Reading the embedded frame's
// location only works while the widget is same-origin with the host page
// (some flows end on a same-origin confirmation URL); every other read is
// denied by the browser and simply yields nothing.

package detect

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/framewatch/api/schemas"
	"github.com/xkilldash9x/framewatch/internal/classify"
)

// LocationPollDetector periodically reads the embedded frame's address and
// classifies it. Denied reads are the steady state, not a failure, so the
// poller logs nothing per tick and just tries again.
type LocationPollDetector struct {
	page       schemas.Page
	sink       schemas.Sink
	classifier *classify.Classifier
	selector   string
	interval   time.Duration
	logger     *zap.Logger

	mu       sync.Mutex
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	lastSeen string
}

// NewLocationPollDetector creates a LocationPollDetector polling the frame
// matched by selector every interval.
func NewLocationPollDetector(page schemas.Page, sink schemas.Sink, classifier *classify.Classifier, selector string, interval time.Duration, logger *zap.Logger) *LocationPollDetector {
	return &LocationPollDetector{
		page:       page,
		sink:       sink,
		classifier: classifier,
		selector:   selector,
		interval:   interval,
		logger:     logger.Named("locationpoll"),
	}
}

// Name implements Detector.
func (d *LocationPollDetector) Name() schemas.Method { return schemas.MethodLocationPoll }

// Start launches the polling loop.
func (d *LocationPollDetector) Start(ctx context.Context) error {
	pollCtx, cancel := context.WithCancel(ctx)
	d.mu.Lock()
	d.cancel = cancel
	d.mu.Unlock()

	d.wg.Add(1)
	go d.loop(pollCtx)
	return nil
}

// Stop cancels the polling loop and waits for it to exit.
func (d *LocationPollDetector) Stop() {
	d.mu.Lock()
	cancel := d.cancel
	d.cancel = nil
	d.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	d.wg.Wait()
}

// loop ticks until cancelled or the first positive match.
func (d *LocationPollDetector) loop(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if d.poll(ctx) {
				return
			}
		}
	}
}

// poll performs one frame address read. Returns true once a completion URL
// has been reported, which retires the loop.
func (d *LocationPollDetector) poll(ctx context.Context) bool {
	frameURL, ok := d.page.FrameURL(ctx, d.selector)
	if !ok {
		// Cross-origin denial or missing frame; expected most of the time.
		return false
	}
	if frameURL == d.lastSeen {
		return false
	}
	d.lastSeen = frameURL
	if !d.classifier.MatchURL(frameURL) {
		return false
	}

	d.logger.Info("Completion URL detected in embedded frame", zap.String("url", frameURL))
	d.sink.HandleDetection(schemas.DetectionEvent{
		ID:      uuid.New().String(),
		Method:  schemas.MethodLocationPoll,
		Payload: frameURL,
		Time:    time.Now(),
	})
	return true
}
