// File: internal/detect/mutation.go
// Description: The host-document mutation detector. Some widgets render their
// confirmation into the host page rather than announcing it; watching added
// text catches those.

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

// MutationDetector classifies text added to the host document. The injected
// MutationObserver relays raw added text; classification stays on the Go side
// so vocabulary changes never require re-injection.
type MutationDetector struct {
	page       schemas.Page
	sink       schemas.Sink
	classifier *classify.Classifier
	logger     *zap.Logger
	retired    atomic.Bool

	// ctx from Start, reused to disconnect the page-side observer after the
	// first match.
	ctx context.Context
}

// NewMutationDetector creates a MutationDetector.
func NewMutationDetector(page schemas.Page, sink schemas.Sink, classifier *classify.Classifier, logger *zap.Logger) *MutationDetector {
	return &MutationDetector{
		page:       page,
		sink:       sink,
		classifier: classifier,
		logger:     logger.Named("mutation"),
	}
}

// Name implements Detector.
func (d *MutationDetector) Name() schemas.Method { return schemas.MethodMutation }

// Start installs the mutation observer and wires its reporting binding.
func (d *MutationDetector) Start(ctx context.Context) error {
	d.ctx = ctx
	if err := d.page.Bind(ctx, bindingMutation, d.handle); err != nil {
		return err
	}
	return d.page.InjectPersistent(ctx, mutationObserverScript())
}

// Stop retires the detector and disconnects the page-side observer.
func (d *MutationDetector) Stop() {
	if d.retired.Swap(true) {
		return
	}
	d.disconnect()
}

// handle classifies one batch of added text.
func (d *MutationDetector) handle(text string) {
	if d.retired.Load() {
		return
	}
	if !d.classifier.MatchText(text) {
		return
	}
	if d.retired.Swap(true) {
		return
	}

	d.logger.Info("Completion text detected in host document")
	d.disconnect()
	d.sink.HandleDetection(schemas.DetectionEvent{
		ID:      uuid.New().String(),
		Method:  schemas.MethodMutation,
		Payload: text,
		Time:    time.Now(),
	})
}

// disconnect tears down the page-side observer so a retired detector stops
// generating relay traffic. Best effort; the Go-side retired flag is the
// actual guarantee.
func (d *MutationDetector) disconnect() {
	if d.ctx == nil {
		return
	}
	if err := d.page.Eval(d.ctx, mutationDisconnectScript, nil); err != nil {
		d.logger.Debug("Mutation observer disconnect failed", zap.Error(err))
	}
}
