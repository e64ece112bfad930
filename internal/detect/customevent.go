// File: internal/detect/customevent.go
// Description: The custom-event detector. Some widget vendors dispatch a
// DOM event with a well-known name on completion; the event firing at all is
// the signal, no classification needed.

package detect

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/framewatch/api/schemas"
)

// CustomEventDetector reports when any of the recognized completion event
// names fires on the host page's window or document.
type CustomEventDetector struct {
	page    schemas.Page
	sink    schemas.Sink
	names   map[string]struct{}
	ordered []string
	logger  *zap.Logger
	retired atomic.Bool
}

// NewCustomEventDetector creates a CustomEventDetector for the given event
// names. Names are matched case-sensitively, as DOM event names are.
func NewCustomEventDetector(page schemas.Page, sink schemas.Sink, names []string, logger *zap.Logger) *CustomEventDetector {
	set := make(map[string]struct{}, len(names))
	ordered := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := set[name]; dup {
			continue
		}
		set[name] = struct{}{}
		ordered = append(ordered, name)
	}
	return &CustomEventDetector{
		page:    page,
		sink:    sink,
		names:   set,
		ordered: ordered,
		logger:  logger.Named("customevent"),
	}
}

// Name implements Detector.
func (d *CustomEventDetector) Name() schemas.Method { return schemas.MethodCustomEvent }

// Start installs listeners for every recognized event name. With no names
// configured the detector arms as an inert no-op rather than failing, so
// operators can disable it through configuration alone.
func (d *CustomEventDetector) Start(ctx context.Context) error {
	if len(d.ordered) == 0 {
		return nil
	}
	if err := d.page.Bind(ctx, bindingCustomEvent, d.handle); err != nil {
		return err
	}
	return d.page.InjectPersistent(ctx, customEventObserverScript(d.ordered))
}

// Stop retires the detector.
func (d *CustomEventDetector) Stop() {
	d.retired.Store(true)
}

// handle processes one relayed event name. The name is re-checked against the
// configured set; only recognized names may count as completion.
func (d *CustomEventDetector) handle(name string) {
	if d.retired.Load() {
		return
	}
	if _, ok := d.names[name]; !ok {
		d.logger.Debug("Ignoring unrecognized event name", zap.String("event", name))
		return
	}
	if d.retired.Swap(true) {
		return
	}

	d.logger.Info("Completion event detected", zap.String("event", name))
	d.sink.HandleDetection(schemas.DetectionEvent{
		ID:      uuid.New().String(),
		Method:  schemas.MethodCustomEvent,
		Payload: name,
		Time:    time.Now(),
	})
}
