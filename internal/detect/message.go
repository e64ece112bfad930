// File: internal/detect/message.go
// Description: The cross-document message detector. Cooperating widgets post
// completion messages to the host page; this is the richest signal available
// and the only one carrying structured data.

package detect

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/framewatch/api/schemas"
	"github.com/xkilldash9x/framewatch/internal/classify"
)

// messageEnvelope is what the injected message observer relays for each
// cross-document message the host page receives.
type messageEnvelope struct {
	Origin string `json:"origin"`
	Data   string `json:"data"`
}

// MessageDetector classifies cross-document messages arriving at the host
// page. Messages from untrusted origins are dropped before classification;
// the embedded widget is the only sender whose word counts.
type MessageDetector struct {
	page          schemas.Page
	sink          schemas.Sink
	classifier    *classify.Classifier
	trustedOrigin string
	logger        *zap.Logger
	retired       atomic.Bool
}

// NewMessageDetector creates a MessageDetector. trustedOrigin is the
// substring a message's origin must contain; empty trusts every origin.
func NewMessageDetector(page schemas.Page, sink schemas.Sink, classifier *classify.Classifier, trustedOrigin string, logger *zap.Logger) *MessageDetector {
	return &MessageDetector{
		page:          page,
		sink:          sink,
		classifier:    classifier,
		trustedOrigin: strings.ToLower(trustedOrigin),
		logger:        logger.Named("message"),
	}
}

// Name implements Detector.
func (d *MessageDetector) Name() schemas.Method { return schemas.MethodMessage }

// Start installs the message observer and wires its reporting binding.
func (d *MessageDetector) Start(ctx context.Context) error {
	if err := d.page.Bind(ctx, bindingMessage, d.handle); err != nil {
		return err
	}
	return d.page.InjectPersistent(ctx, messageObserverScript())
}

// Stop retires the detector. The page-side listener stays installed but its
// reports are ignored from here on.
func (d *MessageDetector) Stop() {
	d.retired.Store(true)
}

// handle processes one relayed message.
func (d *MessageDetector) handle(payload string) {
	if d.retired.Load() {
		return
	}

	var env messageEnvelope
	if err := json.UnmarshalFromString(payload, &env); err != nil {
		d.logger.Debug("Dropping undecodable message envelope", zap.Error(err))
		return
	}

	// Untrusted origins are ignored without logging; message traffic on busy
	// pages is constant and almost all of it comes from elsewhere.
	if d.trustedOrigin != "" && !strings.Contains(strings.ToLower(env.Origin), d.trustedOrigin) {
		return
	}

	if !d.classifier.MatchMessage([]byte(env.Data)) {
		return
	}

	// First positive match retires the detector; later messages change nothing.
	if d.retired.Swap(true) {
		return
	}

	d.logger.Info("Completion message detected", zap.String("origin", env.Origin))
	d.sink.HandleDetection(schemas.DetectionEvent{
		ID:      uuid.New().String(),
		Method:  schemas.MethodMessage,
		Payload: env.Data,
		Time:    time.Now(),
	})
}
