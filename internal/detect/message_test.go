// File: internal/detect/message_test.go
package detect

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/framewatch/api/schemas"
	"github.com/xkilldash9x/framewatch/internal/classify"
)

func newMessageFixture(t *testing.T, trustedOrigin string) (*fakePage, *fakeSink, *MessageDetector) {
	t.Helper()
	page := newFakePage()
	sink := &fakeSink{}
	classifier := classify.New([]string{"thank", "success", "confirm", "booked", "complete"}, "booking_complete")
	d := NewMessageDetector(page, sink, classifier, trustedOrigin, zap.NewNop())
	require.NoError(t, d.Start(context.Background()))
	return page, sink, d
}

func envelope(origin, data string) string {
	raw, err := json.Marshal(messageEnvelope{Origin: origin, Data: data})
	if err != nil {
		panic(err)
	}
	return string(raw)
}

func TestMessageDetectorReportsTrustedCompletion(t *testing.T) {
	page, sink, _ := newMessageFixture(t, "widgetvendor.com")

	require.True(t, page.fire(bindingMessage, envelope("https://book.widgetvendor.com", `{"success": true}`)))

	require.Equal(t, 1, sink.count())
	got := sink.all()[0]
	assert.Equal(t, schemas.MethodMessage, got.Method)
	assert.Equal(t, `{"success": true}`, got.Payload)
	assert.NotEmpty(t, got.ID)
}

func TestMessageDetectorFiltersUntrustedOrigin(t *testing.T) {
	page, sink, _ := newMessageFixture(t, "widgetvendor.com")

	// A message that would classify as success, but from the wrong origin.
	page.fire(bindingMessage, envelope("https://evil.example.com", `{"success": true}`))
	assert.Equal(t, 0, sink.count(), "untrusted origins must be dropped before classification")

	// The detector stays armed and accepts the trusted one afterwards.
	page.fire(bindingMessage, envelope("https://book.widgetvendor.com", `{"status": "success"}`))
	assert.Equal(t, 1, sink.count())
}

func TestMessageDetectorEmptyTrustedOriginAcceptsAll(t *testing.T) {
	page, sink, _ := newMessageFixture(t, "")

	page.fire(bindingMessage, envelope("https://anywhere.example.com", "booking confirmed"))
	assert.Equal(t, 1, sink.count())
}

func TestMessageDetectorIgnoresNoise(t *testing.T) {
	page, sink, _ := newMessageFixture(t, "")

	page.fire(bindingMessage, envelope("https://widget.example.com", `{"type": "resize", "height": 740}`))
	page.fire(bindingMessage, envelope("https://widget.example.com", "step 2 of 4"))
	page.fire(bindingMessage, "not an envelope at all")

	assert.Equal(t, 0, sink.count())
}

func TestMessageDetectorRetiresAfterFirstReport(t *testing.T) {
	page, sink, _ := newMessageFixture(t, "")

	page.fire(bindingMessage, envelope("https://w.example.com", "thank you"))
	page.fire(bindingMessage, envelope("https://w.example.com", "thank you again"))

	assert.Equal(t, 1, sink.count(), "only the first positive match may be reported")
}

func TestMessageDetectorStopSilencesReports(t *testing.T) {
	page, sink, d := newMessageFixture(t, "")

	d.Stop()
	page.fire(bindingMessage, envelope("https://w.example.com", "thank you"))
	assert.Equal(t, 0, sink.count())
}

func TestMessageDetectorInstallsObserver(t *testing.T) {
	page, _, _ := newMessageFixture(t, "")

	page.mu.Lock()
	defer page.mu.Unlock()
	require.Len(t, page.injected, 1)
	assert.Contains(t, page.injected[0], "addEventListener('message'")
}
