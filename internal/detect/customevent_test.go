// File: internal/detect/customevent_test.go
package detect

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/framewatch/api/schemas"
)

var testEventNames = []string{"booking_complete", "appointment_booked", "widget:confirmed"}

func newCustomEventFixture(t *testing.T, names []string) (*fakePage, *fakeSink, *CustomEventDetector) {
	t.Helper()
	page := newFakePage()
	sink := &fakeSink{}
	d := NewCustomEventDetector(page, sink, names, zap.NewNop())
	require.NoError(t, d.Start(context.Background()))
	return page, sink, d
}

func TestCustomEventDetectorReportsRecognizedEvent(t *testing.T) {
	page, sink, _ := newCustomEventFixture(t, testEventNames)

	require.True(t, page.fire(bindingCustomEvent, "widget:confirmed"))

	require.Equal(t, 1, sink.count())
	got := sink.all()[0]
	assert.Equal(t, schemas.MethodCustomEvent, got.Method)
	assert.Equal(t, "widget:confirmed", got.Payload)
}

func TestCustomEventDetectorIgnoresUnrecognizedNames(t *testing.T) {
	page, sink, _ := newCustomEventFixture(t, testEventNames)

	page.fire(bindingCustomEvent, "resize")
	page.fire(bindingCustomEvent, "BOOKING_COMPLETE") // event names are case sensitive
	assert.Equal(t, 0, sink.count())
}

func TestCustomEventDetectorRetiresAfterFirstReport(t *testing.T) {
	page, sink, _ := newCustomEventFixture(t, testEventNames)

	page.fire(bindingCustomEvent, "booking_complete")
	page.fire(bindingCustomEvent, "appointment_booked")
	assert.Equal(t, 1, sink.count())
}

func TestCustomEventDetectorNoNamesIsInert(t *testing.T) {
	page := newFakePage()
	sink := &fakeSink{}
	d := NewCustomEventDetector(page, sink, nil, zap.NewNop())

	require.NoError(t, d.Start(context.Background()))

	// Nothing was installed and nothing can fire.
	page.mu.Lock()
	defer page.mu.Unlock()
	assert.Empty(t, page.injected)
	assert.Empty(t, page.bindings)
}

func TestCustomEventDetectorObserverCarriesNames(t *testing.T) {
	page, _, _ := newCustomEventFixture(t, testEventNames)

	page.mu.Lock()
	defer page.mu.Unlock()
	require.Len(t, page.injected, 1)
	for _, name := range testEventNames {
		assert.Contains(t, page.injected[0], name)
	}
}
