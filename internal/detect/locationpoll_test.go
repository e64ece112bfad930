// File: internal/detect/locationpoll_test.go
package detect

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/framewatch/api/schemas"
	"github.com/xkilldash9x/framewatch/internal/classify"
)

func newPollDetector(page *fakePage, sink *fakeSink) *LocationPollDetector {
	classifier := classify.New([]string{"thank", "confirmation"}, "")
	return NewLocationPollDetector(page, sink, classifier, "iframe", 5*time.Millisecond, zap.NewNop())
}

func TestLocationPollDetectorReportsCompletionURL(t *testing.T) {
	page := newFakePage()
	sink := &fakeSink{}
	page.frameURLFunc = func(selector string) (string, bool) {
		return "https://widget.example.com/thank-you", true
	}

	d := newPollDetector(page, sink)
	require.NoError(t, d.Start(context.Background()))
	defer d.Stop()

	assert.Eventually(t, func() bool { return sink.count() == 1 }, time.Second, 5*time.Millisecond)
	got := sink.all()[0]
	assert.Equal(t, schemas.MethodLocationPoll, got.Method)
	assert.Equal(t, "https://widget.example.com/thank-you", got.Payload)
}

func TestLocationPollDetectorRetiresAfterFirstReport(t *testing.T) {
	page := newFakePage()
	sink := &fakeSink{}
	page.frameURLFunc = func(selector string) (string, bool) {
		return "https://widget.example.com/confirmation", true
	}

	d := newPollDetector(page, sink)
	require.NoError(t, d.Start(context.Background()))
	defer d.Stop()

	assert.Eventually(t, func() bool { return sink.count() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, sink.count(), "the poll loop must exit after its first report")
}

func TestLocationPollDetectorToleratesDeniedReads(t *testing.T) {
	// Cross-origin denial on every read: the poller keeps ticking and reports
	// nothing. This is the steady state for most of a widget's lifetime.
	page := newFakePage()
	sink := &fakeSink{}
	var reads atomic.Int32
	page.frameURLFunc = func(selector string) (string, bool) {
		reads.Add(1)
		return "", false
	}

	d := newPollDetector(page, sink)
	require.NoError(t, d.Start(context.Background()))

	assert.Eventually(t, func() bool { return reads.Load() >= 3 }, time.Second, 5*time.Millisecond)
	d.Stop()
	assert.Equal(t, 0, sink.count())
}

func TestLocationPollDetectorIgnoresNonMatchingURL(t *testing.T) {
	// A same-origin frame mid-flow: readable, but not a completion URL.
	page := newFakePage()
	sink := &fakeSink{}
	var reads atomic.Int32
	page.frameURLFunc = func(selector string) (string, bool) {
		reads.Add(1)
		return "https://widget.example.com/step/2", true
	}

	d := newPollDetector(page, sink)
	require.NoError(t, d.Start(context.Background()))

	assert.Eventually(t, func() bool { return reads.Load() >= 3 }, time.Second, 5*time.Millisecond)
	d.Stop()
	assert.Equal(t, 0, sink.count())
}

func TestLocationPollDetectorStopBeforeAnyTick(t *testing.T) {
	page := newFakePage()
	sink := &fakeSink{}

	d := NewLocationPollDetector(page, sink, classify.New([]string{"thank"}, ""), "iframe", time.Hour, zap.NewNop())
	require.NoError(t, d.Start(context.Background()))

	// Stop must not hang waiting for a tick.
	done := make(chan struct{})
	go func() {
		d.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked on an idle poll loop")
	}
}
