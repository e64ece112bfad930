// File: internal/detect/mutation_test.go
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

func newMutationFixture(t *testing.T) (*fakePage, *fakeSink, *MutationDetector) {
	t.Helper()
	page := newFakePage()
	sink := &fakeSink{}
	classifier := classify.New([]string{"thank", "confirmed"}, "")
	d := NewMutationDetector(page, sink, classifier, zap.NewNop())
	require.NoError(t, d.Start(context.Background()))
	return page, sink, d
}

func TestMutationDetectorReportsMatchingText(t *testing.T) {
	page, sink, _ := newMutationFixture(t)

	require.True(t, page.fire(bindingMutation, "Your appointment is confirmed for 3pm"))

	require.Equal(t, 1, sink.count())
	got := sink.all()[0]
	assert.Equal(t, schemas.MethodMutation, got.Method)
	assert.Equal(t, "Your appointment is confirmed for 3pm", got.Payload)
}

func TestMutationDetectorIgnoresUnrelatedText(t *testing.T) {
	page, sink, _ := newMutationFixture(t)

	page.fire(bindingMutation, "Select a provider to continue")
	page.fire(bindingMutation, "")
	assert.Equal(t, 0, sink.count())
}

func TestMutationDetectorDisconnectsAfterMatch(t *testing.T) {
	page, sink, _ := newMutationFixture(t)

	page.fire(bindingMutation, "thank you")
	page.fire(bindingMutation, "thank you once more")

	assert.Equal(t, 1, sink.count())

	// The page-side observer was asked to disconnect exactly once.
	page.mu.Lock()
	defer page.mu.Unlock()
	disconnects := 0
	for _, expr := range page.evals {
		if expr == mutationDisconnectScript {
			disconnects++
		}
	}
	assert.Equal(t, 1, disconnects)
}

func TestMutationDetectorStopIsIdempotent(t *testing.T) {
	page, sink, d := newMutationFixture(t)

	d.Stop()
	d.Stop()
	page.fire(bindingMutation, "thank you")
	assert.Equal(t, 0, sink.count())
}

func TestMutationDetectorSurvivesDisconnectFailure(t *testing.T) {
	page, sink, _ := newMutationFixture(t)

	page.mu.Lock()
	page.evalErr = assert.AnError
	page.mu.Unlock()

	// The report still goes through even when the page-side teardown fails.
	page.fire(bindingMutation, "thank you")
	assert.Equal(t, 1, sink.count())
}
