// File: internal/detect/helpers_test.go
// Shared test doubles for the detector suite.

package detect

import (
	"context"
	"sync"

	"github.com/xkilldash9x/framewatch/api/schemas"
)

// fakePage is an in-memory schemas.Page. Behavior is overridable per test via
// the *Func fields; everything else records calls.
type fakePage struct {
	mu        sync.Mutex
	bindings  map[string]func(payload string)
	injected  []string
	evals     []string
	frameSubs []func(frameURL string)
	navigated []string

	bindErr      error
	injectErr    error
	evalErr      error
	frameURLFunc func(selector string) (string, bool)
}

func newFakePage() *fakePage {
	return &fakePage{bindings: make(map[string]func(string))}
}

func (f *fakePage) Navigate(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.navigated = append(f.navigated, url)
	return nil
}

func (f *fakePage) WaitReady(ctx context.Context) error { return nil }

func (f *fakePage) InjectPersistent(ctx context.Context, script string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.injectErr != nil {
		return f.injectErr
	}
	f.injected = append(f.injected, script)
	return nil
}

func (f *fakePage) Bind(ctx context.Context, name string, fn func(payload string)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bindErr != nil {
		return f.bindErr
	}
	f.bindings[name] = fn
	return nil
}

func (f *fakePage) OnFrameNavigated(fn func(frameURL string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frameSubs = append(f.frameSubs, fn)
}

func (f *fakePage) FrameURL(ctx context.Context, selector string) (string, bool) {
	f.mu.Lock()
	fn := f.frameURLFunc
	f.mu.Unlock()
	if fn != nil {
		return fn(selector)
	}
	return "", false
}

func (f *fakePage) Eval(ctx context.Context, expression string, out any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.evalErr != nil {
		return f.evalErr
	}
	f.evals = append(f.evals, expression)
	return nil
}

func (f *fakePage) ShowOverlay(ctx context.Context, selector string) (bool, error) {
	return true, nil
}

func (f *fakePage) Close() error { return nil }

// fire delivers a payload to a registered binding the way the real page
// relays observer callbacks.
func (f *fakePage) fire(name, payload string) bool {
	f.mu.Lock()
	fn, ok := f.bindings[name]
	f.mu.Unlock()
	if !ok {
		return false
	}
	fn(payload)
	return true
}

// fireFrameNavigated delivers a frame navigation signal to all subscribers.
func (f *fakePage) fireFrameNavigated(frameURL string) {
	f.mu.Lock()
	subs := make([]func(string), len(f.frameSubs))
	copy(subs, f.frameSubs)
	f.mu.Unlock()
	for _, fn := range subs {
		fn(frameURL)
	}
}

var _ schemas.Page = (*fakePage)(nil)

// fakeSink records every reported detection.
type fakeSink struct {
	mu     sync.Mutex
	events []schemas.DetectionEvent
}

func (s *fakeSink) HandleDetection(event schemas.DetectionEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func (s *fakeSink) all() []schemas.DetectionEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]schemas.DetectionEvent, len(s.events))
	copy(out, s.events)
	return out
}

var _ schemas.Sink = (*fakeSink)(nil)
