// File: internal/watcher/watcher.go
// Description: The top level lifecycle component. A Watcher attaches to the
// booking page, arms the detection strategies, and runs until the redirect
// has been issued or the caller cancels.

package watcher

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/framewatch/api/schemas"
	"github.com/xkilldash9x/framewatch/internal/analytics"
	"github.com/xkilldash9x/framewatch/internal/classify"
	"github.com/xkilldash9x/framewatch/internal/config"
	"github.com/xkilldash9x/framewatch/internal/detect"
	"github.com/xkilldash9x/framewatch/internal/dispatch"
)

// Watcher wires the classifier, the detector set, and the redirect dispatcher
// around one Page and runs them as a session. Construction is cheap and
// side-effect free; everything touching the page happens in Run.
type Watcher struct {
	cfg    *config.Config
	page   schemas.Page
	hub    *analytics.Hub
	logger *zap.Logger
	hooks  []dispatch.Hook

	mu         sync.Mutex
	dispatcher *dispatch.Dispatcher
}

// New creates a Watcher over an already connected page.
func New(cfg *config.Config, page schemas.Page, logger *zap.Logger) *Watcher {
	hub := analytics.NewHub(logger)
	hub.Register(analytics.LogTracker(logger))
	return &Watcher{
		cfg:    cfg,
		page:   page,
		hub:    hub,
		logger: logger.Named("watcher"),
	}
}

// RegisterTracker adds an analytics tracker alongside the default log tracker.
// Must be called before Run.
func (w *Watcher) RegisterTracker(t analytics.Tracker) {
	w.hub.Register(t)
}

// OnBeforeRedirect registers a hook invoked before each accepted detection's
// redirect is scheduled. Must be called before Run.
func (w *Watcher) OnBeforeRedirect(h dispatch.Hook) {
	w.hooks = append(w.hooks, h)
}

// Run attaches to the booking page, arms every detector, and blocks until the
// redirect navigation has been issued or ctx is cancelled. A nil return means
// the redirect happened.
func (w *Watcher) Run(ctx context.Context) error {
	watchCfg := w.cfg.Watch

	if watchCfg.TargetPage != "" {
		w.logger.Info("Attaching to booking page", zap.String("url", watchCfg.TargetPage))
		if err := w.page.Navigate(ctx, watchCfg.TargetPage); err != nil {
			return fmt.Errorf("could not load booking page: %w", err)
		}
	}
	if err := w.page.WaitReady(ctx); err != nil {
		return fmt.Errorf("booking page never became ready: %w", err)
	}

	dispatcher := dispatch.New(ctx, dispatch.Config{
		Target:          watchCfg.RedirectTarget,
		Delay:           watchCfg.RedirectDelay,
		MaxAttempts:     watchCfg.MaxRedirectAttempts,
		OverlaySelector: watchCfg.OverlaySelector,
	}, w.page, w.hub, w.logger)
	dispatcher.SetOverlay(w.page)
	for _, h := range w.hooks {
		dispatcher.AddBeforeRedirect(h)
	}

	w.mu.Lock()
	w.dispatcher = dispatcher
	w.mu.Unlock()

	classifier := classify.New(watchCfg.SuccessVocabulary, watchCfg.CompletionTag)
	set := detect.NewSet(w.logger,
		detect.NewMessageDetector(w.page, dispatcher, classifier, watchCfg.TrustedOriginSubstring, w.logger),
		detect.NewLocationPollDetector(w.page, dispatcher, classifier, watchCfg.WidgetSelector, watchCfg.PollInterval, w.logger),
		detect.NewMutationDetector(w.page, dispatcher, classifier, w.logger),
		detect.NewNavigationDetector(w.page, dispatcher, classifier, watchCfg.WidgetSelector, w.logger),
		detect.NewCustomEventDetector(w.page, dispatcher, watchCfg.CustomEventNames, w.logger),
	)
	if err := set.Start(ctx); err != nil {
		return fmt.Errorf("could not arm detection: %w", err)
	}
	defer set.Stop()

	w.logger.Info("Watching for completion",
		zap.String("redirect_target", watchCfg.RedirectTarget),
		zap.Duration("redirect_delay", watchCfg.RedirectDelay))

	select {
	case <-ctx.Done():
		w.logger.Info("Watch cancelled before any redirect")
		return ctx.Err()
	case <-dispatcher.Done():
		w.logger.Info("Redirect issued; watch complete",
			zap.Int("attempts", dispatcher.Attempts()))
		return nil
	}
}

// TriggerManual forces a manual-tagged detection, subject to the same attempt
// ceiling and navigation guard as every other strategy. Before Run has armed
// the dispatcher it is a logged no-op.
func (w *Watcher) TriggerManual(reason string) {
	w.mu.Lock()
	dispatcher := w.dispatcher
	w.mu.Unlock()
	if dispatcher == nil {
		w.logger.Warn("Manual trigger ignored; watcher not running")
		return
	}
	dispatcher.TriggerManual(reason)
}
