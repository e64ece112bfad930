// File: internal/browser/page.go
// Description: The production schemas.Page implementation, driving a real
// Chromium instance over the DevTools protocol. It either launches a browser
// or attaches to a running one, and multiplexes the single protocol event
// stream into binding callbacks and frame navigation signals.

package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"

	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/framewatch/api/schemas"
	"github.com/xkilldash9x/framewatch/internal/config"
)

// Page drives one browser tab. All protocol events for the tab arrive on a
// single ListenTarget stream; Page fans them out to registered binding
// handlers and frame navigation subscribers. Handlers run on their own
// goroutines because they routinely issue protocol calls of their own, which
// would deadlock the event loop if run inline.
type Page struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	cfg         config.BrowserConfig
	logger      *zap.Logger

	mu          sync.RWMutex
	bindings    map[string]func(payload string)
	frameSubs   []func(frameURL string)
	listenOnce  sync.Once
	closeOnce   sync.Once
}

// New launches or attaches to a browser and opens the tab the watcher will
// drive. The returned Page is connected but has not navigated anywhere.
func New(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Page, error) {
	var (
		allocCtx    context.Context
		allocCancel context.CancelFunc
	)

	if cfg.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, cfg.RemoteURL)
	} else {
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, execOptions(cfg)...)
	}

	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	p := &Page{
		ctx:         tabCtx,
		cancel:      tabCancel,
		allocCancel: allocCancel,
		cfg:         cfg,
		logger:      logger.Named("browser"),
	}
	p.bindings = make(map[string]func(payload string))

	// An empty Run establishes the connection (and launches the browser when
	// not attaching), so failures surface here instead of on first use.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser session: %w", err)
	}

	p.listen()
	return p, nil
}

// execOptions translates the browser config into allocator options for a
// launched browser.
func execOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
	)

	if cfg.Headless {
		opts = append(opts, chromedp.Headless)
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}

	// Extra flags from config, both bare switches and key=value pairs.
	for _, arg := range cfg.Args {
		if !strings.Contains(arg, "=") {
			opts = append(opts, chromedp.Flag(strings.TrimPrefix(arg, "--"), true))
			continue
		}
		parts := strings.SplitN(arg, "=", 2)
		opts = append(opts, chromedp.Flag(strings.TrimPrefix(parts[0], "--"), parts[1]))
	}
	return opts
}

// listen installs the single protocol event listener for the tab.
func (p *Page) listen() {
	p.listenOnce.Do(func() {
		chromedp.ListenTarget(p.ctx, func(ev interface{}) {
			switch e := ev.(type) {
			case *runtime.EventBindingCalled:
				p.mu.RLock()
				fn, ok := p.bindings[e.Name]
				p.mu.RUnlock()
				if ok {
					// Handlers issue protocol calls; never run them inline on
					// the event loop.
					go fn(e.Payload)
				}
			case *cdppage.EventFrameNavigated:
				// Only embedded frames matter; the main frame navigating is
				// either our own attach or the terminal redirect.
				if e.Frame == nil || e.Frame.ParentID == "" {
					return
				}
				url := e.Frame.URL
				p.notifyFrameSubs(url)
			case *cdppage.EventFrameStoppedLoading:
				// A load finished somewhere in the frame tree. The protocol
				// gives no address here; subscribers treat it as a hint to
				// re-read the frame themselves.
				p.notifyFrameSubs("")
			}
		})
	})
}

// notifyFrameSubs fans one frame navigation signal out to all subscribers.
func (p *Page) notifyFrameSubs(frameURL string) {
	p.mu.RLock()
	subs := make([]func(string), len(p.frameSubs))
	copy(subs, p.frameSubs)
	p.mu.RUnlock()
	for _, fn := range subs {
		go fn(frameURL)
	}
}

// Navigate implements schemas.Page.
func (p *Page) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := p.bounded(ctx)
	defer cancel()
	if err := chromedp.Run(navCtx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	p.logger.Debug("Navigation complete", zap.String("url", url))
	return nil
}

// WaitReady implements schemas.Page. Readiness means the document body exists;
// that is enough for observer installation even while subresources still load.
func (p *Page) WaitReady(ctx context.Context) error {
	waitCtx, cancel := p.bounded(ctx)
	defer cancel()
	if err := chromedp.Run(waitCtx, chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return fmt.Errorf("page never became ready: %w", err)
	}
	return nil
}

// InjectPersistent implements schemas.Page. The script is registered for all
// future documents and also evaluated in the current one, so installation
// order relative to page load does not matter.
func (p *Page) InjectPersistent(ctx context.Context, script string) error {
	err := chromedp.Run(p.ctx, chromedp.ActionFunc(func(c context.Context) error {
		_, err := cdppage.AddScriptToEvaluateOnNewDocument(script).Do(c)
		return err
	}))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("could not inject persistent script: %w", err)
	}
	if err := p.Eval(ctx, script, nil); err != nil {
		return fmt.Errorf("could not evaluate script in current document: %w", err)
	}
	return nil
}

// Bind implements schemas.Page.
func (p *Page) Bind(ctx context.Context, name string, fn func(payload string)) error {
	if err := chromedp.Run(p.ctx, runtime.AddBinding(name)); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("failed to add binding %q: %w", name, err)
	}
	p.mu.Lock()
	p.bindings[name] = fn
	p.mu.Unlock()
	return nil
}

// OnFrameNavigated implements schemas.Page.
func (p *Page) OnFrameNavigated(fn func(frameURL string)) {
	p.mu.Lock()
	p.frameSubs = append(p.frameSubs, fn)
	p.mu.Unlock()
}

// FrameURL implements schemas.Page. The in-page read script converts the
// cross-origin SecurityError into null, which surfaces here as ok=false.
func (p *Page) FrameURL(ctx context.Context, selector string) (string, bool) {
	var result *string
	if err := p.Eval(ctx, frameURLScript(selector), &result); err != nil {
		p.logger.Debug("Frame address read failed", zap.Error(err))
		return "", false
	}
	if result == nil || *result == "" {
		return "", false
	}
	return *result, true
}

// Eval implements schemas.Page. The expression runs silently so in-page
// exceptions do not pause a DevTools frontend attached for debugging.
func (p *Page) Eval(ctx context.Context, expression string, out any) error {
	evalCtx, cancel := p.bounded(ctx)
	defer cancel()
	return chromedp.Run(evalCtx, chromedp.Evaluate(expression, out,
		func(params *runtime.EvaluateParams) *runtime.EvaluateParams {
			return params.WithReturnByValue(true).WithAwaitPromise(true).WithSilent(true)
		}))
}

// ShowOverlay implements schemas.Page.
func (p *Page) ShowOverlay(ctx context.Context, selector string) (bool, error) {
	var found bool
	if err := p.Eval(ctx, showOverlayScript(selector), &found); err != nil {
		return false, fmt.Errorf("overlay toggle failed: %w", err)
	}
	return found, nil
}

// Close implements schemas.Page. Idempotent.
func (p *Page) Close() error {
	p.closeOnce.Do(func() {
		if err := chromedp.Cancel(p.ctx); err != nil {
			p.logger.Debug("Graceful browser shutdown failed", zap.Error(err))
		}
		p.cancel()
		p.allocCancel()
	})
	return nil
}

// bounded derives the deadline context for a single protocol operation: the
// caller's context for cancellation, the tab's context for lifetime, and the
// configured navigation timeout as the ceiling.
func (p *Page) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	opCtx, cancel := context.WithTimeout(p.ctx, p.cfg.NavigationTimeout)
	stop := context.AfterFunc(ctx, cancel)
	return opCtx, func() {
		stop()
		cancel()
	}
}

var _ schemas.Page = (*Page)(nil)
