// File: cmd/watch.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/framewatch/internal/browser"
	"github.com/xkilldash9x/framewatch/internal/config"
	"github.com/xkilldash9x/framewatch/internal/observability"
	"github.com/xkilldash9x/framewatch/internal/watcher"
)

// newWatchCmd creates and configures the `watch` command.
func newWatchCmd() *cobra.Command {
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Watches a booking page for widget completion and redirects it",
		Args:  cobra.NoArgs,
		// Bind flags to their corresponding Viper keys so command-line flags
		// correctly override values from the config file and environment.
		PreRunE: func(cmd *cobra.Command, args []string) error {
			bindings := map[string]string{
				"watch.target_page":              "target-page",
				"watch.redirect_target":          "redirect-target",
				"watch.redirect_delay":           "redirect-delay",
				"watch.poll_interval":            "poll-interval",
				"watch.max_redirect_attempts":    "max-redirect-attempts",
				"watch.trusted_origin_substring": "trusted-origin",
				"watch.widget_selector":          "widget-selector",
				"watch.overlay_selector":         "overlay-selector",
				"watch.manual_after":             "manual-after",
				"browser.headless":               "headless",
				"browser.remote_url":             "remote-url",
			}
			for key, flag := range bindings {
				if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
					return err
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()

			// 1. Configuration finalization. Flags are bound, so the resolved
			// viper state carries the full precedence chain.
			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info("Starting watch session",
				zap.String("target_page", cfg.Watch.TargetPage),
				zap.String("redirect_target", cfg.Watch.RedirectTarget),
				zap.Bool("headless", cfg.Browser.Headless),
				zap.String("remote_url", cfg.Browser.RemoteURL),
			)

			// 2. Browser session
			page, err := browser.New(ctx, cfg.Browser, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize browser: %w", err)
			}
			defer func() {
				if err := page.Close(); err != nil {
					logger.Warn("Error during browser shutdown", zap.Error(err))
				}
			}()

			// 3. Watch execution, plus the optional manual fallback timer.
			w := watcher.New(cfg, page, logger)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return w.Run(gctx)
			})
			if cfg.Watch.ManualAfter > 0 {
				g.Go(func() error {
					timer := time.NewTimer(cfg.Watch.ManualAfter)
					defer timer.Stop()
					select {
					case <-gctx.Done():
						return nil
					case <-timer.C:
						logger.Info("Manual fallback window elapsed; forcing redirect",
							zap.Duration("manual_after", cfg.Watch.ManualAfter))
						w.TriggerManual("fallback timer elapsed")
						return nil
					}
				})
			}

			if err := g.Wait(); err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Warn("Watch aborted gracefully")
					return fmt.Errorf("watch aborted by user signal")
				}
				logger.Error("Watch failed", zap.Error(err))
				return err
			}

			fmt.Printf("\nRedirect complete: %s\n", cfg.Watch.RedirectTarget)
			return nil
		},
	}

	watchCmd.Flags().StringP("target-page", "t", "", "URL of the page embedding the booking widget. If unset, attaches to the browser's current page.")
	watchCmd.Flags().StringP("redirect-target", "r", "", "URL to navigate to once completion is detected. (Required via flag, config, or env)")
	watchCmd.Flags().Duration("redirect-delay", 1500*time.Millisecond, "Grace period between detection and the redirect navigation. (Overrides config/env)")
	watchCmd.Flags().Duration("poll-interval", time.Second, "How often to attempt reading the widget frame's address. (Overrides config/env)")
	watchCmd.Flags().Int("max-redirect-attempts", 3, "Maximum detections the dispatcher will accept. (Overrides config/env)")
	watchCmd.Flags().String("trusted-origin", "", "Substring a message origin must contain to be trusted. Empty trusts all origins.")
	watchCmd.Flags().String("widget-selector", "iframe", "CSS selector locating the embedded widget frame. (Overrides config/env)")
	watchCmd.Flags().String("overlay-selector", "", "CSS selector of a loading overlay to show before redirecting.")
	watchCmd.Flags().Duration("manual-after", 0, "Force a manual redirect if nothing is detected within this duration. Zero disables.")
	watchCmd.Flags().Bool("headless", true, "Run the launched browser headless. (Overrides config/env)")
	watchCmd.Flags().String("remote-url", "", "DevTools websocket URL of a running browser to attach to instead of launching one.")

	return watchCmd
}
