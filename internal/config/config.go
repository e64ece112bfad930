// File: internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Watch   WatchConfig   `mapstructure:"watch" yaml:"watch"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig holds settings for the browser the watcher drives.
type BrowserConfig struct {
	// Headless controls whether a launched browser runs without a window.
	Headless bool `mapstructure:"headless" yaml:"headless"`
	// RemoteURL attaches to an already running browser's DevTools endpoint
	// (e.g. ws://127.0.0.1:9222) instead of launching one.
	RemoteURL string `mapstructure:"remote_url" yaml:"remote_url"`
	// NavigationTimeout bounds each navigation and page-ready wait.
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	// Args are extra command line flags for a launched browser.
	Args []string `mapstructure:"args" yaml:"args"`
}

// WatchConfig configures the completion detection and redirect behavior.
// It is immutable after validation.
type WatchConfig struct {
	// TargetPage is the host page embedding the booking widget. Optional when
	// attaching to a browser that is already on the page.
	TargetPage string `mapstructure:"target_page" yaml:"target_page"`
	// RedirectTarget is the destination navigated to after a successful
	// detection. Required; the watcher refuses to start without a usable one.
	RedirectTarget string `mapstructure:"redirect_target" yaml:"redirect_target"`
	// RedirectDelay is the grace period between an accepted detection and the
	// actual navigation.
	RedirectDelay time.Duration `mapstructure:"redirect_delay" yaml:"redirect_delay"`
	// PollInterval is the cadence of the best-effort frame address poller.
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	// MaxRedirectAttempts caps how many detections the dispatcher accepts.
	// This bounds dispatcher invocations, not navigations; at most one
	// navigation ever happens regardless.
	MaxRedirectAttempts int `mapstructure:"max_redirect_attempts" yaml:"max_redirect_attempts"`
	// SuccessVocabulary is the set of lowercase substrings that indicate
	// completion when found in text or URLs.
	SuccessVocabulary []string `mapstructure:"success_vocabulary" yaml:"success_vocabulary"`
	// TrustedOriginSubstring must appear in a cross-document message's origin
	// for the message to be considered at all.
	TrustedOriginSubstring string `mapstructure:"trusted_origin_substring" yaml:"trusted_origin_substring"`
	// CustomEventNames are event names whose mere occurrence counts as
	// completion, no classification needed.
	CustomEventNames []string `mapstructure:"custom_event_names" yaml:"custom_event_names"`
	// CompletionTag is the message "type" value treated as a completion
	// shortcut by the classifier.
	CompletionTag string `mapstructure:"completion_tag" yaml:"completion_tag"`
	// WidgetSelector locates the embedded widget element in the host page.
	WidgetSelector string `mapstructure:"widget_selector" yaml:"widget_selector"`
	// OverlaySelector locates the optional loading overlay element. Empty
	// disables the overlay transition.
	OverlaySelector string `mapstructure:"overlay_selector" yaml:"overlay_selector"`
	// ManualAfter, when positive, fires a manual-tagged detection if nothing
	// has been detected after this duration. Zero disables the fallback.
	ManualAfter time.Duration `mapstructure:"manual_after" yaml:"manual_after"`
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "framewatch")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.remote_url", "")
	v.SetDefault("browser.navigation_timeout", "90s")

	// -- Watch --
	v.SetDefault("watch.redirect_delay", "1500ms")
	v.SetDefault("watch.poll_interval", "1s")
	v.SetDefault("watch.max_redirect_attempts", 3)
	v.SetDefault("watch.success_vocabulary", []string{
		"thank", "success", "confirm", "booked", "complete",
	})
	v.SetDefault("watch.custom_event_names", []string{
		"booking_complete",
		"bookingcompleted",
		"appointment_booked",
		"booking-success",
		"widget:confirmed",
	})
	v.SetDefault("watch.completion_tag", "booking_complete")
	v.SetDefault("watch.widget_selector", "iframe")
	v.SetDefault("watch.overlay_selector", "")
	v.SetDefault("watch.manual_after", "0s")
}

// NewConfigFromViper creates a validated configuration instance from a viper
// object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.Watch.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.Watch.Validate(); err != nil {
		return fmt.Errorf("watch configuration invalid: %w", err)
	}
	if c.Browser.NavigationTimeout <= 0 {
		return fmt.Errorf("browser.navigation_timeout must be a positive duration")
	}
	return nil
}

// Validate checks the WatchConfig settings. A malformed redirect target is
// the one fatal misconfiguration: a dispatcher that cannot navigate must not
// be allowed to start.
func (w *WatchConfig) Validate() error {
	if w.RedirectTarget == "" {
		return fmt.Errorf("watch.redirect_target is a required configuration field")
	}
	u, err := url.Parse(w.RedirectTarget)
	if err != nil {
		return fmt.Errorf("watch.redirect_target is not a valid URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("watch.redirect_target must be an absolute http(s) URL, got %q", w.RedirectTarget)
	}
	if w.RedirectDelay < 0 {
		return fmt.Errorf("watch.redirect_delay must not be negative")
	}
	if w.PollInterval <= 0 {
		return fmt.Errorf("watch.poll_interval must be a positive duration")
	}
	if w.MaxRedirectAttempts <= 0 {
		return fmt.Errorf("watch.max_redirect_attempts must be a positive integer")
	}
	if len(w.SuccessVocabulary) == 0 {
		return fmt.Errorf("watch.success_vocabulary must not be empty")
	}
	if w.WidgetSelector == "" {
		return fmt.Errorf("watch.widget_selector must not be empty")
	}
	return nil
}

// normalize lowercases and prunes the vocabulary so matching stays
// case-insensitive regardless of how the config file was written.
func (w *WatchConfig) normalize() {
	vocab := make([]string, 0, len(w.SuccessVocabulary))
	for _, token := range w.SuccessVocabulary {
		token = strings.ToLower(strings.TrimSpace(token))
		if token != "" {
			vocab = append(vocab, token)
		}
	}
	w.SuccessVocabulary = vocab
	w.TrustedOriginSubstring = strings.TrimSpace(w.TrustedOriginSubstring)
}
