package browser

import (
	"errors"
	"log/slog"
	"time"
)

// ErrSessionClosed is returned by operations on a closed session.
var ErrSessionClosed = errors.New("browser: session closed")

// Config configures a browser session.
type Config struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string `yaml:"remote_url" json:"remote_url"`

	Headless bool `yaml:"headless" json:"headless"`

	// CookiesPath points at a saved cookie JSON file loaded at start.
	CookiesPath string `yaml:"cookies_path" json:"cookies_path"`

	// HomeURL is visited once per session before the first page load.
	HomeURL string `yaml:"home_url" json:"home_url"`

	NavTimeout    time.Duration `yaml:"nav_timeout" json:"nav_timeout"`
	WarmupTimeout time.Duration `yaml:"warmup_timeout" json:"warmup_timeout"`

	// Settle is the pause after load for client-side rendering.
	Settle time.Duration `yaml:"settle" json:"settle"`

	Logger *slog.Logger `yaml:"-" json:"-"`
}

func (c *Config) defaults() {
	if c.HomeURL == "" {
		c.HomeURL = "https://www.xiaohongshu.com"
	}
	if c.NavTimeout <= 0 {
		c.NavTimeout = 30 * time.Second
	}
	if c.WarmupTimeout <= 0 {
		c.WarmupTimeout = 15 * time.Second
	}
	if c.Settle < 0 {
		c.Settle = 0
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// LoadOptions controls what Load does after navigation.
type LoadOptions struct {
	// Scrolls is how many times to scroll to the bottom to trigger lazy loading.
	Scrolls int
	// CarouselSlides advances an image carousel up to this many times.
	CarouselSlides int
}

// Snapshot is the rendered state of a page after Load.
type Snapshot struct {
	RequestedURL string
	FinalURL     string
	HTML         string
}
