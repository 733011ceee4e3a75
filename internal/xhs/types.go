// Package xhs adapts Xiaohongshu search and note pages to the corpus types.
// Page loading goes through a browser.Session; parsing is pure goquery over
// the rendered HTML so it can be exercised against saved fixtures.
package xhs

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/VamLeovr/rednote-mind-skills/internal/browser"
)

// #region errors

var (
	// ErrRedirected means the note URL did not stay on a note page,
	// usually because the login cookies expired.
	ErrRedirected = errors.New("xhs: redirected away from note")
	// ErrNoContent means the page rendered without any note body.
	ErrNoContent = errors.New("xhs: note has no content")
	// ErrNotFound means the site reported the note as deleted or private.
	ErrNotFound = errors.New("xhs: note not found")
)

// #endregion errors

// #region collaborators

// Loader renders a page. *browser.Session satisfies it.
type Loader interface {
	Load(ctx context.Context, url string, opts browser.LoadOptions) (browser.Snapshot, error)
}

// CookieSource supplies cookies for plain HTTP downloads.
type CookieSource interface {
	HTTPCookies() ([]*http.Cookie, error)
}

// #endregion collaborators

// #region config

const (
	defaultBaseURL = "https://www.xiaohongshu.com"
	defaultUA      = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

	// MaxCarouselImages caps images taken from one note.
	MaxCarouselImages = 9

	unknownAuthor = "未知作者"
)

// Config holds site adapter settings.
type Config struct {
	BaseURL         string        `yaml:"base_url" json:"base_url"`
	UserAgent       string        `yaml:"user_agent" json:"user_agent"`
	ImageTimeout    time.Duration `yaml:"image_timeout" json:"image_timeout"`
	MaxImages       int           `yaml:"max_images" json:"max_images"`
	SearchScrolls   int           `yaml:"search_scrolls" json:"search_scrolls"`
	MinContentChars int           `yaml:"min_content_chars" json:"min_content_chars"`
}

// DefaultConfig returns the adapter defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:         defaultBaseURL,
		UserAgent:       defaultUA,
		ImageTimeout:    20 * time.Second,
		MaxImages:       MaxCarouselImages,
		SearchScrolls:   3,
		MinContentChars: 10,
	}
}

func (c *Config) defaults() {
	d := DefaultConfig()
	if c.BaseURL == "" {
		c.BaseURL = d.BaseURL
	}
	if c.UserAgent == "" {
		c.UserAgent = d.UserAgent
	}
	if c.ImageTimeout <= 0 {
		c.ImageTimeout = d.ImageTimeout
	}
	if c.MaxImages <= 0 || c.MaxImages > MaxCarouselImages {
		c.MaxImages = MaxCarouselImages
	}
	if c.SearchScrolls < 0 {
		c.SearchScrolls = 0
	}
	if c.MinContentChars <= 0 {
		c.MinContentChars = d.MinContentChars
	}
}

// #endregion config
