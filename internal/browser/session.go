// Package browser owns the single Chrome session used for page loads. The
// session is created by the caller, passed to the site adapters, and closed
// by the caller; all page operations are serialized on it.
package browser

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
)

// Session is one browser with one stealth tab.
type Session struct {
	cfg     Config
	mu      sync.Mutex
	browser *rod.Browser
	page    *rod.Page
	lnch    *launcher.Launcher
	warmed  bool
	closed  bool
}

// Open launches Chrome (or connects to a remote instance), loads saved
// cookies and opens a stealth tab.
func Open(ctx context.Context, cfg Config) (*Session, error) {
	cfg.defaults()
	log := cfg.Logger
	s := &Session{cfg: cfg}

	var wsURL string
	if cfg.RemoteURL != "" {
		wsURL = cfg.RemoteURL
		log.Info("browser: connecting to remote", "url", wsURL)
	} else {
		l := launcher.New().Context(ctx).Headless(cfg.Headless)

		// Anti-detection flags.
		l = l.Set("disable-blink-features", "AutomationControlled")

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		s.lnch = l
		log.Info("browser: launched local chrome", "url", wsURL, "headless", cfg.Headless)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	s.browser = b

	if cfg.CookiesPath != "" {
		cookies, err := LoadCookies(cfg.CookiesPath)
		if err != nil {
			s.cleanup()
			return nil, err
		}
		if err := b.SetCookies(cookies); err != nil {
			s.cleanup()
			return nil, fmt.Errorf("browser: set cookies: %w", err)
		}
		log.Info("browser: cookies loaded", "count", len(cookies))
	}

	page, err := stealth.Page(b)
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}
	s.page = page
	return s, nil
}

// Load navigates the session tab to pageURL and returns the rendered HTML.
// The first Load of a session visits the home page first.
func (s *Session) Load(ctx context.Context, pageURL string, opts LoadOptions) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Snapshot{}, ErrSessionClosed
	}
	log := s.cfg.Logger

	if !s.warmed {
		s.warmup(ctx)
		s.warmed = true
	}

	navCtx, cancel := context.WithTimeout(ctx, s.cfg.NavTimeout)
	defer cancel()

	page := s.page.Context(navCtx)
	if err := page.Navigate(pageURL); err != nil {
		return Snapshot{}, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.WaitLoad(); err != nil {
		log.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}
	if err := pause(navCtx, s.cfg.Settle); err != nil {
		return Snapshot{}, fmt.Errorf("browser: settle: %w", err)
	}

	for i := 0; i < opts.Scrolls; i++ {
		if _, err := page.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`); err != nil {
			log.Warn("browser: scroll failed", "error", err)
			break
		}
		if err := pause(navCtx, 800*time.Millisecond); err != nil {
			break
		}
	}

	if opts.CarouselSlides > 0 {
		if res, err := page.Eval(carouselJS, opts.CarouselSlides); err != nil {
			log.Warn("browser: carousel advance failed", "error", err)
		} else {
			log.Debug("browser: carousel advanced", "slides", res.Value.Int())
		}
	}

	info, err := page.Info()
	if err != nil {
		return Snapshot{}, fmt.Errorf("browser: page info: %w", err)
	}
	res, err := page.Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("browser: get DOM: %w", err)
	}

	return Snapshot{RequestedURL: pageURL, FinalURL: info.URL, HTML: res.Value.Str()}, nil
}

// HTTPCookies returns the session cookies for use by a plain HTTP client.
func (s *Session) HTTPCookies() ([]*http.Cookie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	cookies, err := s.browser.GetCookies()
	if err != nil {
		return nil, fmt.Errorf("browser: get cookies: %w", err)
	}
	return ToHTTPCookies(cookies), nil
}

// Close shuts down the tab and browser.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.cleanup()
}

// warmup visits the home page so the site issues its session cookies.
// Failure is logged and ignored.
func (s *Session) warmup(ctx context.Context) {
	wctx, cancel := context.WithTimeout(ctx, s.cfg.WarmupTimeout)
	defer cancel()
	page := s.page.Context(wctx)
	if err := page.Navigate(s.cfg.HomeURL); err != nil {
		s.cfg.Logger.Warn("browser: warmup failed", "url", s.cfg.HomeURL, "error", err)
		return
	}
	_ = page.WaitLoad()
	_ = pause(wctx, 2*time.Second)
	s.cfg.Logger.Debug("browser: warmed up", "url", s.cfg.HomeURL)
}

func (s *Session) cleanup() error {
	var firstErr error
	if s.page != nil {
		if err := s.page.Close(); err != nil {
			firstErr = err
		}
		s.page = nil
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.browser = nil
	}
	if s.lnch != nil {
		s.lnch.Cleanup()
		s.lnch = nil
	}
	return firstErr
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// carouselJS clicks the visible "next" arrow until it disappears or is disabled.
const carouselJS = `async (maxSlides) => {
	const selectors = [
		'button[aria-label*="next"]',
		'button[class*="next"]',
		'button[class*="arrow-right"]',
		'.swiper-button-next',
		'[class*="slide-next"]'
	];
	let clicks = 0;
	for (let i = 0; i < maxSlides; i++) {
		let btn = null;
		for (const sel of selectors) {
			const el = document.querySelector(sel);
			if (el && el.offsetParent !== null) { btn = el; break; }
		}
		if (!btn) break;
		btn.click();
		clicks++;
		await new Promise(r => setTimeout(r, 800));
		if (btn.hasAttribute('disabled') || btn.classList.contains('disabled')) break;
	}
	return clicks;
}`
