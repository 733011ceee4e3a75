package xhs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-resty/resty/v2"
)

// Downloader fetches image bytes from the CDN with the browser's cookies and
// a site Referer, which the CDN requires for most assets.
type Downloader struct {
	http    *resty.Client
	cookies CookieSource
	logger  *slog.Logger
}

// NewDownloader creates an image downloader. cookies may be nil.
func NewDownloader(cfg Config, cookies CookieSource, logger *slog.Logger) *Downloader {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	client := resty.New().
		SetTimeout(cfg.ImageTimeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Referer", cfg.BaseURL+"/").
		SetHeader("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")
	return &Downloader{http: client, cookies: cookies, logger: logger}
}

// Download returns the body of imageURL.
func (d *Downloader) Download(ctx context.Context, imageURL string) ([]byte, error) {
	req := d.http.R().SetContext(ctx)
	if d.cookies != nil {
		cookies, err := d.cookies.HTTPCookies()
		if err != nil {
			d.logger.Warn("xhs: cookies unavailable for download", "error", err)
		} else {
			req.SetCookies(cookies)
		}
	}

	resp, err := req.Get(imageURL)
	if err != nil {
		return nil, fmt.Errorf("xhs: download %s: %w", imageURL, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("xhs: download %s: status %d", imageURL, resp.StatusCode())
	}
	body := resp.Body()
	if len(body) == 0 {
		return nil, fmt.Errorf("xhs: download %s: empty body", imageURL)
	}
	return body, nil
}
