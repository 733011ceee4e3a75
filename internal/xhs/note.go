package xhs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/VamLeovr/rednote-mind-skills/internal/batch"
	"github.com/VamLeovr/rednote-mind-skills/internal/browser"
)

// ImageGetter downloads one image. *Downloader satisfies it.
type ImageGetter interface {
	Download(ctx context.Context, imageURL string) ([]byte, error)
}

// Fetcher loads note pages. It implements batch.Fetcher.
type Fetcher struct {
	loader Loader
	images ImageGetter
	cfg    Config
	logger *slog.Logger
}

var _ batch.Fetcher = (*Fetcher)(nil)

// NewFetcher creates a note fetcher. images may be nil when notes are only
// ever fetched without images.
func NewFetcher(loader Loader, images ImageGetter, cfg Config, logger *slog.Logger) *Fetcher {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{loader: loader, images: images, cfg: cfg, logger: logger}
}

// FetchNote renders the note page and extracts its content. Individual image
// download failures are logged and skipped.
func (f *Fetcher) FetchNote(ctx context.Context, noteURL string, includeImages bool) (batch.RawNote, error) {
	opts := browser.LoadOptions{}
	if includeImages {
		opts.CarouselSlides = f.cfg.MaxImages - 1
	}

	snap, err := f.loader.Load(ctx, noteURL, opts)
	if err != nil {
		return batch.RawNote{}, err
	}
	if !strings.Contains(snap.FinalURL, "/explore/") {
		return batch.RawNote{}, fmt.Errorf("%w: redirected to %s, may need re-login", ErrRedirected, snap.FinalURL)
	}

	note, err := ParseNote(snap.HTML, noteURL, f.cfg.MinContentChars)
	if err != nil {
		return batch.RawNote{}, fmt.Errorf("%s: %w", noteURL, err)
	}
	if note.NoteID == "" {
		note.NoteID = NoteID(snap.FinalURL)
	}

	raw := batch.RawNote{Note: note}
	if !includeImages || f.images == nil {
		return raw, nil
	}

	urls, err := ParseImageURLs(snap.HTML, f.cfg.MaxImages)
	if err != nil {
		f.logger.Warn("xhs: image extraction failed", "url", noteURL, "error", err)
		return raw, nil
	}
	for i, u := range urls {
		if ctx.Err() != nil {
			break
		}
		data, err := f.images.Download(ctx, u)
		if err != nil {
			f.logger.Warn("xhs: image download failed", "note", note.NoteID, "index", i+1, "error", err)
			continue
		}
		raw.Images = append(raw.Images, batch.RawImage{Source: u, Data: data})
	}
	f.logger.Debug("xhs: note fetched", "note", note.NoteID, "images", len(raw.Images), "of", len(urls))
	return raw, nil
}
