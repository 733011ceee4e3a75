package batch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/VamLeovr/rednote-mind-skills/internal/compress"
	"github.com/VamLeovr/rednote-mind-skills/internal/corpus"
)

// #region executor

// Executor fetches a list of note URLs one at a time, isolating failures.
type Executor struct {
	fetcher    Fetcher
	compressor *compress.Compressor
	storage    Storage
	pacer      *Pacer
	metrics    Metrics
	config     Config
	logger     *slog.Logger
}

// New creates an executor. Storage is optional; see SetStorage.
func New(fetcher Fetcher, compressor *compress.Compressor, config Config, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	if compressor == nil {
		compressor = compress.New(logger)
	}
	return &Executor{
		fetcher:    fetcher,
		compressor: compressor,
		pacer:      NewPacer(config.PacingMin, config.PacingMax),
		metrics:    noopMetrics{},
		config:     config,
		logger:     logger,
	}
}

// SetStorage enables image persistence after each successful fetch.
func (e *Executor) SetStorage(s Storage) {
	e.storage = s
}

// SetPacer replaces the inter-request pacer.
func (e *Executor) SetPacer(p *Pacer) {
	e.pacer = p
}

// SetMetrics attaches an outcome sink.
func (e *Executor) SetMetrics(m Metrics) {
	if m == nil {
		m = noopMetrics{}
	}
	e.metrics = m
}

// #endregion executor

// #region fetch

// Fetch acquires every URL in order. One URL's failure never aborts the
// batch; it is recorded in Errors. A pacing delay runs between consecutive
// items. If ctx ends early the URLs not yet attempted are recorded as
// failures, so SuccessCount+FailedCount always equals len(urls).
func (e *Executor) Fetch(ctx context.Context, urls []string, includeImages bool) corpus.BatchResult {
	result := corpus.BatchResult{Notes: []corpus.Note{}}
	e.logger.Info("batch: start", "count", len(urls), "images", includeImages)

	for i, url := range urls {
		if err := ctx.Err(); err != nil {
			for _, rest := range urls[i:] {
				result.AddError(rest, fmt.Sprintf("not attempted: %v", err))
				e.metrics.FetchOutcome(false)
			}
			e.logger.Warn("batch: cancelled", "remaining", len(urls)-i, "error", err)
			break
		}

		raw, err := e.fetcher.FetchNote(ctx, url, includeImages)
		if err != nil {
			result.AddError(url, err.Error())
			e.metrics.FetchOutcome(false)
			e.logger.Warn("batch: fetch failed", "index", i+1, "total", len(urls), "url", url, "error", err)
		} else {
			note := e.assemble(raw, url, includeImages)
			e.persist(ctx, &note, i)
			result.AddNote(note)
			e.metrics.FetchOutcome(true)
			e.logger.Info("batch: fetched",
				"index", i+1, "total", len(urls),
				"note_id", note.NoteID, "chars", note.TextLength(), "images", len(note.Images))
		}

		if i < len(urls)-1 && e.pacer != nil {
			d, err := e.pacer.Wait(ctx)
			e.logger.Debug("batch: paced", "delay", d, "error", err)
		}
	}

	e.logger.Info("batch: done", "success", result.SuccessCount, "failed", result.FailedCount)
	return result
}

// assemble compresses raw images and attaches them to the note.
func (e *Executor) assemble(raw RawNote, url string, includeImages bool) corpus.Note {
	note := raw.Note
	if note.URL == "" {
		note.URL = url
	}
	note.Images = nil
	if !includeImages {
		return note
	}
	note.Images = make([]corpus.ImageAsset, 0, len(raw.Images))
	for _, img := range raw.Images {
		r := e.compressor.Smart(img.Data, e.config.CompressTarget, e.config.CompressOptions)
		e.metrics.CompressTier(r.Tier)
		note.Images = append(note.Images, r.Asset(img.Source, len(img.Data)))
	}
	return note
}

// persist writes each image through storage and records its path. Write
// failures are logged and skipped.
func (e *Executor) persist(ctx context.Context, note *corpus.Note, index int) {
	if e.storage == nil || len(note.Images) == 0 {
		return
	}
	id := note.NoteID
	if id == "" {
		id = fmt.Sprintf("note-%d", index)
	}
	for j := range note.Images {
		img := &note.Images[j]
		path, err := e.storage.Save(ctx, id, j+1, img.Data, img.Format)
		if err != nil {
			e.logger.Warn("batch: image save failed", "note_id", id, "image", j+1, "error", err)
			continue
		}
		img.LocalPath = path
	}
}

// #endregion fetch
