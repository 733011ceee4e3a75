package xhs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/VamLeovr/rednote-mind-skills/internal/browser"
	"github.com/VamLeovr/rednote-mind-skills/internal/websearch"
)

// ErrEmptyKeyword is returned for a blank search keyword.
var ErrEmptyKeyword = errors.New("xhs: empty keyword")

// Searcher runs keyword searches. It implements websearch.Provider.
type Searcher struct {
	loader Loader
	cfg    Config
	logger *slog.Logger
}

var _ websearch.Provider = (*Searcher)(nil)

// NewSearcher creates a search adapter over loader.
func NewSearcher(loader Loader, cfg Config, logger *slog.Logger) *Searcher {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Searcher{loader: loader, cfg: cfg, logger: logger}
}

// Search loads the result page for keyword and returns at most limit hits,
// relaxing the like filter when too few pass it.
func (s *Searcher) Search(ctx context.Context, keyword string, limit int, sortMode string, minLikes int) ([]websearch.Result, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, ErrEmptyKeyword
	}
	if !websearch.ValidSortMode(sortMode) {
		return nil, fmt.Errorf("xhs: unknown sort mode %q", sortMode)
	}

	pageURL := SearchURL(s.cfg.BaseURL, keyword, sortMode)
	snap, err := s.loader.Load(ctx, pageURL, browser.LoadOptions{Scrolls: s.cfg.SearchScrolls})
	if err != nil {
		return nil, fmt.Errorf("xhs: search %q: %w", keyword, err)
	}

	items, err := ParseSearchResults(snap.HTML, s.cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	results, relaxed := websearch.Relax(items, limit, minLikes)
	s.logger.Info("xhs: search done",
		"keyword", keyword, "sort", sortMode, "found", len(items), "returned", len(results), "relaxed", relaxed)
	return results, nil
}

// SearchURL builds the result page URL for keyword.
func SearchURL(baseURL, keyword, sortMode string) string {
	q := url.Values{}
	q.Set("keyword", keyword)
	q.Set("source", "web_search_result_notes")
	switch sortMode {
	case websearch.SortPopular:
		q.Set("sort", "popularity_descending")
	case websearch.SortLatest:
		q.Set("sort", "time_descending")
	default:
		q.Set("sort", "general")
	}
	return strings.TrimRight(baseURL, "/") + "/search_result?" + q.Encode()
}
