package main

import (
	"context"
	"fmt"
	"io"

	"github.com/VamLeovr/rednote-mind-skills/internal/batch"
	"github.com/VamLeovr/rednote-mind-skills/internal/browser"
	"github.com/VamLeovr/rednote-mind-skills/internal/codec"
	"github.com/VamLeovr/rednote-mind-skills/internal/compress"
	"github.com/VamLeovr/rednote-mind-skills/internal/config"
	"github.com/VamLeovr/rednote-mind-skills/internal/judge"
	"github.com/VamLeovr/rednote-mind-skills/internal/llm"
	"github.com/VamLeovr/rednote-mind-skills/internal/metrics"
	"github.com/VamLeovr/rednote-mind-skills/internal/storage"
	"github.com/VamLeovr/rednote-mind-skills/internal/xhs"
)

// #region site

// site bundles the browser session and the adapters built on it.
type site struct {
	session  *browser.Session
	searcher *xhs.Searcher
	fetcher  *xhs.Fetcher
}

func openSite(ctx context.Context) (*site, error) {
	sess, err := browser.Open(ctx, cfg.Browser)
	if err != nil {
		return nil, fmt.Errorf("open browser: %w", err)
	}
	images := xhs.NewDownloader(cfg.Site, sess, logger)
	return &site{
		session:  sess,
		searcher: xhs.NewSearcher(sess, cfg.Site, logger),
		fetcher:  xhs.NewFetcher(sess, images, cfg.Site, logger),
	}, nil
}

func (s *site) Close() error {
	return s.session.Close()
}

// #endregion site

// #region executor

func newExecutor(s *site, m *metrics.Collector) *batch.Executor {
	exec := batch.New(s.fetcher, compress.New(logger), cfg.Batch, logger)
	if cfg.Storage.ImageDir != "" {
		exec.SetStorage(storage.NewDisk(cfg.Storage.ImageDir))
	}
	if m != nil {
		exec.SetMetrics(m)
	}
	return exec
}

// #endregion executor

// #region llm

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// newLLM returns the judge backend selected by llm.backend.
func newLLM() (judge.LLM, io.Closer, error) {
	switch cfg.LLM.Backend {
	case config.BackendGRPC:
		client, err := codec.NewCodecClient(cfg.LLM.CodecAddr, cfg.LLM.HTTP.Model)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("judge backend", "backend", "grpc", "addr", cfg.LLM.CodecAddr)
		return client, client, nil
	default:
		logger.Info("judge backend", "backend", "http", "endpoint", cfg.LLM.HTTP.BaseURL, "model", cfg.LLM.HTTP.Model)
		return llm.NewClient(cfg.LLM.HTTP, logger), nopCloser{}, nil
	}
}

// #endregion llm
