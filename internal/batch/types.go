package batch

import (
	"context"
	"time"

	"github.com/VamLeovr/rednote-mind-skills/internal/compress"
	"github.com/VamLeovr/rednote-mind-skills/internal/corpus"
)

// #region collaborators

// RawImage is an image as downloaded, before compression.
type RawImage struct {
	Source string
	Data   []byte
}

// RawNote is a fetched note whose images have not been compressed yet.
// Note.Images is ignored; Images carries the payloads.
type RawNote struct {
	Note   corpus.Note
	Images []RawImage
}

// Fetcher loads one note page.
type Fetcher interface {
	FetchNote(ctx context.Context, url string, includeImages bool) (RawNote, error)
}

// Storage persists one image and returns where it landed. Index is 1-based.
type Storage interface {
	Save(ctx context.Context, noteID string, index int, data []byte, format string) (string, error)
}

// Metrics receives per-item outcomes.
type Metrics interface {
	FetchOutcome(success bool)
	CompressTier(tier int)
}

// #endregion collaborators

// #region config

// Config holds executor settings.
type Config struct {
	CompressTarget  int              `yaml:"compress_target" json:"compress_target"`
	CompressOptions compress.Options `yaml:"compress_options" json:"compress_options"`
	PacingMin       time.Duration    `yaml:"pacing_min" json:"pacing_min"`
	PacingMax       time.Duration    `yaml:"pacing_max" json:"pacing_max"`
}

// DefaultConfig paces 1-3s between items and compresses to 500KB.
func DefaultConfig() Config {
	return Config{
		CompressTarget:  compress.DefaultTarget,
		CompressOptions: compress.DefaultOptions(),
		PacingMin:       1 * time.Second,
		PacingMax:       3 * time.Second,
	}
}

// #endregion config

type noopMetrics struct{}

func (noopMetrics) FetchOutcome(bool) {}
func (noopMetrics) CompressTier(int)  {}
