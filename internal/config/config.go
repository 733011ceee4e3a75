// Package config assembles the collector settings from defaults, an optional
// YAML file with a .local override, and REDNOTE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/VamLeovr/rednote-mind-skills/internal/batch"
	"github.com/VamLeovr/rednote-mind-skills/internal/browser"
	"github.com/VamLeovr/rednote-mind-skills/internal/gate"
	"github.com/VamLeovr/rednote-mind-skills/internal/judge"
	"github.com/VamLeovr/rednote-mind-skills/internal/llm"
	"github.com/VamLeovr/rednote-mind-skills/internal/orchestrator"
	"github.com/VamLeovr/rednote-mind-skills/internal/websearch"
	"github.com/VamLeovr/rednote-mind-skills/internal/xhs"
)

// ErrInvalid marks a configuration that fails Validate.
var ErrInvalid = errors.New("invalid config")

// #region types

// LLM backends.
const (
	BackendHTTP = "http"
	BackendGRPC = "grpc"
)

// Config is the full collector configuration.
type Config struct {
	DBPath    string              `yaml:"db_path" json:"db_path"`
	Retrieval orchestrator.Config `yaml:"retrieval" json:"retrieval"`
	Gate      gate.GateConfig     `yaml:"gate" json:"gate"`
	Judge     judge.Config        `yaml:"judge" json:"judge"`
	Batch     batch.Config        `yaml:"batch" json:"batch"`
	LLM       LLMConfig           `yaml:"llm" json:"llm"`
	Browser   browser.Config      `yaml:"browser" json:"browser"`
	Site      xhs.Config          `yaml:"site" json:"site"`
	Storage   StorageConfig       `yaml:"storage" json:"storage"`
	Output    OutputConfig        `yaml:"output" json:"output"`
	Log       LogConfig           `yaml:"log" json:"log"`
}

// LLMConfig selects the judge backend.
type LLMConfig struct {
	Backend   string     `yaml:"backend" json:"backend"` // http | grpc
	HTTP      llm.Config `yaml:"http" json:"http"`
	CodecAddr string     `yaml:"codec_addr" json:"codec_addr"`
}

// StorageConfig controls where images land.
type StorageConfig struct {
	ImageDir string `yaml:"image_dir" json:"image_dir"` // empty = do not persist images
}

// OutputConfig controls run artifacts.
type OutputConfig struct {
	Dir         string `yaml:"dir" json:"dir"`
	MetricsFile string `yaml:"metrics_file" json:"metrics_file"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`   // debug | info | warn | error
	Format string `yaml:"format" json:"format"` // text | json
}

// #endregion types

// #region defaults

// Default returns the stock configuration. Search defaults follow
// websearch.DefaultConfig, which reads the REDNOTE_SEARCH_* variables.
func Default() Config {
	ws := websearch.DefaultConfig()

	retrieval := orchestrator.DefaultConfig()
	retrieval.SortMode = ws.SortMode
	retrieval.MinLikes = ws.MinLikes

	site := xhs.DefaultConfig()
	site.SearchScrolls = ws.ScrollRounds

	return Config{
		DBPath:    "rednote.db",
		Retrieval: retrieval,
		Gate:      gate.DefaultGateConfig(),
		Judge:     judge.DefaultConfig(),
		Batch:     batch.DefaultConfig(),
		LLM: LLMConfig{
			Backend:   BackendHTTP,
			HTTP:      llm.DefaultConfig(),
			CodecAddr: "localhost:50051",
		},
		Browser: browser.Config{
			Headless:   true,
			HomeURL:    "https://www.xiaohongshu.com",
			NavTimeout: ws.Timeout,
		},
		Site:    site,
		Storage: StorageConfig{ImageDir: "output"},
		Output:  OutputConfig{Dir: "output"},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

// #endregion defaults

// #region load

// Load builds the configuration. path may be empty. When path is given,
// a sibling <name>.local.<ext> file is merged over it if present; only its
// non-zero fields override. Environment variables apply last.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}

		local := LocalPath(path)
		if data, err := os.ReadFile(local); err == nil {
			var override Config
			if err := yaml.Unmarshal(data, &override); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", local, err)
			}
			if err := mergo.Merge(&cfg, override, mergo.WithOverride); err != nil {
				return cfg, fmt.Errorf("merge %s: %w", local, err)
			}
			slog.Info("config: merged local overrides", "local", local)
		} else if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("read config %s: %w", local, err)
		}
	}

	applyEnv(&cfg)
	return cfg, cfg.Validate()
}

// LocalPath returns the override file name for path: a.yaml -> a.local.yaml.
func LocalPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".local" + ext
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("REDNOTE_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("REDNOTE_LLM_BACKEND"); v != "" {
		cfg.LLM.Backend = v
	}
	if v := os.Getenv("REDNOTE_LLM_ENDPOINT"); v != "" {
		cfg.LLM.HTTP.BaseURL = v
	}
	if v := os.Getenv("REDNOTE_LLM_MODEL"); v != "" {
		cfg.LLM.HTTP.Model = v
	}
	if v := os.Getenv("REDNOTE_LLM_API_KEY"); v != "" {
		cfg.LLM.HTTP.APIKey = v
	} else if v := os.Getenv("OPENAI_API_KEY"); v != "" && cfg.LLM.HTTP.APIKey == "" {
		cfg.LLM.HTTP.APIKey = v
	}
	if v := os.Getenv("REDNOTE_CODEC_ADDR"); v != "" {
		cfg.LLM.CodecAddr = v
	}
	if v := os.Getenv("REDNOTE_IMAGE_DIR"); v != "" {
		cfg.Storage.ImageDir = v
	}
	if v := os.Getenv("REDNOTE_COOKIES"); v != "" {
		cfg.Browser.CookiesPath = v
	}
	if v := os.Getenv("REDNOTE_CHROME_URL"); v != "" {
		cfg.Browser.RemoteURL = v
	}
	if v := os.Getenv("REDNOTE_HEADLESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Browser.Headless = b
		}
	}
	if v := os.Getenv("REDNOTE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// #endregion load

// #region validate

// Validate rejects settings the components cannot run with.
func (c Config) Validate() error {
	if err := c.Retrieval.Policy().Validate(); err != nil {
		return fmt.Errorf("%w: retrieval: %v", ErrInvalid, err)
	}
	if !websearch.ValidSortMode(c.Retrieval.SortMode) {
		return fmt.Errorf("%w: retrieval.sort_mode %q", ErrInvalid, c.Retrieval.SortMode)
	}
	if c.Retrieval.MinLikes < 0 {
		return fmt.Errorf("%w: retrieval.min_likes must be >= 0", ErrInvalid)
	}
	if c.Gate.MinNotes < 0 || c.Gate.MinTextLength < 0 || c.Gate.MinImageRatio < 0 || c.Gate.MinImageRatio > 1 {
		return fmt.Errorf("%w: gate thresholds out of range", ErrInvalid)
	}
	if c.Batch.CompressTarget <= 0 {
		return fmt.Errorf("%w: batch.compress_target must be > 0", ErrInvalid)
	}
	if q := c.Batch.CompressOptions.Quality; q < 1 || q > 100 {
		return fmt.Errorf("%w: batch.compress_options.quality %d", ErrInvalid, q)
	}
	if c.Batch.PacingMin < 0 || c.Batch.PacingMax < c.Batch.PacingMin {
		return fmt.Errorf("%w: batch pacing range %v..%v", ErrInvalid, c.Batch.PacingMin, c.Batch.PacingMax)
	}
	switch c.LLM.Backend {
	case BackendHTTP:
		if c.LLM.HTTP.BaseURL == "" {
			return fmt.Errorf("%w: llm.http.base_url is required", ErrInvalid)
		}
	case BackendGRPC:
		if c.LLM.CodecAddr == "" {
			return fmt.Errorf("%w: llm.codec_addr is required for grpc", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: llm.backend %q", ErrInvalid, c.LLM.Backend)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// #endregion validate

// #region logger

// NewLogger builds the process logger for c.
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return l, fmt.Errorf("log.level %q", s)
	}
	return l, nil
}

// #endregion logger
