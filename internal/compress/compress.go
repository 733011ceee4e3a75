package compress

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"log/slog"
	"math"

	"github.com/VamLeovr/rednote-mind-skills/internal/corpus"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// #region compressor

// EncodeFunc performs one encode attempt.
type EncodeFunc func(raw []byte, opts Options) (Result, error)

// Compressor fits images under a byte target by walking the degradation ladder.
type Compressor struct {
	encode EncodeFunc
	logger *slog.Logger
}

// New creates a Compressor using the built-in decoder and encoders.
func New(logger *slog.Logger) *Compressor {
	return NewWithEncoder(Encode, logger)
}

// NewWithEncoder creates a Compressor with an injected encode attempt.
// Used for testing ladder behavior without real images.
func NewWithEncoder(encode EncodeFunc, logger *slog.Logger) *Compressor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Compressor{encode: encode, logger: logger}
}

// #endregion compressor

// #region smart

// Smart compresses raw with base, then steps down the ladder until the result
// is at or under target. Each step overrides only quality and bounds, so the
// base format is kept. Steps equal to base are skipped. If no tier
// fits, the smallest attempt is returned. Any attempt failure returns the
// input bytes unchanged. Output is never larger than the input.
func (c *Compressor) Smart(raw []byte, target int, base Options) Result {
	if target <= 0 {
		target = DefaultTarget
	}

	tiers := make([]Options, 0, len(Ladder)+1)
	tiers = append(tiers, base)
	for _, step := range Ladder {
		opts := base
		opts.Quality, opts.MaxWidth, opts.MaxHeight = step.Quality, step.MaxWidth, step.MaxHeight
		if opts != base {
			tiers = append(tiers, opts)
		}
	}

	var best *Result
	for i, opts := range tiers {
		r, err := c.encode(raw, opts)
		if err != nil {
			c.logger.Warn("compress: attempt failed, keeping original", "tier", i+1, "error", err)
			return Passthrough(raw)
		}
		r.Tier = i + 1
		c.logger.Debug("compress: attempt",
			"tier", r.Tier, "quality", opts.Quality, "max", opts.MaxWidth,
			"original", r.OriginalSize, "compressed", r.CompressedSize)

		if best == nil || r.CompressedSize < best.CompressedSize {
			rr := r
			best = &rr
		}
		if r.CompressedSize <= target {
			break
		}
	}

	if best.CompressedSize > len(raw) {
		out := Passthrough(raw)
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(raw)); err == nil {
			out.Width, out.Height = cfg.Width, cfg.Height
		}
		return out
	}
	if best.CompressedSize > target {
		c.logger.Info("compress: ladder exhausted above target",
			"target", target, "size", best.CompressedSize)
	}
	return *best
}

// Passthrough returns raw unmodified with zeroed compression metadata.
func Passthrough(raw []byte) Result {
	return Result{
		Data:           raw,
		OriginalSize:   len(raw),
		CompressedSize: len(raw),
		Format:         corpus.FormatOriginal,
	}
}

// #endregion smart

// #region encode

// Encode decodes raw (jpeg, png, gif or webp), shrinks it to fit inside
// MaxWidth x MaxHeight without enlarging, and re-encodes it.
func Encode(raw []byte, opts Options) (Result, error) {
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return Result{}, fmt.Errorf("decode: %w", err)
	}

	b := src.Bounds()
	w, h := FitInside(b.Dx(), b.Dy(), opts.MaxWidth, opts.MaxHeight)

	var img image.Image = src
	if w != b.Dx() || h != b.Dy() {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	mime := "image/jpeg"
	switch opts.Format {
	case "png":
		mime = "image/png"
		err = png.Encode(&buf, img)
	case "", "jpeg", "jpg":
		quality := opts.Quality
		if quality <= 0 || quality > 100 {
			quality = DefaultOptions().Quality
		}
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality})
	default:
		return Result{}, fmt.Errorf("unsupported format %q", opts.Format)
	}
	if err != nil {
		return Result{}, fmt.Errorf("encode %s: %w", mime, err)
	}

	return Result{
		Data:           buf.Bytes(),
		OriginalSize:   len(raw),
		CompressedSize: buf.Len(),
		Ratio:          Ratio(len(raw), buf.Len()),
		Width:          w,
		Height:         h,
		Format:         mime,
	}, nil
}

// FitInside scales w x h to fit the bounds, preserving aspect ratio.
// Images already inside the bounds are returned unchanged.
func FitInside(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 {
		return w, h
	}
	scale := 1.0
	if maxW > 0 && w > maxW {
		scale = math.Min(scale, float64(maxW)/float64(w))
	}
	if maxH > 0 && h > maxH {
		scale = math.Min(scale, float64(maxH)/float64(h))
	}
	if scale >= 1 {
		return w, h
	}
	nw := int(math.Round(float64(w) * scale))
	nh := int(math.Round(float64(h) * scale))
	return max(nw, 1), max(nh, 1)
}

// Ratio returns the percentage saved, rounded to 2 decimals.
func Ratio(original, compressed int) float64 {
	if original <= 0 {
		return 0
	}
	return math.Round((1-float64(compressed)/float64(original))*10000) / 100
}

// #endregion encode

// #region asset

// Asset converts a result into the image record attached to a note.
func (r Result) Asset(source string, rawSize int) corpus.ImageAsset {
	return corpus.ImageAsset{
		Source:           source,
		RawSize:          rawSize,
		Data:             r.Data,
		CompressedSize:   r.CompressedSize,
		OriginalSize:     r.OriginalSize,
		CompressionRatio: r.Ratio,
		Width:            r.Width,
		Height:           r.Height,
		Format:           r.Format,
	}
}

// #endregion asset
