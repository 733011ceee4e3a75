package compress

// #region types

// DefaultTarget is the payload ceiling a compressed image should fit under.
const DefaultTarget = 500 * 1024

// Options control a single encode attempt.
type Options struct {
	Quality   int    `yaml:"quality" json:"quality"`
	MaxWidth  int    `yaml:"max_width" json:"max_width"`
	MaxHeight int    `yaml:"max_height" json:"max_height"`
	Format    string `yaml:"format" json:"format"` // "jpeg" | "png"
}

// DefaultOptions returns the first-tier settings: quality 65, bounded to 1600x1600, JPEG.
func DefaultOptions() Options {
	return Options{Quality: 65, MaxWidth: 1600, MaxHeight: 1600, Format: "jpeg"}
}

// Ladder is the fixed degradation sequence tried after the base options.
// Only quality and bounds are taken from a step; the format comes from base.
var Ladder = []Options{
	{Quality: 65, MaxWidth: 1600, MaxHeight: 1600},
	{Quality: 60, MaxWidth: 1280, MaxHeight: 1280},
	{Quality: 55, MaxWidth: 960, MaxHeight: 960},
}

// Result is the outcome of compressing one image.
type Result struct {
	Data           []byte
	OriginalSize   int
	CompressedSize int
	Ratio          float64 // percent saved, 2 decimals
	Width          int
	Height         int
	Format         string // mime type, or "original" when passed through
	Tier           int    // 1-based ladder position; 0 when passed through
}

// #endregion types
