package websearch

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// #region types

// Sort modes accepted by the search page.
const (
	SortGeneral = "general"
	SortPopular = "popular"
	SortLatest  = "latest"
)

// Result holds a single search hit.
type Result struct {
	NoteID string `json:"note_id"`
	URL    string `json:"url"` // full note URL including its access token
	Title  string `json:"title"`
	Author string `json:"author"`
	Likes  int    `json:"likes"`
	Cover  string `json:"cover,omitempty"`
}

// Provider searches for notes by keyword. Implementations apply Relax before
// returning so callers get at most limit results ordered by engagement.
type Provider interface {
	Search(ctx context.Context, keyword string, limit int, sortMode string, minLikes int) ([]Result, error)
}

// Config holds search parameters.
type Config struct {
	SortMode     string        `yaml:"sort_mode" json:"sort_mode"`
	MinLikes     int           `yaml:"min_likes" json:"min_likes"`
	ScrollRounds int           `yaml:"scroll_rounds" json:"scroll_rounds"` // extra scrolls to load more cards
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`
}

// #endregion types

// #region config

// DefaultConfig returns default search configuration.
// Reads from env vars: REDNOTE_SEARCH_SORT, REDNOTE_SEARCH_MIN_LIKES,
// REDNOTE_SEARCH_SCROLLS, REDNOTE_SEARCH_TIMEOUT.
func DefaultConfig() Config {
	cfg := Config{
		SortMode:     SortPopular,
		MinLikes:     20,
		ScrollRounds: 3,
		Timeout:      30 * time.Second,
	}
	if v := os.Getenv("REDNOTE_SEARCH_SORT"); v != "" {
		cfg.SortMode = v
	}
	if v := os.Getenv("REDNOTE_SEARCH_MIN_LIKES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.MinLikes = n
		}
	}
	if v := os.Getenv("REDNOTE_SEARCH_SCROLLS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.ScrollRounds = n
		}
	}
	if v := os.Getenv("REDNOTE_SEARCH_TIMEOUT"); v != "" {
		if sec, err := strconv.Atoi(v); err == nil && sec > 0 {
			cfg.Timeout = time.Duration(sec) * time.Second
		}
	}
	return cfg
}

// ValidSortMode reports whether mode is one of the accepted sort modes.
func ValidSortMode(mode string) bool {
	switch mode {
	case SortGeneral, SortPopular, SortLatest:
		return true
	}
	return false
}

// #endregion config

// #region relax

// Relax drops hits without a URL or note id, applies the engagement floor,
// sorts by likes descending and truncates to limit. When the floor leaves
// fewer than min(limit/2, 3) hits, the floor is abandoned and all valid hits
// are used. The second return reports whether that happened.
func Relax(items []Result, limit, minLikes int) ([]Result, bool) {
	valid := make([]Result, 0, len(items))
	for _, it := range items {
		if it.URL != "" && it.NoteID != "" {
			valid = append(valid, it)
		}
	}

	results := valid
	relaxed := false
	if minLikes > 0 {
		filtered := make([]Result, 0, len(valid))
		for _, it := range valid {
			if it.Likes >= minLikes {
				filtered = append(filtered, it)
			}
		}
		if float64(len(filtered)) < math.Min(float64(limit)/2, 3) {
			relaxed = true
		} else {
			results = filtered
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Likes > results[j].Likes
	})
	if limit >= 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, relaxed
}

// URLs extracts the note URLs in order.
func URLs(results []Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.URL
	}
	return out
}

// #endregion relax

// #region format

// FormatAsEvidence renders search hits as a plain numbered listing.
func FormatAsEvidence(results []Result) string {
	if len(results) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("[Search Results]\n")
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n", i+1, r.Title)
		if r.Author != "" || r.Likes > 0 {
			fmt.Fprintf(&b, "   %s ❤️%d\n", r.Author, r.Likes)
		}
		if r.URL != "" {
			fmt.Fprintf(&b, "   Source: %s\n", r.URL)
		}
	}
	return b.String()
}

// #endregion format
