package corpus

import (
	"time"
	"unicode/utf8"
)

// #region note

// Author identifies the account that published a note.
type Author struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// Note is one fetched social post. Fields are fixed once the fetch returns;
// only ImageAsset.LocalPath is filled in later by the persistence pass.
type Note struct {
	URL            string       `json:"url"`
	NoteID         string       `json:"note_id"`
	Title          string       `json:"title"`
	Content        string       `json:"content"`
	Author         Author       `json:"author"`
	Tags           []string     `json:"tags,omitempty"`
	Likes          int          `json:"likes"`
	Collects       int          `json:"collects"`
	Comments       int          `json:"comments"`
	Images         []ImageAsset `json:"images,omitempty"`
	PublishTime    *time.Time   `json:"publish_time,omitempty"`
	PublishTimeRaw string       `json:"publish_time_raw,omitempty"`
}

// TextLength returns the length of the note body in code points.
func (n Note) TextLength() int {
	return utf8.RuneCountInString(n.Content)
}

// #endregion note

// #region image

// FormatOriginal tags an asset whose bytes were passed through unmodified.
const FormatOriginal = "original"

// ImageAsset is one image attached to a note. Data holds the payload after
// compression; RawSize is the size as downloaded.
type ImageAsset struct {
	Source           string  `json:"source"`
	RawSize          int     `json:"raw_size"`
	Data             []byte  `json:"-"`
	CompressedSize   int     `json:"compressed_size"`
	OriginalSize     int     `json:"original_size"`
	CompressionRatio float64 `json:"compression_ratio"`
	Width            int     `json:"width"`
	Height           int     `json:"height"`
	Format           string  `json:"format"`
	LocalPath        string  `json:"local_path,omitempty"`
}

// #endregion image

// #region batch

// FetchError records one URL that could not be acquired.
type FetchError struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// BatchResult is the outcome of one batch acquisition. SuccessCount+FailedCount
// always equals the number of URLs submitted.
type BatchResult struct {
	SuccessCount int          `json:"success_count"`
	FailedCount  int          `json:"failed_count"`
	Notes        []Note       `json:"notes"`
	Errors       []FetchError `json:"errors,omitempty"`
}

// AddNote appends a successful fetch.
func (b *BatchResult) AddNote(n Note) {
	b.Notes = append(b.Notes, n)
	b.SuccessCount++
}

// AddError appends a failed fetch.
func (b *BatchResult) AddError(url, reason string) {
	b.Errors = append(b.Errors, FetchError{URL: url, Reason: reason})
	b.FailedCount++
}

// Total returns the number of URLs accounted for.
func (b *BatchResult) Total() int {
	return b.SuccessCount + b.FailedCount
}

// #endregion batch

// #region verdict

// Provenance names the path that produced a verdict.
type Provenance string

const (
	ProvenanceFastGate        Provenance = "fast_gate"
	ProvenanceLLM             Provenance = "llm"
	ProvenanceKeywordFallback Provenance = "llm_keyword_fallback"
	ProvenanceFallback        Provenance = "fallback_heuristic"
)

// Verdict is the answer of a sufficiency gate.
type Verdict struct {
	IsSufficient   bool       `json:"is_sufficient"`
	Reason         string     `json:"reason"`
	MissingAspects []string   `json:"missing_aspects"`
	Suggestions    []string   `json:"suggestions"`
	Provenance     Provenance `json:"provenance"`
	RawResponse    string     `json:"raw_response,omitempty"`
}

// #endregion verdict
