package gate

import (
	"fmt"

	"github.com/VamLeovr/rednote-mind-skills/internal/corpus"
)

// #region gate
// Gate is the cheap deterministic pre-filter run before the semantic judge.
type Gate struct {
	config GateConfig
}

// NewGate creates a gate with the given configuration.
func NewGate(config GateConfig) *Gate {
	return &Gate{config: config}
}

// Evaluate checks note count, combined text length, and image coverage.
// All three must hold. The same notes always yield the same decision.
func (g *Gate) Evaluate(notes []corpus.Note) GateDecision {
	var shortfalls []Shortfall

	count := len(notes)
	textLen := corpus.TotalTextLength(notes)
	ratio := imageRatio(notes)

	// 1. Enough notes
	if count < g.config.MinNotes {
		shortfalls = append(shortfalls, Shortfall{
			Type:   ShortfallNoteCount,
			Reason: fmt.Sprintf("insufficient notes (%d/%d)", count, g.config.MinNotes),
		})
	}

	// 2. Enough text
	if textLen < g.config.MinTextLength {
		shortfalls = append(shortfalls, Shortfall{
			Type:   ShortfallTextLength,
			Reason: fmt.Sprintf("insufficient total text (%d/%d)", textLen, g.config.MinTextLength),
		})
	}

	// 3. Enough illustrated notes
	if ratio < g.config.MinImageRatio {
		shortfalls = append(shortfalls, Shortfall{
			Type:   ShortfallImageRatio,
			Reason: fmt.Sprintf("insufficient image evidence (%.2f/%.2f)", ratio, g.config.MinImageRatio),
		})
	}

	if len(shortfalls) > 0 {
		return GateDecision{
			Action:     "fail",
			Reason:     shortfalls[0].Reason,
			Shortfalls: shortfalls,
			NoteCount:  count,
			TextLength: textLen,
			ImageRatio: ratio,
		}
	}

	return GateDecision{
		Action:     "pass",
		Reason:     fmt.Sprintf("passed fast check: notes=%d text=%d image_ratio=%.2f", count, textLen, ratio),
		NoteCount:  count,
		TextLength: textLen,
		ImageRatio: ratio,
	}
}

// #endregion gate

// #region helpers
// imageRatio is the share of notes with at least one image; 0 for no notes.
func imageRatio(notes []corpus.Note) float64 {
	if len(notes) == 0 {
		return 0
	}
	return float64(corpus.CountWithImages(notes)) / float64(len(notes))
}

// #endregion helpers
