package gate

import "github.com/VamLeovr/rednote-mind-skills/internal/corpus"

// #region shortfall-type
// ShortfallType enumerates the heuristic checks a batch can fail.
type ShortfallType string

const (
	ShortfallNoteCount  ShortfallType = "note_count"
	ShortfallTextLength ShortfallType = "text_length"
	ShortfallImageRatio ShortfallType = "image_ratio"
)

// #endregion shortfall-type

// #region shortfall
// Shortfall is one failed check.
type Shortfall struct {
	Type   ShortfallType
	Reason string
}

// #endregion shortfall

// #region gate-config
// GateConfig holds the fast sufficiency thresholds.
type GateConfig struct {
	MinNotes      int     `yaml:"min_notes" json:"min_notes"`
	MinTextLength int     `yaml:"min_text_length" json:"min_text_length"` // code points across all notes
	MinImageRatio float64 `yaml:"min_image_ratio" json:"min_image_ratio"` // notes with >=1 image / all notes
}

// DefaultGateConfig returns 5 notes, 1000 characters, half the notes illustrated.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		MinNotes:      5,
		MinTextLength: 1000,
		MinImageRatio: 0.5,
	}
}

// #endregion gate-config

// #region gate-decision
// GateDecision is the output of the fast gate.
type GateDecision struct {
	Action     string // "pass" | "fail"
	Reason     string
	Shortfalls []Shortfall // in check order; the first one sets Reason
	NoteCount  int
	TextLength int
	ImageRatio float64
}

// Passed reports whether every check held.
func (d GateDecision) Passed() bool {
	return d.Action == "pass"
}

// Verdict converts the decision into a sufficiency verdict.
func (d GateDecision) Verdict() corpus.Verdict {
	v := corpus.Verdict{
		IsSufficient:   d.Passed(),
		Reason:         d.Reason,
		MissingAspects: []string{},
		Suggestions:    []string{},
		Provenance:     corpus.ProvenanceFastGate,
	}
	for _, s := range d.Shortfalls {
		v.MissingAspects = append(v.MissingAspects, string(s.Type))
	}
	return v
}

// #endregion gate-decision
