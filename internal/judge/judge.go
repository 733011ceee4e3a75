package judge

import (
	"context"
	"log/slog"

	"github.com/VamLeovr/rednote-mind-skills/internal/corpus"
)

// #region judge

// Judge asks an LLM whether a batch of notes can answer a question.
type Judge struct {
	llm    LLM
	config Config
	logger *slog.Logger
}

// New creates a judge backed by llm.
func New(llm LLM, config Config, logger *slog.Logger) *Judge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Judge{llm: llm, config: config, logger: logger}
}

// Evaluate makes exactly one LLM call. Transport failures produce a
// threshold verdict instead of an error, so the returned error is always nil;
// it is kept so callers can treat the judge like any other collaborator.
func (j *Judge) Evaluate(ctx context.Context, question string, notes []corpus.Note) (corpus.Verdict, error) {
	j.logger.Debug("judge: evaluating", "question", question, "notes", len(notes))

	digest := BuildContext(notes, j.config)
	raw, err := j.llm.Complete(ctx, SystemPrompt, UserPrompt(question, digest))
	if err != nil {
		j.logger.Error("judge: llm call failed", "error", err)
		return j.fallback(notes), nil
	}

	v := ParseResponse(raw)
	j.logger.Info("judge: verdict",
		"sufficient", v.IsSufficient,
		"reason", v.Reason,
		"provenance", v.Provenance,
		"missing", v.MissingAspects)
	return v, nil
}

func (j *Judge) fallback(notes []corpus.Note) corpus.Verdict {
	return corpus.Verdict{
		IsSufficient:   len(notes) >= j.config.FallbackMinNotes,
		Reason:         reasonJudgeFailed,
		MissingAspects: []string{"unable to judge"},
		Suggestions:    []string{"add more reference notes"},
		Provenance:     corpus.ProvenanceFallback,
	}
}

// #endregion judge
