package judge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/VamLeovr/rednote-mind-skills/internal/corpus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// #region mock

type mockLLM struct {
	resp   string
	err    error
	calls  int
	system string
	user   string
}

func (m *mockLLM) Complete(_ context.Context, system, user string) (string, error) {
	m.calls++
	m.system = system
	m.user = user
	return m.resp, m.err
}

func notesN(n int) []corpus.Note {
	notes := make([]corpus.Note, n)
	for i := range notes {
		notes[i] = corpus.Note{Title: fmt.Sprintf("note %d", i), Content: "内容"}
	}
	return notes
}

// #endregion mock

// #region parse-tests

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		sufficient bool
		reason     string
		missing    []string
		provenance corpus.Provenance
	}{
		{
			name:       "clean json",
			raw:        `{"isSufficient": true, "reason": "ok", "missingAspects": [], "suggestions": ["more"]}`,
			sufficient: true, reason: "ok", missing: []string{},
			provenance: corpus.ProvenanceLLM,
		},
		{
			name:       "prose wrapped",
			raw:        "Here is my answer:\n{\"isSufficient\": false, \"reason\": \"thin\", \"missingAspects\": [\"price\"]}\nHope that helps {smile}",
			sufficient: false, reason: "thin", missing: []string{"price"},
			provenance: corpus.ProvenanceLLM,
		},
		{
			name:       "fenced block",
			raw:        "```json\n{\"isSufficient\": true, \"reason\": \"fenced\"}\n```",
			sufficient: true, reason: "fenced", missing: []string{},
			provenance: corpus.ProvenanceLLM,
		},
		{
			name:       "trailing comma via json5",
			raw:        `{"isSufficient": true, "reason": "lenient", "missingAspects": ["a",],}`,
			sufficient: true, reason: "lenient", missing: []string{"a"},
			provenance: corpus.ProvenanceLLM,
		},
		{
			name:       "brace inside string",
			raw:        `{"isSufficient": false, "reason": "use {x} carefully"} trailing }`,
			sufficient: false, reason: "use {x} carefully", missing: []string{},
			provenance: corpus.ProvenanceLLM,
		},
		{
			name:       "string true is not sufficient",
			raw:        `{"isSufficient": "true"}`,
			sufficient: false, reason: "", missing: []string{},
			provenance: corpus.ProvenanceLLM,
		},
		{
			name:       "keyword marker",
			raw:        `Verdict: "isSufficient": true but I forgot the braces`,
			sufficient: true, reason: reasonKeywordFallback, missing: []string{},
			provenance: corpus.ProvenanceKeywordFallback,
		},
		{
			name:       "chinese keyword",
			raw:        "素材已经足够了",
			sufficient: true, reason: reasonKeywordFallback, missing: []string{},
			provenance: corpus.ProvenanceKeywordFallback,
		},
		{
			name:       "insufficient contains the marker",
			raw:        "The evidence is insufficient.",
			sufficient: true, reason: reasonKeywordFallback, missing: []string{},
			provenance: corpus.ProvenanceKeywordFallback,
		},
		{
			name:       "no markers",
			raw:        "I cannot decide.",
			sufficient: false, reason: reasonKeywordFallback, missing: []string{},
			provenance: corpus.ProvenanceKeywordFallback,
		},
		{
			name:       "unclosed brace falls back",
			raw:        `{"isSufficient": true, "reason": "cut off`,
			sufficient: true, reason: reasonKeywordFallback, missing: []string{},
			provenance: corpus.ProvenanceKeywordFallback,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ParseResponse(tt.raw)
			assert.Equal(t, tt.sufficient, v.IsSufficient)
			assert.Equal(t, tt.reason, v.Reason)
			assert.Equal(t, tt.missing, v.MissingAspects)
			assert.NotNil(t, v.Suggestions)
			assert.Equal(t, tt.provenance, v.Provenance)
			assert.Equal(t, tt.raw, v.RawResponse)
		})
	}
}

func TestFirstObject(t *testing.T) {
	assert.Equal(t, `{"a":{"b":1}}`, FirstObject(`x {"a":{"b":1}} y {"c":2}`))
	assert.Equal(t, `{"s":"}"}`, FirstObject(`{"s":"}"}`))
	assert.Equal(t, `{"ok":1}`, FirstObject(`{ unclosed {"ok":1}`))
	assert.Equal(t, "", FirstObject("no braces"))
}

// #endregion parse-tests

// #region context-tests

func TestBuildContext(t *testing.T) {
	long := "推荐绿联扩展坞和小米显示器" + strings.Repeat("好", 400) + "三星"
	notes := []corpus.Note{
		{Title: "", Content: long, Likes: 12, Collects: 3},
		{Title: "键盘", Content: "短", Likes: 1},
	}

	ctx := BuildContext(notes, DefaultConfig())

	assert.Contains(t, ctx, "--- 笔记 1: 无标题 ---")
	assert.Contains(t, ctx, "热度: ❤️12 ⭐3")
	assert.Contains(t, ctx, "产品: 扩展坞, 显示器, 绿联, 小米")
	assert.NotContains(t, ctx, "三星", "keyword beyond the snippet must not be found")
	assert.Contains(t, ctx, "--- 笔记 2: 键盘 ---")
	assert.Contains(t, ctx, "产品: 未识别")
}

func TestExtractProductsLimit(t *testing.T) {
	text := "扩展坞 硬盘 键盘 鼠标 显示器 屏幕 充电器"
	got := ExtractProducts(text, DefaultConfig().ProductKeywords, 5)
	assert.Len(t, got, 5)
	assert.Equal(t, "扩展坞", got[0])
}

// #endregion context-tests

// #region evaluate-tests

func TestEvaluateSingleCall(t *testing.T) {
	llm := &mockLLM{resp: `{"isSufficient": true, "reason": "covered"}`}
	j := New(llm, DefaultConfig(), nil)

	v, err := j.Evaluate(context.Background(), "哪个扩展坞好", notesN(3))

	require.NoError(t, err)
	assert.True(t, v.IsSufficient)
	assert.Equal(t, 1, llm.calls)
	assert.Equal(t, SystemPrompt, llm.system)
	assert.Contains(t, llm.user, "用户问题: 哪个扩展坞好")
	assert.Contains(t, llm.user, "--- 笔记 3: note 2 ---")
}

func TestEvaluateFallbackThreshold(t *testing.T) {
	tests := []struct {
		notes int
		want  bool
	}{
		{7, false},
		{8, true},
		{12, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d notes", tt.notes), func(t *testing.T) {
			j := New(&mockLLM{err: errors.New("connection refused")}, DefaultConfig(), nil)

			v, err := j.Evaluate(context.Background(), "q", notesN(tt.notes))

			require.NoError(t, err)
			assert.Equal(t, tt.want, v.IsSufficient)
			assert.Equal(t, reasonJudgeFailed, v.Reason)
			assert.Equal(t, corpus.ProvenanceFallback, v.Provenance)
		})
	}
}

// #endregion evaluate-tests
