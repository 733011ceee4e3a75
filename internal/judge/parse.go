package judge

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/VamLeovr/rednote-mind-skills/internal/corpus"
	"github.com/titanous/json5"
)

// #region patterns

var (
	codeBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	greedyPattern    = regexp.MustCompile(`(?s)\{.*\}`)
)

// keywordMarkers are checked in order against the raw text; any hit means sufficient.
// "sufficient" and "足够" are matched case-insensitively as plain substrings.
var keywordMarkers = []string{`"issufficient": true`, `"issufficient":true`, "sufficient", "足够"}

// #endregion patterns

// #region parse

// ParseResponse turns free-form LLM output into a verdict. It first looks for
// a JSON object (fenced block, first balanced span, then first-to-last brace)
// and decodes it strictly, then leniently. If no object decodes, the raw text
// is scanned for sufficiency markers. It never fails.
func ParseResponse(raw string) corpus.Verdict {
	for _, candidate := range jsonCandidates(raw) {
		fields, err := decodeObject(candidate)
		if err != nil {
			continue
		}
		v := coerce(fields)
		v.Provenance = corpus.ProvenanceLLM
		v.RawResponse = raw
		return v
	}

	return corpus.Verdict{
		IsSufficient:   keywordSufficient(raw),
		Reason:         reasonKeywordFallback,
		MissingAspects: []string{},
		Suggestions:    []string{},
		Provenance:     corpus.ProvenanceKeywordFallback,
		RawResponse:    raw,
	}
}

// jsonCandidates lists object spans to try, most specific first.
func jsonCandidates(raw string) []string {
	var out []string
	add := func(s string) {
		if s == "" {
			return
		}
		for _, existing := range out {
			if existing == s {
				return
			}
		}
		out = append(out, s)
	}
	if m := codeBlockPattern.FindStringSubmatch(raw); len(m) > 1 {
		add(m[1])
	}
	add(FirstObject(raw))
	add(greedyPattern.FindString(raw))
	return out
}

// FirstObject returns the first balanced {...} span, ignoring braces inside
// string literals. It returns "" when no opening brace is closed.
func FirstObject(s string) string {
	start := strings.IndexByte(s, '{')
	for start >= 0 {
		depth := 0
		inString := false
		var quote byte
		escaped := false
		for i := start; i < len(s); i++ {
			c := s[i]
			if inString {
				switch {
				case escaped:
					escaped = false
				case c == '\\':
					escaped = true
				case c == quote:
					inString = false
				}
				continue
			}
			switch c {
			case '"', '\'':
				inString = true
				quote = c
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			return ""
		}
		start += next + 1
	}
	return ""
}

// decodeObject tries strict JSON first, then JSON5 for trailing commas,
// comments and single-quoted strings.
func decodeObject(candidate string) (map[string]interface{}, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(candidate), &fields); err == nil && fields != nil {
		return fields, nil
	}
	fields = nil
	if err := json5.Unmarshal([]byte(candidate), &fields); err != nil {
		return nil, fmt.Errorf("decode verdict object: %w", err)
	}
	if fields == nil {
		return nil, fmt.Errorf("decode verdict object: not an object")
	}
	return fields, nil
}

// coerce maps decoded fields onto a verdict. Only a literal boolean true
// counts as sufficient; absent lists become empty.
func coerce(fields map[string]interface{}) corpus.Verdict {
	v := corpus.Verdict{
		MissingAspects: stringList(fields["missingAspects"]),
		Suggestions:    stringList(fields["suggestions"]),
	}
	if b, ok := fields["isSufficient"].(bool); ok {
		v.IsSufficient = b
	}
	if s, ok := fields["reason"].(string); ok {
		v.Reason = s
	}
	return v
}

func stringList(raw interface{}) []string {
	out := []string{}
	items, ok := raw.([]interface{})
	if !ok {
		return out
	}
	for _, item := range items {
		switch t := item.(type) {
		case string:
			out = append(out, t)
		case nil:
		default:
			out = append(out, fmt.Sprint(t))
		}
	}
	return out
}

func keywordSufficient(raw string) bool {
	lower := strings.ToLower(raw)
	for _, marker := range keywordMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// #endregion parse
