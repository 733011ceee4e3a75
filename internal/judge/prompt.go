package judge

import (
	"fmt"
	"strings"

	"github.com/VamLeovr/rednote-mind-skills/internal/corpus"
)

// #region prompts

// SystemPrompt states the four evaluation criteria.
const SystemPrompt = `你是一个内容质量评估专家。你的任务是判断收集到的素材是否足够回答用户的问题。

评估标准：
1. 是否有足够多的参考来源（至少 5 篇以上不同角度的内容）
2. 内容是否覆盖用户问题的关键点
3. 是否有重复或低质量内容
4. 是否包含具体的推荐产品、价格、优缺点等实用信息

请基于以下标准给出判断。`

// UserPrompt embeds the question and the note digest and asks for the JSON verdict.
func UserPrompt(question, digest string) string {
	return fmt.Sprintf(`用户问题: %s

收集到的素材摘要:
%s

请判断这些素材是否足够回答用户的问题。

请以 JSON 格式返回判断结果，格式如下：
{
  "isSufficient": true/false,
  "reason": "判断理由（50字以内）",
  "missingAspects": ["缺少的方面1", "缺少的方面2"],
  "suggestions": ["建议1", "建议2"]
}`, question, digest)
}

// #endregion prompts

// #region context

// BuildContext renders the per-note digest sent to the LLM: title, engagement,
// recognized products and a truncated body.
func BuildContext(notes []corpus.Note, cfg Config) string {
	blocks := make([]string, 0, len(notes))
	for i, n := range notes {
		title := n.Title
		if title == "" {
			title = "无标题"
		}
		snippet := truncateRunes(n.Content, cfg.SnippetChars)
		products := ExtractProducts(snippet, cfg.ProductKeywords, cfg.MaxProducts)
		productLine := "未识别"
		if len(products) > 0 {
			productLine = strings.Join(products, ", ")
		}

		var b strings.Builder
		fmt.Fprintf(&b, "--- 笔记 %d: %s ---\n", i+1, title)
		fmt.Fprintf(&b, "热度: ❤️%d ⭐%d\n", n.Likes, n.Collects)
		fmt.Fprintf(&b, "产品: %s\n", productLine)
		fmt.Fprintf(&b, "内容: %s...\n", snippet)
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n")
}

// ExtractProducts returns up to limit keywords found in text, in keyword-list
// order, without duplicates.
func ExtractProducts(text string, keywords []string, limit int) []string {
	seen := make(map[string]bool)
	var found []string
	for _, kw := range keywords {
		if limit > 0 && len(found) >= limit {
			break
		}
		if kw == "" || seen[kw] {
			continue
		}
		if strings.Contains(text, kw) {
			seen[kw] = true
			found = append(found, kw)
		}
	}
	return found
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// #endregion context
