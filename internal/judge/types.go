package judge

import "context"

// #region llm

// LLM completes a single system+user prompt pair.
type LLM interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// #endregion llm

// #region config

// Config holds judge tuning.
type Config struct {
	FallbackMinNotes int      `yaml:"fallback_min_notes" json:"fallback_min_notes"` // verdict threshold when the LLM is unreachable
	SnippetChars     int      `yaml:"snippet_chars" json:"snippet_chars"`           // per-note body truncation, code points
	MaxProducts      int      `yaml:"max_products" json:"max_products"`
	ProductKeywords  []string `yaml:"product_keywords" json:"product_keywords"`
}

// DefaultConfig returns the stock judge settings.
func DefaultConfig() Config {
	return Config{
		FallbackMinNotes: 8,
		SnippetChars:     300,
		MaxProducts:      5,
		ProductKeywords:  append([]string(nil), defaultProductKeywords...),
	}
}

var defaultProductKeywords = []string{
	"扩展坞", "硬盘", "固态硬盘", "键盘", "鼠标", "显示器", "屏幕",
	"充电器", "网线", "数据线", "收纳包", "底座", "支架", "手柄",
	"SD卡", "U盘", "贴膜", "散热", "Hub", "Dock", "贝尔金", "绿联",
	"阿卡西斯", "妙控", "触摸板", "小米", "三星", "西部数据",
}

// #endregion config

// #region reasons

const (
	reasonKeywordFallback = "parsed via keyword fallback"
	reasonJudgeFailed     = "judge failed, default threshold used"
)

// #endregion reasons
