package conversation

import (
	"strings"
	"unicode"
)

// RouterConfig holds the keyword sets behind mode detection. The lists are
// plain configuration, not algorithm: deployments tune them without touching
// the router logic.
type RouterConfig struct {
	// ScienceMarkers force science mode outright. The structured interview
	// emits queries tagged this way so that a generated consultation request
	// never trips the metric calculator.
	ScienceMarkers []string
	// CalcKeywords signal an explicit calculation request.
	CalcKeywords []string
	// AssessmentKeywords name measurable health metrics.
	AssessmentKeywords []string
	// ScienceKeywords indicate an explanatory question. The score is logged
	// for visibility but does not influence the decision; science is already
	// the default.
	ScienceKeywords []string
}

// DefaultRouterConfig returns the stock keyword sets.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		ScienceMarkers: []string{"【咨询需求】", "不需要计算"},
		CalcKeywords:   []string{"计算", "算一下", "帮我算", "多少"},
		AssessmentKeywords: []string{
			"bmi", "体重指数", "体脂", "血压", "心率", "心跳",
			"卡路里", "热量", "基础代谢", "标准体重", "理想体重", "评估",
		},
		ScienceKeywords: []string{
			"什么是", "为什么", "怎么办", "如何", "原因",
			"症状", "预防", "治疗", "好处", "危害",
		},
	}
}

// DetectMode classifies one message. Assessment is chosen only when the user
// explicitly asks for a calculation and the message carries either a number
// or a metric keyword; everything else falls back to science. The asymmetry
// is deliberate: an ambiguous question must not trigger an unwanted tool run.
func (c RouterConfig) DetectMode(input string) Mode {
	for _, marker := range c.ScienceMarkers {
		if strings.Contains(input, marker) {
			return ModeScience
		}
	}

	lower := strings.ToLower(input)
	hasDigit := strings.ContainsFunc(input, unicode.IsDigit)
	calcRequest := countMatches(lower, c.CalcKeywords) > 0
	assessScore := countMatches(lower, c.AssessmentKeywords)

	if calcRequest && (hasDigit || assessScore > 0) {
		return ModeAssessment
	}
	return ModeScience
}

func countMatches(lower string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, kw) {
			n++
		}
	}
	return n
}
