package conversation

import (
	"fmt"
	"strings"
)

// Report fallbacks and footers. The summarizer is pure formatting: it never
// calls the oracle, so a failed synthesis upstream still yields a complete,
// honest report here.
const (
	noAdviceFallback = "暂无额外建议"
	noAnswerFallback = "抱歉，暂时无法找到相关信息。"
	profileNote      = "\n📋 已参考你的健康档案"

	assessmentDisclaimer = "⚠️ 以上仅供参考，具体请咨询医生。"
	scienceDisclaimer    = "💡 以上信息仅供科普学习，具体请遵医嘱。"
)

var (
	heavyRule = strings.Repeat("═", 50)
	lightRule = strings.Repeat("─", 50)
)

const assessmentReportTemplate = `
%[1]s
📊 健康评估结果
%[1]s

%[2]s

%[3]s
💡 建议
%[3]s

%[4]s

%[5]s
`

const scienceReportTemplate = `
%[1]s
📖 回答
%[1]s

%[2]s

%[3]s
`

// renderReport formats the final user-facing answer. The assessment layout
// is used only when an assessment actually produced tool output; a metric
// question that computed nothing falls through to the plain answer layout.
func renderReport(turn *Turn) string {
	note := ""
	if turn.HealthProfile != "" {
		note = profileNote
	}

	if turn.Mode == ModeAssessment && turn.ToolOutput != "" {
		advice := turn.RagOutput
		if advice == "" {
			advice = noAdviceFallback
		}
		return fmt.Sprintf(assessmentReportTemplate,
			heavyRule, turn.ToolOutput, lightRule, advice+note, assessmentDisclaimer)
	}

	answer := turn.RagOutput
	if answer == "" {
		answer = noAnswerFallback
	}
	return fmt.Sprintf(scienceReportTemplate, heavyRule, answer+note, scienceDisclaimer)
}
