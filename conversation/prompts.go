package conversation

import (
	"fmt"
	"strings"

	"github.com/sweetpotato0/health-agent/pkg/logging"
	"github.com/sweetpotato0/health-agent/prompt"
	"github.com/sweetpotato0/health-agent/retrieval"
)

// gradeDocLimit caps how many documents the grader sees. Grading is a cheap
// binary check; two snippets are enough signal and keep the prompt small.
const gradeDocLimit = 2

const gradePromptTemplate = `评估文档是否与问题相关。
文档：%s
问题：%s
只回答：yes 或 no`

func gradePrompt(question string, docs []retrieval.Document) string {
	sample := docs
	if len(sample) > gradeDocLimit {
		sample = sample[:gradeDocLimit]
	}
	return fmt.Sprintf(gradePromptTemplate, strings.Join(retrieval.Contents(sample), "\n"), question)
}

func rewritePrompt(question string) string {
	return fmt.Sprintf("原问题检索失败，请重写一个更好的医学搜索词。原问题：%s\n只输出新的查询词。", question)
}

// Source tags cited by the synthesis prompts.
const (
	sourceTagWeb       = "(来源: 互联网)"
	sourceTagKnowledge = "(来源: 医学知识库)"
)

// Synthesis template names in the shared prompt manager.
const (
	assessmentSynthesisName = "synthesis_assessment"
	scienceSynthesisName    = "synthesis_science"
)

const assessmentSynthesisTemplate = `
你是专业的健康顾问。根据计算结果和医学知识，给出个性化建议。

{{.Memory}}【评估结果】
{{.ToolOutput}}

【参考资料】{{.SourceTag}}
{{.Context}}

【问题】{{.Question}}

请给出：1. 结果解读 2. 健康建议 3. 注意事项（特别注意过敏史和疾病史）
语气专业但亲切。
`

const scienceSynthesisTemplate = `
你是医学科普专家。用通俗易懂的语言回答。

{{.Memory}}【参考资料】{{.SourceTag}}
{{.Context}}

【问题】{{.Question}}

要求：先简要回答，再展开解释，最后给出实用建议。
`

// synthesisPrompts holds the answer-generation templates. Registered once at
// init; content is fixed so registration cannot fail.
var synthesisPrompts = prompt.NewManager()

func init() {
	mustRegister(assessmentSynthesisName, assessmentSynthesisTemplate)
	mustRegister(scienceSynthesisName, scienceSynthesisTemplate)
}

func mustRegister(name, content string) {
	if err := synthesisPrompts.RegisterString(name, content); err != nil {
		panic(err)
	}
}

// synthesisPrompt builds the answer-generation prompt from the budgeted
// document context. The profile block is prepended only when the user has
// one on file.
func synthesisPrompt(turn *Turn, context string) string {
	vars := map[string]interface{}{
		"Context":   context,
		"Question":  turn.Question,
		"SourceTag": sourceTagKnowledge,
		"Memory":    "",
	}
	if turn.UsedWebSearch {
		vars["SourceTag"] = sourceTagWeb
	}
	if turn.HealthProfile != "" {
		vars["Memory"] = fmt.Sprintf("【用户健康档案】\n%s\n---\n", turn.HealthProfile)
	}

	name := scienceSynthesisName
	if turn.Mode == ModeAssessment {
		vars["ToolOutput"] = turn.ToolOutput
		name = assessmentSynthesisName
	}

	rendered, err := synthesisPrompts.Render(name, vars)
	if err != nil {
		// Fixed templates over a plain map cannot fail to render; guard the
		// oracle from an empty prompt anyway.
		logging.WithComponent("conversation").Error("synthesis template render failed", "template", name, "error", err)
		return turn.Question
	}
	return rendered
}

// fallbackPrompt asks for a best-effort answer once the retry budget and the
// web fallback are both spent.
func fallbackPrompt(turn *Turn, context string) string {
	return fmt.Sprintf("根据有限信息尽力回答：\n资料：%s\n问题：%s", context, turn.Question)
}
