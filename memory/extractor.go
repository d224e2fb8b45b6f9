package memory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sweetpotato0/health-agent/oracle"
	"github.com/sweetpotato0/health-agent/pkg/logging"
)

// ExtractedFact is one health fact the oracle pulled out of a user message.
type ExtractedFact struct {
	Category  string `json:"category"`
	Content   string `json:"content"`
	Important bool   `json:"important"`
}

const extractionPrompt = `分析用户消息，提取健康相关的个人信息。

用户消息："%s"

提取规则：
1. 身体指标：必须包含完整数值，如"身高165cm"、"体重77kg"，不要拆分
2. 过敏信息：如"鸡蛋过敏"、"海鲜过敏"（important设为true）
3. 疾病史：如"有高血压"、"糖尿病"（important设为true）
4. 生活习惯：如"每天吸烟"、"不喝酒"
5. 用药情况：如"正在服用降压药"（important设为true）

【重要规则】
- 身高体重必须带单位：身高xxxcm，体重xxxkg
- 过敏、疾病、用药的 important 必须为 true
- 每条信息独立一个对象，不要合并

返回JSON数组示例：
[
  {"category": "身体指标", "content": "身高165cm", "important": false},
  {"category": "身体指标", "content": "体重77kg", "important": false},
  {"category": "过敏信息", "content": "鸡蛋过敏", "important": true}
]

没有健康信息返回：[]
只返回JSON，不要其他文字。`

// Extractor pulls categorized health facts out of free-form user messages.
type Extractor struct {
	oracle oracle.Client
	logger *slog.Logger
}

// NewExtractor builds an Extractor on an oracle client.
func NewExtractor(client oracle.Client, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = logging.WithComponent("extractor")
	}
	return &Extractor{oracle: client, logger: logger}
}

// Extract returns the facts found in a message. Facts in always-important
// categories are promoted even when the oracle forgot the flag. Blank
// contents are dropped.
func (e *Extractor) Extract(ctx context.Context, message string) ([]ExtractedFact, error) {
	if e == nil || e.oracle == nil {
		return nil, nil
	}

	raw, err := e.oracle.Complete(ctx, fmt.Sprintf(extractionPrompt, message))
	if err != nil {
		return nil, fmt.Errorf("extraction call: %w", err)
	}

	facts, err := oracle.DecodeJSON[[]ExtractedFact](raw)
	if err != nil {
		return nil, fmt.Errorf("extraction parse: %w", err)
	}

	out := make([]ExtractedFact, 0, len(*facts))
	for _, f := range *facts {
		if f.Content == "" {
			continue
		}
		if ImportantCategory(f.Category) {
			f.Important = true
		}
		out = append(out, f)
	}
	return out, nil
}
