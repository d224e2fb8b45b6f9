package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sweetpotato0/health-agent/oracle"
	"github.com/sweetpotato0/health-agent/pkg/logging"
)

// NoDataMessage is returned when the oracle finds nothing to compute.
const NoDataMessage = "⚠️ 请提供具体数据，如 '我170cm，70kg，计算BMI'"

const invokePrompt = `你是健康计算助手。根据用户消息选择需要调用的计算工具并提取参数。

可用工具（JSON Schema）：
%s

用户消息："%s"

返回JSON数组，每项为 {"name": "工具名", "args": {参数}}。
消息中缺少计算所需的具体数值时返回：[]
只返回JSON，不要其他文字。`

// call is one planned tool invocation decoded from oracle output.
type call struct {
	Name string `json:"name"`
	Args Args   `json:"args"`
}

// Invoker interprets a free-text question into tool calls via the oracle
// and executes them against a registry.
type Invoker struct {
	registry *Registry
	oracle   oracle.Client
	logger   *slog.Logger
}

// NewInvoker builds an Invoker.
func NewInvoker(registry *Registry, client oracle.Client, logger *slog.Logger) *Invoker {
	if logger == nil {
		logger = logging.WithComponent("tool")
	}
	return &Invoker{registry: registry, oracle: client, logger: logger}
}

// Invoke plans and runs the tool calls for a question. Each call's result
// is prefixed 📊; a failing call is reported inline as ❌ 计算错误 and never
// aborts the others. When nothing can be computed the user gets a hint to
// supply concrete numbers.
func (inv *Invoker) Invoke(ctx context.Context, question string) string {
	if inv.oracle == nil {
		return NoDataMessage
	}

	schemas, err := json.Marshal(inv.registry.Schemas())
	if err != nil {
		inv.logger.Warn("tool schema marshal failed", "error", err)
		return NoDataMessage
	}

	raw, err := inv.oracle.Complete(ctx, fmt.Sprintf(invokePrompt, schemas, question))
	if err != nil {
		inv.logger.Warn("tool planning failed", "error", err)
		return NoDataMessage
	}

	calls, err := oracle.DecodeJSON[[]call](raw)
	if err != nil {
		inv.logger.Warn("tool plan parse failed", "error", err, "raw", raw)
		return NoDataMessage
	}
	if len(*calls) == 0 {
		return NoDataMessage
	}

	results := make([]string, 0, len(*calls))
	for _, c := range *calls {
		out, err := inv.registry.Execute(ctx, c.Name, c.Args)
		if err != nil {
			inv.logger.Warn("tool call failed", "tool", c.Name, "error", err)
			results = append(results, fmt.Sprintf("❌ 计算错误: %v", err))
			continue
		}
		results = append(results, "📊 "+out)
	}
	return strings.Join(results, "\n\n")
}
