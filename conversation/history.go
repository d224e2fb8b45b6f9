package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sweetpotato0/health-agent/message"
	"github.com/sweetpotato0/health-agent/oracle"
	"github.com/sweetpotato0/health-agent/pkg/logging"
)

const (
	// DefaultCompactThreshold is the message count that triggers history
	// compaction.
	DefaultCompactThreshold = 16
	// DefaultKeepRecent is how many trailing messages survive compaction
	// untouched.
	DefaultKeepRecent = 6

	// summaryMessageLimit truncates a single oversized message before it
	// enters the summary prompt.
	summaryMessageLimit = 500
)

const summaryPromptTemplate = `
请总结以下对话的关键信息，重点提取：

1. 用户提到的身体指标（身高、体重、血压等具体数值）
2. 用户的健康状况（疾病、过敏、症状）
3. 用户的主要问题和关注点
4. 助手给出的重要建议

对话内容：
%s

请用简洁的要点形式总结（不超过300字），保留所有具体数值和重要健康信息：
`

// summaryHeader prefixes the system message that carries a compaction
// summary, so later compactions fold it back in like any other context.
const summaryHeader = "【对话摘要】"

// Compactor folds old session history into a short summary once the message
// count passes a threshold. The summary is kept as a system message at the
// head of the trimmed history; numbers and health facts are explicitly asked
// to survive the compression.
type Compactor struct {
	oracle     oracle.Client
	threshold  int
	keepRecent int
	logger     *slog.Logger
}

// CompactorOption configures a Compactor.
type CompactorOption func(*Compactor)

// WithCompactThreshold overrides the message count that triggers compaction.
func WithCompactThreshold(n int) CompactorOption {
	return func(c *Compactor) {
		if n > 0 {
			c.threshold = n
		}
	}
}

// WithKeepRecent overrides how many trailing messages stay verbatim.
func WithKeepRecent(n int) CompactorOption {
	return func(c *Compactor) {
		if n > 0 {
			c.keepRecent = n
		}
	}
}

// WithCompactorLogger sets the logger.
func WithCompactorLogger(logger *slog.Logger) CompactorOption {
	return func(c *Compactor) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCompactor builds a Compactor around a language oracle.
func NewCompactor(client oracle.Client, opts ...CompactorOption) *Compactor {
	c := &Compactor{
		oracle:     client,
		threshold:  DefaultCompactThreshold,
		keepRecent: DefaultKeepRecent,
		logger:     logging.WithComponent("conversation.history"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ShouldCompact reports whether the history is long enough to fold.
func (c *Compactor) ShouldCompact(msgs []*message.Message) bool {
	return len(msgs) > c.threshold
}

// Compact summarizes everything but the most recent messages and returns the
// trimmed history. When the oracle fails the old messages are dropped
// anyway: a bounded history matters more than a perfect summary, and the
// profile store keeps the durable facts.
func (c *Compactor) Compact(ctx context.Context, msgs []*message.Message) []*message.Message {
	if !c.ShouldCompact(msgs) {
		return msgs
	}

	cut := len(msgs) - c.keepRecent
	old, recent := msgs[:cut], msgs[cut:]

	summary := c.summarize(ctx, old)
	if summary == "" {
		return recent
	}

	kept := make([]*message.Message, 0, len(recent)+1)
	kept = append(kept, message.NewSystemMessage(summaryHeader+"\n"+summary))
	kept = append(kept, recent...)
	c.logger.Debug("compacted history", "dropped", len(old), "kept", len(recent))
	return kept
}

func (c *Compactor) summarize(ctx context.Context, msgs []*message.Message) string {
	if c.oracle == nil {
		return ""
	}

	lines := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		if msg == nil || msg.Content == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", roleLabel(msg.Role), clip(msg.Content, summaryMessageLimit)))
	}
	if len(lines) == 0 {
		return ""
	}

	raw, err := c.oracle.Complete(ctx, fmt.Sprintf(summaryPromptTemplate, strings.Join(lines, "\n")))
	if err != nil {
		c.logger.Warn("history summary failed", "error", err)
		return ""
	}
	return strings.TrimSpace(raw)
}

func roleLabel(role message.Role) string {
	switch role {
	case message.RoleUser:
		return "用户"
	case message.RoleSystem:
		return "系统"
	default:
		return "助手"
	}
}

func clip(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
