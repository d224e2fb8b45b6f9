// Package risk implements the two-tier triage classifier used by the
// structured interview. Tier one is a hard keyword rule for emergencies and
// can never be skipped; tier two asks the language oracle for a structured
// verdict and fails open to LOW when the oracle is absent or unparseable.
package risk

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sweetpotato0/health-agent/oracle"
	"github.com/sweetpotato0/health-agent/pkg/logging"
)

// Level is the triage outcome of a screening.
type Level int

const (
	LevelLow Level = iota
	LevelMedium
	LevelHigh
	LevelCritical
)

// String returns the wire form used in oracle verdicts and persisted records.
func (l Level) String() string {
	switch l {
	case LevelCritical:
		return "CRITICAL"
	case LevelHigh:
		return "HIGH"
	case LevelMedium:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

// ParseLevel maps a verdict string onto a Level. Unknown values map to LOW so
// a sloppy oracle cannot escalate by accident.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CRITICAL":
		return LevelCritical
	case "HIGH":
		return LevelHigh
	case "MEDIUM":
		return LevelMedium
	default:
		return LevelLow
	}
}

// Subject carries the profile context handed to the oracle tier.
type Subject struct {
	Age             int
	Gender          string
	ChronicDiseases []string
}

// Assessment is the result of screening one piece of user text.
type Assessment struct {
	Level    Level
	Keywords []string // emergency keywords that matched, tier one only
	Reason   string   // oracle explanation, tier two only
	Advice   string   // oracle advice, tier two only
	Message  string   // user-facing alert; empty for MEDIUM and LOW
}

// Halt reports whether the interview must stop immediately.
func (a Assessment) Halt() bool { return a.Level == LevelCritical }

// Classifier screens free text for medical urgency.
type Classifier struct {
	oracle    oracle.Client
	logger    *slog.Logger
	emergency []string
	medium    []string
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithOracle enables the second tier. Without it only the keyword rule runs.
func WithOracle(client oracle.Client) Option {
	return func(c *Classifier) { c.oracle = client }
}

// WithLogger overrides the default package logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Classifier) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithEmergencyKeywords replaces the built-in emergency keyword list.
func WithEmergencyKeywords(keywords []string) Option {
	return func(c *Classifier) { c.emergency = keywords }
}

// WithMediumKeywords replaces the built-in medium-risk keyword list.
func WithMediumKeywords(keywords []string) Option {
	return func(c *Classifier) { c.medium = keywords }
}

// New builds a Classifier with the default keyword tables.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		logger:    logging.WithComponent("risk"),
		emergency: DefaultEmergencyKeywords(),
		medium:    DefaultMediumKeywords(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type verdict struct {
	RiskLevel string `json:"risk_level"`
	Reason    string `json:"reason"`
	Advice    string `json:"advice"`
}

// Screen classifies one user utterance. The keyword tier always runs first;
// any match returns CRITICAL with the crisis message and the oracle is never
// consulted. Oracle failures are logged and degrade to LOW: the interview
// keeps going rather than alarming on a parse error.
func (c *Classifier) Screen(ctx context.Context, text string, subject Subject) Assessment {
	if found := matchKeywords(text, c.emergency); len(found) > 0 {
		return Assessment{
			Level:    LevelCritical,
			Keywords: found,
			Message:  CrisisMessage(found),
		}
	}

	if c.oracle == nil {
		return Assessment{Level: LevelLow}
	}

	prompt := buildScreenPrompt(text, subject)
	raw, err := c.oracle.Complete(ctx, prompt)
	if err != nil {
		c.logger.Warn("risk oracle call failed, defaulting to LOW", "error", err)
		return Assessment{Level: LevelLow}
	}

	v, err := oracle.DecodeJSON[verdict](raw)
	if err != nil {
		c.logger.Warn("risk verdict unparseable, defaulting to LOW", "error", err, "raw", raw)
		return Assessment{Level: LevelLow}
	}

	a := Assessment{
		Level:  ParseLevel(v.RiskLevel),
		Reason: v.Reason,
		Advice: v.Advice,
	}
	switch a.Level {
	case LevelCritical:
		a.Message = EmergencyMessage(v.Reason)
	case LevelHigh:
		a.Message = UrgentMessage(v.Reason, v.Advice)
	}
	return a
}

// MatchMedium returns the medium-risk keywords found in text. The final
// interview assessment combines this with the severity threshold.
func (c *Classifier) MatchMedium(text string) []string {
	return matchKeywords(text, c.medium)
}

func matchKeywords(text string, keywords []string) []string {
	lowered := strings.ToLower(text)
	var found []string
	for _, kw := range keywords {
		if strings.Contains(lowered, kw) {
			found = append(found, kw)
		}
	}
	return found
}

func buildScreenPrompt(text string, subject Subject) string {
	diseases := "无"
	if len(subject.ChronicDiseases) > 0 {
		diseases = strings.Join(subject.ChronicDiseases, "、")
	}
	gender := subject.Gender
	if gender == "" {
		gender = "未知"
	}
	age := "未知"
	if subject.Age > 0 {
		age = fmt.Sprintf("%d", subject.Age)
	}
	return fmt.Sprintf(`你是一位专业的医疗风险评估助手。请根据用户信息和症状描述评估健康风险等级。

用户信息：
- 年龄：%s
- 性别：%s
- 慢性病史：%s

症状描述：%s

判断标准：
- CRITICAL：危及生命，需要立即急救
- HIGH：较为紧急，建议24小时内就医
- MEDIUM：建议近期就医检查
- LOW：可以通过健康建议改善

只返回JSON，不要其他内容：
{"risk_level": "CRITICAL|HIGH|MEDIUM|LOW", "reason": "判断原因", "advice": "就医建议"}`,
		age, gender, diseases, text)
}
