package interview

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sweetpotato0/health-agent/calc"
	errorskg "github.com/sweetpotato0/health-agent/errors"
	"github.com/sweetpotato0/health-agent/memory"
	"github.com/sweetpotato0/health-agent/message"
	"github.com/sweetpotato0/health-agent/oracle"
	"github.com/sweetpotato0/health-agent/pkg/logging"
	"github.com/sweetpotato0/health-agent/pkg/telemetry"
	"github.com/sweetpotato0/health-agent/risk"
	"github.com/sweetpotato0/health-agent/session"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultMaxFollowups bounds oracle-generated follow-up rounds per interview.
const DefaultMaxFollowups = 3

// severityReferralThreshold is the self-reported severity score at which a
// final assessment escalates to MEDIUM even without keyword matches.
const severityReferralThreshold = 7

const (
	invalidAnswerPrefix  = "输入无效，请重新回答："
	basicInfoDoneMessage = "基础信息已记录，接下来了解您的病史"
	historyDoneMessage   = "病史信息已记录，请选择本次咨询的类型"
	symptomsIntroMessage = "好的，请描述您今天的问题"
	wellnessComplaint    = "健康管理咨询（无具体症状）"
	lowRiskClosing       = "感谢您提供的信息，我来为您分析一下..."
)

// Engine runs structured interviews. One engine serves many interviews; all
// per-user state lives on the Interview itself.
type Engine struct {
	memory       *memory.Gateway
	screener     *risk.Classifier
	oracle       oracle.Client
	sessions     session.Store
	questions    map[Stage][]Question
	maxFollowups int
	logger       *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithOracle enables the oracle-backed steps: follow-up planning and the
// body-status label. Without it the interview runs on the static script.
func WithOracle(client oracle.Client) Option {
	return func(e *Engine) { e.oracle = client }
}

// WithSessionStore persists an interview snapshot after each stage change,
// so finished interviews appear in the user's dossier.
func WithSessionStore(store session.Store) Option {
	return func(e *Engine) { e.sessions = store }
}

// WithQuestions replaces the scripted question set.
func WithQuestions(questions map[Stage][]Question) Option {
	return func(e *Engine) {
		if questions != nil {
			e.questions = questions
		}
	}
}

// WithMaxFollowups overrides the follow-up round budget.
func WithMaxFollowups(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.maxFollowups = n
		}
	}
}

// WithLogger overrides the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an interview engine. The memory gateway and the risk
// classifier are required; everything else is optional.
func NewEngine(gateway *memory.Gateway, screener *risk.Classifier, opts ...Option) *Engine {
	e := &Engine{
		memory:       gateway,
		screener:     screener,
		questions:    defaultQuestions(),
		maxFollowups: DefaultMaxFollowups,
		logger:       logging.WithComponent("interview"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reply is the engine's reaction to one user answer. Continue reports
// whether more questions are coming; Message carries stage transitions,
// urgency alerts and the closing assessment; Risk is set when the answer
// went through a screening or produced the final triage.
type Reply struct {
	Continue bool
	Message  string
	Risk     *risk.Assessment
}

// Start opens an interview for an identified user. A returning user whose
// profile is already complete skips the data-collection stages and gets an
// immediate body-metrics analysis.
func (e *Engine) Start(ctx context.Context, userID string) (*Interview, error) {
	if memory.IsAnonymous(userID) {
		return nil, fmt.Errorf("interview requires an identified user: %w", errorskg.ErrInvalidInput)
	}
	profile, err := e.memory.Profile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if profile == nil {
		profile = &memory.Profile{}
	}

	iv := &Interview{
		ID:      uuid.NewString(),
		UserID:  userID,
		Stage:   StageBasicInfo,
		Started: time.Now(),
		profile: profile,
	}
	if profile.Complete() {
		iv.Stage = StageConsultationType
		e.analyzeBody(ctx, iv)
	}
	e.persist(ctx, iv)
	e.logger.Info("interview started",
		"interview", iv.ID, "user", userID, "stage", iv.Stage.String())
	return iv, nil
}

// CurrentQuestion returns the question the user should answer next, or nil
// once the interview has ended.
func (e *Engine) CurrentQuestion(iv *Interview) *Question {
	if iv == nil || iv.Done() {
		return nil
	}
	if iv.Stage == StageFollowup && iv.pending != nil {
		return iv.pending
	}
	script := e.questions[iv.Stage]
	if iv.questionIndex < len(script) {
		q := script[iv.questionIndex]
		return &q
	}
	return nil
}

// ProcessAnswer validates and stores one answer, screens it for urgency
// where required, and advances the interview. Validation failures re-ask
// the same question and never advance state.
func (e *Engine) ProcessAnswer(ctx context.Context, iv *Interview, answer string) (*Reply, error) {
	if iv == nil {
		return nil, fmt.Errorf("process answer: %w", errorskg.ErrInvalidInput)
	}
	if iv.Done() {
		return nil, fmt.Errorf("interview %s already ended: %w", iv.ID, errorskg.ErrSessionClosed)
	}

	ctx, span := telemetry.Tracer("interview").Start(ctx, "interview.answer",
		trace.WithAttributes(
			attribute.String("interview.id", iv.ID),
			attribute.String("interview.stage", iv.Stage.String())))
	defer func() { telemetry.End(span, nil) }()

	q := e.CurrentQuestion(iv)
	if q == nil {
		return e.advanceStage(ctx, iv), nil
	}
	iv.log = append(iv.log,
		message.NewAssistantMessage(q.Prompt),
		message.NewUserMessage(answer))

	value, ok := parseAnswer(q, answer)
	if !ok {
		return &Reply{Continue: true, Message: invalidAnswerPrefix + q.Prompt}, nil
	}

	if iv.Stage == StageFollowup {
		return e.processFollowup(ctx, iv, q, value), nil
	}

	e.storeAnswer(ctx, iv, q, value)

	var screened *risk.Assessment
	var alert string
	if q.Important {
		a := e.screen(ctx, iv, screenText(value))
		if a.Halt() {
			e.finish(ctx, iv)
			return &Reply{Continue: false, Message: a.Message, Risk: &a}, nil
		}
		alert = a.Message
		screened = &a
	}

	if q.Followup && len(iv.Followups) < e.maxFollowups {
		if next := e.nextFollowup(ctx, iv); next != nil {
			iv.pending = next
			iv.Stage = StageFollowup
			return &Reply{Continue: true, Message: alert, Risk: screened}, nil
		}
	}

	iv.questionIndex++
	if iv.questionIndex < len(e.questions[iv.Stage]) {
		return &Reply{Continue: true, Message: alert, Risk: screened}, nil
	}

	reply := e.advanceStage(ctx, iv)
	if alert != "" {
		reply.Message = strings.TrimSpace(alert + "\n\n" + reply.Message)
	}
	if reply.Risk == nil {
		reply.Risk = screened
	}
	return reply, nil
}

// processFollowup records one dynamic follow-up answer, screens it, and
// either asks the oracle for another round or falls back to the fixed
// duration/severity questions.
func (e *Engine) processFollowup(ctx context.Context, iv *Interview, q *Question, v answerValue) *Reply {
	iv.Followups = append(iv.Followups, QA{Question: q.Prompt, Answer: v.text})
	iv.pending = nil

	a := e.screen(ctx, iv, v.text)
	if a.Halt() {
		e.finish(ctx, iv)
		return &Reply{Continue: false, Message: a.Message, Risk: &a}
	}

	if len(iv.Followups) < e.maxFollowups {
		if next := e.nextFollowup(ctx, iv); next != nil {
			iv.pending = next
			return &Reply{Continue: true, Message: a.Message, Risk: &a}
		}
	}

	// Done probing; resume the fixed script after the chief complaint.
	iv.Stage = StageCurrentSymptoms
	iv.questionIndex++
	return &Reply{Continue: true, Message: a.Message, Risk: &a}
}

// screen runs the risk classifier and records any escalation on the
// interview. The recorded level is monotonic: later lower screenings never
// downgrade an earlier HIGH.
func (e *Engine) screen(ctx context.Context, iv *Interview, text string) risk.Assessment {
	a := e.screener.Screen(ctx, text, e.subject(iv))
	if a.Level > iv.RiskLevel {
		iv.RiskLevel = a.Level
		if len(a.Keywords) > 0 {
			iv.RiskKeywords = a.Keywords
		}
		iv.riskAssessed = true
	}
	if a.Level >= risk.LevelHigh {
		e.logger.Warn("urgent screening during interview",
			"interview", iv.ID, "level", a.Level.String())
	}
	return a
}

func (e *Engine) subject(iv *Interview) risk.Subject {
	return risk.Subject{
		Age:             iv.profile.Age,
		Gender:          iv.profile.Gender,
		ChronicDiseases: iv.profile.ChronicDiseases,
	}
}

// storeAnswer routes a validated answer to the profile or the interview,
// per stage. Profile stages persist after every answer so an interrupted
// interview loses nothing.
func (e *Engine) storeAnswer(ctx context.Context, iv *Interview, q *Question, v answerValue) {
	switch iv.Stage {
	case StageBasicInfo:
		switch q.Field {
		case "gender":
			iv.profile.Gender = v.text
		case "age":
			iv.profile.Age = int(v.number)
		case "height":
			iv.profile.HeightCM = v.number
		case "weight":
			iv.profile.WeightKG = v.number
		}
		e.saveProfile(ctx, iv)

	case StageMedicalHistory:
		list := v.list
		if q.Type == AnswerText {
			list = nil
			if v.text != noneAnswer {
				list = []string{v.text}
			}
		}
		switch q.Field {
		case "family_history":
			iv.profile.FamilyHistory = list
		case "allergies":
			iv.profile.Allergies = list
		case "chronic_diseases":
			iv.profile.ChronicDiseases = list
		case "current_medications":
			iv.profile.Medications = list
		}
		e.saveProfile(ctx, iv)

	case StageConsultationType:
		if t, ok := consultationTypeFromLabel(v.text); ok {
			iv.Type = t
		}

	case StageCurrentSymptoms:
		switch q.Field {
		case "chief_complaint":
			iv.ChiefComplaint = v.text
		case "symptom_duration":
			iv.SymptomDuration = v.text
		case "symptom_severity":
			iv.SymptomSeverity = v.number
		}
	}
}

// advanceStage moves to the next stage once the current script is
// exhausted and returns the transition message.
func (e *Engine) advanceStage(ctx context.Context, iv *Interview) *Reply {
	switch iv.Stage {
	case StageBasicInfo:
		iv.Stage = StageMedicalHistory
		iv.questionIndex = 0
		msg := basicInfoDoneMessage
		if analysis := e.analyzeBody(ctx, iv); analysis != "" {
			msg = analysis + "\n\n" + msg
		}
		e.persist(ctx, iv)
		return &Reply{Continue: true, Message: msg}

	case StageMedicalHistory:
		iv.Stage = StageConsultationType
		iv.questionIndex = 0
		e.persist(ctx, iv)
		return &Reply{Continue: true, Message: historyDoneMessage}

	case StageConsultationType:
		if iv.Type == TypeWellness {
			// Health management has no symptoms to collect: close out with
			// a low-risk assessment so advice generation can run.
			iv.ChiefComplaint = wellnessComplaint
			iv.RiskLevel = risk.LevelLow
			iv.riskAssessed = true
			iv.Stage = StageAssessment
			e.finish(ctx, iv)
			a := risk.Assessment{Level: risk.LevelLow}
			return &Reply{Continue: false, Message: lowRiskClosing, Risk: &a}
		}
		iv.Stage = StageCurrentSymptoms
		iv.questionIndex = 0
		e.persist(ctx, iv)
		return &Reply{Continue: true, Message: symptomsIntroMessage}

	default:
		return e.finalAssessment(ctx, iv)
	}
}

// finalAssessment closes the interview. Medium-risk keywords in the
// combined symptom text or a severity at or above the threshold escalate
// to MEDIUM with a referral; a HIGH recorded during the interview is never
// downgraded here. Critical keywords were already handled in realtime.
func (e *Engine) finalAssessment(ctx context.Context, iv *Interview) *Reply {
	texts := make([]string, 0, len(iv.Followups)+1)
	if iv.ChiefComplaint != "" {
		texts = append(texts, iv.ChiefComplaint)
	}
	for _, qa := range iv.Followups {
		texts = append(texts, qa.Answer)
	}
	found := e.screener.MatchMedium(strings.Join(texts, " "))

	var a risk.Assessment
	switch {
	case iv.RiskLevel >= risk.LevelHigh:
		if len(iv.RiskKeywords) == 0 {
			iv.RiskKeywords = found
		}
		iv.ReferralSuggested = true
		a = risk.Assessment{
			Level:    iv.RiskLevel,
			Keywords: iv.RiskKeywords,
			Message:  risk.ReferralAdvice(iv.RiskKeywords),
		}
	case len(found) > 0 || iv.SymptomSeverity >= severityReferralThreshold:
		iv.RiskLevel = risk.LevelMedium
		iv.RiskKeywords = found
		iv.ReferralSuggested = true
		a = risk.Assessment{
			Level:    risk.LevelMedium,
			Keywords: found,
			Message:  risk.ReferralMessage(found),
		}
	default:
		iv.RiskLevel = risk.LevelLow
		a = risk.Assessment{Level: risk.LevelLow, Message: lowRiskClosing}
	}
	iv.riskAssessed = true
	iv.Stage = StageAssessment
	e.finish(ctx, iv)
	e.logger.Info("interview assessed",
		"interview", iv.ID, "risk", iv.RiskLevel.String(), "referral", iv.ReferralSuggested)
	return &Reply{Continue: false, Message: a.Message, Risk: &a}
}

// analyzeBody computes BMI, basal metabolism and ideal weight from the
// profile and, when an oracle is configured, adds a one-sentence factual
// status label. The label step classifies only; it never gives advice.
func (e *Engine) analyzeBody(ctx context.Context, iv *Interview) string {
	p := iv.profile
	bmi, err := calc.BMI(p.HeightCM, p.WeightKG)
	if err != nil {
		return ""
	}
	status, _ := calc.BMICategory(bmi)
	parts := []string{fmt.Sprintf("BMI %.1f（%s）", bmi, status)}
	if bmr, err := calc.BMR(p.WeightKG, p.HeightCM, p.Age, p.Gender); err == nil {
		parts = append(parts, fmt.Sprintf("基础代谢约 %.0f 千卡/天", bmr))
	}
	if ideal, _, _, err := calc.IdealWeight(p.HeightCM, p.Gender); err == nil {
		parts = append(parts, fmt.Sprintf("理想体重约 %.1fkg", ideal))
	}

	analysis := "📊 身体状况：" + strings.Join(parts, "，")
	if label := e.bodyStatusLabel(ctx, iv, bmi); label != "" {
		analysis += "\n" + label
	}
	iv.BodyAnalysis = analysis
	return analysis
}

const bodyStatusPrompt = `根据以下身体指标，用一句话客观描述该用户当前的身体状况。只描述现状，不要给任何建议。
性别：%s，年龄：%d岁，身高：%.0fcm，体重：%.0fkg，BMI：%.1f
只输出这一句话。`

func (e *Engine) bodyStatusLabel(ctx context.Context, iv *Interview, bmi float64) string {
	if e.oracle == nil {
		return ""
	}
	p := iv.profile
	raw, err := e.oracle.Complete(ctx, fmt.Sprintf(bodyStatusPrompt, p.Gender, p.Age, p.HeightCM, p.WeightKG, bmi))
	if err != nil {
		e.logger.Warn("body status label skipped", "interview", iv.ID, "error", err)
		return ""
	}
	return strings.TrimSpace(raw)
}

// followupPlan is the oracle verdict on whether another clarifying
// question is worth asking.
type followupPlan struct {
	NeedFollowup bool     `json:"need_followup"`
	Question     string   `json:"question"`
	Options      []string `json:"options,omitempty"`
}

// nextFollowup asks the oracle whether the symptom picture needs another
// clarifying question. Any failure means no follow-up: the fixed script
// guarantees the interview still completes.
func (e *Engine) nextFollowup(ctx context.Context, iv *Interview) *Question {
	if e.oracle == nil {
		return nil
	}
	raw, err := e.oracle.Complete(ctx, buildFollowupPrompt(iv))
	if err != nil {
		e.logger.Warn("followup planning failed, moving on", "interview", iv.ID, "error", err)
		return nil
	}
	plan, err := oracle.DecodeJSON[followupPlan](raw)
	if err != nil {
		e.logger.Warn("followup plan unparseable, moving on", "interview", iv.ID, "error", err)
		return nil
	}
	prompt := strings.TrimSpace(plan.Question)
	if !plan.NeedFollowup || prompt == "" {
		return nil
	}
	return &Question{
		Field:   fmt.Sprintf("followup_%d", len(iv.Followups)+1),
		Prompt:  prompt,
		Type:    AnswerText,
		Options: plan.Options,
	}
}

func buildFollowupPrompt(iv *Interview) string {
	var b strings.Builder
	fmt.Fprintf(&b, "患者主诉：%s\n", iv.ChiefComplaint)
	if len(iv.Followups) > 0 {
		b.WriteString("已追问过：\n")
		for _, qa := range iv.Followups {
			fmt.Fprintf(&b, "- %s：%s\n", qa.Question, qa.Answer)
		}
	}
	b.WriteString(`你是问诊助手。判断是否还需要一个追问来澄清病情（如部位、诱因、伴随症状）。
只返回JSON：{"need_followup": true或false, "question": "追问内容", "options": ["可选的快捷回答"]}
不需要追问时返回 {"need_followup": false}`)
	return b.String()
}

// saveProfile persists the profile after an answer. Storage failures are
// logged and the interview keeps going; the in-memory profile still feeds
// the rest of the flow.
func (e *Engine) saveProfile(ctx context.Context, iv *Interview) {
	iv.profile.UpdatedAt = time.Now()
	if err := e.memory.SaveProfile(ctx, iv.UserID, iv.profile); err != nil {
		e.logger.Warn("profile not saved", "user", iv.UserID, "error", err)
	}
}

func (e *Engine) finish(ctx context.Context, iv *Interview) {
	iv.Ended = time.Now()
	e.persist(ctx, iv)
}

// persist snapshots the interview to the session store, best effort.
func (e *Engine) persist(ctx context.Context, iv *Interview) {
	if e.sessions == nil {
		return
	}
	if err := e.sessions.Save(ctx, iv.snapshot()); err != nil {
		e.logger.Warn("interview snapshot not saved", "interview", iv.ID, "error", err)
	}
}
