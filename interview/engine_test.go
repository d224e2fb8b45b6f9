package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	errorskg "github.com/sweetpotato0/health-agent/errors"
	"github.com/sweetpotato0/health-agent/memory"
	memstore "github.com/sweetpotato0/health-agent/memory/store"
	"github.com/sweetpotato0/health-agent/risk"
	"github.com/sweetpotato0/health-agent/session"
	sessionstore "github.com/sweetpotato0/health-agent/session/store"
)

// stubOracle answers by prompt shape: risk screenings return the scripted
// verdict, followup planning consumes the plans list one per call, body
// status labeling returns a fixed sentence.
type stubOracle struct {
	verdict   string
	plans     []string
	bodyLabel string

	screenCalls int
	planCalls   int
	bodyCalls   int
}

func (s *stubOracle) Complete(_ context.Context, prompt string) (string, error) {
	switch {
	case strings.HasPrefix(prompt, "你是一位专业的医疗风险评估助手"):
		s.screenCalls++
		if s.verdict == "" {
			return `{"risk_level": "LOW", "reason": "", "advice": ""}`, nil
		}
		return s.verdict, nil
	case strings.HasPrefix(prompt, "根据以下身体指标"):
		s.bodyCalls++
		if s.bodyLabel == "" {
			return "整体指标在正常范围内。", nil
		}
		return s.bodyLabel, nil
	case strings.HasPrefix(prompt, "患者主诉"):
		s.planCalls++
		if len(s.plans) == 0 {
			return `{"need_followup": false}`, nil
		}
		plan := s.plans[0]
		s.plans = s.plans[1:]
		return plan, nil
	default:
		return "", fmt.Errorf("unexpected prompt: %.40s", prompt)
	}
}

func newTestEngine(t *testing.T, o *stubOracle, opts ...Option) (*Engine, *memory.Gateway) {
	t.Helper()
	gw := memory.NewGateway(memstore.NewMemoryStore())
	var ropts []risk.Option
	var eopts []Option
	if o != nil {
		ropts = append(ropts, risk.WithOracle(o))
		eopts = append(eopts, WithOracle(o))
	}
	eopts = append(eopts, opts...)
	return NewEngine(gw, risk.New(ropts...), eopts...), gw
}

func seedProfile(t *testing.T, gw *memory.Gateway, userID string) {
	t.Helper()
	p := &memory.Profile{Gender: "男", Age: 30, HeightCM: 175, WeightKG: 70}
	if err := gw.SaveProfile(context.Background(), userID, p); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}
}

// answer feeds answers in order and fails the test on engine errors.
func answer(t *testing.T, e *Engine, iv *Interview, answers ...string) *Reply {
	t.Helper()
	var last *Reply
	for _, a := range answers {
		var err error
		last, err = e.ProcessAnswer(context.Background(), iv, a)
		if err != nil {
			t.Fatalf("ProcessAnswer(%q): %v", a, err)
		}
	}
	return last
}

func TestStartNewUserBeginsAtBasicInfo(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	iv, err := e.Start(context.Background(), "user-new")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if iv.Stage != StageBasicInfo {
		t.Fatalf("Stage = %v, want %v", iv.Stage, StageBasicInfo)
	}
	q := e.CurrentQuestion(iv)
	if q == nil || q.Prompt != "请问您的性别是？" {
		t.Errorf("CurrentQuestion = %+v, want gender question", q)
	}
}

func TestStartCompleteProfileSkipsToConsultationType(t *testing.T) {
	o := &stubOracle{bodyLabel: "体型匀称，代谢正常。"}
	e, gw := newTestEngine(t, o)
	seedProfile(t, gw, "user-back")

	iv, err := e.Start(context.Background(), "user-back")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if iv.Stage != StageConsultationType {
		t.Fatalf("Stage = %v, want %v", iv.Stage, StageConsultationType)
	}
	if !strings.Contains(iv.BodyAnalysis, "BMI 22.9") {
		t.Errorf("BodyAnalysis = %q, want BMI 22.9 in it", iv.BodyAnalysis)
	}
	if !strings.Contains(iv.BodyAnalysis, "体型匀称") {
		t.Errorf("BodyAnalysis = %q, want oracle label in it", iv.BodyAnalysis)
	}
	if o.bodyCalls != 1 {
		t.Errorf("bodyCalls = %d, want 1", o.bodyCalls)
	}
}

func TestStartRejectsAnonymous(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	for _, id := range []string{"", memory.AnonymousUserID} {
		if _, err := e.Start(context.Background(), id); !errors.Is(err, errorskg.ErrInvalidInput) {
			t.Errorf("Start(%q) err = %v, want ErrInvalidInput", id, err)
		}
	}
}

func TestBasicInfoFillsProfile(t *testing.T) {
	e, gw := newTestEngine(t, &stubOracle{})
	iv, _ := e.Start(context.Background(), "user-1")

	reply := answer(t, e, iv, "1", "30", "175", "70")
	if !strings.Contains(reply.Message, basicInfoDoneMessage) {
		t.Errorf("Message = %q, want transition text", reply.Message)
	}
	if !strings.Contains(reply.Message, "📊 身体状况") {
		t.Errorf("Message = %q, want body analysis", reply.Message)
	}
	if iv.Stage != StageMedicalHistory {
		t.Errorf("Stage = %v, want %v", iv.Stage, StageMedicalHistory)
	}

	p, err := gw.Profile(context.Background(), "user-1")
	if err != nil || p == nil {
		t.Fatalf("Profile: %v, %v", p, err)
	}
	if p.Gender != "男" || p.Age != 30 || p.HeightCM != 175 || p.WeightKG != 70 {
		t.Errorf("profile = %+v, want 男/30/175/70", p)
	}
}

func TestValidationFailureRepeatsQuestion(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	iv, _ := e.Start(context.Background(), "user-1")

	want := invalidAnswerPrefix + "请问您的性别是？"
	for i := 0; i < 2; i++ {
		reply := answer(t, e, iv, "不知道")
		if !reply.Continue || reply.Message != want {
			t.Fatalf("attempt %d: reply = %+v, want re-prompt %q", i+1, reply, want)
		}
	}
	if q := e.CurrentQuestion(iv); q == nil || q.Field != "gender" {
		t.Errorf("CurrentQuestion = %+v, want gender unchanged", q)
	}
	if got := len(iv.Log()); got != 4 {
		t.Errorf("log length = %d, want 4 (both attempts recorded)", got)
	}
}

func TestNumberBoundsAreInclusive(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	iv, _ := e.Start(context.Background(), "user-1")
	answer(t, e, iv, "1") // gender

	if reply := answer(t, e, iv, "121"); !strings.HasPrefix(reply.Message, invalidAnswerPrefix) {
		t.Errorf("age 121 accepted: %q", reply.Message)
	}
	if reply := answer(t, e, iv, "120"); strings.HasPrefix(reply.Message, invalidAnswerPrefix) {
		t.Errorf("age 120 rejected: %q", reply.Message)
	}
}

func TestMedicalHistoryStorage(t *testing.T) {
	e, gw := newTestEngine(t, &stubOracle{})
	iv, _ := e.Start(context.Background(), "user-1")
	answer(t, e, iv, "1", "30", "175", "70")

	reply := answer(t, e, iv,
		"1,3",   // family history by index: 高血压, 心脏病
		"青霉素过敏", // allergies, free text
		"痛风",    // chronic, not in options: kept verbatim
		"无",     // medications: none sentinel clears
	)
	if reply.Message != historyDoneMessage {
		t.Errorf("Message = %q, want %q", reply.Message, historyDoneMessage)
	}
	if iv.Stage != StageConsultationType {
		t.Errorf("Stage = %v, want %v", iv.Stage, StageConsultationType)
	}

	p, err := gw.Profile(context.Background(), "user-1")
	if err != nil || p == nil {
		t.Fatalf("Profile: %v, %v", p, err)
	}
	if got, want := strings.Join(p.FamilyHistory, "|"), "高血压|心脏病"; got != want {
		t.Errorf("FamilyHistory = %q, want %q", got, want)
	}
	if got, want := strings.Join(p.Allergies, "|"), "青霉素过敏"; got != want {
		t.Errorf("Allergies = %q, want %q", got, want)
	}
	if got, want := strings.Join(p.ChronicDiseases, "|"), "痛风"; got != want {
		t.Errorf("ChronicDiseases = %q, want %q", got, want)
	}
	if len(p.Medications) != 0 {
		t.Errorf("Medications = %v, want empty", p.Medications)
	}
}

func TestWellnessSkipsSymptomCollection(t *testing.T) {
	e, gw := newTestEngine(t, &stubOracle{})
	seedProfile(t, gw, "user-back")
	iv, _ := e.Start(context.Background(), "user-back")

	reply := answer(t, e, iv, "2") // 健康管理
	if reply.Continue {
		t.Fatal("Continue = true, want interview over")
	}
	if reply.Message != lowRiskClosing {
		t.Errorf("Message = %q, want %q", reply.Message, lowRiskClosing)
	}
	if reply.Risk == nil || reply.Risk.Level != risk.LevelLow {
		t.Errorf("Risk = %+v, want LOW", reply.Risk)
	}
	if iv.Stage != StageAssessment || !iv.Done() {
		t.Errorf("Stage = %v done=%v, want terminal assessment", iv.Stage, iv.Done())
	}
	if iv.ChiefComplaint != wellnessComplaint {
		t.Errorf("ChiefComplaint = %q, want placeholder", iv.ChiefComplaint)
	}
	if iv.SymptomDuration != "" || iv.SymptomSeverity != 0 {
		t.Errorf("symptom fields set (%q, %v), want untouched", iv.SymptomDuration, iv.SymptomSeverity)
	}
}

func TestEmergencyKeywordShortCircuits(t *testing.T) {
	o := &stubOracle{verdict: `{"risk_level": "LOW"}`}
	e, gw := newTestEngine(t, o)
	seedProfile(t, gw, "user-back")
	iv, _ := e.Start(context.Background(), "user-back")
	answer(t, e, iv, "1") // 症状咨询

	reply := answer(t, e, iv, "最近压力很大，有点不想活了")
	if reply.Continue {
		t.Fatal("Continue = true, want immediate termination")
	}
	if reply.Risk == nil || reply.Risk.Level != risk.LevelCritical {
		t.Fatalf("Risk = %+v, want CRITICAL", reply.Risk)
	}
	if !strings.Contains(reply.Message, "请立即前往最近的医院急诊就医") {
		t.Errorf("Message = %q, want crisis text", reply.Message)
	}
	// The keyword tier must decide alone, even with an oracle configured.
	if o.screenCalls != 0 {
		t.Errorf("screenCalls = %d, want 0", o.screenCalls)
	}
	if !iv.Halted() || !iv.Done() {
		t.Errorf("halted=%v done=%v, want both", iv.Halted(), iv.Done())
	}
	if iv.SymptomDuration != "" {
		t.Errorf("duration was asked after critical: %q", iv.SymptomDuration)
	}
	if iv.ChiefComplaint == "" {
		t.Error("chief complaint not recorded before termination")
	}
}

func TestSeverityEscalatesToMedium(t *testing.T) {
	e, gw := newTestEngine(t, &stubOracle{})
	seedProfile(t, gw, "user-back")
	iv, _ := e.Start(context.Background(), "user-back")

	reply := answer(t, e, iv, "1", "轻微头痛", "1-3天", "8")
	if reply.Continue {
		t.Fatal("Continue = true, want assessment done")
	}
	if reply.Risk == nil || reply.Risk.Level != risk.LevelMedium {
		t.Fatalf("Risk = %+v, want MEDIUM via severity", reply.Risk)
	}
	if !strings.Contains(reply.Message, "初步评估结果") {
		t.Errorf("Message = %q, want referral text", reply.Message)
	}
	if !iv.ReferralSuggested {
		t.Error("ReferralSuggested = false, want true")
	}
	if iv.SymptomSeverity != 8 {
		t.Errorf("SymptomSeverity = %v, want 8", iv.SymptomSeverity)
	}
}

func TestSeverityThresholdIsInclusive(t *testing.T) {
	e, gw := newTestEngine(t, &stubOracle{})
	seedProfile(t, gw, "user-back")
	iv, _ := e.Start(context.Background(), "user-back")

	reply := answer(t, e, iv, "1", "有点乏力", "2", "7")
	if reply.Risk == nil || reply.Risk.Level != risk.LevelMedium {
		t.Errorf("Risk = %+v, want MEDIUM at severity 7", reply.Risk)
	}
}

func TestMediumKeywordEscalates(t *testing.T) {
	e, gw := newTestEngine(t, &stubOracle{})
	seedProfile(t, gw, "user-back")
	iv, _ := e.Start(context.Background(), "user-back")

	reply := answer(t, e, iv, "1", "这两天反复头晕", "1-3天", "2")
	if reply.Risk == nil || reply.Risk.Level != risk.LevelMedium {
		t.Fatalf("Risk = %+v, want MEDIUM via keyword", reply.Risk)
	}
	if len(reply.Risk.Keywords) == 0 {
		t.Error("Keywords empty, want matched medium keywords")
	}
}

func TestLowRiskClosing(t *testing.T) {
	e, gw := newTestEngine(t, &stubOracle{})
	seedProfile(t, gw, "user-back")
	iv, _ := e.Start(context.Background(), "user-back")

	reply := answer(t, e, iv, "1", "最近总觉得有点累", "一周左右", "2")
	if reply.Continue {
		t.Fatal("Continue = true, want assessment done")
	}
	if reply.Risk == nil || reply.Risk.Level != risk.LevelLow {
		t.Fatalf("Risk = %+v, want LOW", reply.Risk)
	}
	if reply.Message != lowRiskClosing {
		t.Errorf("Message = %q, want %q", reply.Message, lowRiskClosing)
	}
	if iv.ReferralSuggested {
		t.Error("ReferralSuggested = true, want false")
	}
}

func TestHighScreeningIsNeverDowngraded(t *testing.T) {
	o := &stubOracle{verdict: `{"risk_level": "HIGH", "reason": "症状需要重视", "advice": "尽快就诊"}`}
	e, gw := newTestEngine(t, o)
	seedProfile(t, gw, "user-back")
	iv, _ := e.Start(context.Background(), "user-back")
	answer(t, e, iv, "1")

	reply := answer(t, e, iv, "肚子隐隐作痛好几天了")
	if !reply.Continue {
		t.Fatal("Continue = false, HIGH must not end the interview")
	}
	if !strings.Contains(reply.Message, "24 小时内就医") {
		t.Errorf("Message = %q, want urgent alert", reply.Message)
	}

	// Benign closing answers must not wash out the recorded HIGH.
	final := answer(t, e, iv, "1-3天", "2")
	if final.Risk == nil || final.Risk.Level != risk.LevelHigh {
		t.Fatalf("final Risk = %+v, want HIGH retained", final.Risk)
	}
	if !strings.Contains(final.Message, "重要健康提醒") {
		t.Errorf("final Message = %q, want referral advice", final.Message)
	}
	if !iv.ReferralSuggested || iv.RiskLevel != risk.LevelHigh {
		t.Errorf("referral=%v level=%v, want true/HIGH", iv.ReferralSuggested, iv.RiskLevel)
	}
}

func TestFollowupRoundsAreBounded(t *testing.T) {
	plan := `{"need_followup": true, "question": "还有其他伴随症状吗？", "options": ["有", "没有"]}`
	o := &stubOracle{plans: []string{plan, plan, plan, plan, plan}}
	e, gw := newTestEngine(t, o)
	seedProfile(t, gw, "user-back")
	iv, _ := e.Start(context.Background(), "user-back")
	answer(t, e, iv, "1", "最近胃口不太好")

	if iv.Stage != StageFollowup {
		t.Fatalf("Stage = %v, want %v", iv.Stage, StageFollowup)
	}
	q := e.CurrentQuestion(iv)
	if q == nil || q.Prompt != "还有其他伴随症状吗？" {
		t.Fatalf("CurrentQuestion = %+v, want dynamic question", q)
	}

	answer(t, e, iv, "晚上睡不好") // round 1
	answer(t, e, iv, "2")     // round 2, picks suggestion 没有
	answer(t, e, iv, "没有了")   // round 3, budget exhausted

	if len(iv.Followups) != DefaultMaxFollowups {
		t.Fatalf("followups = %d, want %d", len(iv.Followups), DefaultMaxFollowups)
	}
	if got := iv.Followups[1].Answer; got != "没有" {
		t.Errorf("Followups[1].Answer = %q, want suggestion text", got)
	}
	if o.planCalls != 3 {
		t.Errorf("planCalls = %d, want 3 (budget stops further planning)", o.planCalls)
	}
	if iv.Stage != StageCurrentSymptoms {
		t.Fatalf("Stage = %v, want back to %v", iv.Stage, StageCurrentSymptoms)
	}
	if q := e.CurrentQuestion(iv); q == nil || q.Field != "symptom_duration" {
		t.Fatalf("CurrentQuestion = %+v, want duration next", q)
	}

	final := answer(t, e, iv, "1-3天", "3")
	if final.Continue || iv.Stage != StageAssessment {
		t.Errorf("continue=%v stage=%v, want terminal assessment", final.Continue, iv.Stage)
	}
}

func TestFollowupDeclineFallsThrough(t *testing.T) {
	o := &stubOracle{plans: []string{`{"need_followup": false}`}}
	e, gw := newTestEngine(t, o)
	seedProfile(t, gw, "user-back")
	iv, _ := e.Start(context.Background(), "user-back")
	answer(t, e, iv, "1", "最近胃口不太好")

	if iv.Stage != StageCurrentSymptoms {
		t.Fatalf("Stage = %v, want %v", iv.Stage, StageCurrentSymptoms)
	}
	if q := e.CurrentQuestion(iv); q == nil || q.Field != "symptom_duration" {
		t.Errorf("CurrentQuestion = %+v, want duration", q)
	}
	if len(iv.Followups) != 0 {
		t.Errorf("followups = %v, want none", iv.Followups)
	}
}

func TestFollowupPlanFailureFallsThrough(t *testing.T) {
	o := &stubOracle{plans: []string{"这不是JSON"}}
	e, gw := newTestEngine(t, o)
	seedProfile(t, gw, "user-back")
	iv, _ := e.Start(context.Background(), "user-back")
	answer(t, e, iv, "1", "最近胃口不太好")

	if iv.Stage != StageCurrentSymptoms {
		t.Fatalf("Stage = %v, want fixed script to continue", iv.Stage)
	}
	if o.planCalls != 1 {
		t.Errorf("planCalls = %d, want 1", o.planCalls)
	}
}

func TestFollowupAnswerCanHalt(t *testing.T) {
	plan := `{"need_followup": true, "question": "疼痛是什么性质的？"}`
	e, gw := newTestEngine(t, &stubOracle{plans: []string{plan}})
	seedProfile(t, gw, "user-back")
	iv, _ := e.Start(context.Background(), "user-back")
	answer(t, e, iv, "1", "肚子不舒服")

	reply := answer(t, e, iv, "一阵一阵的，而且开始吐血")
	if reply.Continue {
		t.Fatal("Continue = true, want critical halt on followup answer")
	}
	if reply.Risk == nil || reply.Risk.Level != risk.LevelCritical {
		t.Fatalf("Risk = %+v, want CRITICAL", reply.Risk)
	}
	if !iv.Done() {
		t.Error("interview not ended after critical followup answer")
	}
}

func TestProcessAnswerAfterEnd(t *testing.T) {
	e, gw := newTestEngine(t, &stubOracle{})
	seedProfile(t, gw, "user-back")
	iv, _ := e.Start(context.Background(), "user-back")
	answer(t, e, iv, "2") // wellness ends immediately

	if _, err := e.ProcessAnswer(context.Background(), iv, "还有问题"); !errors.Is(err, errorskg.ErrSessionClosed) {
		t.Errorf("err = %v, want ErrSessionClosed", err)
	}
	if _, err := e.ProcessAnswer(context.Background(), nil, "嗯"); !errors.Is(err, errorskg.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput for nil interview", err)
	}
}

func TestSnapshotLifecycle(t *testing.T) {
	sessions := sessionstore.NewMemoryStore()
	e, gw := newTestEngine(t, &stubOracle{}, WithSessionStore(sessions))
	seedProfile(t, gw, "user-back")
	iv, _ := e.Start(context.Background(), "user-back")

	rec, err := sessions.Load(context.Background(), iv.ID)
	if err != nil {
		t.Fatalf("Load after start: %v", err)
	}
	if rec.Metadata[session.MetaKind] != session.KindInterview {
		t.Errorf("kind = %v, want %q", rec.Metadata[session.MetaKind], session.KindInterview)
	}
	if rec.State != session.StateActive {
		t.Errorf("State = %q, want active", rec.State)
	}
	if _, ok := rec.Metadata["risk_level"]; ok {
		t.Error("risk_level set before any assessment")
	}

	answer(t, e, iv, "2") // wellness fast path

	rec, err = sessions.Load(context.Background(), iv.ID)
	if err != nil {
		t.Fatalf("Load after finish: %v", err)
	}
	if rec.State != session.StateClosed {
		t.Errorf("State = %q, want closed", rec.State)
	}
	if got := rec.Metadata["risk_level"]; got != "LOW" {
		t.Errorf("risk_level = %v, want LOW", got)
	}
	if got := rec.Metadata["consultation"]; got != "wellness" {
		t.Errorf("consultation = %v, want wellness", got)
	}
}

func TestEngineWithoutOracleRunsScriptOnly(t *testing.T) {
	e, gw := newTestEngine(t, nil) // no oracle anywhere
	seedProfile(t, gw, "user-back")
	iv, _ := e.Start(context.Background(), "user-back")

	if !strings.Contains(iv.BodyAnalysis, "BMI 22.9") {
		t.Errorf("BodyAnalysis = %q, want metrics without oracle", iv.BodyAnalysis)
	}
	reply := answer(t, e, iv, "1", "最近总觉得有点累", "一周左右", "2")
	if reply.Continue || reply.Risk == nil || reply.Risk.Level != risk.LevelLow {
		t.Errorf("reply = %+v, want LOW closing", reply)
	}
	if len(iv.Followups) != 0 {
		t.Errorf("followups = %v, want none without oracle", iv.Followups)
	}
}
