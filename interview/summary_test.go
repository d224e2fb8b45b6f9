package interview

import (
	"context"
	"strings"
	"testing"

	"github.com/sweetpotato0/health-agent/conversation"
)

func TestSummaryAfterInterview(t *testing.T) {
	e, gw := newTestEngine(t, &stubOracle{})
	seedProfile(t, gw, "user-back")
	iv, _ := e.Start(context.Background(), "user-back")
	answer(t, e, iv, "1", "最近总是失眠", "一周左右", "3")

	s := iv.Summary()
	if s.Gender != "男" || s.Age != 30 {
		t.Errorf("summary profile = %s/%d, want 男/30", s.Gender, s.Age)
	}
	if s.BMI < 22.8 || s.BMI > 22.9 {
		t.Errorf("BMI = %v, want ≈22.86", s.BMI)
	}
	if s.ChiefComplaint != "最近总是失眠" || s.Duration != "一周左右" || s.Severity != 3 {
		t.Errorf("complaint = %+v, want recorded symptom fields", s)
	}
	if s.RiskLevel != "LOW" {
		t.Errorf("RiskLevel = %q, want LOW", s.RiskLevel)
	}
}

func TestAdviceQueryRendersPatientContext(t *testing.T) {
	s := Summary{
		Gender:          "女",
		Age:             55,
		BMI:             29.4,
		ChronicDiseases: []string{"高血压", "糖尿病"},
		Allergies:       []string{"青霉素"},
		ChiefComplaint:  "头晕",
		Duration:        "1-3天",
	}
	q := s.AdviceQuery()

	want := "患者是55岁女性，体重偏胖，有高血压, 糖尿病病史，对青霉素过敏，目前头晕，持续1-3天。"
	if !strings.Contains(q, want) {
		t.Errorf("AdviceQuery missing context line:\n%s", q)
	}
	for _, part := range []string{"【咨询需求】", "可能的原因分析", "不是医疗诊断"} {
		if !strings.Contains(q, part) {
			t.Errorf("AdviceQuery missing %q", part)
		}
	}
}

func TestAdviceQueryUnderweight(t *testing.T) {
	s := Summary{Gender: "男", Age: 20, BMI: 17.2}
	if q := s.AdviceQuery(); !strings.Contains(q, "体重偏瘦") {
		t.Errorf("AdviceQuery = %q, want 体重偏瘦", q)
	}
}

func TestAdviceQueryEmptyFallsBackToGenericUser(t *testing.T) {
	q := Summary{}.AdviceQuery()
	if !strings.Contains(q, "\n用户。\n") {
		t.Errorf("AdviceQuery = %q, want 用户 context", q)
	}
}

// The advice query embeds ages and durations, so without the marker the
// router would send it to the calculator. It must always grade as science.
func TestAdviceQueryStaysInScienceMode(t *testing.T) {
	s := Summary{
		Gender:         "男",
		Age:            40,
		BMI:            30.1,
		ChiefComplaint: "帮我看看体检报告里的血压 140/90 是多少级",
		Duration:       "1-3天",
	}
	router := conversation.DefaultRouterConfig()
	if mode := router.DetectMode(s.AdviceQuery()); mode != conversation.ModeScience {
		t.Errorf("DetectMode = %v, want science", mode)
	}
}
