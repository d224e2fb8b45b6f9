package interview

import (
	"fmt"
	"strings"

	"github.com/sweetpotato0/health-agent/calc"
)

// Summary condenses a finished interview for display and for building the
// advice-generation query.
type Summary struct {
	Gender          string
	Age             int
	BMI             float64
	ChronicDiseases []string
	Allergies       []string
	Medications     []string

	ChiefComplaint string
	Duration       string
	Severity       float64

	RiskLevel    string
	RiskKeywords []string
}

// Summary snapshots the interview's profile and complaint fields.
func (iv *Interview) Summary() Summary {
	s := Summary{
		ChiefComplaint: iv.ChiefComplaint,
		Duration:       iv.SymptomDuration,
		Severity:       iv.SymptomSeverity,
		RiskLevel:      iv.RiskLevel.String(),
		RiskKeywords:   append([]string(nil), iv.RiskKeywords...),
	}
	if p := iv.profile; p != nil {
		s.Gender = p.Gender
		s.Age = p.Age
		s.ChronicDiseases = append([]string(nil), p.ChronicDiseases...)
		s.Allergies = append([]string(nil), p.Allergies...)
		s.Medications = append([]string(nil), p.Medications...)
		if bmi, err := calc.BMI(p.HeightCM, p.WeightKG); err == nil {
			s.BMI = bmi
		}
	}
	return s
}

const adviceQueryTemplate = `【咨询需求】
%s。

请根据以上情况，提供健康建议：
1. 可能的原因分析
2. 日常注意事项
3. 饮食建议
4. 是否需要进一步检查

注意：这是健康科普建议，不是医疗诊断。
`

// AdviceQuery renders the retrieval query used to generate post-interview
// advice. The leading 【咨询需求】 marker pins the conversation router to
// science mode, so the numbers in the patient context never trip the
// calculator path.
func (s Summary) AdviceQuery() string {
	var parts []string
	if s.Age > 0 && s.Gender != "" {
		parts = append(parts, fmt.Sprintf("患者是%d岁%s性", s.Age, s.Gender))
	}
	switch {
	case s.BMI >= 28:
		parts = append(parts, "体重偏胖")
	case s.BMI > 0 && s.BMI < 18.5:
		parts = append(parts, "体重偏瘦")
	}
	if len(s.ChronicDiseases) > 0 {
		parts = append(parts, fmt.Sprintf("有%s病史", strings.Join(s.ChronicDiseases, ", ")))
	}
	if len(s.Allergies) > 0 {
		parts = append(parts, fmt.Sprintf("对%s过敏", strings.Join(s.Allergies, ", ")))
	}
	if s.ChiefComplaint != "" {
		parts = append(parts, "目前"+s.ChiefComplaint)
	}
	if s.Duration != "" {
		parts = append(parts, "持续"+s.Duration)
	}

	context := "用户"
	if len(parts) > 0 {
		context = strings.Join(parts, "，")
	}
	return fmt.Sprintf(adviceQueryTemplate, context)
}
