package memory

import (
	"fmt"
	"strings"
	"time"
)

// Profile is the structured health profile collected by the interview.
type Profile struct {
	Gender          string    `json:"gender"`
	Age             int       `json:"age"`
	HeightCM        float64   `json:"height_cm"`
	WeightKG        float64   `json:"weight_kg"`
	FamilyHistory   []string  `json:"family_history"`
	ChronicDiseases []string  `json:"chronic_diseases"`
	Allergies       []string  `json:"allergies"`
	Medications     []string  `json:"medications"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Complete reports whether the basic-info fields are all filled. A complete
// profile lets the interview skip straight to the consultation type.
func (p *Profile) Complete() bool {
	if p == nil {
		return false
	}
	return p.Gender != "" && p.Age > 0 && p.HeightCM > 0 && p.WeightKG > 0
}

// Clone returns a deep copy.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	out := *p
	out.FamilyHistory = append([]string(nil), p.FamilyHistory...)
	out.ChronicDiseases = append([]string(nil), p.ChronicDiseases...)
	out.Allergies = append([]string(nil), p.Allergies...)
	out.Medications = append([]string(nil), p.Medications...)
	return &out
}

// Summary renders a one-line description for prompts and logs.
func (p *Profile) Summary() string {
	if p == nil {
		return ""
	}
	parts := make([]string, 0, 5)
	if p.Gender != "" {
		parts = append(parts, p.Gender)
	}
	if p.Age > 0 {
		parts = append(parts, fmt.Sprintf("%d岁", p.Age))
	}
	if p.HeightCM > 0 {
		parts = append(parts, fmt.Sprintf("身高%.0fcm", p.HeightCM))
	}
	if p.WeightKG > 0 {
		parts = append(parts, fmt.Sprintf("体重%.0fkg", p.WeightKG))
	}
	if len(p.ChronicDiseases) > 0 {
		parts = append(parts, "慢性病史: "+strings.Join(p.ChronicDiseases, "、"))
	}
	return strings.Join(parts, "，")
}
