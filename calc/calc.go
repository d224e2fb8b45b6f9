// Package calc provides the pure health-metric functions consumed by the
// assessment tools and the interview engine. All functions are side-effect
// free; the only failure mode is malformed numeric input.
package calc

import (
	"fmt"
	"strings"

	errorskg "github.com/sweetpotato0/health-agent/errors"
)

// BMI returns weight(kg) / height(m)^2.
func BMI(heightCM, weightKG float64) (float64, error) {
	if heightCM <= 0 || weightKG <= 0 {
		return 0, fmt.Errorf("calc: height and weight must be positive: %w", errorskg.ErrInvalidInput)
	}
	heightM := heightCM / 100
	return weightKG / (heightM * heightM), nil
}

// BMICategory maps a BMI value onto the CN adult thresholds.
func BMICategory(bmi float64) (status, advice string) {
	switch {
	case bmi < 18.5:
		return "偏瘦", "建议增加营养摄入，适当增重"
	case bmi < 24:
		return "正常", "保持良好的生活习惯"
	case bmi < 28:
		return "超重", "建议控制饮食，增加运动"
	default:
		return "肥胖", "建议就医咨询，制定减重计划"
	}
}

// IdealWeight returns the ideal weight and the healthy range for a height.
// Ideal BMI is 22 for men and 21 for women; the range is BMI 18.5-24.
func IdealWeight(heightCM float64, gender string) (ideal, min, max float64, err error) {
	if heightCM <= 0 {
		return 0, 0, 0, fmt.Errorf("calc: height must be positive: %w", errorskg.ErrInvalidInput)
	}
	heightM := heightCM / 100
	sq := heightM * heightM
	idealBMI := 21.0
	if IsMale(gender) {
		idealBMI = 22.0
	}
	return idealBMI * sq, 18.5 * sq, 24 * sq, nil
}

// BMR computes the basal metabolic rate with the Mifflin-St Jeor equation.
func BMR(weightKG, heightCM float64, age int, gender string) (float64, error) {
	if weightKG <= 0 || heightCM <= 0 || age <= 0 {
		return 0, fmt.Errorf("calc: weight, height and age must be positive: %w", errorskg.ErrInvalidInput)
	}
	bmr := 10*weightKG + 6.25*heightCM - 5*float64(age)
	if IsMale(gender) {
		return bmr + 5, nil
	}
	return bmr - 161, nil
}

// ActivityMultiplier maps an activity level onto its calorie multiplier.
// Unknown levels fall back to sedentary.
func ActivityMultiplier(level string) float64 {
	switch strings.ToLower(level) {
	case "light":
		return 1.375
	case "moderate":
		return 1.55
	case "active":
		return 1.725
	case "very_active":
		return 1.9
	default: // sedentary
		return 1.2
	}
}

// Calories describes a daily energy budget with a macro split.
type Calories struct {
	BMR      float64
	Daily    float64
	ProteinG float64
	FatG     float64
	CarbsG   float64
}

// DailyCalories computes daily energy needs: BMR scaled by activity, protein
// at 1.6 g/kg, 25% of calories from fat, the remainder from carbohydrates.
func DailyCalories(weightKG, heightCM float64, age int, gender, activityLevel string) (Calories, error) {
	bmr, err := BMR(weightKG, heightCM, age, gender)
	if err != nil {
		return Calories{}, err
	}
	daily := bmr * ActivityMultiplier(activityLevel)
	protein := weightKG * 1.6
	fat := daily * 0.25 / 9
	carbs := (daily - protein*4 - fat*9) / 4
	return Calories{BMR: bmr, Daily: daily, ProteinG: protein, FatG: fat, CarbsG: carbs}, nil
}

// MaxHeartRate returns the age-predicted maximum heart rate (220 - age).
func MaxHeartRate(age int) int {
	return 220 - age
}

// HeartRateZone returns the target heart-rate band for an exercise intensity.
// Unknown intensities fall back to moderate.
func HeartRateZone(age int, intensity string) (low, high float64) {
	maxHR := float64(MaxHeartRate(age))
	lowPct, highPct := 0.6, 0.7
	switch strings.ToLower(intensity) {
	case "light":
		lowPct, highPct = 0.5, 0.6
	case "vigorous":
		lowPct, highPct = 0.7, 0.85
	}
	return maxHR * lowPct, maxHR * highPct
}

// BloodPressureGrade classifies a reading per the CN hypertension guideline.
type BloodPressureGrade struct {
	Level  string
	Risk   string
	Advice string
}

// GradeBloodPressure grades a systolic/diastolic reading.
func GradeBloodPressure(systolic, diastolic int) BloodPressureGrade {
	switch {
	case systolic < 120 && diastolic < 80:
		return BloodPressureGrade{"正常血压", "低风险", "保持健康生活方式"}
	case systolic < 130 && diastolic < 80:
		return BloodPressureGrade{"正常高值", "轻度风险", "注意饮食，减少盐摄入"}
	case systolic < 140 || diastolic < 90:
		return BloodPressureGrade{"1级高血压", "中度风险", "建议就医，可能需要药物治疗"}
	case systolic < 160 || diastolic < 100:
		return BloodPressureGrade{"2级高血压", "高风险", "需要就医，进行规范治疗"}
	default:
		return BloodPressureGrade{"3级高血压", "极高风险", "立即就医！需要紧急干预"}
	}
}

// IsMale reports whether a gender string denotes male. Both the interview
// options and free-text inputs are accepted.
func IsMale(gender string) bool {
	switch strings.ToLower(strings.TrimSpace(gender)) {
	case "男", "男性", "male", "m":
		return true
	default:
		return false
	}
}
