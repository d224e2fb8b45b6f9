package calc

import "fmt"

// The Format* helpers render user-facing reports for the assessment tools.
// They return an error string rather than an error so a failed calculation
// shows up inline in the conversation instead of aborting the turn.

// FormatBMI renders a BMI report.
func FormatBMI(heightCM, weightKG float64) string {
	bmi, err := BMI(heightCM, weightKG)
	if err != nil {
		return fmt.Sprintf("计算错误: %v", err)
	}
	status, advice := BMICategory(bmi)
	return fmt.Sprintf("BMI: %.2f\n状态: %s\n建议: %s", bmi, status, advice)
}

// FormatBloodPressure renders a blood pressure assessment.
func FormatBloodPressure(systolic, diastolic int) string {
	if systolic <= 0 || diastolic <= 0 {
		return fmt.Sprintf("评估错误: invalid reading %d/%d", systolic, diastolic)
	}
	g := GradeBloodPressure(systolic, diastolic)
	return fmt.Sprintf("血压: %d/%d mmHg\n等级: %s\n风险: %s\n建议: %s",
		systolic, diastolic, g.Level, g.Risk, g.Advice)
}

// FormatIdealWeight renders the ideal weight and healthy range for a height.
func FormatIdealWeight(heightCM float64, gender string) string {
	ideal, min, max, err := IdealWeight(heightCM, gender)
	if err != nil {
		return fmt.Sprintf("计算错误: %v", err)
	}
	return fmt.Sprintf("理想体重: %.1f kg\n健康范围: %.1f - %.1f kg", ideal, min, max)
}

// FormatDailyCalories renders a daily energy budget with the macro split.
func FormatDailyCalories(weightKG, heightCM float64, age int, gender, activityLevel string) string {
	c, err := DailyCalories(weightKG, heightCM, age, gender, activityLevel)
	if err != nil {
		return fmt.Sprintf("计算错误: %v", err)
	}
	return fmt.Sprintf(`每日热量需求: %.0f 千卡
基础代谢率: %.0f 千卡
活动水平: %s

营养素建议:
- 蛋白质: %.0fg (约 %.0f 千卡)
- 脂肪: %.0fg (约 %.0f 千卡)
- 碳水化合物: %.0fg (约 %.0f 千卡)`,
		c.Daily, c.BMR, activityLevel,
		c.ProteinG, c.ProteinG*4, c.FatG, c.FatG*9, c.CarbsG, c.CarbsG*4)
}

// FormatTargetHeartRate renders exercise heart-rate zones for an age.
func FormatTargetHeartRate(age int, intensity string) string {
	if age <= 0 {
		return fmt.Sprintf("计算错误: invalid age %d", age)
	}
	maxHR := MaxHeartRate(age)
	low, high := HeartRateZone(age, intensity)
	fmax := float64(maxHR)
	return fmt.Sprintf(`最大心率: %d 次/分钟
目标心率区间 (%s): %.0f - %.0f 次/分钟

建议:
- 轻度运动: %.0f-%.0f 次/分钟（热身、恢复）
- 中度运动: %.0f-%.0f 次/分钟（有氧耐力）
- 剧烈运动: %.0f-%.0f 次/分钟（高强度训练）`,
		maxHR, intensity, low, high,
		fmax*0.5, fmax*0.6, fmax*0.6, fmax*0.7, fmax*0.7, fmax*0.85)
}
