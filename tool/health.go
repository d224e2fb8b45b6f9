package tool

import (
	"context"

	"github.com/sweetpotato0/health-agent/calc"
)

// HealthTools returns the five health calculators the assessment step can
// invoke. Handlers never return errors: bad values come back as the inline
// 计算错误/评估错误 report the user sees.
func HealthTools() []*Tool {
	return []*Tool{
		{
			Name:        "calculate_bmi",
			Description: "计算BMI（身体质量指数），返回BMI值和健康状态评估",
			Parameters: []Parameter{
				{Name: "height_cm", Type: "number", Description: "身高（厘米）", Required: true},
				{Name: "weight_kg", Type: "number", Description: "体重（公斤）", Required: true},
			},
			Handler: func(ctx context.Context, args Args) (string, error) {
				height, err := args.Float("height_cm")
				if err != nil {
					return "", err
				}
				weight, err := args.Float("weight_kg")
				if err != nil {
					return "", err
				}
				return calc.FormatBMI(height, weight), nil
			},
		},
		{
			Name:        "calculate_blood_pressure_risk",
			Description: "评估血压风险等级，返回血压等级、风险和建议",
			Parameters: []Parameter{
				{Name: "systolic", Type: "integer", Description: "收缩压（高压）", Required: true},
				{Name: "diastolic", Type: "integer", Description: "舒张压（低压）", Required: true},
			},
			Handler: func(ctx context.Context, args Args) (string, error) {
				systolic, err := args.Int("systolic")
				if err != nil {
					return "", err
				}
				diastolic, err := args.Int("diastolic")
				if err != nil {
					return "", err
				}
				return calc.FormatBloodPressure(systolic, diastolic), nil
			},
		},
		{
			Name:        "calculate_ideal_weight",
			Description: "计算理想体重范围",
			Parameters: []Parameter{
				{Name: "height_cm", Type: "number", Description: "身高（厘米）", Required: true},
				{Name: "gender", Type: "string", Description: "性别（\"男\" 或 \"女\"）", Required: true},
			},
			Handler: func(ctx context.Context, args Args) (string, error) {
				height, err := args.Float("height_cm")
				if err != nil {
					return "", err
				}
				return calc.FormatIdealWeight(height, args.String("gender", "")), nil
			},
		},
		{
			Name:        "calculate_daily_calories",
			Description: "计算每日所需热量和营养素建议",
			Parameters: []Parameter{
				{Name: "weight_kg", Type: "number", Description: "体重（公斤）", Required: true},
				{Name: "height_cm", Type: "number", Description: "身高（厘米）", Required: true},
				{Name: "age", Type: "integer", Description: "年龄", Required: true},
				{Name: "gender", Type: "string", Description: "性别（\"男\" 或 \"女\"）", Required: true},
				{Name: "activity_level", Type: "string", Description: "活动水平", Required: false,
					Enum:    []string{"sedentary", "light", "moderate", "active", "very_active"},
					Default: "moderate"},
			},
			Handler: func(ctx context.Context, args Args) (string, error) {
				weight, err := args.Float("weight_kg")
				if err != nil {
					return "", err
				}
				height, err := args.Float("height_cm")
				if err != nil {
					return "", err
				}
				age, err := args.Int("age")
				if err != nil {
					return "", err
				}
				gender := args.String("gender", "")
				level := args.String("activity_level", "moderate")
				return calc.FormatDailyCalories(weight, height, age, gender, level), nil
			},
		},
		{
			Name:        "calculate_target_heart_rate",
			Description: "计算运动目标心率区间",
			Parameters: []Parameter{
				{Name: "age", Type: "integer", Description: "年龄", Required: true},
				{Name: "intensity", Type: "string", Description: "运动强度（\"light\"轻度, \"moderate\"中度, \"vigorous\"剧烈）", Required: false,
					Enum:    []string{"light", "moderate", "vigorous"},
					Default: "moderate"},
			},
			Handler: func(ctx context.Context, args Args) (string, error) {
				age, err := args.Int("age")
				if err != nil {
					return "", err
				}
				return calc.FormatTargetHeartRate(age, args.String("intensity", "moderate")), nil
			},
		},
	}
}

// RegisterHealthTools adds the health calculators to a registry.
func RegisterHealthTools(r *Registry) error {
	for _, t := range HealthTools() {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}
