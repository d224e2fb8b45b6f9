package memory

import (
	"fmt"
	"strings"
)

// InterviewNote is one past interview shown in the markdown export.
type InterviewNote struct {
	StartedAt      string
	ChiefComplaint string
	RiskLevel      string
}

// FormatMarkdown renders a human-readable health dossier: basic info table,
// medical history sections, extracted records and recent interviews.
func FormatMarkdown(user *User, profile *Profile, records []*Record, interviews []InterviewNote) string {
	lines := []string{
		"# 用户健康档案",
		"",
	}
	if user != nil {
		id := user.ID
		if len(id) > 8 {
			id = id[:8] + "..."
		}
		lines = append(lines,
			fmt.Sprintf("**用户ID**: %s", id),
			fmt.Sprintf("**创建时间**: %s", user.CreatedAt.Format("2006-01-02 15:04:05")),
			fmt.Sprintf("**最后访问**: %s", user.LastActive.Format("2006-01-02 15:04:05")),
			"",
		)
	}

	lines = append(lines, "## 基础信息", "", "| 项目 | 数值 |", "|------|------|")
	lines = append(lines,
		tableRow("性别", profileField(profile, func(p *Profile) string { return p.Gender })),
		tableRow("年龄", profileField(profile, func(p *Profile) string {
			if p.Age > 0 {
				return fmt.Sprintf("%d", p.Age)
			}
			return ""
		})),
		tableRow("身高", profileField(profile, func(p *Profile) string {
			if p.HeightCM > 0 {
				return fmt.Sprintf("%.0fcm", p.HeightCM)
			}
			return ""
		})),
		tableRow("体重", profileField(profile, func(p *Profile) string {
			if p.WeightKG > 0 {
				return fmt.Sprintf("%.0fkg", p.WeightKG)
			}
			return ""
		})),
	)
	if profile != nil && profile.HeightCM > 0 && profile.WeightKG > 0 {
		h := profile.HeightCM / 100
		lines = append(lines, tableRow("BMI", fmt.Sprintf("%.1f", profile.WeightKG/(h*h))))
	}

	lines = append(lines,
		"",
		"## 病史信息",
		"",
		"### 家族病史",
		joinOrNone(profileList(profile, func(p *Profile) []string { return p.FamilyHistory })),
		"",
		"### 过敏史",
		joinOrNone(profileList(profile, func(p *Profile) []string { return p.Allergies })),
		"",
		"### 慢性病",
		joinOrNone(profileList(profile, func(p *Profile) []string { return p.ChronicDiseases })),
		"",
		"### 正在用药",
		joinOrNone(profileList(profile, func(p *Profile) []string { return p.Medications })),
		"",
	)

	if len(records) > 0 {
		lines = append(lines, "## 健康记录", "")
		for _, rec := range records {
			mark := ""
			if rec.Important {
				mark = " ⚠️"
			}
			lines = append(lines, fmt.Sprintf("- [%s] %s%s", rec.Category, rec.Content, mark))
		}
		lines = append(lines, "")
	}

	if len(interviews) > 0 {
		lines = append(lines, "## 问诊记录", "")
		for _, note := range interviews {
			complaint := note.ChiefComplaint
			if complaint == "" {
				complaint = "未记录"
			}
			level := note.RiskLevel
			if level == "" {
				level = "未评估"
			}
			lines = append(lines,
				fmt.Sprintf("### %s", note.StartedAt),
				fmt.Sprintf("- **主诉**: %s", complaint),
				fmt.Sprintf("- **风险等级**: %s", level),
				"",
			)
		}
	}

	return strings.Join(lines, "\n")
}

func tableRow(label, value string) string {
	if value == "" {
		value = "未填写"
	}
	return fmt.Sprintf("| %s | %s |", label, value)
}

func profileField(p *Profile, get func(*Profile) string) string {
	if p == nil {
		return ""
	}
	return get(p)
}

func profileList(p *Profile, get func(*Profile) []string) []string {
	if p == nil {
		return nil
	}
	return get(p)
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "无"
	}
	return strings.Join(items, ", ")
}
