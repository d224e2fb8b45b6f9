package risk

import (
	"fmt"
	"strings"
)

// CrisisMessage is shown when an emergency keyword matches. It always reaches
// the user, no other component can suppress it.
func CrisisMessage(keywords []string) string {
	return fmt.Sprintf(`
⚠️⚠️⚠️ 紧急提醒 ⚠️⚠️⚠️

检测到您描述的症状可能较为严重：%s

【请立即前往最近的医院急诊就医！】

这些症状可能与急性疾病相关，需要专业医生面诊检查。
本系统无法替代医生诊断，为了您的安全，请立即就医。

如有紧急情况请拨打 120 急救电话。
`, strings.Join(keywords, ", "))
}

// EmergencyMessage is the oracle-tier CRITICAL alert.
func EmergencyMessage(reason string) string {
	return fmt.Sprintf(`
⚠️⚠️⚠️ 紧急提醒 ⚠️⚠️⚠️

%s

【请立即前往最近的医院急诊就医！】

如有紧急情况请拨打 120 急救电话。
`, reason)
}

// UrgentMessage is the oracle-tier HIGH alert. It warns but does not end the
// interview.
func UrgentMessage(reason, advice string) string {
	var b strings.Builder
	b.WriteString("⚠️ 重要提醒：")
	b.WriteString(reason)
	b.WriteString("\n\n建议您在 24 小时内就医检查。")
	if advice != "" {
		b.WriteString("\n")
		b.WriteString(advice)
	}
	return b.String()
}

// ReferralAdvice is the closing message for a HIGH final assessment.
func ReferralAdvice(keywords []string) string {
	described := "您描述的症状"
	if len(keywords) > 0 {
		shown := keywords
		if len(shown) > 3 {
			shown = shown[:3]
		}
		described = fmt.Sprintf("您描述的症状（%s）", strings.Join(shown, ", "))
	}
	return fmt.Sprintf(`
━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
⚠️  重要健康提醒  ⚠️
━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

根据%s，
我们强烈建议您尽快前往医院就诊。

【建议就医科室】
• 如有胸痛、呼吸困难 → 心内科/急诊
• 如有剧烈头痛、肢体麻木 → 神经内科/急诊
• 如有大量出血 → 急诊

【就医前注意事项】
1. 保持冷静，不要剧烈活动
2. 如有家人陪同更好
3. 带上您正在服用的药物清单
4. 记录症状发作的时间

本系统为健康科普服务，无法替代医生诊断。
祝您早日康复！

━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
`, described)
}

// ReferralMessage is the closing message for a MEDIUM final assessment. The
// interview continues into advice generation after showing it.
func ReferralMessage(keywords []string) string {
	hint := ""
	if len(keywords) > 0 {
		shown := keywords
		if len(shown) > 2 {
			shown = shown[:2]
		}
		hint = fmt.Sprintf("（相关症状：%s）", strings.Join(shown, ", "))
	}
	return fmt.Sprintf(`
📋 初步评估结果 %s

根据您提供的信息，建议您：
1. 近期安排时间到医院进行检查
2. 在此期间，我可以为您提供一些初步的健康建议

接下来我会根据医学知识库为您提供参考建议，
但请注意，这不能替代医生的专业诊断。

是否需要我为您提供一些初步建议？
`, hint)
}
