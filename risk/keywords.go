package risk

// DefaultEmergencyKeywords returns the hard-rule symptom list. Any match
// forces CRITICAL and ends the interview with the crisis message.
func DefaultEmergencyKeywords() []string {
	return []string{
		// 心血管急症
		"胸闷", "胸痛", "心脏疼", "心绞痛", "心慌", "心悸",
		"喘不上气", "呼吸困难", "憋气", "濒死感",
		// 脑血管急症
		"剧烈头痛", "突然头痛", "半边身体麻", "说不出话", "口齿不清",
		"看不清", "突然看不见", "意识模糊", "晕厥",
		// 其他急症
		"大量出血", "吐血", "便血", "咳血",
		"高烧不退", "持续高烧", "抽搐", "惊厥",
		"剧烈腹痛", "腹部剧痛",
		"严重过敏", "全身肿", "喉咙肿",
		// 精神急症
		"想自杀", "不想活", "自残", "自伤",
	}
}

// DefaultMediumKeywords returns symptoms that mark a consultation as worth a
// clinic visit without being an emergency.
func DefaultMediumKeywords() []string {
	return []string{
		"持续疼痛", "反复发作", "越来越严重",
		"发烧", "高血压", "低血压", "心律不齐",
		"头晕", "眩晕", "恶心想吐",
		"皮疹", "过敏", "肿胀",
		"失眠严重", "焦虑", "抑郁",
	}
}
