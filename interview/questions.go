package interview

// AnswerType declares how an answer is validated.
type AnswerType int

const (
	AnswerText AnswerType = iota
	AnswerNumber
	AnswerChoice
	AnswerMultiChoice
)

// Question is one scripted (or oracle-generated) interview question.
type Question struct {
	Field       string
	Prompt      string
	Type        AnswerType
	Min, Max    float64  // inclusive bounds, AnswerNumber only
	Options     []string // AnswerChoice / AnswerMultiChoice; suggestions for AnswerText
	Placeholder string   // example answer shown under free-text questions
	Important   bool     // answer goes through realtime risk screening
	Followup    bool     // answer may trigger oracle-generated follow-ups
}

// noneAnswer is the sentinel users type for "none of these".
const noneAnswer = "无"

// defaultQuestions is the scripted interview. Stages not listed here
// (FOLLOWUP, ASSESSMENT) get their questions dynamically or ask none.
func defaultQuestions() map[Stage][]Question {
	return map[Stage][]Question{
		StageBasicInfo: {
			{
				Field:   "gender",
				Prompt:  "请问您的性别是？",
				Type:    AnswerChoice,
				Options: []string{"男", "女"},
			},
			{
				Field:  "age",
				Prompt: "请问您的年龄是多少岁？",
				Type:   AnswerNumber,
				Min:    0,
				Max:    120,
			},
			{
				Field:  "height",
				Prompt: "请问您的身高是多少厘米(cm)？",
				Type:   AnswerNumber,
				Min:    50,
				Max:    250,
			},
			{
				Field:  "weight",
				Prompt: "请问您的体重是多少公斤(kg)？",
				Type:   AnswerNumber,
				Min:    20,
				Max:    300,
			},
		},
		StageMedicalHistory: {
			{
				Field:   "family_history",
				Prompt:  "请问您的直系亲属（父母、兄弟姐妹）有以下疾病吗？可多选，没有请输入'无'",
				Type:    AnswerMultiChoice,
				Options: []string{"高血压", "糖尿病", "心脏病", "癌症", "脑卒中", "其他", "无"},
			},
			{
				Field:       "allergies",
				Prompt:      "请问您有药物或食物过敏吗？有请说明，没有请输入'无'",
				Type:        AnswerText,
				Placeholder: "例如：青霉素过敏、海鲜过敏",
			},
			{
				Field:   "chronic_diseases",
				Prompt:  "请问您有以下慢性病吗？可多选，没有请输入'无'",
				Type:    AnswerMultiChoice,
				Options: []string{"高血压", "糖尿病", "高血脂", "心脏病", "哮喘", "其他", "无"},
			},
			{
				Field:       "current_medications",
				Prompt:      "请问您目前正在服用什么药物？没有请输入'无'",
				Type:        AnswerText,
				Placeholder: "例如：降压药、降糖药",
			},
		},
		StageConsultationType: {
			{
				Field:   "consultation_type",
				Prompt:  "请问您本次想咨询哪类问题？",
				Type:    AnswerChoice,
				Options: []string{TypeSymptom.Label(), TypeWellness.Label()},
			},
		},
		StageCurrentSymptoms: {
			{
				Field:     "chief_complaint",
				Prompt:    "请简单描述一下您今天咨询的主要问题是什么？",
				Type:      AnswerText,
				Important: true,
				Followup:  true,
			},
			{
				Field:   "symptom_duration",
				Prompt:  "这个症状/问题持续多长时间了？",
				Type:    AnswerChoice,
				Options: []string{"今天刚开始", "1-3天", "一周左右", "一个月以上", "很长时间了"},
			},
			{
				Field:  "symptom_severity",
				Prompt: "如果用1-10分表示严重程度（1最轻，10最重），您给自己的症状打几分？",
				Type:   AnswerNumber,
				Min:    1,
				Max:    10,
			},
		},
	}
}
