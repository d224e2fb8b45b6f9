// Package interview implements the staged intake that precedes advice
// generation: a fixed question script fills the user's health profile,
// symptom answers are screened for medical urgency in realtime, and the
// interview ends with a triage level that decides whether advice may be
// generated at all.
//
// Stages move strictly forward:
//
//	IDENTIFICATION → BASIC_INFO → MEDICAL_HISTORY → CONSULTATION_TYPE
//	              → CURRENT_SYMPTOMS → FOLLOWUP* → ASSESSMENT
//
// Returning users with a complete profile start at CONSULTATION_TYPE. A
// CRITICAL screening result ends the interview immediately from any stage.
package interview

import (
	"time"

	"github.com/sweetpotato0/health-agent/memory"
	"github.com/sweetpotato0/health-agent/message"
	"github.com/sweetpotato0/health-agent/risk"
	"github.com/sweetpotato0/health-agent/session"
)

// Stage identifies where the interview currently is.
type Stage int

const (
	StageIdentification Stage = iota
	StageBasicInfo
	StageMedicalHistory
	StageConsultationType
	StageCurrentSymptoms
	StageFollowup
	StageAssessment
)

// String returns the persisted form of the stage.
func (s Stage) String() string {
	switch s {
	case StageIdentification:
		return "identification"
	case StageBasicInfo:
		return "basic_info"
	case StageMedicalHistory:
		return "medical_history"
	case StageConsultationType:
		return "consultation_type"
	case StageCurrentSymptoms:
		return "current_symptoms"
	case StageFollowup:
		return "followup"
	case StageAssessment:
		return "assessment"
	default:
		return "unknown"
	}
}

// ConsultationType is the branch the user picks after medical history:
// symptom consultations collect the full symptom block, health-management
// consultations skip straight to assessment.
type ConsultationType int

const (
	TypeUnset ConsultationType = iota
	TypeSymptom
	TypeWellness
)

// String returns the persisted form of the consultation type.
func (t ConsultationType) String() string {
	switch t {
	case TypeSymptom:
		return "symptom"
	case TypeWellness:
		return "wellness"
	default:
		return ""
	}
}

// Label returns the option text shown to the user.
func (t ConsultationType) Label() string {
	switch t {
	case TypeSymptom:
		return "症状咨询"
	case TypeWellness:
		return "健康管理"
	default:
		return ""
	}
}

// consultationTypeFromLabel maps a validated option string back onto the
// enum. Unknown labels report false.
func consultationTypeFromLabel(label string) (ConsultationType, bool) {
	switch label {
	case TypeSymptom.Label():
		return TypeSymptom, true
	case TypeWellness.Label():
		return TypeWellness, true
	default:
		return TypeUnset, false
	}
}

// QA is one dynamically generated follow-up question and its answer.
type QA struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Interview is one live intake session. It is not safe for concurrent use;
// the engine processes one answer at a time.
type Interview struct {
	ID      string
	UserID  string
	Stage   Stage
	Type    ConsultationType
	Started time.Time
	Ended   time.Time

	ChiefComplaint  string
	SymptomDuration string
	SymptomSeverity float64
	Followups       []QA

	BodyAnalysis      string
	RiskLevel         risk.Level
	RiskKeywords      []string
	ReferralSuggested bool

	profile       *memory.Profile
	questionIndex int
	pending       *Question
	riskAssessed  bool
	log           []*message.Message
}

// Done reports whether the interview reached a terminal state, either the
// final assessment or a critical-risk abort.
func (iv *Interview) Done() bool { return !iv.Ended.IsZero() }

// Halted reports whether the interview was aborted on a critical screening.
func (iv *Interview) Halted() bool { return iv.RiskLevel == risk.LevelCritical }

// Profile returns the health profile the interview is filling. The pointer
// is shared with the engine; treat it as read-only.
func (iv *Interview) Profile() *memory.Profile { return iv.profile }

// Log returns the question/answer transcript so far.
func (iv *Interview) Log() []*message.Message { return message.CloneMessages(iv.log) }

// snapshot converts the interview into a session record so past interviews
// show up in the user's dossier.
func (iv *Interview) snapshot() *session.Record {
	state := session.StateActive
	if iv.Done() {
		state = session.StateClosed
	}
	meta := map[string]any{
		session.MetaKind:   session.KindInterview,
		"stage":            iv.Stage.String(),
		"consultation":     iv.Type.String(),
		"chief_complaint":  iv.ChiefComplaint,
		"symptom_duration": iv.SymptomDuration,
		"symptom_severity": iv.SymptomSeverity,
		"followups":        len(iv.Followups),
		"referral":         iv.ReferralSuggested,
		"started_at":       iv.Started.Format(time.RFC3339),
	}
	if iv.riskAssessed {
		meta["risk_level"] = iv.RiskLevel.String()
	}
	return &session.Record{
		ID:        iv.ID,
		UserID:    iv.UserID,
		State:     state,
		Messages:  message.CloneMessages(iv.log),
		Metadata:  meta,
		CreatedAt: iv.Started,
		UpdatedAt: time.Now(),
	}
}
