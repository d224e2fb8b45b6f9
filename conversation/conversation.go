// Package conversation implements the answer pipeline for open questions: a
// router that picks between metric assessment and plain knowledge lookup,
// a self-correcting retrieval loop (retrieve, grade, rewrite, web fallback),
// and a summarizer that renders the final report. The pipeline is a closed
// state machine over a typed turn state; every oracle and retrieval failure
// degrades toward "keep the conversation going" instead of surfacing an
// error to the user.
package conversation

import (
	"github.com/sweetpotato0/health-agent/retrieval"
)

// Mode selects which answer flow a turn takes.
type Mode int

const (
	// ModeScience answers general health questions from retrieved material.
	ModeScience Mode = iota
	// ModeAssessment first computes health metrics from the message, then
	// retrieves advice around the results.
	ModeAssessment
)

func (m Mode) String() string {
	if m == ModeAssessment {
		return "assessment"
	}
	return "science"
}

// State enumerates the stations of the answer pipeline. The set is closed:
// the transition function owns all routing and there is no dynamic dispatch.
type State int

const (
	// StateRouter classifies the message and loads the user context.
	StateRouter State = iota
	// StateAssessTool interprets the message into metric tool calls.
	StateAssessTool
	// StateRetrieve queries the local knowledge base.
	StateRetrieve
	// StateGrade judges relevance and either synthesizes, retries or
	// escalates to the web.
	StateGrade
	// StateWebSearch is the one-shot remote fallback.
	StateWebSearch
	// StateSummarize renders the final user-facing report.
	StateSummarize
	// StateDone terminates the turn.
	StateDone
)

func (s State) String() string {
	switch s {
	case StateRouter:
		return "router"
	case StateAssessTool:
		return "assessment_tool"
	case StateRetrieve:
		return "retrieve"
	case StateGrade:
		return "grade_loop"
	case StateWebSearch:
		return "web_search"
	case StateSummarize:
		return "summarizer"
	default:
		return "done"
	}
}

// Turn carries the working state of a single conversation turn through the
// machine. Question starts as the raw input and is replaced whenever the
// grading step rewrites the search query; Input always keeps the original.
type Turn struct {
	UserID string
	Input  string

	// Question is the current retrieval query. Rewrites replace it.
	Question string

	Mode          Mode
	ToolOutput    string
	RagOutput     string
	FinalAnswer   string
	Documents     []retrieval.Document
	LoopStep      int
	UsedWebSearch bool
	HealthProfile string
}
